package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/schedule"
)

var minInstallmentAmount = decimal.New(1, -schedule.AmountPlaces)

func validateEntryInput(in EntryInput) error {
	switch {
	case in.CompanyID == uuid.Nil:
		return domain.NewValidationError("company_id", "is required")
	case in.CategoryID == uuid.Nil:
		return domain.NewValidationError("category_id", "is required")
	case in.ItemID == uuid.Nil:
		return domain.NewValidationError("item_id", "is required")
	case in.Description == "":
		return domain.NewValidationError("description", "is required")
	case in.ReferencePeriod.IsZero():
		return domain.NewValidationError("reference_period", "is required")
	case in.DueDate.IsZero():
		return domain.NewValidationError("due_date", "is required")
	}
	return validateAmount("amount", in.Amount)
}

func validateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError(field, "must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(schedule.AmountPlaces)) {
		return domain.NewValidationError(field, "must have at most 2 decimal places")
	}
	return nil
}

func (s *Service) validatePlan(total decimal.Decimal, count int, overrides schedule.Overrides) error {
	if count < 2 {
		return domain.NewValidationError("installment_count", "must be at least 2")
	}
	if limit := s.maxInstallments(); count > limit {
		return domain.NewValidationError("installment_count", fmt.Sprintf("must be at most %d", limit))
	}
	if err := validateSplittable(total, count); err != nil {
		return err
	}
	for n, due := range overrides {
		if n < 1 || n > count {
			return domain.NewValidationError("due_date_overrides",
				fmt.Sprintf("installment %d is outside 1..%d", n, count))
		}
		if due.IsZero() {
			return domain.NewValidationError("due_date_overrides",
				fmt.Sprintf("installment %d has no date", n))
		}
	}
	return nil
}

// validateSplittable rejects totals that would leave an installment at zero.
func validateSplittable(total decimal.Decimal, count int) error {
	if total.LessThan(minInstallmentAmount.Mul(decimal.NewFromInt(int64(count)))) {
		return domain.NewValidationError("amount",
			fmt.Sprintf("%s cannot be split into %d installments", total.StringFixed(schedule.AmountPlaces), count))
	}
	return nil
}

func validateChanges(ch EntryChanges) error {
	if ch.CategoryID != nil && *ch.CategoryID == uuid.Nil {
		return domain.NewValidationError("category_id", "must not be empty")
	}
	if ch.ItemID != nil && *ch.ItemID == uuid.Nil {
		return domain.NewValidationError("item_id", "must not be empty")
	}
	if ch.Description != nil && *ch.Description == "" {
		return domain.NewValidationError("description", "must not be empty")
	}
	if ch.ReferencePeriod != nil && ch.ReferencePeriod.IsZero() {
		return domain.NewValidationError("reference_period", "must not be empty")
	}
	if ch.DueDate != nil && ch.DueDate.IsZero() {
		return domain.NewValidationError("due_date", "must not be empty")
	}
	if ch.Amount != nil {
		return validateAmount("amount", *ch.Amount)
	}
	return nil
}

func validateInstallmentEdit(amount decimal.Decimal, dueDate time.Time) error {
	if dueDate.IsZero() {
		return domain.NewValidationError("due_date", "is required")
	}
	return validateAmount("amount", amount)
}

func validateAttachment(in AttachmentInput) error {
	switch {
	case in.FileName == "":
		return domain.NewValidationError("file_name", "is required")
	case in.StoragePath == "":
		return domain.NewValidationError("storage_path", "is required")
	case in.SizeBytes < 0:
		return domain.NewValidationError("size_bytes", "must not be negative")
	}
	return nil
}
