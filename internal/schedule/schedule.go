// Package schedule fans an installment plan out into dated, amounted slots.
//
// Amounts are split in cents: every installment but the last receives
// trunc(total/count) to two decimal places and the last one absorbs the
// remainder, so the slots always sum to the total exactly.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

// AmountPlaces is the number of decimal places installment amounts carry.
const AmountPlaces = 2

var ErrInvalidSchedule = errors.New("invalid schedule")

type Slot struct {
	Number          int
	DueDate         time.Time
	ReferencePeriod domain.Period
	Amount          decimal.Decimal
}

// Overrides replaces the computed due date of an installment, keyed by its
// 1-based number. Only consulted when a plan is created.
type Overrides map[int]time.Time

func Generate(baseDueDate time.Time, basePeriod domain.Period, total decimal.Decimal, count int, overrides Overrides) ([]Slot, error) {
	if count < 2 {
		return nil, fmt.Errorf("Generate: count %d: %w", count, ErrInvalidSchedule)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("Generate: total %s: %w", total, ErrInvalidSchedule)
	}
	if baseDueDate.IsZero() || basePeriod.IsZero() {
		return nil, fmt.Errorf("Generate: missing base date or period: %w", ErrInvalidSchedule)
	}
	for n := range overrides {
		if n < 1 || n > count {
			return nil, fmt.Errorf("Generate: override for installment %d outside 1..%d: %w", n, count, ErrInvalidSchedule)
		}
	}

	amounts := Split(total, count)
	base := domain.DateOf(baseDueDate)

	slots := make([]Slot, count)
	for i := range count {
		due := AddMonthsClamped(base, i)
		if o, ok := overrides[i+1]; ok && !o.IsZero() {
			due = domain.DateOf(o)
		}
		slots[i] = Slot{
			Number:          i + 1,
			DueDate:         due,
			ReferencePeriod: basePeriod.AddMonths(i),
			Amount:          amounts[i],
		}
	}
	return slots, nil
}

// Split divides total into count shares; the last share absorbs the rounding
// remainder.
func Split(total decimal.Decimal, count int) []decimal.Decimal {
	if count < 1 {
		return nil
	}
	n := decimal.NewFromInt(int64(count))
	share := total.Div(n).Truncate(AmountPlaces)

	out := make([]decimal.Decimal, count)
	for i := 0; i < count-1; i++ {
		out[i] = share
	}
	out[count-1] = total.Sub(share.Mul(decimal.NewFromInt(int64(count - 1))))
	return out
}

// AddMonthsClamped moves t forward by months calendar months, keeping the day
// of month when the target month has it and clipping to its last day otherwise.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := daysIn(firstOfTarget.Year(), firstOfTarget.Month())
	if d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
