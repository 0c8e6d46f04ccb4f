package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGenerate_EquipmentLease(t *testing.T) {
	slots, err := Generate(date("2024-01-15"), domain.MustParsePeriod("2024-01"),
		decimal.RequireFromString("1200.00"), 4, nil)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	wantDates := []string{"2024-01-15", "2024-02-15", "2024-03-15", "2024-04-15"}
	wantPeriods := []string{"2024-01", "2024-02", "2024-03", "2024-04"}
	for i, s := range slots {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, date(wantDates[i]), s.DueDate)
		assert.Equal(t, wantPeriods[i], s.ReferencePeriod.String())
		assert.True(t, s.Amount.Equal(decimal.RequireFromString("300")), "slot %d amount %s", i+1, s.Amount)
	}
}

func TestGenerate_ClipsToMonthEnd(t *testing.T) {
	slots, err := Generate(date("2024-01-31"), domain.MustParsePeriod("2024-01"),
		decimal.RequireFromString("400"), 4, nil)
	require.NoError(t, err)

	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
	for i, s := range slots {
		assert.Equal(t, date(want[i]), s.DueDate, "installment %d", s.Number)
	}
}

func TestGenerate_PeriodsCrossYearBoundary(t *testing.T) {
	slots, err := Generate(date("2024-11-05"), domain.MustParsePeriod("2024-11"),
		decimal.RequireFromString("90"), 3, nil)
	require.NoError(t, err)

	assert.Equal(t, "2024-11", slots[0].ReferencePeriod.String())
	assert.Equal(t, "2024-12", slots[1].ReferencePeriod.String())
	assert.Equal(t, "2025-01", slots[2].ReferencePeriod.String())
	assert.Equal(t, date("2025-01-05"), slots[2].DueDate)
}

func TestGenerate_Overrides(t *testing.T) {
	slots, err := Generate(date("2024-01-15"), domain.MustParsePeriod("2024-01"),
		decimal.RequireFromString("1200"), 4, Overrides{2: date("2024-02-20")})
	require.NoError(t, err)

	assert.Equal(t, date("2024-01-15"), slots[0].DueDate)
	assert.Equal(t, date("2024-02-20"), slots[1].DueDate)
	assert.Equal(t, date("2024-03-15"), slots[2].DueDate)
	assert.Equal(t, "2024-02", slots[1].ReferencePeriod.String())
}

func TestGenerate_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		due       time.Time
		period    domain.Period
		total     string
		count     int
		overrides Overrides
	}{
		{name: "count one", due: date("2024-01-01"), period: domain.MustParsePeriod("2024-01"), total: "100", count: 1},
		{name: "count zero", due: date("2024-01-01"), period: domain.MustParsePeriod("2024-01"), total: "100", count: 0},
		{name: "zero total", due: date("2024-01-01"), period: domain.MustParsePeriod("2024-01"), total: "0", count: 2},
		{name: "negative total", due: date("2024-01-01"), period: domain.MustParsePeriod("2024-01"), total: "-5", count: 2},
		{name: "missing date", period: domain.MustParsePeriod("2024-01"), total: "100", count: 2},
		{name: "missing period", due: date("2024-01-01"), total: "100", count: 2},
		{
			name: "override out of range", due: date("2024-01-01"), period: domain.MustParsePeriod("2024-01"),
			total: "100", count: 2, overrides: Overrides{3: date("2024-05-01")},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(tc.due, tc.period, decimal.RequireFromString(tc.total), tc.count, tc.overrides)
			require.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		total string
		count int
		want  []string
	}{
		{total: "1200.00", count: 4, want: []string{"300", "300", "300", "300"}},
		{total: "100.00", count: 3, want: []string{"33.33", "33.33", "33.34"}},
		{total: "0.05", count: 3, want: []string{"0.01", "0.01", "0.03"}},
		{total: "10.00", count: 6, want: []string{"1.66", "1.66", "1.66", "1.66", "1.66", "1.70"}},
	}

	for _, tc := range tests {
		t.Run(tc.total, func(t *testing.T) {
			got := Split(decimal.RequireFromString(tc.total), tc.count)
			require.Len(t, got, len(tc.want))
			for i := range got {
				assert.True(t, got[i].Equal(decimal.RequireFromString(tc.want[i])),
					"share %d: got %s, want %s", i+1, got[i], tc.want[i])
			}
		})
	}
}

// The last installment absorbs the remainder: shares sum to the total, all but
// the last are equal, and the last exceeds them by less than count cents.
func TestSplit_RoundingLaw(t *testing.T) {
	cent := decimal.New(1, -AmountPlaces)
	for cents := int64(2); cents <= 5000; cents += 37 {
		total := decimal.New(cents, -AmountPlaces)
		for count := 2; count <= 24; count++ {
			shares := Split(total, count)

			sum := decimal.Zero
			for _, s := range shares {
				sum = sum.Add(s)
				assert.LessOrEqual(t, -s.Exponent(), int32(AmountPlaces), "share %s has sub-cent precision", s)
			}
			require.True(t, sum.Equal(total), "total %s / %d: sum %s", total, count, sum)

			for i := 1; i < count-1; i++ {
				require.True(t, shares[i].Equal(shares[0]))
			}
			diff := shares[count-1].Sub(shares[0])
			require.False(t, diff.IsNegative(), "total %s / %d: last share below the others", total, count)
			require.True(t, diff.LessThan(cent.Mul(decimal.NewFromInt(int64(count)))),
				"total %s / %d: remainder %s too large", total, count, diff)
		}
	}
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		from   string
		months int
		want   string
	}{
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-01-30", 2, "2024-03-30"},
		{"2024-12-15", 1, "2025-01-15"},
		{"2024-05-20", 0, "2024-05-20"},
		{"2024-08-31", 18, "2026-02-28"},
	}

	for _, tc := range tests {
		t.Run(tc.from, func(t *testing.T) {
			assert.Equal(t, date(tc.want), AddMonthsClamped(date(tc.from), tc.months))
		})
	}
}
