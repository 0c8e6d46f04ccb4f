package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Period is a calendar year-month used as the accounting reference of an entry.
type Period struct {
	Year  int
	Month time.Month
}

const periodLayout = "2006-01"

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("ParsePeriod: %q: %w", s, err)
	}
	return PeriodOf(t), nil
}

func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// AddMonths shifts the period by n months; n may be negative.
func (p Period) AddMonths(n int) Period {
	idx := p.Year*12 + int(p.Month-1) + n
	return Period{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.String(), nil
}

func (p *Period) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Period{}
		return nil
	case string:
		parsed, err := ParsePeriod(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []byte:
		return p.Scan(string(v))
	case time.Time:
		*p = PeriodOf(v)
		return nil
	default:
		return fmt.Errorf("Period.Scan: unsupported type %T", src)
	}
}

func (p Period) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

func (p *Period) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("Period.UnmarshalJSON: %w", err)
	}
	if s == nil || *s == "" {
		*p = Period{}
		return nil
	}
	parsed, err := ParsePeriod(*s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
