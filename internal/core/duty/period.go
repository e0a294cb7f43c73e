package duty

import (
	"fmt"
	"time"
)

// Period is one scheduling cycle, keyed by calendar month.
type Period struct {
	Year  int
	Month int
}

const (
	minYear = 1970
	maxYear = 2100
)

// NewPeriod validates year/month and returns the period. Year must be a
// 4-digit value between 1970 and 2100, month 1–12.
func NewPeriod(year, month int) (Period, error) {
	if year < minYear || year > maxYear {
		return Period{}, &PeriodError{Year: year, Month: month, Reason: fmt.Sprintf("year must be between %d and %d", minYear, maxYear)}
	}
	if month < 1 || month > 12 {
		return Period{}, &PeriodError{Year: year, Month: month, Reason: "month must be between 1 and 12"}
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf returns the period the given instant falls into.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Key formats the period as "YYYY-MM".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) String() string { return p.Key() }

// Compare orders periods chronologically: negative if p precedes o.
func (p Period) Compare(o Period) int {
	if p.Year != o.Year {
		return p.Year - o.Year
	}
	return p.Month - o.Month
}

// Next returns the following period, wrapping the year boundary.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Prev returns the preceding period, wrapping the year boundary.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Adjacent reports whether p and o differ by exactly one month.
func (p Period) Adjacent(o Period) bool {
	return p.Next() == o || o.Next() == p
}
