package production

import (
	"fmt"
	"time"
)

// Record is one day of the production ledger.
type Record struct {
	ID           int64
	Date         time.Time // Midnight UTC, unique across the ledger
	Purchased    int64
	Produced     int64
	Sales        int64
	Stock        int64 // Derived
	Remains      int64 // Derived, never negative
	Expenditures []Expenditure
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expenditure is a cost booked against a single record.
type Expenditure struct {
	ID           int64
	ProductionID int64
	Name         string
	Amount       int64
}

// TotalExpenditure sums the amounts of all expenditures on the record.
func (r *Record) TotalExpenditure() int64 {
	var total int64
	for _, e := range r.Expenditures {
		total += e.Amount
	}

	return total
}

// NormalizeDate truncates t to the calendar day in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a calendar day written as YYYY-MM-DD or as an RFC 3339
// timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, s)
	}

	return NormalizeDate(t), nil
}
