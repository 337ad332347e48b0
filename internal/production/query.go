package production

import (
	"fmt"
	"math"
	"time"
)

// SortField is a column the ledger can be ordered by.
type SortField string

const (
	SortByDate      SortField = "date"
	SortByPurchased SortField = "purchased"
	SortByProduced  SortField = "produced"
	SortByStock     SortField = "stock"
	SortBySales     SortField = "sales"
	SortByRemains   SortField = "remains"
)

// SortOrder is the direction of a listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (f SortField) valid() bool {
	switch f {
	case SortByDate, SortByPurchased, SortByProduced, SortByStock, SortBySales, SortByRemains:
		return true
	}

	return false
}

// Paging bounds the page size accepted by List.
type Paging struct {
	DefaultSize int
	MinSize     int
	MaxSize     int
}

var DefaultPaging = Paging{DefaultSize: 20, MinSize: 10, MaxSize: 500}

// Query is the caller-facing listing request. Zero values select defaults.
type Query struct {
	StartDate *time.Time
	EndDate   *time.Time // Inclusive: the whole day is listed
	Page      int
	PageSize  int
	SortBy    SortField
	SortOrder SortOrder

	Purchased *int64
	Produced  *int64
	Stock     *int64
	Sales     *int64
	Remains   *int64
}

// ListFilter is what the store needs to run a listing.
type ListFilter struct {
	From  *time.Time // Inclusive
	Until *time.Time // Exclusive

	Purchased *int64
	Produced  *int64
	Stock     *int64
	Sales     *int64
	Remains   *int64

	SortBy    SortField
	SortOrder SortOrder
	Limit     int // 0 lists everything
	Offset    int
}

// Pagination describes the page returned by List. From and To are the
// 1-based positions of the first and last item on the page.
type Pagination struct {
	Total       int
	PageCount   int
	CurrentPage int
	PageSize    int
	From        int
	To          int
}

// Page is one page of the ledger.
type Page struct {
	Items      []*Record
	Pagination Pagination
}

// NewPagination computes page bookkeeping for total items.
func NewPagination(total, page, pageSize int) Pagination {
	return Pagination{
		Total:       total,
		PageCount:   (total + pageSize - 1) / pageSize,
		CurrentPage: page,
		PageSize:    pageSize,
		From:        (page-1)*pageSize + 1,
		To:          min(page*pageSize, total),
	}
}

// normalize applies defaults, validates q, and returns the store filter.
func (q Query) normalize(p Paging) (Query, ListFilter, error) {
	if q.Page == 0 {
		q.Page = 1
	}

	if q.Page < 1 {
		return q, ListFilter{}, fmt.Errorf("%w: page must be at least 1", ErrValidation)
	}

	if q.PageSize == 0 {
		q.PageSize = p.DefaultSize
	}

	if q.PageSize < p.MinSize || q.PageSize > p.MaxSize {
		return q, ListFilter{}, fmt.Errorf("%w: pageSize must be between %d and %d", ErrValidation, p.MinSize, p.MaxSize)
	}

	if q.Page > math.MaxInt/q.PageSize {
		return q, ListFilter{}, fmt.Errorf("%w: page %d is out of range", ErrValidation, q.Page)
	}

	if q.SortBy == "" {
		q.SortBy = SortByDate
	}

	if !q.SortBy.valid() {
		return q, ListFilter{}, fmt.Errorf("%w: cannot sort by %q", ErrValidation, q.SortBy)
	}

	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}

	if q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return q, ListFilter{}, fmt.Errorf("%w: sortOrder must be asc or desc", ErrValidation)
	}

	// Stock is left out: an edited record can hold negative stock.
	for name, v := range map[string]*int64{
		"purchased": q.Purchased,
		"produced":  q.Produced,
		"sales":     q.Sales,
		"remains":   q.Remains,
	} {
		if v != nil && *v < 0 {
			return q, ListFilter{}, fmt.Errorf("%w: %s filter must not be negative", ErrValidation, name)
		}
	}

	filter := ListFilter{
		Purchased: q.Purchased,
		Produced:  q.Produced,
		Stock:     q.Stock,
		Sales:     q.Sales,
		Remains:   q.Remains,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Limit:     q.PageSize,
		Offset:    (q.Page - 1) * q.PageSize,
	}

	filter.From, filter.Until = dateBounds(q.StartDate, q.EndDate)

	return q, filter, nil
}

// dateBounds turns an inclusive day range into [from, until).
func dateBounds(start, end *time.Time) (*time.Time, *time.Time) {
	var from, until *time.Time

	if start != nil {
		from = new(NormalizeDate(*start))
	}

	if end != nil {
		until = new(NormalizeDate(*end).AddDate(0, 0, 1))
	}

	return from, until
}
