package production

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=production
type Repository interface {
	GetRecord(ctx context.Context, id int64) (*Record, error)
	ListRecords(ctx context.Context, filter ListFilter) ([]*Record, int, error)

	Begin(ctx context.Context) (LedgerTx, error)
}

// LedgerTx groups every write to a record and its expenditures into one
// store transaction. Find methods return a nil record when nothing matches.
type LedgerTx interface {
	LockDate(ctx context.Context, date time.Time) error
	FindRecordByDate(ctx context.Context, date time.Time) (*Record, error)
	FindPreviousRecord(ctx context.Context, date time.Time) (*Record, error)
	GetRecord(ctx context.Context, id int64) (*Record, error)

	CreateRecord(ctx context.Context, rec *Record) error
	UpdateRecord(ctx context.Context, rec *Record) error
	DeleteRecord(ctx context.Context, id int64) error
	ApplyExpenditures(ctx context.Context, recordID int64, plan *Plan) error

	Commit() error
	Rollback() error
}

type Service struct {
	repo   Repository
	paging Paging
}

func NewService(repo Repository, paging Paging) *Service {
	return &Service{repo: repo, paging: paging}
}

// NewExpenditure is an expenditure booked together with a new record.
type NewExpenditure struct {
	Name   string
	Amount int64
}

type CreateParams struct {
	Date         time.Time
	Purchased    int64
	Produced     int64
	Sales        int64
	Expenditures []NewExpenditure
}

// UpdateParams holds a partial update. Nil fields keep their current value;
// a nil Expenditures leaves the expenditures alone while a pointer to an
// empty slice removes them all.
type UpdateParams struct {
	Date         *time.Time
	Purchased    *int64
	Produced     *int64
	Sales        *int64
	Expenditures *[]ExpenditureInput
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Record, error) {
	if err := validateCreate(params); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	rec, err := prepareCreate(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}

	return rec, nil
}

// Batch is the outcome of CreateBatch.
type Batch struct {
	Created   []*Record
	Conflicts []time.Time // Dates that already had a record
}

// CreateBatch creates every record in one transaction, in the order given.
// A date that is already taken is reported in Conflicts and skipped; any
// other failure rolls back the whole batch.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) (*Batch, error) {
	for i, p := range params {
		if err := validateCreate(p); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	batch := &Batch{}

	for _, p := range params {
		rec, err := prepareCreate(ctx, tx, p)
		if errors.Is(err, ErrConflict) {
			batch.Conflicts = append(batch.Conflicts, NormalizeDate(p.Date))
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("record for %s: %w", p.Date.Format(time.DateOnly), err)
		}

		if err := tx.CreateRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("record for %s: %w", p.Date.Format(time.DateOnly), err)
		}

		batch.Created = append(batch.Created, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return batch, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Record, error) {
	return s.repo.GetRecord(ctx, id)
}

func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	q, filter, err := q.normalize(s.paging)
	if err != nil {
		return nil, err
	}

	items, total, err := s.repo.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		Pagination: NewPagination(total, q.Page, q.PageSize),
	}, nil
}

// Range returns every record between start and end inclusive, oldest first.
func (s *Service) Range(ctx context.Context, start, end *time.Time) ([]*Record, error) {
	filter := ListFilter{SortBy: SortByDate, SortOrder: SortAsc}
	filter.From, filter.Until = dateBounds(start, end)

	items, _, err := s.repo.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (*Record, error) {
	if err := validateUpdate(params); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	rec, err := tx.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	prepareUpdate(rec, params)

	var plan *Plan

	if params.Expenditures != nil {
		p, err := Reconcile(rec.Expenditures, *params.Expenditures)
		if err != nil {
			return nil, err
		}

		for i := range p.Create {
			p.Create[i].ProductionID = rec.ID
		}

		plan = &p
	}

	if err := tx.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}

	if plan != nil && !plan.Empty() {
		if err := tx.ApplyExpenditures(ctx, rec.ID, plan); err != nil {
			return nil, err
		}

		rec.Expenditures = plan.Apply(rec.Expenditures)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}

	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.GetRecord(ctx, id); err != nil {
		return err
	}

	if err := tx.DeleteRecord(ctx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	return nil
}

func validateCreate(p CreateParams) error {
	if p.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}

	if err := validateQuantities(&p.Purchased, &p.Produced, &p.Sales); err != nil {
		return err
	}

	for i, e := range p.Expenditures {
		if err := validateExpenditure(i, e.Name, e.Amount); err != nil {
			return err
		}
	}

	return nil
}

func validateUpdate(p UpdateParams) error {
	if p.Date != nil && p.Date.IsZero() {
		return fmt.Errorf("%w: date must be a valid calendar date", ErrValidation)
	}

	if err := validateQuantities(p.Purchased, p.Produced, p.Sales); err != nil {
		return err
	}

	if p.Expenditures == nil {
		return nil
	}

	for i, e := range *p.Expenditures {
		if err := validateExpenditure(i, e.Name, e.Amount); err != nil {
			return err
		}
	}

	return nil
}

func validateQuantities(purchased, produced, sales *int64) error {
	for _, q := range []struct {
		name string
		v    *int64
	}{
		{"purchased", purchased},
		{"produced", produced},
		{"sales", sales},
	} {
		if q.v != nil && *q.v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrValidation, q.name)
		}
	}

	return nil
}

func validateExpenditure(i int, name string, amount int64) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: expenditures[%d].name is required", ErrValidation, i)
	}

	if amount < 0 {
		return fmt.Errorf("%w: expenditures[%d].amount must not be negative", ErrValidation, i)
	}

	return nil
}
