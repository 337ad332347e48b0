package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/bananas/internal/production"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads a production_data row.
// Expected column order: id, date, purchased, produced, stock, sales, remains, created_at, updated_at
func scanRecord(s scanner) (*production.Record, error) {
	var rec production.Record

	if err := s.Scan(
		&rec.ID, &rec.Date, &rec.Purchased, &rec.Produced, &rec.Stock, &rec.Sales, &rec.Remains,
		&rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rec.Date = production.NormalizeDate(rec.Date)

	return &rec, nil
}

const selectRecordColumns = `
	p.id, p.date, p.purchased, p.produced, p.stock, p.sales, p.remains, p.created_at, p.updated_at
`

var sortColumns = map[production.SortField]string{
	production.SortByDate:      "p.date",
	production.SortByPurchased: "p.purchased",
	production.SortByProduced:  "p.produced",
	production.SortByStock:     "p.stock",
	production.SortBySales:     "p.sales",
	production.SortByRemains:   "p.remains",
}

func isViolation(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func (s *Store) GetRecord(ctx context.Context, id int64) (*production.Record, error) {
	return getRecord(ctx, s.db, id, false)
}

func getRecord(ctx context.Context, q querier, id int64, lock bool) (*production.Record, error) {
	query := `SELECT ` + selectRecordColumns + `
		FROM production_data p
		WHERE p.id = $1`

	if lock {
		query += " FOR UPDATE"
	}

	rec, err := scanRecord(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", production.ErrNotFound, id)
		}

		return nil, fmt.Errorf("getting record: %w", err)
	}

	if err := loadExpenditures(ctx, q, []*production.Record{rec}); err != nil {
		return nil, err
	}

	return rec, nil
}

// findRecord returns the first record matching where, or nil.
func findRecord(ctx context.Context, q querier, where string, args ...any) (*production.Record, error) {
	query := `SELECT ` + selectRecordColumns + `
		FROM production_data p
		WHERE ` + where

	rec, err := scanRecord(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return rec, nil
}

// loadExpenditures fills in the expenditures of recs with a single query.
func loadExpenditures(ctx context.Context, q querier, recs []*production.Record) error {
	if len(recs) == 0 {
		return nil
	}

	byID := make(map[int64]*production.Record, len(recs))
	placeholders := make([]string, len(recs))
	args := make([]any, len(recs))

	for i, rec := range recs {
		byID[rec.ID] = rec
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec.ID
	}

	query := `SELECT id, production_id, name, amount
		FROM expenditures
		WHERE production_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("listing expenditures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e production.Expenditure
		if err := rows.Scan(&e.ID, &e.ProductionID, &e.Name, &e.Amount); err != nil {
			return fmt.Errorf("scanning expenditure: %w", err)
		}

		if rec, ok := byID[e.ProductionID]; ok {
			rec.Expenditures = append(rec.Expenditures, e)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating expenditure rows: %w", err)
	}

	return nil
}

func (s *Store) ListRecords(ctx context.Context, filter production.ListFilter) ([]*production.Record, int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM production_data p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns[production.SortByDate]
	}

	direction := "DESC"
	if filter.SortOrder == production.SortAsc {
		direction = "ASC"
	}

	query := `SELECT ` + selectRecordColumns + `
		FROM production_data p` + where +
		fmt.Sprintf(" ORDER BY %s %s, p.id %s", column, direction, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var recs []*production.Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning record: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating record rows: %w", err)
	}

	if err := loadExpenditures(ctx, s.db, recs); err != nil {
		return nil, 0, err
	}

	return recs, total, nil
}

func buildWhere(filter production.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.From != nil {
		add("p.date >= $%d", *filter.From)
	}

	if filter.Until != nil {
		add("p.date < $%d", *filter.Until)
	}

	for _, f := range []struct {
		column string
		value  *int64
	}{
		{"p.purchased", filter.Purchased},
		{"p.produced", filter.Produced},
		{"p.stock", filter.Stock},
		{"p.sales", filter.Sales},
		{"p.remains", filter.Remains},
	} {
		if f.value != nil {
			add(f.column+" = $%d", *f.value)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// dateLockKey maps a ledger date onto a transaction-scoped advisory lock.
func dateLockKey(date time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte("production_data"))
	h.Write([]byte{0})
	h.Write([]byte(date.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type ledgerTx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (production.LedgerTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}

	return &ledgerTx{tx: dbTx}, nil
}

func (ltx *ledgerTx) Commit() error   { return ltx.tx.Commit() }
func (ltx *ledgerTx) Rollback() error { return ltx.tx.Rollback() }

func (ltx *ledgerTx) LockDate(ctx context.Context, date time.Time) error {
	if _, err := ltx.tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", dateLockKey(date)); err != nil {
		return fmt.Errorf("acquiring date lock: %w", err)
	}

	return nil
}

func (ltx *ledgerTx) FindRecordByDate(ctx context.Context, date time.Time) (*production.Record, error) {
	rec, err := findRecord(ctx, ltx.tx, "p.date = $1", date)
	if err != nil {
		return nil, fmt.Errorf("finding record by date: %w", err)
	}

	return rec, nil
}

func (ltx *ledgerTx) FindPreviousRecord(ctx context.Context, date time.Time) (*production.Record, error) {
	rec, err := findRecord(ctx, ltx.tx, "p.date < $1 ORDER BY p.date DESC LIMIT 1", date)
	if err != nil {
		return nil, fmt.Errorf("finding previous record: %w", err)
	}

	return rec, nil
}

// GetRecord loads the record and locks its row until the transaction ends.
func (ltx *ledgerTx) GetRecord(ctx context.Context, id int64) (*production.Record, error) {
	return getRecord(ctx, ltx.tx, id, true)
}

func (ltx *ledgerTx) CreateRecord(ctx context.Context, rec *production.Record) error {
	query := `
		INSERT INTO production_data (date, purchased, produced, stock, sales, remains, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := ltx.tx.QueryRowContext(ctx, query,
		rec.Date,
		rec.Purchased,
		rec.Produced,
		rec.Stock,
		rec.Sales,
		rec.Remains,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isViolation(err, codeUniqueViolation) {
			return fmt.Errorf("%w: %s", production.ErrConflict, rec.Date.Format(time.DateOnly))
		}

		return fmt.Errorf("creating record: %w", err)
	}

	for i := range rec.Expenditures {
		rec.Expenditures[i].ProductionID = rec.ID
	}

	return ltx.insertExpenditures(ctx, rec.Expenditures)
}

func (ltx *ledgerTx) UpdateRecord(ctx context.Context, rec *production.Record) error {
	query := `
		UPDATE production_data
		SET date = $1, purchased = $2, produced = $3, stock = $4, sales = $5, remains = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := ltx.tx.QueryRowContext(ctx, query,
		rec.Date,
		rec.Purchased,
		rec.Produced,
		rec.Stock,
		rec.Sales,
		rec.Remains,
		rec.ID,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%w: id %d", production.ErrNotFound, rec.ID)
		case isViolation(err, codeUniqueViolation):
			return fmt.Errorf("%w: %s", production.ErrConflict, rec.Date.Format(time.DateOnly))
		}

		return fmt.Errorf("updating record: %w", err)
	}

	return nil
}

// DeleteRecord removes the record; expenditures go with it through the
// ON DELETE CASCADE foreign key.
func (ltx *ledgerTx) DeleteRecord(ctx context.Context, id int64) error {
	res, err := ltx.tx.ExecContext(ctx, `DELETE FROM production_data WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: id %d", production.ErrNotFound, id)
	}

	return nil
}

func (ltx *ledgerTx) ApplyExpenditures(ctx context.Context, recordID int64, plan *production.Plan) error {
	for _, id := range plan.Delete {
		_, err := ltx.tx.ExecContext(ctx,
			`DELETE FROM expenditures WHERE id = $1 AND production_id = $2`, id, recordID)
		if err != nil {
			return fmt.Errorf("deleting expenditure %d: %w", id, err)
		}
	}

	for _, e := range plan.Update {
		_, err := ltx.tx.ExecContext(ctx, `
			UPDATE expenditures
			SET name = $1, amount = $2, updated_at = NOW()
			WHERE id = $3 AND production_id = $4
		`, e.Name, e.Amount, e.ID, recordID)
		if err != nil {
			return fmt.Errorf("updating expenditure %d: %w", e.ID, err)
		}
	}

	for i := range plan.Create {
		plan.Create[i].ProductionID = recordID
	}

	return ltx.insertExpenditures(ctx, plan.Create)
}

func (ltx *ledgerTx) insertExpenditures(ctx context.Context, exps []production.Expenditure) error {
	query := `
		INSERT INTO expenditures (production_id, name, amount, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`

	for i := range exps {
		err := ltx.tx.QueryRowContext(ctx, query,
			exps[i].ProductionID,
			exps[i].Name,
			exps[i].Amount,
		).Scan(&exps[i].ID)
		if err != nil {
			if isViolation(err, codeForeignKeyViolation) {
				return fmt.Errorf("%w: id %d", production.ErrNotFound, exps[i].ProductionID)
			}

			return fmt.Errorf("creating expenditure: %w", err)
		}
	}

	return nil
}
