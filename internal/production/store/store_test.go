package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bananas/internal/production"
)

var (
	recordCols      = []string{"id", "date", "purchased", "produced", "stock", "sales", "remains", "created_at", "updated_at"}
	expenditureCols = []string{"id", "production_id", "name", "amount"}
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return New(db), mock
}

func TestStore_GetRecord(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM production_data p WHERE p.id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(int64(1), day(2024, 1, 15), int64(20), int64(100), int64(100), int64(50), int64(50), now, now))

	mock.ExpectQuery(regexp.QuoteMeta("FROM expenditures WHERE production_id IN ($1)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(expenditureCols).
			AddRow(int64(1), int64(1), "Transport", int64(500)).
			AddRow(int64(2), int64(1), "Fuel", int64(200)))

	rec, err := s.GetRecord(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, day(2024, 1, 15), rec.Date)
	assert.Equal(t, int64(50), rec.Remains)
	require.Len(t, rec.Expenditures, 2)
	assert.Equal(t, "Fuel", rec.Expenditures[1].Name)
	assert.Equal(t, int64(700), rec.TotalExpenditure())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetRecord_NotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM production_data p WHERE p.id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(recordCols))

	_, err := s.GetRecord(context.Background(), 9)
	assert.ErrorIs(t, err, production.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRecords(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	filter := production.ListFilter{
		From:      new(day(2024, 1, 1)),
		Until:     new(day(2024, 2, 1)),
		Produced:  new(int64(100)),
		SortBy:    production.SortBySales,
		SortOrder: production.SortAsc,
		Limit:     20,
		Offset:    40,
	}

	where := "WHERE p.date >= $1 AND p.date < $2 AND p.produced = $3"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM production_data p " + where)).
		WithArgs(day(2024, 1, 1), day(2024, 2, 1), int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(95))

	mock.ExpectQuery(regexp.QuoteMeta(where + " ORDER BY p.sales ASC, p.id ASC LIMIT $4 OFFSET $5")).
		WithArgs(day(2024, 1, 1), day(2024, 2, 1), int64(100), 20, 40).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(int64(3), day(2024, 1, 3), int64(0), int64(100), int64(100), int64(10), int64(90), now, now).
			AddRow(int64(4), day(2024, 1, 4), int64(0), int64(100), int64(190), int64(20), int64(170), now, now))

	mock.ExpectQuery(regexp.QuoteMeta("FROM expenditures WHERE production_id IN ($1, $2)")).
		WithArgs(int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows(expenditureCols).
			AddRow(int64(8), int64(4), "Bags", int64(30)))

	recs, total, err := s.ListRecords(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 95, total)
	require.Len(t, recs, 2)
	assert.Empty(t, recs[0].Expenditures)
	assert.Len(t, recs[1].Expenditures, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRecords_Unbounded(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM production_data p")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(regexp.QuoteMeta("FROM production_data p ORDER BY p.date DESC, p.id DESC")).
		WillReturnRows(sqlmock.NewRows(recordCols))

	recs, total, err := s.ListRecords(context.Background(), production.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_CreateRecord(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO production_data")).
		WithArgs(day(2024, 1, 15), int64(20), int64(100), int64(100), int64(50), int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO expenditures")).
		WithArgs(int64(7), "Transport", int64(500)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	rec := &production.Record{
		Date:         day(2024, 1, 15),
		Purchased:    20,
		Produced:     100,
		Stock:        100,
		Sales:        50,
		Remains:      50,
		Expenditures: []production.Expenditure{{Name: "Transport", Amount: 500}},
	}

	require.NoError(t, tx.CreateRecord(context.Background(), rec))
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, int64(11), rec.Expenditures[0].ID)
	assert.Equal(t, int64(7), rec.Expenditures[0].ProductionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_CreateRecord_UniqueViolation(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO production_data")).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	err = tx.CreateRecord(context.Background(), &production.Record{Date: day(2024, 1, 15)})
	assert.ErrorIs(t, err, production.ErrConflict)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_UpdateRecord(t *testing.T) {
	updatedAt := time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(e *sqlmock.ExpectedQuery)
		wantErr error
	}{
		{
			name: "Success",
			setup: func(e *sqlmock.ExpectedQuery) {
				e.WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
			},
		},
		{
			name: "Missing",
			setup: func(e *sqlmock.ExpectedQuery) {
				e.WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
			},
			wantErr: production.ErrNotFound,
		},
		{
			name: "DateTaken",
			setup: func(e *sqlmock.ExpectedQuery) {
				e.WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
			},
			wantErr: production.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)

			rec := &production.Record{ID: 4, Date: day(2024, 1, 16), Purchased: 10, Produced: 40, Stock: 35, Sales: 15, Remains: 25}

			mock.ExpectBegin()
			tt.setup(mock.ExpectQuery(regexp.QuoteMeta("UPDATE production_data")).
				WithArgs(rec.Date, int64(10), int64(40), int64(35), int64(15), int64(25), int64(4)))
			mock.ExpectRollback()

			tx, err := s.Begin(context.Background())
			require.NoError(t, err)

			err = tx.UpdateRecord(context.Background(), rec)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, updatedAt, rec.UpdatedAt)
			}

			require.NoError(t, tx.Rollback())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLedgerTx_FindPreviousRecord_None(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(dateLockKey(day(2024, 1, 15))).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.date < $1 ORDER BY p.date DESC LIMIT 1")).
		WithArgs(day(2024, 1, 15)).
		WillReturnRows(sqlmock.NewRows(recordCols))
	mock.ExpectRollback()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, tx.LockDate(context.Background(), day(2024, 1, 15)))

	rec, err := tx.FindPreviousRecord(context.Background(), day(2024, 1, 15))
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_DeleteRecord(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "Deleted", affected: 1},
		{name: "Missing", affected: 0, wantErr: production.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM production_data WHERE id = $1")).
				WithArgs(int64(3)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectRollback()

			tx, err := s.Begin(context.Background())
			require.NoError(t, err)

			err = tx.DeleteRecord(context.Background(), 3)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			require.NoError(t, tx.Rollback())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLedgerTx_ApplyExpenditures(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM expenditures WHERE id = $1 AND production_id = $2")).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE expenditures")).
		WithArgs("A", int64(15), int64(1), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO expenditures")).
		WithArgs(int64(1), "C", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	plan := &production.Plan{
		Create: []production.Expenditure{{Name: "C", Amount: 5}},
		Update: []production.Expenditure{{ID: 1, ProductionID: 1, Name: "A", Amount: 15}},
		Delete: []int64{2},
	}

	require.NoError(t, tx.ApplyExpenditures(context.Background(), 1, plan))
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(3), plan.Create[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
