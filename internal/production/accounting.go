package production

import (
	"context"
	"fmt"
	"time"
)

// Figures holds the derived stock columns of a record.
type Figures struct {
	Stock   int64
	Remains int64
}

// CreateFigures derives stock for a new record by carrying forward the
// remains of the closest earlier record.
func CreateFigures(produced, sales, priorRemains int64) Figures {
	stock := produced + priorRemains

	return Figures{
		Stock:   stock,
		Remains: max(stock-sales, 0),
	}
}

// UpdateFigures derives stock for an edited record from its own columns only.
// It does not look at earlier records, and edits never ripple into later ones.
func UpdateFigures(purchased, produced, sales int64) Figures {
	return Figures{
		Stock:   purchased + produced - sales,
		Remains: max(produced-sales, 0),
	}
}

// prepareCreate checks the date is free and builds the record to insert.
// It must run on the same transaction that performs the insert.
func prepareCreate(ctx context.Context, tx LedgerTx, params CreateParams) (*Record, error) {
	date := NormalizeDate(params.Date)

	if err := tx.LockDate(ctx, date); err != nil {
		return nil, fmt.Errorf("locking date: %w", err)
	}

	existing, err := tx.FindRecordByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("finding record by date: %w", err)
	}

	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrConflict, date.Format(time.DateOnly))
	}

	prev, err := tx.FindPreviousRecord(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("finding previous record: %w", err)
	}

	var priorRemains int64
	if prev != nil {
		priorRemains = prev.Remains
	}

	figures := CreateFigures(params.Produced, params.Sales, priorRemains)

	rec := &Record{
		Date:      date,
		Purchased: params.Purchased,
		Produced:  params.Produced,
		Sales:     params.Sales,
		Stock:     figures.Stock,
		Remains:   figures.Remains,
	}

	for _, e := range params.Expenditures {
		rec.Expenditures = append(rec.Expenditures, Expenditure{
			Name:   e.Name,
			Amount: e.Amount,
		})
	}

	return rec, nil
}

// prepareUpdate overlays params on the persisted record and recomputes its figures.
func prepareUpdate(rec *Record, params UpdateParams) {
	if params.Date != nil {
		rec.Date = NormalizeDate(*params.Date)
	}

	if params.Purchased != nil {
		rec.Purchased = *params.Purchased
	}

	if params.Produced != nil {
		rec.Produced = *params.Produced
	}

	if params.Sales != nil {
		rec.Sales = *params.Sales
	}

	figures := UpdateFigures(rec.Purchased, rec.Produced, rec.Sales)
	rec.Stock = figures.Stock
	rec.Remains = figures.Remains
}
