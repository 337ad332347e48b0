// Package importer loads production records from spreadsheet exports.
package importer

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bananas/internal/production"
)

// Ledger is the part of the production service the importer writes through.
type Ledger interface {
	CreateBatch(ctx context.Context, params []production.CreateParams) (*production.Batch, error)
}

// Result summarises one import run.
type Result struct {
	BatchID   uuid.UUID
	Imported  []*production.Record
	Conflicts []time.Time // Dates that already had a record, left untouched
}

type Service struct {
	parser *Parser
	ledger Ledger
}

func NewService(ledger Ledger) *Service {
	return &Service{
		parser: NewParser(),
		ledger: ledger,
	}
}

// Import parses r and writes the rows as one batch, oldest date first so each
// row carries forward the remains of the one before it. Rows whose date is
// already in the ledger are reported as conflicts and skipped. Any other
// failure discards the whole file.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Result, error) {
	params, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(params, func(a, b production.CreateParams) int {
		return cmp.Compare(a.Date.Unix(), b.Date.Unix())
	})

	batchID := uuid.New()

	batch, err := s.ledger.CreateBatch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("importing batch %s: %w", batchID, err)
	}

	slog.Info("import finished",
		"batch", batchID,
		"rows", len(params),
		"imported", len(batch.Created),
		"conflicts", len(batch.Conflicts),
	)

	return &Result{
		BatchID:   batchID,
		Imported:  batch.Created,
		Conflicts: batch.Conflicts,
	}, nil
}
