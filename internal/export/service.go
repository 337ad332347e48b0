// Package export renders ledger ranges for spreadsheets and reports.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/bananas/internal/production"
)

// Ledger is the read side of the production service used by exports.
type Ledger interface {
	Range(ctx context.Context, start, end *time.Time) ([]*production.Record, error)
}

// Service handles the export of production records.
type Service struct {
	ledger Ledger
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

var header = []string{
	"date", "purchased", "produced", "stock", "sales", "remains", "expenditures", "expenditure_total",
}

// Records returns every record between start and end inclusive, oldest first.
func (s *Service) Records(ctx context.Context, start, end *time.Time) ([]*production.Record, error) {
	recs, err := s.ledger.Range(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	return recs, nil
}

// WriteCSV writes recs as comma separated values with a header row.
// Expenditures are flattened to "name=amount" pairs joined by '|'.
func (s *Service) WriteCSV(w io.Writer, recs []*production.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, rec := range recs {
		exps := make([]string, 0, len(rec.Expenditures))
		for _, e := range rec.Expenditures {
			exps = append(exps, e.Name+"="+strconv.FormatInt(e.Amount, 10))
		}

		row := []string{
			rec.Date.Format(time.DateOnly),
			strconv.FormatInt(rec.Purchased, 10),
			strconv.FormatInt(rec.Produced, 10),
			strconv.FormatInt(rec.Stock, 10),
			strconv.FormatInt(rec.Sales, 10),
			strconv.FormatInt(rec.Remains, 10),
			strings.Join(exps, "|"),
			strconv.FormatInt(rec.TotalExpenditure(), 10),
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record %d: %w", rec.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// GenerateSummary renders one line per record followed by a totals line.
func (s *Service) GenerateSummary(recs []*production.Record) string {
	var sb strings.Builder

	var produced, sales, spent int64

	for _, rec := range recs {
		fmt.Fprintf(&sb, "* %s | produced %d | sales %d | stock %d | remains %d | spent %d\n",
			rec.Date.Format(time.DateOnly), rec.Produced, rec.Sales, rec.Stock, rec.Remains, rec.TotalExpenditure())

		produced += rec.Produced
		sales += rec.Sales
		spent += rec.TotalExpenditure()
	}

	fmt.Fprintf(&sb, "Total: %d records | produced %d | sales %d | spent %d\n", len(recs), produced, sales, spent)

	return sb.String()
}
