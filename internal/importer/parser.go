package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/bananas/internal/encoding"
	"github.com/MrJamesThe3rd/bananas/internal/production"
)

var dateLayouts = []string{time.DateOnly, "2/1/2006", "2-1-2006"}

// Parser reads ledger spreadsheets exported as CSV. The column layout is
// detected from the header row against the known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns one CreateParams per data row, in file order.
func (p *Parser) Parse(r io.Reader) ([]production.CreateParams, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	data, _, err := enc.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectComma(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", production.ErrValidation, err)
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("%w: no known column layout: expected date, purchased, produced and sales columns", production.ErrValidation)
	}

	return parseRows(profile, cols, rows[headerIdx], rows[headerIdx+1:], headerIdx+1)
}

// detectComma picks ';' or ',' by counting both in the first non-blank line.
func detectComma(data []byte) rune {
	for line := range bytes.Lines(data) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if bytes.Count(line, []byte{';'}) >= bytes.Count(line, []byte{','}) {
			return ';'
		}

		return ','
	}

	return ';'
}

type colIndex map[string]int

func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := normalizeHeader(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows converts data rows. headerRowNum is the 1-based line number of
// the header and is only used for error messages.
func parseRows(p *Profile, cols colIndex, header []string, rows [][]string, headerRowNum int) ([]production.CreateParams, error) {
	expenseCols := p.expenseColumns(header)
	seen := make(map[time.Time]int)

	var params []production.CreateParams

	for i, row := range rows {
		rowNum := headerRowNum + i + 1

		date, ok, err := parseDate(cellValue(row, cols[p.DateCol]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", production.ErrValidation, rowNum, err)
		}

		if !ok {
			continue
		}

		if prev, dup := seen[date]; dup {
			return nil, fmt.Errorf("%w: row %d: date %s already used on row %d",
				production.ErrValidation, rowNum, date.Format(time.DateOnly), prev)
		}

		seen[date] = rowNum

		param := production.CreateParams{Date: date}

		for _, q := range []struct {
			col  string
			dest *int64
		}{
			{p.PurchasedCol, &param.Purchased},
			{p.ProducedCol, &param.Produced},
			{p.SalesCol, &param.Sales},
		} {
			n, err := parseQuantity(cellValue(row, cols[q.col]))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %s: %v", production.ErrValidation, rowNum, q.col, err)
			}

			*q.dest = n
		}

		for idx := range header {
			name, ok := expenseCols[idx]
			if !ok {
				continue
			}

			amount, err := parseQuantity(cellValue(row, idx))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %s: %v", production.ErrValidation, rowNum, name, err)
			}

			if amount == 0 {
				continue
			}

			param.Expenditures = append(param.Expenditures, production.NewExpenditure{Name: name, Amount: amount})
		}

		params = append(params, param)
	}

	return params, nil
}

// parseDate reports ok=false for cells that are not dates at all, such as
// blank cells or footer labels. A cell that starts with a digit must parse.
func parseDate(s string) (time.Time, bool, error) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return time.Time{}, false, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("unrecognised date %q", s)
}

// parseQuantity reads a non-negative whole number. Blank cells are zero.
// Spaces are thousand separators and a comma is a decimal separator, so
// "1 500" and "1500,00" both read as 1500.
func parseQuantity(s string) (int64, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(s)
	if clean == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}

	if !d.IsInteger() {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("%q is negative", s)
	}

	return d.IntPart(), nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
