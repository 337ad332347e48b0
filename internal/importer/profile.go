package importer

import "strings"

// Profile describes the column layout of a ledger spreadsheet.
// Column names are matched case-insensitively after trimming.
type Profile struct {
	Name         string
	DateCol      string
	PurchasedCol string
	ProducedCol  string
	SalesCol     string
	// ExpensePrefix marks columns holding one named expenditure each, the
	// name being whatever follows the prefix.
	ExpensePrefix string
	// ExpenseCols maps fixed columns to the expenditure name they book.
	ExpenseCols map[string]string
}

func (p Profile) requiredCols() []string {
	return []string{p.DateCol, p.PurchasedCol, p.ProducedCol, p.SalesCol}
}

// expenseColumns returns the expenditure name for every header cell that
// books one, keyed by column index.
func (p Profile) expenseColumns(header []string) map[int]string {
	cols := make(map[int]string)

	for i, cell := range header {
		name := normalizeHeader(cell)

		if label, ok := p.ExpenseCols[name]; ok {
			cols[i] = label
			continue
		}

		if p.ExpensePrefix != "" && strings.HasPrefix(name, p.ExpensePrefix) {
			label := strings.TrimSpace(strings.TrimSpace(cell)[len(p.ExpensePrefix):])
			if label != "" {
				cols[i] = label
			}
		}
	}

	return cols
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// profiles is tried in order during detection.
var profiles = []Profile{
	{
		Name:          "ledger",
		DateCol:       "date",
		PurchasedCol:  "purchased",
		ProducedCol:   "produced",
		SalesCol:      "sales",
		ExpensePrefix: "expense:",
	},
	{
		// Old spreadsheet exports. Their restes and stocks columns are
		// ignored since both are recomputed on create.
		Name:         "legacy",
		DateCol:      "date",
		PurchasedCol: "achats",
		ProducedCol:  "produits",
		SalesCol:     "ventes",
		ExpenseCols:  map[string]string{"dette": "Dette"},
	},
}
