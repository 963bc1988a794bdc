package google

import (
	"fmt"
	"strings"

	"finance/internal/core"
)

var (
	budgetHeader = []any{"Category", "Maximum", "Spent", "Remaining", "Theme", "Transactions"}
	potHeader    = []any{"ID", "Name", "Target", "Total", "Progress", "Theme"}
)

// Amounts are written as plain decimal strings so USER_ENTERED stores numbers
// regardless of the spreadsheet locale.
func budgetRows(budgets []core.Budget) [][]any {
	rows := make([][]any, 0, len(budgets)+1)
	rows = append(rows, budgetHeader)
	for _, b := range budgets {
		rows = append(rows, []any{
			string(b.Category),
			b.Maximum.String(),
			b.Spent.String(),
			b.Remaining.String(),
			string(b.Theme),
			len(b.Transactions),
		})
	}
	return rows
}

func potRows(pots []core.Pot) [][]any {
	rows := make([][]any, 0, len(pots)+1)
	rows = append(rows, potHeader)
	for _, p := range pots {
		rows = append(rows, []any{
			p.ID,
			p.Name,
			p.Target.String(),
			p.Total.String(),
			fmt.Sprintf("%.2f", p.Progress()),
			string(p.Theme),
		})
	}
	return rows
}

// parseBudgets reads rows written by budgetRows. Columns are located by
// header name so reordered sheets still parse. Linked transaction ids are not
// mirrored and come back empty.
func parseBudgets(values [][]any) ([]core.Budget, error) {
	if len(values) == 0 {
		return []core.Budget{}, nil
	}
	headers := toStrings(values[0])
	cols, err := columns(headers, "Category", "Maximum", "Spent", "Remaining", "Theme")
	if err != nil {
		return nil, err
	}

	out := make([]core.Budget, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if strings.TrimSpace(safeGet(row, cols["Category"])) == "" {
			continue
		}
		category, err := core.ParseCategory(safeGet(row, cols["Category"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		b := core.Budget{Category: category, Theme: core.Theme(safeGet(row, cols["Theme"])), Transactions: []string{}}
		for name, dst := range map[string]*core.Money{"Maximum": &b.Maximum, "Spent": &b.Spent, "Remaining": &b.Remaining} {
			if *dst, err = parseMoney(safeGet(row, cols[name])); err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i+1, name, err)
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func parsePots(values [][]any) ([]core.Pot, error) {
	if len(values) == 0 {
		return []core.Pot{}, nil
	}
	headers := toStrings(values[0])
	cols, err := columns(headers, "ID", "Name", "Target", "Total", "Theme")
	if err != nil {
		return nil, err
	}

	out := make([]core.Pot, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := strings.TrimSpace(safeGet(row, cols["ID"]))
		if id == "" {
			continue
		}
		p := core.Pot{ID: id, Name: safeGet(row, cols["Name"]), Theme: core.Theme(safeGet(row, cols["Theme"]))}
		if p.Target, err = parseMoney(safeGet(row, cols["Target"])); err != nil {
			return nil, fmt.Errorf("row %d Target: %w", i+1, err)
		}
		if p.Total, err = parseMoney(safeGet(row, cols["Total"])); err != nil {
			return nil, fmt.Errorf("row %d Total: %w", i+1, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func columns(headers []string, names ...string) (map[string]int, error) {
	cols := make(map[string]int, len(names))
	var missing []string
	for _, n := range names {
		idx := indexOf(headers, n)
		if idx == -1 {
			missing = append(missing, n)
			continue
		}
		cols[n] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected sheet header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	return cols, nil
}

func parseMoney(s string) (core.Money, error) {
	cents, err := core.ParseSignedDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
