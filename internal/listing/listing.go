// Package listing implements the filter, search, sort and paginate pipeline
// shared by every list endpoint.
package listing

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"finance/internal/core"
)

// PageSize is the fixed number of items per page.
const PageSize = 10

type SortBy string

const (
	Latest  SortBy = "Latest"
	Oldest  SortBy = "Oldest"
	AToZ    SortBy = "A to Z"
	ZToA    SortBy = "Z to A"
	Highest SortBy = "Highest"
	Lowest  SortBy = "Lowest"
)

var sortOptions = []SortBy{Latest, Oldest, AToZ, ZToA, Highest, Lowest}

// SortOptions returns the accepted sort values in display order.
func SortOptions() []SortBy {
	return append([]SortBy(nil), sortOptions...)
}

// ParseSort matches s case-insensitively and falls back to Latest.
func ParseSort(s string) SortBy {
	s = strings.TrimSpace(s)
	for _, o := range sortOptions {
		if strings.EqualFold(string(o), s) {
			return o
		}
	}
	return Latest
}

// Options drive one pipeline run. The zero value lists everything, newest first.
type Options struct {
	// Category filters by exact category; empty or core.AllTransactions disables it.
	Category string
	Search   string
	Sort     SortBy
	// Page is 1-based; values below 1 are treated as 1.
	Page int
}

// Page is one slice of the pipeline output. Total is the filtered count before pagination.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// TotalPages is the number of pages needed for Total items.
func (p Page[T]) TotalPages() int {
	return (p.Total + PageSize - 1) / PageSize
}

// Apply runs category filter, name search, stable sort and pagination over items.
// view exposes the transaction fields of T. items is never modified.
func Apply[T any](items []T, o Options, view func(T) core.Transaction) Page[T] {
	filtered := make([]T, 0, len(items))
	search := strings.ToLower(strings.TrimSpace(o.Search))
	for _, it := range items {
		t := view(it)
		if !matchesCategory(t.Category, o.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		filtered = append(filtered, it)
	}

	slices.SortStableFunc(filtered, comparator(ParseSort(string(o.Sort)), view))

	// Compare page counts, not offsets: (page-1)*PageSize overflows for huge pages.
	page := max(o.Page, 1)
	start := len(filtered)
	if page-1 < (len(filtered)+PageSize-1)/PageSize {
		start = (page - 1) * PageSize
	}
	end := min(start+PageSize, len(filtered))
	return Page[T]{Items: filtered[start:end], Total: len(filtered)}
}

// Transactions is Apply specialised to plain transactions.
func Transactions(txs []core.Transaction, o Options) Page[core.Transaction] {
	return Apply(txs, o, func(t core.Transaction) core.Transaction { return t })
}

// Bills is Apply specialised to classified bills.
func Bills(bills []core.Bill, o Options) Page[core.Bill] {
	return Apply(bills, o, func(b core.Bill) core.Transaction { return b.Transaction })
}

func matchesCategory(c core.Category, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, core.AllTransactions) {
		return true
	}
	return strings.EqualFold(string(c), filter)
}

func comparator[T any](by SortBy, view func(T) core.Transaction) func(a, b T) int {
	switch by {
	case Oldest:
		return func(a, b T) int { return view(a).Date.Compare(view(b).Date) }
	case AToZ, ZToA:
		// Collators keep internal buffers, so each sort gets its own.
		col := collate.New(language.English)
		if by == ZToA {
			return func(a, b T) int { return col.CompareString(view(b).Name, view(a).Name) }
		}
		return func(a, b T) int { return col.CompareString(view(a).Name, view(b).Name) }
	case Highest:
		return func(a, b T) int { return cmp.Compare(view(b).Amount.Cents, view(a).Amount.Cents) }
	case Lowest:
		return func(a, b T) int { return cmp.Compare(view(a).Amount.Cents, view(b).Amount.Cents) }
	default:
		return func(a, b T) int { return view(b).Date.Compare(view(a).Date) }
	}
}
