package report

import (
	"sort"
	"time"

	"kakeibo/internal/core"
)

// AvailableMonths lists the months that have transactions plus the month of ref,
// newest first.
func AvailableMonths(txs []core.Transaction, ref time.Time) []core.Month {
	seen := map[core.Month]struct{}{core.MonthOf(ref): {}}
	for _, t := range txs {
		m, err := core.ParseMonth(string(t.Month()))
		if err != nil {
			continue
		}
		seen[m] = struct{}{}
	}
	out := make([]core.Month, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// AvailableYears lists the years that have transactions plus the year of ref,
// newest first.
func AvailableYears(txs []core.Transaction, ref time.Time) []int {
	seen := map[int]struct{}{ref.Year(): {}}
	for _, t := range txs {
		if y, ok := core.YearOf(t.Date); ok {
			seen[y] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
