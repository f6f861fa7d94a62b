package aggregate

import (
	"slices"

	"github.com/roach88/salesmix/internal/model"
)

// SumPPCByCategory totals paid-traffic orders per (market, year, month,
// brand, product group). Products without brand or product group fall in
// the category with empty names.
func SumPPCByCategory(counts []model.Resolved[model.PPCCount]) []model.CategoryPPC {
	sums := make(map[model.CategoryKey]int64)
	for _, c := range counts {
		k := model.CategoryOf(c.Product, c.Record.Market, c.Record.Period)
		sums[k] += c.Record.Orders
	}

	out := make([]model.CategoryPPC, 0, len(sums))
	for k, n := range sums {
		out = append(out, model.CategoryPPC{Category: k, Orders: n})
	}
	slices.SortFunc(out, func(a, b model.CategoryPPC) int {
		return model.CompareCategories(a.Category, b.Category)
	})
	return out
}
