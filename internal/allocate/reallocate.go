package allocate

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/aggregate"
	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
)

// Reallocation is the PPC and organic split of one product month. The
// embedded share's ProductQty is the residual being split.
type Reallocation struct {
	model.CategoryShare
	AvgUnitPrice decimal.Decimal
	CategoryPPC  int64
	// Uncapped is CategoryPPC * Smoothed before capping and rounding.
	Uncapped float64
	PPC      int64
	Organic  int64
}

// Reallocate splits each product month's residual using its smoothed
// share of the category PPC count. Categories without a PPC figure
// contribute no PPC orders. The PPC count is capped at the residual so
// organic orders never go negative.
func Reallocate(residuals []model.PeriodAggregate, shares []model.CategoryShare, ppc []model.CategoryPPC) diag.Result[[]Reallocation] {
	var res diag.Result[[]Reallocation]

	prices := aggregate.Index(aggregate.Rollup(residuals, model.Monthly))

	counts := make(map[model.CategoryKey]int64, len(ppc))
	for _, c := range ppc {
		counts[c.Category] += c.Orders
	}

	used := make(map[model.CategoryKey]struct{})
	noFigure := make(map[model.CategoryKey]struct{})
	out := make([]Reallocation, 0, len(shares))
	for _, s := range shares {
		cat := model.CategoryOf(s.Product, s.Market, s.Period)
		orders, ok := counts[cat]
		if ok {
			used[cat] = struct{}{}
		} else if s.ProductQty > 0 {
			if _, seen := noFigure[cat]; !seen {
				noFigure[cat] = struct{}{}
				res.Addf(diag.MissingJoin, stage, categoryKey(cat), "no PPC orders for category; residual attributed to organic")
			}
		}

		uncapped := float64(orders) * s.Smoothed
		capped := uncapped
		if capped > float64(s.ProductQty) {
			res.Addf(diag.OverAllocation, stage, s.Product.CanonicalID+"/"+s.Market+"/"+s.Period.String(),
				"PPC share %.4g exceeds residual %d; capped", uncapped, s.ProductQty)
			capped = float64(s.ProductQty)
		}
		paid := int64(math.RoundToEven(capped))

		key := model.AggregateKey{Product: s.Product.CanonicalID, Market: s.Market, Period: s.Period}
		out = append(out, Reallocation{
			CategoryShare: s,
			AvgUnitPrice:  prices[key].AvgUnitPrice,
			CategoryPPC:   orders,
			Uncapped:      uncapped,
			PPC:           paid,
			Organic:       s.ProductQty - paid,
		})
	}

	for _, c := range ppc {
		if _, ok := used[c.Category]; !ok && c.Orders > 0 {
			res.Addf(diag.MissingJoin, stage, categoryKey(c.Category),
				"%d PPC orders for category without Amazon sales; not allocated", c.Orders)
		}
	}

	res.Value = out
	return res
}
