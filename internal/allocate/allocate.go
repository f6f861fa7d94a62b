package allocate

import (
	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
)

// DefaultWindow is the number of months averaged by the smoother.
const DefaultWindow = 2

// Inputs are the aggregates the allocator consumes. Amazon, Liquidation
// and Promotions may be daily or monthly; they are compared by month.
type Inputs struct {
	Amazon      []model.PeriodAggregate
	Liquidation []model.PeriodAggregate
	Promotions  []model.PeriodAggregate
	PPC         []model.CategoryPPC
	Products    model.ProductMap
}

// Allocation is the output of Run.
type Allocation struct {
	Residuals     []model.PeriodAggregate
	Shares        []model.CategoryShare
	Reallocations []Reallocation
}

// Run computes residuals, shares and the PPC/organic split. A window
// below 1 uses DefaultWindow.
func Run(in Inputs, window int) diag.Result[Allocation] {
	if window < 1 {
		window = DefaultWindow
	}
	var res diag.Result[Allocation]

	residuals := Residuals(in.Amazon, in.Liquidation, in.Promotions)
	res.Diagnostics = append(res.Diagnostics, residuals.Diagnostics...)

	shares := Shares(residuals.Value, in.Products, window)
	res.Diagnostics = append(res.Diagnostics, shares.Diagnostics...)

	realloc := Reallocate(residuals.Value, shares.Value, in.PPC)
	res.Diagnostics = append(res.Diagnostics, realloc.Diagnostics...)

	res.Value = Allocation{
		Residuals:     residuals.Value,
		Shares:        shares.Value,
		Reallocations: realloc.Value,
	}
	return res
}

// PPC returns the monthly PPC quantities as aggregates.
func (a Allocation) PPC() []model.PeriodAggregate {
	return a.split(func(r Reallocation) int64 { return r.PPC })
}

// Organic returns the monthly organic quantities as aggregates.
func (a Allocation) Organic() []model.PeriodAggregate {
	return a.split(func(r Reallocation) int64 { return r.Organic })
}

func (a Allocation) split(qty func(Reallocation) int64) []model.PeriodAggregate {
	out := make([]model.PeriodAggregate, 0, len(a.Reallocations))
	for _, r := range a.Reallocations {
		out = append(out, model.PeriodAggregate{
			AggregateKey: model.AggregateKey{Product: r.Product.CanonicalID, Market: r.Market, Period: r.Period},
			Quantity:     qty(r),
			AvgUnitPrice: r.AvgUnitPrice,
		})
	}
	return out
}
