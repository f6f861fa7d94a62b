// Package aggregate reduces unit-level records to period-level summaries.
package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/model"
)

type group struct {
	qty   int64
	sum   decimal.Decimal
	count int64
}

func (g *group) add(qty int64, price decimal.Decimal) {
	g.qty += qty
	g.sum = g.sum.Add(price)
	g.count++
}

func (g *group) mean() decimal.Decimal {
	if g.count == 0 {
		return decimal.Zero
	}
	return g.sum.Div(decimal.NewFromInt(g.count))
}

// Aggregate groups orders by (product, market, period) at the given
// granularity. The quantity is summed; the average unit price is the
// unweighted mean of the orders' unit prices. Only keys present in the
// input are emitted, sorted by key.
func Aggregate(orders []model.Resolved[model.Order], g model.Granularity) []model.PeriodAggregate {
	groups := make(map[model.AggregateKey]*group)
	for _, o := range orders {
		k := model.AggregateKey{
			Product: o.Product.CanonicalID,
			Market:  o.Record.Market,
			Period:  g.Truncate(o.Record.Period),
		}
		gr, ok := groups[k]
		if !ok {
			gr = &group{}
			groups[k] = gr
		}
		gr.add(o.Record.Quantity, o.Record.UnitPrice())
	}
	return collect(groups)
}

// Rollup re-buckets aggregates at a coarser granularity. Quantities are
// summed and the average price is the unweighted mean of the input
// averages.
func Rollup(aggs []model.PeriodAggregate, g model.Granularity) []model.PeriodAggregate {
	groups := make(map[model.AggregateKey]*group)
	for _, a := range aggs {
		k := a.AggregateKey
		k.Period = g.Truncate(k.Period)
		gr, ok := groups[k]
		if !ok {
			gr = &group{}
			groups[k] = gr
		}
		gr.add(a.Quantity, a.AvgUnitPrice)
	}
	return collect(groups)
}

func collect(groups map[model.AggregateKey]*group) []model.PeriodAggregate {
	out := make([]model.PeriodAggregate, 0, len(groups))
	for k, gr := range groups {
		out = append(out, model.PeriodAggregate{AggregateKey: k, Quantity: gr.qty, AvgUnitPrice: gr.mean()})
	}
	model.SortAggregates(out)
	return out
}

// Index maps aggregates by key.
func Index(aggs []model.PeriodAggregate) map[model.AggregateKey]model.PeriodAggregate {
	out := make(map[model.AggregateKey]model.PeriodAggregate, len(aggs))
	for _, a := range aggs {
		out[a.AggregateKey] = a
	}
	return out
}

// Total sums the quantities of aggs.
func Total(aggs []model.PeriodAggregate) int64 {
	var n int64
	for _, a := range aggs {
		n += a.Quantity
	}
	return n
}
