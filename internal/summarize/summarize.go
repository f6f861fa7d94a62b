// Package summarize assembles the categorized buckets of a run into the
// final attributed sales rows and renders the published tables.
package summarize

import (
	"github.com/roach88/salesmix/internal/aggregate"
	"github.com/roach88/salesmix/internal/model"
)

// Bucket is one sales type's aggregates.
type Bucket struct {
	Type       model.SalesType
	Aggregates []model.PeriodAggregate
}

type stockKey struct {
	product string
	market  string
	year    int
	month   int
}

// StockDays indexes out-of-stock day counts by product, market and month.
type StockDays map[stockKey]int

// NewStockDays indexes resolved out-of-stock records. When a key repeats,
// the first record wins.
func NewStockDays(records []model.Resolved[model.OutOfStock]) StockDays {
	out := make(StockDays, len(records))
	for _, r := range records {
		k := stockKey{product: r.Product.CanonicalID, market: r.Record.Market, year: r.Record.Period.Year, month: int(r.Record.Period.Month)}
		if _, ok := out[k]; !ok {
			out[k] = r.Record.Days
		}
	}
	return out
}

// Lookup returns the out-of-stock days of a product month, or 0.
func (s StockDays) Lookup(product, market string, p model.Period) int {
	return s[stockKey{product: product, market: market, year: p.Year, month: int(p.Month)}]
}

// Summarize aggregates every bucket to (product, market, month), tags it
// with its sales type and channel, and concatenates the buckets in the
// order given. The buckets are a partition: rows are never merged across
// sales types. Out-of-stock days default to 0.
func Summarize(buckets []Bucket, products model.ProductMap, stock StockDays) []model.AttributedSalesRow {
	var rows []model.AttributedSalesRow
	for _, b := range buckets {
		for _, a := range aggregate.Rollup(b.Aggregates, model.Monthly) {
			ref := products.Ref(a.Product)
			rows = append(rows, model.AttributedSalesRow{
				Brand:          ref.Brand,
				Country:        a.Market,
				SalesChannel:   b.Type.Channel(),
				ProductGroup:   ref.ProductGroup,
				Product:        a.Product,
				SalesType:      b.Type,
				Period:         a.Period,
				Quantity:       a.Quantity,
				OutOfStockDays: stock.Lookup(a.Product, a.Market, a.Period),
				AvgUnitPrice:   a.AvgUnitPrice,
			})
		}
	}
	model.SortRows(rows)
	return rows
}

// Totals sums row quantities per (product, market, month) for the given
// sales types.
func Totals(rows []model.AttributedSalesRow, types ...model.SalesType) map[model.AggregateKey]int64 {
	want := make(map[model.SalesType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := make(map[model.AggregateKey]int64)
	for _, r := range rows {
		if !want[r.SalesType] {
			continue
		}
		out[model.AggregateKey{Product: r.Product, Market: r.Country, Period: r.Period.MonthOnly()}] += r.Quantity
	}
	return out
}
