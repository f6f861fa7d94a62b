package model

import (
	"cmp"
	"slices"
)

// CompareAggregateKeys orders keys by product, market, then period.
func CompareAggregateKeys(a, b AggregateKey) int {
	if c := cmp.Compare(a.Product, b.Product); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Market, b.Market); c != 0 {
		return c
	}
	return a.Period.Compare(b.Period)
}

// SortAggregates sorts aggregates in place by key.
func SortAggregates(aggs []PeriodAggregate) {
	slices.SortStableFunc(aggs, func(a, b PeriodAggregate) int {
		return CompareAggregateKeys(a.AggregateKey, b.AggregateKey)
	})
}

// CompareCategories orders category keys by market, month, brand, then
// product group.
func CompareCategories(a, b CategoryKey) int {
	if c := cmp.Compare(a.Market, b.Market); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Month, b.Month); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Brand, b.Brand); c != 0 {
		return c
	}
	return cmp.Compare(a.ProductGroup, b.ProductGroup)
}

// salesTypeRank fixes the output order of the buckets.
var salesTypeRank = map[SalesType]int{
	Liquidation: 1,
	Promotion:   2,
	PPC:         3,
	Organic:     4,
	Shopify:     5,
	Wholesale:   6,
}

// SortRows sorts attributed rows by sales type, then brand, country,
// product group, product and period.
func SortRows(rows []AttributedSalesRow) {
	slices.SortStableFunc(rows, func(a, b AttributedSalesRow) int {
		if c := cmp.Compare(salesTypeRank[a.SalesType], salesTypeRank[b.SalesType]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Brand, b.Brand); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Country, b.Country); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ProductGroup, b.ProductGroup); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Product, b.Product); c != 0 {
			return c
		}
		return a.Period.Compare(b.Period)
	})
}
