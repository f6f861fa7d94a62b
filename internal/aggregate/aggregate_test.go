package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/salesmix/internal/model"
)

func order(product, market string, day int, qty int64, total string) model.Resolved[model.Order] {
	return model.Resolved[model.Order]{
		Record: model.Order{
			Market:    market,
			Period:    model.Period{Year: 2019, Month: time.January, Day: day},
			Quantity:  qty,
			TotalPaid: decimal.RequireFromString(total),
		},
		Product: model.ProductRef{CanonicalID: product, Brand: "Acme", ProductGroup: "Mugs"},
	}
}

func TestAggregateUnweightedMean(t *testing.T) {
	orders := []model.Resolved[model.Order]{
		order("P1", "US", 5, 10, "100"), // 10 each
		order("P1", "US", 5, 1, "20"),   // 20 each
	}

	aggs := Aggregate(orders, model.Daily)
	require.Len(t, aggs, 1)
	assert.Equal(t, int64(11), aggs[0].Quantity)
	assert.True(t, decimal.NewFromInt(15).Equal(aggs[0].AvgUnitPrice),
		"mean of per-order unit prices, not quantity weighted: got %s", aggs[0].AvgUnitPrice)
	assert.True(t, decimal.NewFromInt(165).Equal(aggs[0].Revenue()))
}

func TestAggregateGranularity(t *testing.T) {
	orders := []model.Resolved[model.Order]{
		order("P1", "US", 5, 1, "10"),
		order("P1", "US", 6, 2, "40"),
		order("P1", "UK", 6, 1, "10"),
		order("P0", "US", 7, 1, "10"),
	}

	daily := Aggregate(orders, model.Daily)
	require.Len(t, daily, 4)
	assert.Equal(t, "P0", daily[0].Product, "sorted by product first")

	monthly := Aggregate(orders, model.Monthly)
	require.Len(t, monthly, 3)
	us := Index(monthly)[model.AggregateKey{Product: "P1", Market: "US", Period: model.Period{Year: 2019, Month: time.January}}]
	assert.Equal(t, int64(3), us.Quantity)
	assert.True(t, decimal.NewFromInt(15).Equal(us.AvgUnitPrice))
	assert.Equal(t, int64(5), Total(monthly))
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, model.Daily))
}

func TestRollup(t *testing.T) {
	daily := Aggregate([]model.Resolved[model.Order]{
		order("P1", "US", 5, 10, "100"),
		order("P1", "US", 5, 10, "100"),
		order("P1", "US", 6, 1, "20"),
	}, model.Daily)

	monthly := Rollup(daily, model.Monthly)
	require.Len(t, monthly, 1)
	assert.Equal(t, 0, monthly[0].Period.Day)
	assert.Equal(t, int64(21), monthly[0].Quantity)
	assert.True(t, decimal.NewFromInt(15).Equal(monthly[0].AvgUnitPrice), "mean of daily averages")
}

func TestSumPPCByCategory(t *testing.T) {
	ref := func(id, group string) model.ProductRef {
		return model.ProductRef{CanonicalID: id, Brand: "Acme", ProductGroup: group}
	}
	count := func(r model.ProductRef, day int, n int64) model.Resolved[model.PPCCount] {
		return model.Resolved[model.PPCCount]{
			Record:  model.PPCCount{Market: "US", Period: model.Period{Year: 2019, Month: time.January, Day: day}, Orders: n},
			Product: r,
		}
	}

	sums := SumPPCByCategory([]model.Resolved[model.PPCCount]{
		count(ref("P1", "Mugs"), 1, 2),
		count(ref("P2", "Mugs"), 2, 3),
		count(ref("P3", "Bowls"), 2, 4),
		count(model.ProductRef{CanonicalID: "P9"}, 3, 1),
	})

	require.Len(t, sums, 3)
	assert.Equal(t, "", sums[0].Category.Brand, "products without brand form their own category")
	assert.Equal(t, "Bowls", sums[1].Category.ProductGroup)
	assert.Equal(t, int64(4), sums[1].Orders)
	assert.Equal(t, "Mugs", sums[2].Category.ProductGroup)
	assert.Equal(t, int64(5), sums[2].Orders)
}
