package allocate

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
)

var products = model.ProductMap{
	"P1": {Brand: "Acme", ProductGroup: "Mugs"},
	"P2": {Brand: "Acme", ProductGroup: "Mugs"},
	"P3": {Brand: "Acme", ProductGroup: "Bowls"},
}

func month(m time.Month) model.Period {
	return model.Period{Year: 2019, Month: m}
}

func day(m time.Month, d int) model.Period {
	return model.Period{Year: 2019, Month: m, Day: d}
}

func agg(product string, p model.Period, qty int64, price string) model.PeriodAggregate {
	return model.PeriodAggregate{
		AggregateKey: model.AggregateKey{Product: product, Market: "US", Period: p},
		Quantity:     qty,
		AvgUnitPrice: decimal.RequireFromString(price),
	}
}

func ppc(group string, m time.Month, orders int64) model.CategoryPPC {
	return model.CategoryPPC{
		Category: model.CategoryKey{Market: "US", Year: 2019, Month: m, Brand: "Acme", ProductGroup: group},
		Orders:   orders,
	}
}

func kinds(ds []diag.Diagnostic) []diag.Kind {
	out := make([]diag.Kind, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Kind)
	}
	return out
}

func TestSmoothTwoMonthWindow(t *testing.T) {
	series := []MonthPortion{
		{Period: month(time.January), Value: 0.4},
		{Period: month(time.February), Value: 0.6},
		{Period: month(time.March), Value: 0.2},
	}

	got := Smooth(series, 2)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.4, got[0], 1e-12)
	assert.InDelta(t, 0.5, got[1], 1e-12)
	assert.InDelta(t, 0.4, got[2], 1e-12)
}

func TestSmoothRestartsAfterGap(t *testing.T) {
	series := []MonthPortion{
		{Period: month(time.January), Value: 0.4},
		{Period: month(time.March), Value: 0.2},
		{Period: month(time.April), Value: 0.6},
	}

	got := Smooth(series, 2)
	assert.InDelta(t, 0.4, got[0], 1e-12)
	assert.InDelta(t, 0.2, got[1], 1e-12, "February is missing, so March is unsmoothed")
	assert.InDelta(t, 0.4, got[2], 1e-12)
}

func TestSmoothAcrossYearBoundary(t *testing.T) {
	series := []MonthPortion{
		{Period: model.Period{Year: 2018, Month: time.December}, Value: 1},
		{Period: model.Period{Year: 2019, Month: time.January}, Value: 0},
	}
	got := Smooth(series, 2)
	assert.InDelta(t, 0.5, got[1], 1e-12)
}

func TestSmoothWindowSizes(t *testing.T) {
	series := []MonthPortion{
		{Period: month(time.January), Value: 0.3},
		{Period: month(time.February), Value: 0.6},
		{Period: month(time.March), Value: 0.9},
	}

	assert.InDeltaSlice(t, []float64{0.3, 0.6, 0.9}, Smooth(series, 1), 1e-12)
	assert.InDeltaSlice(t, []float64{0.3, 0.45, 0.6}, Smooth(series, 3), 1e-12)
	assert.InDeltaSlice(t, []float64{0.3, 0.6, 0.9}, Smooth(series, 0), 1e-12, "window below 1 disables smoothing")
}

func TestResiduals(t *testing.T) {
	amazon := []model.PeriodAggregate{
		agg("P1", day(time.January, 5), 15, "11"),
		agg("P2", day(time.January, 5), 5, "9"),
	}
	liquidation := []model.PeriodAggregate{agg("P1", day(time.January, 5), 10, "9")}
	promotions := []model.PeriodAggregate{
		agg("P2", day(time.January, 5), 7, "8"),
		agg("P3", day(time.January, 5), 1, "8"),
	}

	res := Residuals(amazon, liquidation, promotions)
	require.Len(t, res.Value, 2)
	assert.Equal(t, month(time.January), res.Value[0].Period, "residuals are monthly")
	assert.Equal(t, int64(5), res.Value[0].Quantity)
	assert.True(t, decimal.NewFromInt(11).Equal(res.Value[0].AvgUnitPrice), "residual keeps the Amazon price")
	assert.Equal(t, int64(0), res.Value[1].Quantity, "negative residual is floored")
	assert.Equal(t, []diag.Kind{diag.NegativeResidual, diag.MissingJoin}, kinds(res.Diagnostics))
	assert.Equal(t, "P2/US/2019-01", res.Diagnostics[0].Key)
	assert.Equal(t, "P3/US/2019-01/promotion", res.Diagnostics[1].Key)
}

func TestResidualsMonthlyPromotionsAgainstDailyOrders(t *testing.T) {
	amazon := []model.PeriodAggregate{
		agg("P1", day(time.January, 3), 4, "10"),
		agg("P1", day(time.January, 20), 6, "12"),
		agg("P1", day(time.February, 1), 2, "10"),
	}
	liquidation := []model.PeriodAggregate{agg("P1", day(time.January, 3), 1, "5")}
	promotions := []model.PeriodAggregate{agg("P1", month(time.January), 3, "8")}

	res := Residuals(amazon, liquidation, promotions)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Value, 2)

	jan := res.Value[0]
	assert.Equal(t, month(time.January), jan.Period)
	assert.Equal(t, int64(6), jan.Quantity, "10 - 1 liquidation - 3 promotion")
	assert.True(t, decimal.NewFromInt(11).Equal(jan.AvgUnitPrice), "mean of the daily Amazon prices")
	assert.Equal(t, int64(2), res.Value[1].Quantity)
}

func TestResidualsMissingJoinsKeptApart(t *testing.T) {
	amazon := []model.PeriodAggregate{agg("P1", day(time.January, 1), 1, "10")}
	liquidation := []model.PeriodAggregate{agg("P2", day(time.March, 2), 1, "5")}
	promotions := []model.PeriodAggregate{agg("P2", month(time.March), 2, "8")}

	res := Residuals(amazon, liquidation, promotions)

	c := diag.NewCollector(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.Merge(res.Diagnostics)
	assert.Equal(t, 2, c.Count(diag.MissingJoin), "liquidation and promotion joins are reported separately")

	keys := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"P2/US/2019-03/liquidation", "P2/US/2019-03/promotion"}, keys)
}

func TestSharesZeroCategory(t *testing.T) {
	residuals := []model.PeriodAggregate{
		agg("P1", day(time.January, 1), 0, "1"),
		agg("P2", day(time.January, 2), 0, "1"),
	}

	res := Shares(residuals, products, 2)
	require.Len(t, res.Value, 2)
	for _, s := range res.Value {
		assert.Zero(t, s.Raw)
		assert.Zero(t, s.Smoothed)
	}
	require.Len(t, res.Diagnostics, 1, "reported once per category")
	assert.Equal(t, diag.ZeroDenominator, res.Diagnostics[0].Kind)
	assert.Equal(t, "US/2019-01/Acme/Mugs", res.Diagnostics[0].Key)
}

func TestSharesSumDailyResidualsPerMonth(t *testing.T) {
	residuals := []model.PeriodAggregate{
		agg("P1", day(time.January, 1), 2, "1"),
		agg("P1", day(time.January, 2), 1, "1"),
		agg("P2", day(time.January, 2), 1, "1"),
		agg("P3", day(time.January, 2), 4, "1"),
	}

	res := Shares(residuals, products, 2)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Value, 3)

	p1 := res.Value[0]
	assert.Equal(t, "P1", p1.Product.CanonicalID)
	assert.Equal(t, month(time.January), p1.Period)
	assert.Equal(t, int64(3), p1.ProductQty)
	assert.Equal(t, int64(4), p1.CategoryQty)
	assert.InDelta(t, 0.75, p1.Raw, 1e-12)
	assert.InDelta(t, 1.0, res.Value[2].Raw, 1e-12, "P3 is alone in Bowls")
}

func TestReallocateSplitsByShare(t *testing.T) {
	residuals := []model.PeriodAggregate{
		agg("P1", day(time.January, 1), 3, "10"),
		agg("P2", day(time.January, 1), 1, "20"),
	}
	shares := Shares(residuals, products, 2).Value

	res := Reallocate(residuals, shares, []model.CategoryPPC{ppc("Mugs", time.January, 2)})
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Value, 2)

	p1, p2 := res.Value[0], res.Value[1]
	assert.InDelta(t, 1.5, p1.Uncapped, 1e-12)
	assert.Equal(t, int64(2), p1.PPC, "1.5 rounds half to even")
	assert.Equal(t, int64(1), p1.Organic)
	assert.Equal(t, int64(0), p2.PPC, "0.5 rounds half to even")
	assert.Equal(t, int64(1), p2.Organic)
	assert.True(t, decimal.NewFromInt(20).Equal(p2.AvgUnitPrice))
}

func TestReallocateCapsAtResidual(t *testing.T) {
	residuals := []model.PeriodAggregate{agg("P1", day(time.January, 10), 5, "15")}
	shares := Shares(residuals, products, 2).Value

	res := Reallocate(residuals, shares, []model.CategoryPPC{ppc("Mugs", time.January, 6)})
	require.Len(t, res.Value, 1)
	assert.Equal(t, int64(5), res.Value[0].PPC)
	assert.Equal(t, int64(0), res.Value[0].Organic)
	assert.InDelta(t, 6.0, res.Value[0].Uncapped, 1e-12)
	assert.Equal(t, []diag.Kind{diag.OverAllocation}, kinds(res.Diagnostics))
}

func TestReallocateWithoutPPCFigure(t *testing.T) {
	residuals := []model.PeriodAggregate{
		agg("P1", day(time.January, 1), 4, "10"),
		agg("P3", day(time.January, 1), 2, "10"),
	}
	shares := Shares(residuals, products, 2).Value

	res := Reallocate(residuals, shares, []model.CategoryPPC{ppc("Bowls", time.January, 1), ppc("Cups", time.January, 3)})
	require.Len(t, res.Value, 2)
	assert.Equal(t, int64(0), res.Value[0].PPC)
	assert.Equal(t, int64(4), res.Value[0].Organic, "entire residual is organic")
	assert.Equal(t, int64(1), res.Value[1].PPC)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, "US/2019-01/Acme/Mugs", res.Diagnostics[0].Key)
	assert.Contains(t, res.Diagnostics[1].Message, "3 PPC orders")
}

func TestRunPartitionsResidual(t *testing.T) {
	in := Inputs{
		Amazon: []model.PeriodAggregate{
			agg("P1", day(time.January, 1), 7, "10"),
			agg("P2", day(time.January, 1), 3, "10"),
			agg("P1", day(time.February, 1), 2, "10"),
			agg("P2", day(time.February, 1), 8, "10"),
			agg("P3", day(time.February, 3), 5, "10"),
		},
		Liquidation: []model.PeriodAggregate{agg("P1", day(time.January, 1), 1, "5")},
		Promotions:  []model.PeriodAggregate{agg("P2", day(time.February, 1), 2, "8")},
		PPC: []model.CategoryPPC{
			ppc("Mugs", time.January, 4),
			ppc("Mugs", time.February, 3),
			ppc("Bowls", time.February, 9),
		},
		Products: products,
	}

	res := Run(in, 0)
	alloc := res.Value
	require.Len(t, alloc.Reallocations, 5)

	for _, r := range alloc.Reallocations {
		assert.Equal(t, r.ProductQty, r.PPC+r.Organic, "%s %s", r.Product.CanonicalID, r.Period)
		assert.GreaterOrEqual(t, r.Organic, int64(0))
	}

	// P1 February: raw 2/8, January 6/9; smoothed (2/3 + 1/4)/2.
	var febP1 Reallocation
	for _, r := range alloc.Reallocations {
		if r.Product.CanonicalID == "P1" && r.Period == month(time.February) {
			febP1 = r
		}
	}
	assert.InDelta(t, (6.0/9.0+2.0/8.0)/2, febP1.Smoothed, 1e-12)

	assert.Len(t, alloc.PPC(), 5)
	assert.Len(t, alloc.Organic(), 5)
	assert.Contains(t, kinds(res.Diagnostics), diag.OverAllocation, "P3 is capped at 5")
}
