package allocate

import (
	"cmp"
	"slices"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
)

// MonthPortion is one point of a product's portion series.
type MonthPortion struct {
	Period model.Period
	Value  float64
}

// Smooth returns the trailing mean of each point over itself and up to
// window-1 immediately preceding calendar months. The window counts
// calendar months, not observed points: a month in which the product had
// no residual breaks the window, and the month after the gap is averaged
// only with the months directly before it. The first month of a product
// and the first month after a gap are therefore unsmoothed. The series
// must be sorted by period and hold monthly periods.
func Smooth(series []MonthPortion, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(series))
	for i := range series {
		sum := series[i].Value
		n := 1
		for j := i - 1; j >= 0 && n < window; j-- {
			if series[j].Period != series[j+1].Period.PrevMonth() {
				break
			}
			sum += series[j].Value
			n++
		}
		out[i] = sum / float64(n)
	}
	return out
}

type productMonth struct {
	product string
	market  string
	period  model.Period
}

func compareProductMonth(a, b productMonth) int {
	if c := cmp.Compare(a.product, b.product); c != 0 {
		return c
	}
	if c := cmp.Compare(a.market, b.market); c != 0 {
		return c
	}
	return a.period.Compare(b.period)
}

// Shares computes each product's monthly share of its category residual
// and smooths it over window months. A category with zero residual gives
// its products a zero portion.
func Shares(residuals []model.PeriodAggregate, products model.ProductMap, window int) diag.Result[[]model.CategoryShare] {
	var res diag.Result[[]model.CategoryShare]

	monthly := make(map[productMonth]int64)
	categories := make(map[model.CategoryKey]int64)
	for _, r := range residuals {
		pm := productMonth{product: r.Product, market: r.Market, period: r.Period.MonthOnly()}
		monthly[pm] += r.Quantity
		categories[model.CategoryOf(products.Ref(r.Product), r.Market, r.Period)] += r.Quantity
	}

	keys := make([]productMonth, 0, len(monthly))
	for k := range monthly {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareProductMonth)

	zero := make(map[model.CategoryKey]struct{})
	shares := make([]model.CategoryShare, 0, len(keys))
	for _, k := range keys {
		ref := products.Ref(k.product)
		cat := model.CategoryOf(ref, k.market, k.period)
		total := categories[cat]
		var raw float64
		if total == 0 {
			if _, seen := zero[cat]; !seen {
				zero[cat] = struct{}{}
				res.Addf(diag.ZeroDenominator, stage, categoryKey(cat), "category residual is 0; portions set to 0")
			}
		} else {
			raw = float64(monthly[k]) / float64(total)
		}
		shares = append(shares, model.CategoryShare{
			Product:     ref,
			Market:      k.market,
			Period:      k.period,
			ProductQty:  monthly[k],
			CategoryQty: total,
			Raw:         raw,
		})
	}

	// Keys are sorted by product and market, so each series is a run.
	for start := 0; start < len(shares); {
		end := start + 1
		for end < len(shares) && shares[end].Product.CanonicalID == shares[start].Product.CanonicalID && shares[end].Market == shares[start].Market {
			end++
		}
		series := make([]MonthPortion, 0, end-start)
		for _, s := range shares[start:end] {
			series = append(series, MonthPortion{Period: s.Period, Value: s.Raw})
		}
		for i, v := range Smooth(series, window) {
			shares[start+i].Smoothed = v
		}
		start = end
	}

	res.Value = shares
	return res
}
