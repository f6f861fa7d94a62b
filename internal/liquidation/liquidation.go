// Package liquidation classifies orders sold at or under a product's
// monthly liquidation price ceiling.
package liquidation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
)

const stage = "liquidation"

// Classify returns the orders whose unit price is at or under the price
// ceiling of their (product, year, month) limit. Orders without a limit
// cannot be judged; they are left out and reported once per missing key.
func Classify(orders []model.Resolved[model.Order], limits []model.LiquidationLimit) diag.Result[[]model.Resolved[model.Order]] {
	var res diag.Result[[]model.Resolved[model.Order]]

	ceilings := make(map[model.LimitKey]decimal.Decimal, len(limits))
	for _, l := range limits {
		if _, ok := ceilings[l.Key()]; !ok {
			ceilings[l.Key()] = l.Ceiling()
		}
	}

	missing := make(map[model.LimitKey]int)
	out := make([]model.Resolved[model.Order], 0)
	for _, o := range orders {
		k := model.LimitKey{Product: o.Product.CanonicalID, Year: o.Record.Period.Year, Month: o.Record.Period.Month}
		ceiling, ok := ceilings[k]
		if !ok {
			missing[k]++
			continue
		}
		if o.Record.UnitPrice().LessThanOrEqual(ceiling) {
			out = append(out, o)
		}
	}

	keys := make([]model.LimitKey, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
	for _, k := range keys {
		res.Addf(diag.MissingLimit, stage, limitKey(k),
			"no liquidation limit for %s in %04d-%02d; %d order(s) not classified", k.Product, k.Year, int(k.Month), missing[k])
	}

	res.Value = out
	return res
}

func lessKey(a, b model.LimitKey) bool {
	if a.Product != b.Product {
		return a.Product < b.Product
	}
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.Month < b.Month
}

func limitKey(k model.LimitKey) string {
	return fmt.Sprintf("%s/%04d-%02d", k.Product, k.Year, int(k.Month))
}
