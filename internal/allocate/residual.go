package allocate

import (
	"fmt"

	"github.com/roach88/salesmix/internal/aggregate"
	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
)

const stage = "allocate"

func aggKey(k model.AggregateKey) string {
	return fmt.Sprintf("%s/%s/%s", k.Product, k.Market, k.Period)
}

func categoryKey(k model.CategoryKey) string {
	return fmt.Sprintf("%s/%04d-%02d/%s/%s", k.Market, k.Year, int(k.Month), k.Brand, k.ProductGroup)
}

// Residuals subtracts liquidation and promotion quantities from the Amazon
// totals of the same product month. All three inputs are rolled up to
// months first, so daily orders and monthly historical tables line up.
// Missing liquidation or promotion entries count as zero. A negative
// result is floored at zero. The residual keeps the Amazon average unit
// price of the month.
func Residuals(amazon, liquidation, promotions []model.PeriodAggregate) diag.Result[[]model.PeriodAggregate] {
	var res diag.Result[[]model.PeriodAggregate]

	monthly := aggregate.Rollup(amazon, model.Monthly)
	liqMonths := aggregate.Rollup(liquidation, model.Monthly)
	promoMonths := aggregate.Rollup(promotions, model.Monthly)

	totals := aggregate.Index(monthly)
	liq := aggregate.Index(liqMonths)
	promo := aggregate.Index(promoMonths)

	out := make([]model.PeriodAggregate, 0, len(monthly))
	for _, a := range monthly {
		q := a.Quantity
		if l, ok := liq[a.AggregateKey]; ok {
			q -= l.Quantity
		}
		if p, ok := promo[a.AggregateKey]; ok {
			q -= p.Quantity
		}
		if q < 0 {
			res.Addf(diag.NegativeResidual, stage, aggKey(a.AggregateKey),
				"liquidation and promotion exceed Amazon quantity %d by %d; residual set to 0", a.Quantity, -q)
			q = 0
		}
		out = append(out, model.PeriodAggregate{AggregateKey: a.AggregateKey, Quantity: q, AvgUnitPrice: a.AvgUnitPrice})
	}

	for _, l := range liqMonths {
		if _, ok := totals[l.AggregateKey]; !ok {
			res.Addf(diag.MissingJoin, stage, aggKey(l.AggregateKey)+"/liquidation",
				"liquidation quantity %d has no Amazon total", l.Quantity)
		}
	}
	for _, p := range promoMonths {
		if _, ok := totals[p.AggregateKey]; !ok {
			res.Addf(diag.MissingJoin, stage, aggKey(p.AggregateKey)+"/promotion",
				"promotion quantity %d has no Amazon total", p.Quantity)
		}
	}

	res.Value = out
	return res
}
