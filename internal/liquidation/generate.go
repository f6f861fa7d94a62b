package liquidation

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/tabular"
)

// LimitsHeader is the column layout of the liquidation limits table.
var LimitsHeader = []string{"Cin7", "Year", "Month", "Normal Price", "Liquidation Limit"}

// Generate emits one limit per product for every month from start up to
// but excluding end, using the same standard price and fraction for all.
// Products are emitted in sorted order within each month.
func Generate(products []string, start, end model.Period, standardPrice, fraction decimal.Decimal) ([]model.LiquidationLimit, error) {
	start, end = start.MonthOnly(), end.MonthOnly()
	if end.Compare(start) < 0 {
		return nil, fmt.Errorf("generate limits: end %s before start %s", end, start)
	}
	if fraction.IsNegative() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("generate limits: fraction %s outside [0, 1]", fraction)
	}

	ids := append([]string(nil), products...)
	sort.Strings(ids)

	var out []model.LiquidationLimit
	for p := start; p.Compare(end) < 0; p = p.NextMonth() {
		for _, id := range ids {
			out = append(out, model.LiquidationLimit{
				Product:       id,
				Year:          p.Year,
				Month:         p.Month,
				StandardPrice: standardPrice,
				Fraction:      fraction,
			})
		}
	}
	return out, nil
}

// Table renders limits in the layout the ingest parser reads back.
func Table(name string, limits []model.LiquidationLimit) *tabular.Table {
	t := tabular.New(name, LimitsHeader...)
	for _, l := range limits {
		t.Append(l.Product, strconv.Itoa(l.Year), l.Month.String(), l.StandardPrice.String(), l.Fraction.String())
	}
	return t
}
