package ingest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/schema"
	"github.com/roach88/salesmix/internal/tabular"
)

// Reference table columns.
const (
	colAmazonASIN       = "Amazon-ASIN"
	colCin7             = "Cin7"
	colBrand            = "Brand"
	colProductGroup     = "Product Group"
	colNormalPrice      = "Normal Price"
	colLiquidationLimit = "Liquidation Limit"
	colPricePerQty      = "Price/Qty"
)

// IDMap parses the external-id to canonical-id map. When an external id is
// listed twice the first mapping wins and the duplicate is reported.
func IDMap(t *tabular.Table) (diag.Result[model.IDMap], error) {
	res := diag.Result[model.IDMap]{Value: make(model.IDMap)}
	if err := requireSchema(t, schema.TableIDMap); err != nil {
		return res, err
	}

	for i, row := range t.Rows {
		ext := t.Cell(row, colAmazonASIN)
		canonical := t.Cell(row, colCin7)
		if ext == "" || canonical == "" {
			res.Addf(diag.MalformedRow, stage, rowKey(t, i), "id map row dropped: external id %q, canonical id %q", ext, canonical)
			continue
		}
		if prev, ok := res.Value[ext]; ok {
			if prev != canonical {
				res.Addf(diag.DuplicateReference, stage, ext, "external id %s maps to %s and %s; keeping %s", ext, prev, canonical, prev)
			}
			continue
		}
		res.Value[ext] = canonical
	}
	return res, nil
}

// ProductMap parses the canonical-id to brand and product group map.
// Duplicate canonical ids keep their first entry.
func ProductMap(t *tabular.Table) (diag.Result[model.ProductMap], error) {
	res := diag.Result[model.ProductMap]{Value: make(model.ProductMap)}
	if err := requireSchema(t, schema.TableProductMap); err != nil {
		return res, err
	}

	for i, row := range t.Rows {
		id := t.Cell(row, colCin7)
		if id == "" {
			res.Addf(diag.MalformedRow, stage, rowKey(t, i), "product map row without canonical id dropped")
			continue
		}
		info := model.ProductInfo{
			Brand:        t.Cell(row, colBrand),
			ProductGroup: t.Cell(row, colProductGroup),
		}
		if prev, ok := res.Value[id]; ok {
			if prev != info {
				res.Addf(diag.DuplicateReference, stage, id, "product %s listed twice; keeping %s/%s", id, prev.Brand, prev.ProductGroup)
			}
			continue
		}
		res.Value[id] = info
	}
	return res, nil
}

// LiquidationLimits parses the per-product, per-month limit table. The
// month may be a name or a number. A fraction outside [0, 1] drops the row.
// An empty sheet yields no limits.
func LiquidationLimits(t *tabular.Table) (diag.Result[[]model.LiquidationLimit], error) {
	var res diag.Result[[]model.LiquidationLimit]
	if empty(t) {
		return res, nil
	}
	if err := requireSchema(t, schema.TableLiquidationLimits); err != nil {
		return res, err
	}

	one := decimal.NewFromInt(1)
	seen := make(map[model.LimitKey]struct{}, t.Len())
	out := make([]model.LiquidationLimit, 0, t.Len())
	for i, row := range t.Rows {
		key := rowKey(t, i)
		id := t.Cell(row, colCin7)

		period, err := rowPeriod(t, row, false)
		if err != nil {
			res.Addf(diag.MalformedRow, stage, key, "limit for %s dropped: %v", id, err)
			continue
		}
		price, err := parseMoney(t.Cell(row, colNormalPrice))
		if err != nil || price.IsNegative() {
			res.Addf(diag.MalformedRow, stage, key, "limit for %s dropped: normal price %q", id, t.Cell(row, colNormalPrice))
			continue
		}
		frac, err := decimal.NewFromString(t.Cell(row, colLiquidationLimit))
		if err != nil || frac.IsNegative() || frac.GreaterThan(one) {
			res.Addf(diag.MalformedRow, stage, key, "limit for %s dropped: fraction %q", id, t.Cell(row, colLiquidationLimit))
			continue
		}

		lim := model.LiquidationLimit{
			Product:       id,
			Year:          period.Year,
			Month:         period.Month,
			StandardPrice: price,
			Fraction:      frac,
		}
		if _, dup := seen[lim.Key()]; dup {
			res.Addf(diag.DuplicateReference, stage, fmt.Sprintf("%s/%04d-%02d", id, lim.Year, int(lim.Month)),
				"limit for %s in %s listed twice; keeping the first", id, period.MonthOnly())
			continue
		}
		seen[lim.Key()] = struct{}{}
		out = append(out, lim)
	}
	res.Value = out
	return res, nil
}

// Historical parses a promotion, wholesale or shopify table that is
// already in aggregate shape. A sheet that was never filled in yields no
// aggregates and no error.
func Historical(t *tabular.Table) (diag.Result[[]model.PeriodAggregate], error) {
	var res diag.Result[[]model.PeriodAggregate]
	if empty(t) {
		return res, nil
	}
	if err := requireSchema(t, schema.TableHistorical); err != nil {
		return res, err
	}

	out := make([]model.PeriodAggregate, 0, t.Len())
	for i, row := range t.Rows {
		key := rowKey(t, i)
		id := t.Cell(row, colCin7)

		period, err := rowPeriod(t, row, false)
		if err != nil {
			res.Addf(diag.MalformedRow, stage, key, "historical row for %s dropped: %v", id, err)
			continue
		}
		qty, err := parseCount(t.Cell(row, colQty))
		if err != nil || qty < 0 {
			res.Addf(diag.MalformedRow, stage, key, "historical row for %s dropped: quantity %q", id, t.Cell(row, colQty))
			continue
		}
		price, err := parseMoney(t.Cell(row, colPricePerQty))
		if err != nil || price.IsNegative() {
			res.Addf(diag.MalformedRow, stage, key, "historical row for %s dropped: price %q", id, t.Cell(row, colPricePerQty))
			continue
		}

		out = append(out, model.PeriodAggregate{
			AggregateKey: model.AggregateKey{Product: id, Market: t.Cell(row, colMarket), Period: period},
			Quantity:     qty,
			AvgUnitPrice: price,
		})
	}
	model.SortAggregates(out)
	res.Value = out
	return res, nil
}
