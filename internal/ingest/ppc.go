package ingest

import (
	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/schema"
	"github.com/roach88/salesmix/internal/tabular"
)

const (
	colDate      = "Date"
	colYear      = "Year"
	colMonth     = "Month"
	colDay       = "Day"
	colPPCOrders = "PPC Orders"
)

// PPC parses a sales-per-day export. Rows are dated by a Date column, or
// by Year, Month and Day columns when the export was already split.
func PPC(t *tabular.Table) (diag.Result[[]model.PPCCount], error) {
	var res diag.Result[[]model.PPCCount]
	if err := requireSchema(t, schema.TablePPC); err != nil {
		return res, err
	}
	if !t.Has(colDate) {
		if err := t.Require(colYear, colMonth, colDay); err != nil {
			return res, err
		}
	}

	out := make([]model.PPCCount, 0, t.Len())
	for i, row := range t.Rows {
		key := rowKey(t, i)
		asin := t.Cell(row, colASIN)

		orders, err := parseCount(t.Cell(row, colPPCOrders))
		if err != nil || orders < 0 {
			res.Addf(diag.MalformedRow, stage, key, "ppc row for %s dropped: orders %q", asin, t.Cell(row, colPPCOrders))
			continue
		}
		period, err := rowPeriod(t, row, true)
		if err != nil {
			res.Addf(diag.MalformedRow, stage, key, "ppc row for %s dropped: %v", asin, err)
			continue
		}

		out = append(out, model.PPCCount{
			ExternalID: asin,
			Market:     t.Cell(row, colMarket),
			Period:     period,
			Orders:     orders,
		})
	}
	res.Value = out
	return res, nil
}
