package ingest

import (
	"fmt"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/schema"
	"github.com/roach88/salesmix/internal/tabular"
)

const (
	colOutOfStockDays = "Out of stock days"
	colEnd            = "End"
)

// Inventory parses an out-of-stock export. The period of each row comes
// from its End date when the export carries one, otherwise from the month
// name and year in filename.
func Inventory(t *tabular.Table, filename string) (diag.Result[[]model.OutOfStock], error) {
	var res diag.Result[[]model.OutOfStock]
	if err := requireSchema(t, schema.TableInventory); err != nil {
		return res, err
	}

	var filePeriod model.Period
	if !t.Has(colEnd) {
		year, month, err := PeriodFromFilename(filename)
		if err != nil {
			return res, fmt.Errorf("inventory %q: period: %w", t.Name, err)
		}
		filePeriod = model.Period{Year: year, Month: month}
	}

	out := make([]model.OutOfStock, 0, t.Len())
	for i, row := range t.Rows {
		key := rowKey(t, i)
		asin := t.Cell(row, colASIN)

		days, err := parseCount(t.Cell(row, colOutOfStockDays))
		if err != nil || days < 0 {
			res.Addf(diag.MalformedRow, stage, key, "inventory row for %s dropped: out of stock days %q", asin, t.Cell(row, colOutOfStockDays))
			continue
		}

		period := filePeriod
		if t.Has(colEnd) {
			end, err := parseDate(t.Cell(row, colEnd))
			if err != nil {
				res.Addf(diag.MalformedRow, stage, key, "inventory row for %s dropped: %v", asin, err)
				continue
			}
			period = model.Period{Year: end.Year(), Month: end.Month()}
		}

		out = append(out, model.OutOfStock{
			ExternalID: asin,
			Market:     t.Cell(row, colMarket),
			Period:     period,
			Days:       int(days),
		})
	}
	res.Value = out
	return res, nil
}
