package ingest

import (
	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/schema"
	"github.com/roach88/salesmix/internal/tabular"
)

// Order export columns.
const (
	colOrderDate    = "Order Date"
	colMarket       = "Market Place"
	colASIN         = "ASIN"
	colPrice        = "Price"
	colQty          = "Qty"
	colRefunded     = "Refunded"
	colSalesChannel = "Sales Channel"
	colCustomerPays = "Customer Pays"
)

// Orders parses an order export. Price is the total paid for the line;
// rows with an empty or unparsable price, a non-positive quantity, or an
// unreadable date are dropped.
func Orders(t *tabular.Table) (diag.Result[[]model.Order], error) {
	var res diag.Result[[]model.Order]
	if err := requireSchema(t, schema.TableOrders); err != nil {
		return res, err
	}

	out := make([]model.Order, 0, t.Len())
	for i, row := range t.Rows {
		key := rowKey(t, i)
		asin := t.Cell(row, colASIN)
		date := t.Cell(row, colOrderDate)

		price, err := parseMoney(t.Cell(row, colPrice))
		if err != nil {
			res.Addf(diag.MalformedRow, stage, key, "order %s on %q dropped: price: %v", asin, date, err)
			continue
		}
		pays, err := parseMoney(t.Cell(row, colCustomerPays))
		if err != nil {
			res.Addf(diag.MalformedRow, stage, key, "order %s on %q dropped: customer pays: %v", asin, date, err)
			continue
		}
		qty, err := parseCount(t.Cell(row, colQty))
		if err != nil {
			res.Addf(diag.MalformedRow, stage, key, "order %s on %q dropped: quantity: %v", asin, date, err)
			continue
		}
		if qty <= 0 {
			res.Addf(diag.MalformedRow, stage, key, "order %s on %q dropped: quantity %d is not positive", asin, date, qty)
			continue
		}
		if price.IsNegative() {
			res.Addf(diag.MalformedRow, stage, key, "order %s on %q dropped: negative price %s", asin, date, price)
			continue
		}
		when, err := parseDate(date)
		if err != nil {
			res.Addf(diag.MalformedRow, stage, key, "order %s dropped: %v", asin, err)
			continue
		}

		out = append(out, model.Order{
			ExternalID:   asin,
			Market:       t.Cell(row, colMarket),
			Channel:      t.Cell(row, colSalesChannel),
			Period:       model.PeriodOf(when),
			Quantity:     qty,
			TotalPaid:    price,
			CustomerPays: pays,
			Refunded:     parseBool(t.Cell(row, colRefunded)),
		})
	}
	res.Value = out
	return res, nil
}
