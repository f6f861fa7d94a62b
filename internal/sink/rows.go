package sink

import (
	"github.com/roach88/salesmix/internal/model"
)

const insertAttributedSQL = `
	INSERT INTO attributed_sales (
		dataset, row_index, brand, country, sales_channel, product_group, product,
		sales_type, year, month, day, quantity, out_of_stock_days, avg_unit_price, revenue
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// attributedArgs flattens a row into the column order of attributed_sales.
// Money is stored as decimal text.
func attributedArgs(dataset string, index int, r model.AttributedSalesRow) []any {
	return []any{
		dataset,
		index,
		r.Brand,
		r.Country,
		r.SalesChannel,
		r.ProductGroup,
		r.Product,
		string(r.SalesType),
		r.Period.Year,
		int(r.Period.Month),
		r.Period.Day,
		r.Quantity,
		r.OutOfStockDays,
		r.AvgUnitPrice.String(),
		r.Revenue().String(),
	}
}

const insertAttributedPG = `
	INSERT INTO attributed_sales (
		dataset, row_index, brand, country, sales_channel, product_group, product,
		sales_type, year, month, day, quantity, out_of_stock_days, avg_unit_price, revenue
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::numeric, $15::numeric)`
