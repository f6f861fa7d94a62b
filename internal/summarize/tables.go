package summarize

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/allocate"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/tabular"
)

// Published table names.
const (
	TableTotal          = "Calc-Historical-Total"
	TableAmazon         = "Calc-Historical-Amazon"
	TableLiquidation    = "Calc-Historical-Liquidation"
	TableNonAmazon      = "Calc-Historical-Non-Amazon"
	TablePPCSums        = "Calc-SUM-PPC-Orders"
	TablePortions       = "Calc-Orders-portion"
	TablePPCReallocated = "Calc-Historical-PPC.Reallocated"
	TableOrgReallocated = "Calc-Historical-Org.Reallocated"
	TableOutput         = "Output File"
)

var (
	// OutputHeader is the column layout of the final output table.
	OutputHeader = []string{"Brand", "Country", "Sales Channel", "Product Group", "Cin7", "Sales Type",
		"Date", "Year", "Month", "Sales QTY", "Out of stock days", "Avg Sale Price", "Revenue"}

	// CalcHeader is the column layout of the intermediate Calc tables.
	CalcHeader = []string{"Brand", "Country", "Sales Channel", "Product Group", "Cin7", "Sales Type",
		"Date", "Year", "Month", "Day", "Qty", "Out of stock days", "Price/Qty", "Revenue"}

	PPCSumsHeader = []string{"Market Place", "Year", "Month", "Brand", "Product Group", "PPC Orders"}

	PortionsHeader = []string{"Cin7", "Market Place", "Year", "Month", "Qty", "Category Sum", "Portion", "Smoothed Portion",
		"Category PPC Orders", "PPC Orders", "Organic Orders"}
)

func money(d decimal.Decimal) string {
	return d.StringFixedBank(2)
}

func day(p model.Period) string {
	if p.Day == 0 {
		return ""
	}
	return strconv.Itoa(p.Day)
}

// OutputTable renders attributed rows.
func OutputTable(rows []model.AttributedSalesRow) *tabular.Table {
	t := tabular.New(TableOutput, OutputHeader...)
	for _, r := range rows {
		t.Append(
			r.Brand,
			r.Country,
			r.SalesChannel,
			r.ProductGroup,
			r.Product,
			string(r.SalesType),
			r.Period.MonthOnly().DisplayDate(),
			strconv.Itoa(r.Period.Year),
			r.Period.Month.String(),
			strconv.FormatInt(r.Quantity, 10),
			strconv.Itoa(r.OutOfStockDays),
			money(r.AvgUnitPrice),
			money(r.Revenue()),
		)
	}
	return t
}

// CalcTable renders aggregates at their own granularity, tagged with a
// channel and sales type. Either tag may be empty.
func CalcTable(name string, aggs []model.PeriodAggregate, products model.ProductMap, stock StockDays, channel string, salesType model.SalesType) *tabular.Table {
	t := tabular.New(name, CalcHeader...)
	for _, a := range aggs {
		ref := products.Ref(a.Product)
		t.Append(
			ref.Brand,
			a.Market,
			channel,
			ref.ProductGroup,
			a.Product,
			string(salesType),
			a.Period.DisplayDate(),
			strconv.Itoa(a.Period.Year),
			a.Period.Month.String(),
			day(a.Period),
			strconv.FormatInt(a.Quantity, 10),
			strconv.Itoa(stock.Lookup(a.Product, a.Market, a.Period)),
			money(a.AvgUnitPrice),
			money(a.Revenue()),
		)
	}
	return t
}

// PPCSumsTable renders category PPC totals.
func PPCSumsTable(sums []model.CategoryPPC) *tabular.Table {
	t := tabular.New(TablePPCSums, PPCSumsHeader...)
	for _, s := range sums {
		c := s.Category
		t.Append(c.Market, strconv.Itoa(c.Year), c.Month.String(), c.Brand, c.ProductGroup, strconv.FormatInt(s.Orders, 10))
	}
	return t
}

// PortionsTable renders each product month's share and its PPC split.
func PortionsTable(reallocations []allocate.Reallocation) *tabular.Table {
	t := tabular.New(TablePortions, PortionsHeader...)
	for _, r := range reallocations {
		s := r.CategoryShare
		t.Append(
			s.Product.CanonicalID,
			s.Market,
			strconv.Itoa(s.Period.Year),
			s.Period.Month.String(),
			strconv.FormatInt(s.ProductQty, 10),
			strconv.FormatInt(s.CategoryQty, 10),
			strconv.FormatFloat(s.Raw, 'f', 6, 64),
			strconv.FormatFloat(s.Smoothed, 'f', 6, 64),
			strconv.FormatInt(r.CategoryPPC, 10),
			strconv.FormatInt(r.PPC, 10),
			strconv.FormatInt(r.Organic, 10),
		)
	}
	return t
}
