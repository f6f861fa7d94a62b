package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Period identifies a calendar bucket. Day is 0 for monthly buckets.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day,omitempty"`
}

// PeriodOf returns the daily period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// MonthOnly drops the day component.
func (p Period) MonthOnly() Period {
	return Period{Year: p.Year, Month: p.Month}
}

// PrevMonth returns the monthly period immediately before p.
func (p Period) PrevMonth() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// NextMonth returns the monthly period immediately after p.
func (p Period) NextMonth() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Compare orders periods chronologically. Monthly periods sort before
// the days of the same month.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year != o.Year:
		return cmpInt(p.Year, o.Year)
	case p.Month != o.Month:
		return cmpInt(int(p.Month), int(o.Month))
	default:
		return cmpInt(p.Day, o.Day)
	}
}

// Date returns the calendar date of the period; monthly periods map to
// the first of the month.
func (p Period) Date() time.Time {
	day := p.Day
	if day == 0 {
		day = 1
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

// DisplayDate renders the period as MM/DD/YYYY.
func (p Period) DisplayDate() string {
	return p.Date().Format("01/02/2006")
}

func (p Period) String() string {
	if p.Day == 0 {
		return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
	}
	return fmt.Sprintf("%04d-%02d-%02d", p.Year, int(p.Month), p.Day)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Granularity selects the period resolution used by aggregation.
type Granularity int

const (
	Daily Granularity = iota
	Monthly
)

// Truncate reduces p to the granularity's resolution.
func (g Granularity) Truncate(p Period) Period {
	if g == Monthly {
		return p.MonthOnly()
	}
	return p
}

func (g Granularity) String() string {
	if g == Monthly {
		return "monthly"
	}
	return "daily"
}

// ParseGranularity maps a config value to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "", "daily":
		return Daily, nil
	case "monthly":
		return Monthly, nil
	default:
		return Daily, fmt.Errorf("unknown granularity %q", s)
	}
}

// SalesType tags a bucket of the final partition. The empty value is
// used by intermediate tables that are not part of the partition.
type SalesType string

const (
	SalesTypeNone SalesType = ""
	Liquidation   SalesType = "Liquidation"
	Promotion     SalesType = "Promotion"
	PPC           SalesType = "PPC"
	Organic       SalesType = "Organic"
	Wholesale     SalesType = "Wholesale"
	Shopify       SalesType = "Shopify"
)

// Sales channel labels.
const (
	ChannelAmazon    = "Amazon"
	ChannelNonAmazon = "Non-Amazon"
)

// Channel infers the sales channel of a bucket.
func (t SalesType) Channel() string {
	if t == Wholesale || t == Shopify {
		return ChannelNonAmazon
	}
	return ChannelAmazon
}

// ProductInfo is the brand and product group of a canonical product.
type ProductInfo struct {
	Brand        string `json:"brand"`
	ProductGroup string `json:"product_group"`
}

// ProductRef is a record's resolved identity.
type ProductRef struct {
	CanonicalID  string `json:"canonical_id"`
	Brand        string `json:"brand"`
	ProductGroup string `json:"product_group"`
}

// Complete reports whether brand and product group are both known.
func (r ProductRef) Complete() bool {
	return r.Brand != "" && r.ProductGroup != ""
}

// IDMap maps external marketplace ids to canonical product ids.
type IDMap map[string]string

// ProductMap maps canonical product ids to brand and product group.
type ProductMap map[string]ProductInfo

// Ref builds the ProductRef for a canonical id. Missing entries yield a
// ref with empty brand and product group.
func (m ProductMap) Ref(canonicalID string) ProductRef {
	info := m[canonicalID]
	return ProductRef{CanonicalID: canonicalID, Brand: info.Brand, ProductGroup: info.ProductGroup}
}

// Order is a single order line. Quantity is always positive once ingested.
type Order struct {
	ExternalID   string          `json:"external_id"`
	Market       string          `json:"market"`
	Channel      string          `json:"channel"`
	Period       Period          `json:"period"`
	Quantity     int64           `json:"quantity"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	CustomerPays decimal.Decimal `json:"customer_pays"`
	Refunded     bool            `json:"refunded"`
}

// UnitPrice is TotalPaid divided by Quantity.
func (o Order) UnitPrice() decimal.Decimal {
	if o.Quantity <= 0 {
		return decimal.Zero
	}
	return o.TotalPaid.Div(decimal.NewFromInt(o.Quantity))
}

// OutOfStock is the out-of-stock day count of a product for one month.
type OutOfStock struct {
	ExternalID string `json:"external_id"`
	Market     string `json:"market"`
	Period     Period `json:"period"`
	Days       int    `json:"days"`
}

// PPCCount is the number of paid-traffic orders of a product on one day.
type PPCCount struct {
	ExternalID string `json:"external_id"`
	Market     string `json:"market"`
	Period     Period `json:"period"`
	Orders     int64  `json:"orders"`
}

// Resolved pairs a record with the product identity it resolved to.
type Resolved[T any] struct {
	Record  T
	Product ProductRef
}

// LimitKey addresses a liquidation limit.
type LimitKey struct {
	Product string
	Year    int
	Month   time.Month
}

// LiquidationLimit is the standard price and liquidation fraction of a
// product for one month.
type LiquidationLimit struct {
	Product       string          `json:"product"`
	Year          int             `json:"year"`
	Month         time.Month      `json:"month"`
	StandardPrice decimal.Decimal `json:"standard_price"`
	Fraction      decimal.Decimal `json:"fraction"`
}

// Key returns the lookup key of the limit.
func (l LiquidationLimit) Key() LimitKey {
	return LimitKey{Product: l.Product, Year: l.Year, Month: l.Month}
}

// Ceiling is StandardPrice * (1 - Fraction). It is always derived from
// its inputs and never stored.
func (l LiquidationLimit) Ceiling() decimal.Decimal {
	return l.StandardPrice.Mul(decimal.NewFromInt(1).Sub(l.Fraction))
}

// AggregateKey addresses a PeriodAggregate.
type AggregateKey struct {
	Product string `json:"product"`
	Market  string `json:"market"`
	Period  Period `json:"period"`
}

// PeriodAggregate is the quantity and mean unit price of a product in one
// market and period.
type PeriodAggregate struct {
	AggregateKey
	Quantity     int64           `json:"quantity"`
	AvgUnitPrice decimal.Decimal `json:"avg_unit_price"`
}

// Revenue is Quantity * AvgUnitPrice.
func (a PeriodAggregate) Revenue() decimal.Decimal {
	return a.AvgUnitPrice.Mul(decimal.NewFromInt(a.Quantity))
}

// CategoryKey addresses a (brand, product group, market, month) category.
type CategoryKey struct {
	Market       string
	Year         int
	Month        time.Month
	Brand        string
	ProductGroup string
}

// CategoryOf builds the category key of a product in a market and month.
func CategoryOf(ref ProductRef, market string, p Period) CategoryKey {
	return CategoryKey{Market: market, Year: p.Year, Month: p.Month, Brand: ref.Brand, ProductGroup: ref.ProductGroup}
}

// CategoryPPC is the paid-traffic order count of one category.
type CategoryPPC struct {
	Category CategoryKey
	Orders   int64
}

// CategoryShare is a product's share of its category residual quantity
// for one month.
type CategoryShare struct {
	Product     ProductRef `json:"product"`
	Market      string     `json:"market"`
	Period      Period     `json:"period"`
	ProductQty  int64      `json:"product_qty"`
	CategoryQty int64      `json:"category_qty"`
	Raw         float64    `json:"raw"`
	Smoothed    float64    `json:"smoothed"`
}

// AttributedSalesRow is one row of the final categorized output.
type AttributedSalesRow struct {
	Brand          string          `json:"brand"`
	Country        string          `json:"country"`
	SalesChannel   string          `json:"sales_channel"`
	ProductGroup   string          `json:"product_group"`
	Product        string          `json:"product"`
	SalesType      SalesType       `json:"sales_type"`
	Period         Period          `json:"period"`
	Quantity       int64           `json:"quantity"`
	OutOfStockDays int             `json:"out_of_stock_days"`
	AvgUnitPrice   decimal.Decimal `json:"avg_unit_price"`
}

// Revenue is Quantity * AvgUnitPrice.
func (r AttributedSalesRow) Revenue() decimal.Decimal {
	return r.AvgUnitPrice.Mul(decimal.NewFromInt(r.Quantity))
}
