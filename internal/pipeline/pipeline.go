// Package pipeline runs one attribution pass over a batch of inputs.
//
// Run is a pure function of its inputs: it reads no files, writes to no
// sink and keeps no state between calls. Two runs over identical inputs
// return identical rows, tables and digests.
package pipeline

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/salesmix/internal/aggregate"
	"github.com/roach88/salesmix/internal/allocate"
	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/liquidation"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/resolve"
	"github.com/roach88/salesmix/internal/summarize"
	"github.com/roach88/salesmix/internal/tabular"
)

// Inputs is one batch of parsed records and reference tables.
type Inputs struct {
	Orders     []model.Order
	Inventory  []model.OutOfStock
	PPC        []model.PPCCount
	IDs        model.IDMap
	Products   model.ProductMap
	Limits     []model.LiquidationLimit
	Promotions []model.PeriodAggregate
	Wholesale  []model.PeriodAggregate
	Shopify    []model.PeriodAggregate

	// Diagnostics raised while parsing the inputs.
	Diagnostics []diag.Diagnostic
}

// Options tunes a run.
type Options struct {
	Granularity      model.Granularity
	SmoothingWindow  int
	NonAmazonChannel string
	Logger           *slog.Logger
}

// Output is the complete result of a run.
type Output struct {
	Rows []model.AttributedSalesRow
	// Tables are the published tables in publish order; the final
	// output table is last.
	Tables      []*tabular.Table
	Diagnostics []diag.Diagnostic
	// Digest is the content digest of Rows.
	Digest string
	Stats  Stats
}

// Stats counts records at each stage.
type Stats struct {
	Orders         int
	ResolvedOrders int
	Unmatched      int
	Liquidation    int
	Rows           int
}

// Run executes the pipeline. Data-quality problems are reported in
// Output.Diagnostics; an error means the output could not be built.
func Run(in Inputs, opts Options) (*Output, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nonAmazon := opts.NonAmazonChannel
	if nonAmazon == "" {
		nonAmazon = model.ChannelNonAmazon
	}
	g := opts.Granularity

	diags := diag.NewCollector(logger)
	diags.Merge(in.Diagnostics)

	orders := resolve.Resolve(in.Orders, in.IDs, in.Products, resolve.NoDedup, "orders")
	diags.Merge(orders.Diagnostics)
	logger.Debug("resolved orders", "summary", orders.Value.String())

	stock := resolve.Resolve(sortInventory(in.Inventory), in.IDs, in.Products, resolve.KeepFirstPerMonth, "inventory")
	diags.Merge(stock.Diagnostics)

	ppc := resolve.Resolve(in.PPC, in.IDs, in.Products, resolve.ExactDuplicateDrop, "ppc")
	diags.Merge(ppc.Diagnostics)

	for _, h := range []struct {
		name string
		aggs []model.PeriodAggregate
	}{
		{"promotions", in.Promotions},
		{"wholesale", in.Wholesale},
		{"shopify", in.Shopify},
	} {
		diags.Merge(resolve.CheckProducts(h.aggs, in.Products, h.name))
	}

	var amazonOrders, nonAmazonOrders []model.Resolved[model.Order]
	for _, o := range orders.Value.Records {
		if o.Record.Channel == nonAmazon {
			nonAmazonOrders = append(nonAmazonOrders, o)
		} else {
			amazonOrders = append(amazonOrders, o)
		}
	}

	liq := liquidation.Classify(amazonOrders, in.Limits)
	diags.Merge(liq.Diagnostics)

	total := aggregate.Aggregate(orders.Value.Records, g)
	amazon := aggregate.Aggregate(amazonOrders, g)
	nonAmazonAggs := aggregate.Aggregate(nonAmazonOrders, g)
	liqAggs := aggregate.Aggregate(liq.Value, g)
	promotions := aggregate.Rollup(in.Promotions, g)
	ppcSums := aggregate.SumPPCByCategory(ppc.Value.Records)

	alloc := allocate.Run(allocate.Inputs{
		Amazon:      amazon,
		Liquidation: liqAggs,
		Promotions:  promotions,
		PPC:         ppcSums,
		Products:    in.Products,
	}, opts.SmoothingWindow)
	diags.Merge(alloc.Diagnostics)

	ppcAggs := alloc.Value.PPC()
	organicAggs := alloc.Value.Organic()

	days := summarize.NewStockDays(stock.Value.Records)
	rows := summarize.Summarize([]summarize.Bucket{
		{Type: model.Liquidation, Aggregates: liqAggs},
		{Type: model.Promotion, Aggregates: promotions},
		{Type: model.PPC, Aggregates: ppcAggs},
		{Type: model.Organic, Aggregates: organicAggs},
		{Type: model.Shopify, Aggregates: in.Shopify},
		{Type: model.Wholesale, Aggregates: in.Wholesale},
	}, in.Products, days)

	digest, err := model.RowsDigest(rows)
	if err != nil {
		return nil, fmt.Errorf("digest rows: %w", err)
	}

	tables := []*tabular.Table{
		summarize.CalcTable(summarize.TableTotal, total, in.Products, days, "", model.SalesTypeNone),
		summarize.CalcTable(summarize.TableAmazon, amazon, in.Products, days, model.ChannelAmazon, model.SalesTypeNone),
		summarize.CalcTable(summarize.TableLiquidation, liqAggs, in.Products, days, model.ChannelAmazon, model.Liquidation),
		summarize.CalcTable(summarize.TableNonAmazon, nonAmazonAggs, in.Products, days, model.ChannelNonAmazon, model.SalesTypeNone),
		summarize.PPCSumsTable(ppcSums),
		summarize.PortionsTable(alloc.Value.Reallocations),
		summarize.CalcTable(summarize.TablePPCReallocated, ppcAggs, in.Products, days, model.ChannelAmazon, model.PPC),
		summarize.CalcTable(summarize.TableOrgReallocated, organicAggs, in.Products, days, model.ChannelAmazon, model.Organic),
		summarize.OutputTable(rows),
	}

	out := &Output{
		Rows:        rows,
		Tables:      tables,
		Diagnostics: diags.All(),
		Digest:      digest,
		Stats: Stats{
			Orders:         len(in.Orders),
			ResolvedOrders: len(orders.Value.Records),
			Unmatched:      len(orders.Value.Unmatched),
			Liquidation:    len(liq.Value),
			Rows:           len(rows),
		},
	}
	logger.Info("pipeline complete",
		"orders", out.Stats.Orders,
		"rows", out.Stats.Rows,
		"diagnostics", len(out.Diagnostics),
		"digest", digest)
	return out, nil
}

// sortInventory orders out-of-stock records by external id and then day
// count so that the keep-first dedup keeps the smallest count.
func sortInventory(records []model.OutOfStock) []model.OutOfStock {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b model.OutOfStock) int {
		if c := cmp.Compare(a.ExternalID, b.ExternalID); c != 0 {
			return c
		}
		return cmp.Compare(a.Days, b.Days)
	})
	return out
}

// Table returns the named output table, or nil.
func (o *Output) Table(name string) *tabular.Table {
	for _, t := range o.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}
