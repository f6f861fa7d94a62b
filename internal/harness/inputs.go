package harness

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/pipeline"
)

// Inputs converts the scenario's inline tables to pipeline inputs.
func (s *Scenario) Inputs() (pipeline.Inputs, pipeline.Options, error) {
	var in pipeline.Inputs
	var opts pipeline.Options

	g, err := model.ParseGranularity(s.Options.Granularity)
	if err != nil {
		return in, opts, err
	}
	opts = pipeline.Options{
		Granularity:      g,
		SmoothingWindow:  s.Options.SmoothingWindow,
		NonAmazonChannel: s.Options.NonAmazonChannel,
	}

	in.IDs = model.IDMap{}
	for k, v := range s.Reference.IDs {
		in.IDs[k] = v
	}
	in.Products = model.ProductMap{}
	for k, v := range s.Reference.Products {
		in.Products[k] = model.ProductInfo{Brand: v.Brand, ProductGroup: v.ProductGroup}
	}

	for i, l := range s.Reference.Limits {
		std, err := decimal.NewFromString(l.StandardPrice)
		if err != nil {
			return in, opts, fmt.Errorf("limits[%d]: standard_price: %w", i, err)
		}
		frac, err := decimal.NewFromString(l.Fraction)
		if err != nil {
			return in, opts, fmt.Errorf("limits[%d]: fraction: %w", i, err)
		}
		in.Limits = append(in.Limits, model.LiquidationLimit{
			Product:       l.Product,
			Year:          l.Year,
			Month:         time.Month(l.Month),
			StandardPrice: std,
			Fraction:      frac,
		})
	}

	for i, o := range s.Orders {
		p, err := parsePeriod(o.Date)
		if err != nil {
			return in, opts, fmt.Errorf("orders[%d]: %w", i, err)
		}
		total, err := decimal.NewFromString(o.Total)
		if err != nil {
			return in, opts, fmt.Errorf("orders[%d]: total: %w", i, err)
		}
		pays := total
		if o.CustomerPays != "" {
			if pays, err = decimal.NewFromString(o.CustomerPays); err != nil {
				return in, opts, fmt.Errorf("orders[%d]: customer_pays: %w", i, err)
			}
		}
		channel := o.Channel
		if channel == "" {
			channel = model.ChannelAmazon
		}
		in.Orders = append(in.Orders, model.Order{
			ExternalID:   o.ID,
			Market:       o.Market,
			Channel:      channel,
			Period:       p,
			Quantity:     o.Quantity,
			TotalPaid:    total,
			CustomerPays: pays,
			Refunded:     o.Refunded,
		})
	}

	for _, r := range s.Inventory {
		in.Inventory = append(in.Inventory, model.OutOfStock{
			ExternalID: r.ID,
			Market:     r.Market,
			Period:     model.Period{Year: r.Year, Month: time.Month(r.Month)},
			Days:       r.Days,
		})
	}

	for i, r := range s.PPC {
		p, err := parsePeriod(r.Date)
		if err != nil {
			return in, opts, fmt.Errorf("ppc[%d]: %w", i, err)
		}
		in.PPC = append(in.PPC, model.PPCCount{ExternalID: r.ID, Market: r.Market, Period: p, Orders: r.Orders})
	}

	for _, h := range []struct {
		name string
		rows []AggregateRow
		dst  *[]model.PeriodAggregate
	}{
		{"promotions", s.Promotions, &in.Promotions},
		{"wholesale", s.Wholesale, &in.Wholesale},
		{"shopify", s.Shopify, &in.Shopify},
	} {
		for i, r := range h.rows {
			agg, err := r.aggregate()
			if err != nil {
				return in, opts, fmt.Errorf("%s[%d]: %w", h.name, i, err)
			}
			*h.dst = append(*h.dst, agg)
		}
	}

	return in, opts, nil
}

func (r AggregateRow) aggregate() (model.PeriodAggregate, error) {
	p, err := parsePeriod(r.Date)
	if err != nil {
		return model.PeriodAggregate{}, err
	}
	price := decimal.Zero
	if r.Price != "" {
		if price, err = decimal.NewFromString(r.Price); err != nil {
			return model.PeriodAggregate{}, fmt.Errorf("price: %w", err)
		}
	}
	return model.PeriodAggregate{
		AggregateKey: model.AggregateKey{Product: r.Product, Market: r.Market, Period: p},
		Quantity:     r.Quantity,
		AvgUnitPrice: price,
	}, nil
}

// parsePeriod accepts YYYY-MM-DD (daily) or YYYY-MM (monthly).
func parsePeriod(s string) (model.Period, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return model.PeriodOf(t), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return model.Period{}, fmt.Errorf("invalid date %q", s)
	}
	return model.PeriodOf(t).MonthOnly(), nil
}
