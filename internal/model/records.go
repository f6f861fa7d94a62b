package model

import "fmt"

// External is implemented by records that carry a marketplace id and are
// joined to canonical product identity.
type External interface {
	ExternalRef() string
	MarketPlace() string
	When() Period
	// Fingerprint identifies a record by its full content; two records
	// with equal fingerprints are exact duplicates.
	Fingerprint() string
}

func (o Order) ExternalRef() string { return o.ExternalID }
func (o Order) MarketPlace() string { return o.Market }
func (o Order) When() Period        { return o.Period }

func (o Order) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s|%s|%t",
		o.ExternalID, o.Market, o.Channel, o.Period, o.Quantity,
		o.TotalPaid.String(), o.CustomerPays.String(), o.Refunded)
}

func (s OutOfStock) ExternalRef() string { return s.ExternalID }
func (s OutOfStock) MarketPlace() string { return s.Market }
func (s OutOfStock) When() Period        { return s.Period }

func (s OutOfStock) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%d", s.ExternalID, s.Market, s.Period, s.Days)
}

func (c PPCCount) ExternalRef() string { return c.ExternalID }
func (c PPCCount) MarketPlace() string { return c.Market }
func (c PPCCount) When() Period        { return c.Period }

func (c PPCCount) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s|%d", c.ExternalID, c.Market, c.Period, c.Orders)
}
