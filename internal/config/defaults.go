package config

// Default values for optional configuration fields.
const (
	DefaultOrdersGlob       = "ORDERS*.csv"
	DefaultInventoryGlob    = "INVENTORY*.csv"
	DefaultPPCGlob          = "SALESPERDAY*.xlsx"
	DefaultIDMapSheet       = "Input-ASIN-Cin7-Map"
	DefaultProductMapSheet  = "Input-Cin7-Product-Map"
	DefaultLimitsSheet      = "Input-Liquidation-Limits"
	DefaultPromotionsSheet  = "Input-Historical-Promotions"
	DefaultWholesaleSheet   = "Input-Historical-Wholesale"
	DefaultShopifySheet     = "Input-Historical-Shopify"
	DefaultGranularity      = "daily"
	DefaultSmoothingWindow  = 2
	DefaultNonAmazonChannel = "Non-Amazon"
	DefaultSinkDriver       = "sqlite"
	DefaultSQLitePath       = "salesmix.db"
	DefaultManifestKey      = "salesmix-run-latest"
	DefaultLiquidationFrac  = 0.2
	DefaultStandardPrice    = 29.97
)

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Inputs.Orders == "" {
		c.Inputs.Orders = DefaultOrdersGlob
	}
	if c.Inputs.Inventory == "" {
		c.Inputs.Inventory = DefaultInventoryGlob
	}
	if c.Inputs.PPC == "" {
		c.Inputs.PPC = DefaultPPCGlob
	}

	ref := &c.Inputs.Reference
	if ref.IDMap == "" {
		ref.IDMap = DefaultIDMapSheet
	}
	if ref.ProductMap == "" {
		ref.ProductMap = DefaultProductMapSheet
	}
	if ref.LiquidationLimits == "" {
		ref.LiquidationLimits = DefaultLimitsSheet
	}
	if ref.Promotions == "" {
		ref.Promotions = DefaultPromotionsSheet
	}
	if ref.Wholesale == "" {
		ref.Wholesale = DefaultWholesaleSheet
	}
	if ref.Shopify == "" {
		ref.Shopify = DefaultShopifySheet
	}

	if c.Pipeline.Granularity == "" {
		c.Pipeline.Granularity = DefaultGranularity
	}
	if c.Pipeline.SmoothingWindow == 0 {
		c.Pipeline.SmoothingWindow = DefaultSmoothingWindow
	}
	if c.Pipeline.NonAmazonChannel == "" {
		c.Pipeline.NonAmazonChannel = DefaultNonAmazonChannel
	}

	if c.Sink.Driver == "" {
		c.Sink.Driver = DefaultSinkDriver
	}
	if c.Sink.Driver == "sqlite" && c.Sink.Path == "" {
		c.Sink.Path = DefaultSQLitePath
	}

	if c.Manifest.Kafka.Key == "" {
		c.Manifest.Kafka.Key = DefaultManifestKey
	}

	if c.Limits.DefaultFraction == 0 {
		c.Limits.DefaultFraction = DefaultLiquidationFrac
	}
	if c.Limits.DefaultStandardPrice == 0 {
		c.Limits.DefaultStandardPrice = DefaultStandardPrice
	}
}
