package config

// Config is the root configuration of a run.
type Config struct {
	Inputs   InputsConfig   `yaml:"inputs" json:"inputs"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Sink     SinkConfig     `yaml:"sink" json:"sink"`
	Manifest ManifestConfig `yaml:"manifest" json:"manifest"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Limits   LimitsConfig   `yaml:"limits" json:"limits"`
}

// InputsConfig holds glob patterns for the per-run exports and the
// location of the reference tables.
type InputsConfig struct {
	Orders    string          `yaml:"orders" json:"orders"`       // e.g. ORDERS*.csv
	Inventory string          `yaml:"inventory" json:"inventory"` // e.g. INVENTORY*.csv
	PPC       string          `yaml:"ppc" json:"ppc"`             // e.g. SALESPERDAY*.xlsx
	Reference ReferenceConfig `yaml:"reference" json:"reference"`
}

// ReferenceConfig names the reference workbook and its sheets. Workbook
// may be an .xlsx file or a directory holding one <sheet>.csv per table.
type ReferenceConfig struct {
	Workbook          string `yaml:"workbook" json:"workbook"`
	IDMap             string `yaml:"id_map" json:"id_map"`
	ProductMap        string `yaml:"product_map" json:"product_map"`
	LiquidationLimits string `yaml:"liquidation_limits" json:"liquidation_limits"`
	Promotions        string `yaml:"promotions" json:"promotions"`
	Wholesale         string `yaml:"wholesale" json:"wholesale"`
	Shopify           string `yaml:"shopify" json:"shopify"`
}

// PipelineConfig tunes the attribution pipeline.
type PipelineConfig struct {
	Granularity      string `yaml:"granularity" json:"granularity"` // daily | monthly
	SmoothingWindow  int    `yaml:"smoothing_window" json:"smoothing_window"`
	NonAmazonChannel string `yaml:"non_amazon_channel" json:"non_amazon_channel"`
}

// SinkConfig addresses the destination of published tables.
type SinkConfig struct {
	Driver  string `yaml:"driver" json:"driver"` // sqlite | postgres | xlsx
	Path    string `yaml:"path" json:"path"`     // sqlite database or xlsx workbook
	DSN     string `yaml:"dsn" json:"dsn"`       // postgres connection string
	Dataset string `yaml:"dataset" json:"dataset"`
}

// ManifestConfig controls where run-complete manifests are written.
type ManifestConfig struct {
	Dir   string      `yaml:"dir" json:"dir"`
	Kafka KafkaConfig `yaml:"kafka" json:"kafka"`
}

// KafkaConfig holds the optional Kafka manifest topic.
type KafkaConfig struct {
	Brokers string `yaml:"brokers" json:"brokers"` // comma-separated
	Topic   string `yaml:"topic" json:"topic"`
	Key     string `yaml:"key" json:"key"`
}

// MetricsConfig holds Prometheus export settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LimitsConfig holds the defaults of the liquidation limit generator.
type LimitsConfig struct {
	DefaultFraction      float64 `yaml:"default_fraction" json:"default_fraction"`
	DefaultStandardPrice float64 `yaml:"default_standard_price" json:"default_standard_price"`
}
