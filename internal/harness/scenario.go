package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one attribution test: a batch of inline inputs and
// the assertions the run must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is an optional fixed run id. If empty, defaults to
	// "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	Options   Options   `yaml:"options,omitempty"`
	Reference Reference `yaml:"reference"`

	Orders     []OrderRow     `yaml:"orders"`
	Inventory  []StockRow     `yaml:"inventory,omitempty"`
	PPC        []PPCRow       `yaml:"ppc,omitempty"`
	Promotions []AggregateRow `yaml:"promotions,omitempty"`
	Wholesale  []AggregateRow `yaml:"wholesale,omitempty"`
	Shopify    []AggregateRow `yaml:"shopify,omitempty"`

	// Assertions validate the rows, diagnostics and published tables.
	Assertions []Assertion `yaml:"assertions"`
}

// Options mirrors the pipeline section of the run configuration.
type Options struct {
	Granularity      string `yaml:"granularity,omitempty"`
	SmoothingWindow  int    `yaml:"smoothing_window,omitempty"`
	NonAmazonChannel string `yaml:"non_amazon_channel,omitempty"`
}

// Reference holds the reference tables of a scenario.
type Reference struct {
	IDs      map[string]string     `yaml:"ids"`
	Products map[string]ProductRow `yaml:"products"`
	Limits   []LimitRow            `yaml:"limits,omitempty"`
}

type ProductRow struct {
	Brand        string `yaml:"brand"`
	ProductGroup string `yaml:"product_group"`
}

type LimitRow struct {
	Product       string `yaml:"product"`
	Year          int    `yaml:"year"`
	Month         int    `yaml:"month"`
	StandardPrice string `yaml:"standard_price"`
	Fraction      string `yaml:"fraction"`
}

// OrderRow is one order line. Date is YYYY-MM-DD. CustomerPays defaults
// to Total and Channel to Amazon.
type OrderRow struct {
	ID           string `yaml:"id"`
	Market       string `yaml:"market"`
	Channel      string `yaml:"channel,omitempty"`
	Date         string `yaml:"date"`
	Quantity     int64  `yaml:"quantity"`
	Total        string `yaml:"total"`
	CustomerPays string `yaml:"customer_pays,omitempty"`
	Refunded     bool   `yaml:"refunded,omitempty"`
}

type StockRow struct {
	ID     string `yaml:"id"`
	Market string `yaml:"market"`
	Year   int    `yaml:"year"`
	Month  int    `yaml:"month"`
	Days   int    `yaml:"days"`
}

type PPCRow struct {
	ID     string `yaml:"id"`
	Market string `yaml:"market"`
	Date   string `yaml:"date"`
	Orders int64  `yaml:"orders"`
}

// AggregateRow is one historical aggregate. Date is YYYY-MM or
// YYYY-MM-DD.
type AggregateRow struct {
	Product  string `yaml:"product"`
	Market   string `yaml:"market"`
	Date     string `yaml:"date"`
	Quantity int64  `yaml:"quantity"`
	Price    string `yaml:"price"`
}

// Assertion validates one property of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row": exactly one row matches Where and it matches Expect
	// - "row_count": Count rows match Where (all rows when Where is empty)
	// - "total": rows matching Where sum to Quantity
	// - "diagnostic": Count diagnostics of Kind (and Key if set)
	// - "partition": sales types add up to the Amazon totals
	// - "table": published Table holds Count rows
	Type string `yaml:"type"`

	// Where filters rows by field (used by row, row_count, total).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by row).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	Count    int    `yaml:"count,omitempty"`
	Quantity int64  `yaml:"quantity,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Table    string `yaml:"table,omitempty"`
}

// Assertion type constants.
const (
	AssertRow        = "row"
	AssertRowCount   = "row_count"
	AssertTotal      = "total"
	AssertDiagnostic = "diagnostic"
	AssertPartition  = "partition"
	AssertTable      = "table"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, o := range s.Orders {
		if o.ID == "" || o.Market == "" || o.Date == "" {
			return fmt.Errorf("orders[%d]: id, market and date are required", i)
		}
		if o.Quantity <= 0 {
			return fmt.Errorf("orders[%d]: quantity must be positive", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRow:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	case AssertRowCount, AssertPartition:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTotal:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for total", index)
		}
	case AssertDiagnostic:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for diagnostic", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for diagnostic", index)
		}
	case AssertTable:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for table", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
