// Package schema holds the declarative input and configuration schema.
//
// The schema is written in CUE and embedded in the binary. It names the
// required columns of every input table and constrains configuration
// values beyond what the YAML decoder can check.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Table names known to the schema.
const (
	TableOrders            = "orders"
	TableInventory         = "inventory"
	TablePPC               = "ppc"
	TableIDMap             = "id_map"
	TableProductMap        = "product_map"
	TableLiquidationLimits = "liquidation_limits"
	TableHistorical        = "historical"
)

// Schema is the compiled CUE schema.
type Schema struct {
	ctx   *cue.Context
	value cue.Value
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
	defaultErr    error
)

// Default returns the embedded schema, compiling it on first use.
func Default() (*Schema, error) {
	defaultOnce.Do(func() {
		defaultSchema, defaultErr = Compile(schemaCUE)
	})
	return defaultSchema, defaultErr
}

// Compile builds a schema from CUE source.
func Compile(src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %s", errors.Details(err, nil))
	}
	return &Schema{ctx: ctx, value: v}, nil
}

// RequiredColumns returns the columns a table must carry.
func (s *Schema) RequiredColumns(table string) ([]string, error) {
	v := s.value.LookupPath(cue.MakePath(cue.Str("tables"), cue.Str(table), cue.Str("required")))
	if !v.Exists() {
		return nil, fmt.Errorf("schema has no table %q", table)
	}
	var cols []string
	if err := v.Decode(&cols); err != nil {
		return nil, fmt.Errorf("decode required columns of %q: %w", table, err)
	}
	return cols, nil
}

// ValidateConfig checks a configuration value against #Config. The value
// is encoded through its json tags.
func (s *Schema) ValidateConfig(cfg any) error {
	def := s.value.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("schema has no #Config definition")
	}
	v := def.Unify(s.ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config violates schema: %s", errors.Details(err, nil))
	}
	return nil
}
