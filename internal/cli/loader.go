package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/salesmix/internal/config"
	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/ingest"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/pipeline"
	"github.com/roach88/salesmix/internal/tabular"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Input glob could not be expanded
	ErrCodeNoFiles     = "E003" // No order exports matched
	ErrCodeLoadFailed  = "E004" // Input or reference table unreadable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeRunFailed   = "E006" // Pipeline could not build its output
	ErrCodeWriteFailed = "E007" // Sink, manifest or metrics write error

	ErrCodeConfigInvalid = "E101" // Configuration rejected
	ErrCodeMissingColumn = "E102" // Required input column absent
	ErrCodeBadFlag       = "E103" // Flag value rejected
	ErrCodeInvalidInput  = "E104" // Inputs carry diagnostics under --strict
)

// LoadError represents an error that occurred while loading configuration
// or inputs.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// InputFiles lists the files a run read.
type InputFiles struct {
	Orders    []string `json:"orders"`
	Inventory []string `json:"inventory"`
	PPC       []string `json:"ppc"`
	Reference string   `json:"reference"`
}

// LoadedInputs is everything the pipeline needs for one run.
type LoadedInputs struct {
	Inputs  pipeline.Inputs
	Options pipeline.Options
	Files   InputFiles
}

// loadConfig reads, defaults and validates the config file. Relative
// paths in the config are resolved against the config file's directory.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "error accessing config file", Err: err}
	}
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfigInvalid, Message: "invalid configuration", Err: err}
	}
	resolvePaths(cfg, filepath.Dir(path))
	return cfg, nil
}

func resolvePaths(cfg *config.Config, base string) {
	join := func(p *string) {
		if *p == "" || filepath.IsAbs(*p) || *p == ":memory:" {
			return
		}
		*p = filepath.Join(base, *p)
	}
	join(&cfg.Inputs.Orders)
	join(&cfg.Inputs.Inventory)
	join(&cfg.Inputs.PPC)
	join(&cfg.Inputs.Reference.Workbook)
	join(&cfg.Sink.Path)
	join(&cfg.Manifest.Dir)
	join(&cfg.Metrics.Textfile)
}

// loadInputs expands the input globs and parses every input and reference
// table. Malformed rows become diagnostics; unreadable files and missing
// required columns are errors.
func loadInputs(cfg *config.Config, logger *slog.Logger) (*LoadedInputs, error) {
	granularity, err := model.ParseGranularity(cfg.Pipeline.Granularity)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfigInvalid, Message: "pipeline.granularity", Err: err}
	}

	loaded := &LoadedInputs{
		Options: pipeline.Options{
			Granularity:      granularity,
			SmoothingWindow:  cfg.Pipeline.SmoothingWindow,
			NonAmazonChannel: cfg.Pipeline.NonAmazonChannel,
			Logger:           logger,
		},
	}
	files := &loaded.Files
	files.Reference = cfg.Inputs.Reference.Workbook

	for _, g := range []struct {
		pattern string
		dst     *[]string
	}{
		{cfg.Inputs.Orders, &files.Orders},
		{cfg.Inputs.Inventory, &files.Inventory},
		{cfg.Inputs.PPC, &files.PPC},
	} {
		paths, err := ingest.Files(g.pattern)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: "error scanning inputs", Err: err}
		}
		*g.dst = paths
	}
	if len(files.Orders) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no order exports match %s", cfg.Inputs.Orders)}
	}
	if len(files.Inventory) == 0 {
		logger.Warn("no inventory exports matched", "pattern", cfg.Inputs.Inventory)
	}
	if len(files.PPC) == 0 {
		logger.Warn("no sales-per-day exports matched", "pattern", cfg.Inputs.PPC)
	}

	in := &loaded.Inputs
	var diags []diag.Diagnostic

	orders, err := ingest.ReadOrders(files.Orders)
	if err != nil {
		return nil, inputError("orders", err)
	}
	in.Orders, diags = orders.Value, append(diags, orders.Diagnostics...)

	stock, err := ingest.ReadInventory(files.Inventory)
	if err != nil {
		return nil, inputError("inventory", err)
	}
	in.Inventory, diags = stock.Value, append(diags, stock.Diagnostics...)

	ppc, err := ingest.ReadPPC(files.PPC)
	if err != nil {
		return nil, inputError("ppc", err)
	}
	in.PPC, diags = ppc.Value, append(diags, ppc.Diagnostics...)

	ref, err := ingest.OpenReference(cfg.Inputs.Reference.Workbook)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reference workbook not found: %s", cfg.Inputs.Reference.Workbook)}
		}
		return nil, inputError("reference", err)
	}
	refDiags, err := loadReference(cfg.Inputs.Reference, ref, in)
	if err != nil {
		return nil, err
	}
	in.Diagnostics = append(diags, refDiags...)

	logger.Debug("inputs loaded",
		"orders", len(in.Orders),
		"inventory", len(in.Inventory),
		"ppc", len(in.PPC),
		"products", len(in.Products),
		"limits", len(in.Limits))
	return loaded, nil
}

func loadReference(names config.ReferenceConfig, ref *ingest.Reference, in *pipeline.Inputs) ([]diag.Diagnostic, error) {
	var diags []diag.Diagnostic

	t, err := ref.Table(names.IDMap)
	if err != nil {
		return nil, inputError(names.IDMap, err)
	}
	ids, err := ingest.IDMap(t)
	if err != nil {
		return nil, inputError(names.IDMap, err)
	}
	in.IDs, diags = ids.Value, append(diags, ids.Diagnostics...)

	if t, err = ref.Table(names.ProductMap); err != nil {
		return nil, inputError(names.ProductMap, err)
	}
	products, err := ingest.ProductMap(t)
	if err != nil {
		return nil, inputError(names.ProductMap, err)
	}
	in.Products, diags = products.Value, append(diags, products.Diagnostics...)

	if t, err = ref.OptionalTable(names.LiquidationLimits); err != nil {
		return nil, inputError(names.LiquidationLimits, err)
	}
	limits, err := ingest.LiquidationLimits(t)
	if err != nil {
		return nil, inputError(names.LiquidationLimits, err)
	}
	in.Limits, diags = limits.Value, append(diags, limits.Diagnostics...)

	for _, h := range []struct {
		name string
		dst  *[]model.PeriodAggregate
	}{
		{names.Promotions, &in.Promotions},
		{names.Wholesale, &in.Wholesale},
		{names.Shopify, &in.Shopify},
	} {
		t, err := ref.OptionalTable(h.name)
		if err != nil {
			return nil, inputError(h.name, err)
		}
		res, err := ingest.Historical(t)
		if err != nil {
			return nil, inputError(h.name, err)
		}
		*h.dst, diags = res.Value, append(diags, res.Diagnostics...)
	}
	return diags, nil
}

func inputError(table string, err error) *LoadError {
	var missing *tabular.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return &LoadError{Code: ErrCodeMissingColumn, Message: fmt.Sprintf("%s: required column missing", table), Err: err}
	case errors.Is(err, tabular.ErrNoSheet):
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s: table not found", table), Err: err}
	default:
		return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: read failed", table), Err: err}
	}
}

// loadErrorCode returns the code carried by err, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// newLogger builds the run logger: text on w, Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
