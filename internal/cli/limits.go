package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/salesmix/internal/config"
	"github.com/roach88/salesmix/internal/ingest"
	"github.com/roach88/salesmix/internal/liquidation"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/runid"
	"github.com/roach88/salesmix/internal/sink"
	"github.com/roach88/salesmix/internal/tabular"
)

// LimitsDatasetSuffix is appended to the configured dataset when limits
// are published to the sink.
const LimitsDatasetSuffix = "-limits"

// LimitsOptions holds flags for the limits command.
type LimitsOptions struct {
	*RootOptions
	ConfigPath    string
	Start         string
	End           string
	Output        string
	Fraction      string
	StandardPrice string

	// RunIDs allows overriding the run id generator (for testing).
	RunIDs runid.Generator
}

// LimitsResult describes a generated limit table.
type LimitsResult struct {
	Products    int    `json:"products"`
	Months      int    `json:"months"`
	Rows        int    `json:"rows"`
	Destination string `json:"destination"`
	RunID       string `json:"run_id,omitempty"`
}

func (r LimitsResult) String() string {
	return fmt.Sprintf("Generated %d limit(s) for %d product(s) over %d month(s) -> %s",
		r.Rows, r.Products, r.Months, r.Destination)
}

// NewLimitsCommand creates the limits command.
func NewLimitsCommand(rootOpts *RootOptions) *cobra.Command {
	return newLimitsCommand(&LimitsOptions{RootOptions: rootOpts})
}

func newLimitsCommand(opts *LimitsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Generate a liquidation limit table",
		Long: `Generate one liquidation limit per canonical product for every month
from --start up to but excluding --end, using the configured default
standard price and liquidation fraction.

The table is written to --output (.csv or .xlsx) when given, otherwise it
is published to the sink under the dataset "<dataset>-limits".

Example:
  salesmix limits --config ./salesmix.yaml --start 2019-01 --end 2020-01
  salesmix limits --start 2019-01 --end 2019-07 --fraction 0.25 -o limits.xlsx`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLimits(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "salesmix.yaml", "path to config file")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first month, YYYY-MM (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "month after the last, YYYY-MM (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the table to a .csv or .xlsx file")
	cmd.Flags().StringVar(&opts.Fraction, "fraction", "", "liquidation fraction (default from config)")
	cmd.Flags().StringVar(&opts.StandardPrice, "price", "", "standard price (default from config)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runLimits(opts *LimitsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	start, err := parseMonthFlag(opts.Start)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, "invalid --start", err)
	}
	end, err := parseMonthFlag(opts.End)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, "invalid --end", err)
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), "failed to load config", err)
	}
	fraction, err := decimalFlag(opts.Fraction, cfg.Limits.DefaultFraction)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, "invalid --fraction", err)
	}
	price, err := decimalFlag(opts.StandardPrice, cfg.Limits.DefaultStandardPrice)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, "invalid --price", err)
	}

	products, err := canonicalProducts(cfg.Inputs.Reference)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), "failed to read product map", err)
	}
	formatter.VerboseLog("Found %d canonical product(s)", len(products))

	limits, err := liquidation.Generate(products, start, end, price, fraction)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, "failed to generate limits", err)
	}
	table := liquidation.Table(cfg.Inputs.Reference.LiquidationLimits, limits)

	result := LimitsResult{
		Products: len(products),
		Months:   monthsBetween(start, end),
		Rows:     len(limits),
	}

	if opts.Output != "" {
		if err := writeTableFile(opts.Output, table); err != nil {
			return formatter.fail(ExitFailure, ErrCodeWriteFailed, "failed to write limits", err)
		}
		result.Destination = opts.Output
		return formatter.Success(result)
	}

	if cfg.Sink.Driver == "xlsx" {
		return formatter.fail(ExitCommandError, ErrCodeBadFlag, "the xlsx sink holds one dataset; use --output", nil)
	}
	gen := opts.RunIDs
	if gen == nil {
		gen = runid.UUIDv7Generator{}
	}
	result.RunID = gen.Generate()
	result.Destination = cfg.Sink.Driver + ":" + cfg.Sink.Dataset + LimitsDatasetSuffix

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := publishLimits(ctx, cfg, result.RunID, table, logger); err != nil {
		return formatter.fail(ExitFailure, ErrCodeWriteFailed, "failed to publish limits", err)
	}
	return formatter.SuccessWithRun(result.RunID, result)
}

func publishLimits(ctx context.Context, cfg *config.Config, runID string, table *tabular.Table, logger *slog.Logger) error {
	st, err := sink.Open(ctx, cfg.Sink, logger)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing sink", "error", closeErr)
		}
	}()

	digest, err := table.Digest()
	if err != nil {
		return err
	}
	return st.Publish(ctx, sink.Publication{
		RunID:   runID,
		Dataset: cfg.Sink.Dataset + LimitsDatasetSuffix,
		Digest:  digest,
		Tables:  []*tabular.Table{table},
	})
}

// canonicalProducts lists the canonical ids of the product map.
func canonicalProducts(names config.ReferenceConfig) ([]string, error) {
	ref, err := ingest.OpenReference(names.Workbook)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reference workbook not found: %s", names.Workbook), Err: err}
		}
		return nil, inputError("reference", err)
	}
	t, err := ref.Table(names.ProductMap)
	if err != nil {
		return nil, inputError(names.ProductMap, err)
	}
	res, err := ingest.ProductMap(t)
	if err != nil {
		return nil, inputError(names.ProductMap, err)
	}
	ids := make([]string, 0, len(res.Value))
	for id := range res.Value {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func writeTableFile(path string, t *tabular.Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return tabular.WriteXLSX(path, t)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := tabular.WriteCSV(f, t); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unsupported output extension %q: want .csv or .xlsx", filepath.Ext(path))
	}
}

func parseMonthFlag(s string) (model.Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return model.Period{}, fmt.Errorf("want YYYY-MM, got %q", s)
	}
	return model.Period{Year: t.Year(), Month: t.Month()}, nil
}

func decimalFlag(flag string, fallback float64) (decimal.Decimal, error) {
	if flag == "" {
		return decimal.NewFromFloat(fallback), nil
	}
	return decimal.NewFromString(flag)
}

func monthsBetween(start, end model.Period) int {
	n := 0
	for p := start; p.Compare(end) < 0; p = p.NextMonth() {
		n++
	}
	return n
}
