package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/salesmix/internal/config"
	"github.com/roach88/salesmix/internal/manifest"
	"github.com/roach88/salesmix/internal/metrics"
	"github.com/roach88/salesmix/internal/pipeline"
	"github.com/roach88/salesmix/internal/runid"
	"github.com/roach88/salesmix/internal/sink"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	DryRun     bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs runid.Generator

	// Now allows overriding the clock used for the last-success metric.
	Now func() time.Time
}

// RunSummary is the result of a run.
type RunSummary struct {
	RunID       string           `json:"run_id,omitempty"`
	Dataset     string           `json:"dataset"`
	Sink        string           `json:"sink"`
	DryRun      bool             `json:"dry_run"`
	Rows        int              `json:"rows"`
	Tables      int              `json:"tables"`
	Digest      string           `json:"digest"`
	Quantity    map[string]int64 `json:"quantity"`
	Diagnostics map[string]int   `json:"diagnostics,omitempty"`
	Files       InputFiles       `json:"files"`
}

func (s RunSummary) String() string {
	var b strings.Builder
	if s.DryRun {
		fmt.Fprintf(&b, "Dry run: %d rows in %d tables (not published)\n", s.Rows, s.Tables)
	} else {
		fmt.Fprintf(&b, "Published run %s to %s dataset %q: %d rows in %d tables\n", s.RunID, s.Sink, s.Dataset, s.Rows, s.Tables)
	}
	fmt.Fprintf(&b, "Digest: %s\n", s.Digest)
	for _, k := range sortedKeys(s.Quantity) {
		fmt.Fprintf(&b, "  %-12s %d\n", k, s.Quantity[k])
	}
	if len(s.Diagnostics) > 0 {
		fmt.Fprintln(&b, "Diagnostics:")
		for _, k := range sortedKeys(s.Diagnostics) {
			fmt.Fprintf(&b, "  %-20s %d\n", k, s.Diagnostics[k])
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the attribution pipeline and publish the result",
		Long: `Read the order, inventory and sales-per-day exports named by the config,
attribute every unit to a sales type and publish the output tables.

Publication replaces every table of the dataset inside one transaction and
records a run marker. A manifest is written only after the sink commits.

Exit codes:
  0 - Run published (or dry run completed)
  1 - Pipeline or publish failure
  2 - Command error (config, missing inputs, etc.)

Example:
  salesmix run --config ./salesmix.yaml
  salesmix run --config ./salesmix.yaml --dry-run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "salesmix.yaml", "path to config file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run the pipeline without publishing")

	return cmd
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), "failed to load config", err)
	}
	logger.Info("config loaded", "path", opts.ConfigPath, "dataset", cfg.Sink.Dataset, "sink", cfg.Sink.Driver)

	loaded, err := loadInputs(cfg, logger)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), "failed to load inputs", err)
	}
	formatter.VerboseLog("Read %d order, %d inventory and %d sales-per-day file(s)",
		len(loaded.Files.Orders), len(loaded.Files.Inventory), len(loaded.Files.PPC))

	started := now()
	out, err := pipeline.Run(loaded.Inputs, loaded.Options)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeRunFailed, "pipeline failed", err)
	}
	reg := metrics.NewRegistry()
	reg.Observe(out, now().Sub(started))

	summary := summarizeRun(cfg, loaded, out)
	summary.DryRun = opts.DryRun
	if opts.DryRun {
		return formatter.Success(summary)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, abandoning run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	gen := opts.RunIDs
	if gen == nil {
		gen = runid.UUIDv7Generator{}
	}
	summary.RunID = gen.Generate()

	if err := publish(ctx, cfg, summary.RunID, out, logger); err != nil {
		reg.PublishFailures.Inc()
		_ = writeMetrics(cfg, reg, logger)
		return formatter.fail(ExitFailure, ErrCodeWriteFailed, "publish failed", err)
	}

	reg.MarkSuccess(now())
	if err := writeMetrics(cfg, reg, logger); err != nil {
		return formatter.fail(ExitFailure, ErrCodeWriteFailed, "metrics write failed", err)
	}
	return formatter.SuccessWithRun(summary.RunID, summary)
}

// publish writes the run to the sink and then announces it. Manifests are
// only written once the sink has committed.
func publish(ctx context.Context, cfg *config.Config, runID string, out *pipeline.Output, logger *slog.Logger) error {
	st, err := sink.Open(ctx, cfg.Sink, logger)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing sink", "error", closeErr)
		}
	}()

	if err := st.Publish(ctx, sink.Publication{
		RunID:   runID,
		Dataset: cfg.Sink.Dataset,
		Digest:  out.Digest,
		Tables:  out.Tables,
		Rows:    out.Rows,
	}); err != nil {
		return err
	}

	man, err := manifest.Build(runID, cfg.Sink.Dataset, cfg.Sink.Driver, out.Digest, len(out.Rows), out.Tables, out.Diagnostics)
	if err != nil {
		return err
	}
	pub, closers := manifestPublishers(cfg)
	defer func() {
		for _, c := range closers {
			if closeErr := c.Close(); closeErr != nil {
				logger.Error("error closing manifest publisher", "error", closeErr)
			}
		}
	}()
	if pub == nil {
		return nil
	}
	if err := pub.Publish(ctx, man); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	logger.Info("manifest published", "run_id", runID)
	return nil
}

func manifestPublishers(cfg *config.Config) (manifest.Publisher, []io.Closer) {
	var pubs []manifest.Publisher
	var closers []io.Closer
	if cfg.Manifest.Dir != "" {
		pubs = append(pubs, manifest.NewFilesystemManifest(cfg.Manifest.Dir))
	}
	if cfg.Manifest.Kafka.Brokers != "" {
		k := manifest.NewKafkaManifest(cfg.Manifest.Kafka.Brokers, cfg.Manifest.Kafka.Topic, cfg.Manifest.Kafka.Key)
		pubs = append(pubs, k)
		closers = append(closers, k)
	}
	if len(pubs) == 0 {
		return nil, nil
	}
	return manifest.MultiPublisher(pubs...), closers
}

func writeMetrics(cfg *config.Config, reg *metrics.Registry, logger *slog.Logger) error {
	if cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Error("metrics textfile write failed", "path", cfg.Metrics.Textfile, "error", err)
		return err
	}
	return nil
}

func summarizeRun(cfg *config.Config, loaded *LoadedInputs, out *pipeline.Output) RunSummary {
	s := RunSummary{
		Dataset:  cfg.Sink.Dataset,
		Sink:     cfg.Sink.Driver,
		Rows:     len(out.Rows),
		Tables:   len(out.Tables),
		Digest:   out.Digest,
		Quantity: make(map[string]int64),
		Files:    loaded.Files,
	}
	for _, r := range out.Rows {
		s.Quantity[string(r.SalesType)] += r.Quantity
	}
	if len(out.Diagnostics) > 0 {
		s.Diagnostics = make(map[string]int)
		for _, d := range out.Diagnostics {
			s.Diagnostics[string(d.Kind)]++
		}
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
