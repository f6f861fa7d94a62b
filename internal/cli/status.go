package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/salesmix/internal/manifest"
	"github.com/roach88/salesmix/internal/sink"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	ConfigPath string
}

// StatusResult reports the last run of a dataset.
type StatusResult struct {
	Run      sink.RunStatus     `json:"run"`
	Manifest *manifest.Manifest `json:"manifest,omitempty"`
}

func (r StatusResult) String() string {
	var b strings.Builder
	state := "complete"
	if !r.Run.Complete {
		state = "INCOMPLETE"
	}
	fmt.Fprintf(&b, "Dataset %s: run %s (%s)\n", r.Run.Dataset, r.Run.RunID, state)
	fmt.Fprintf(&b, "  rows %d, tables %d, digest %s", r.Run.Rows, r.Run.Tables, r.Run.Digest)
	if r.Manifest != nil {
		fmt.Fprintf(&b, "\n  manifest run %s", r.Manifest.RunID)
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last published run of the dataset",
		Long: `Read the run marker of the configured dataset from the sink and the
latest filesystem manifest, if one is configured.

A run whose marker is not complete was interrupted before it committed.

Exit codes:
  0 - Last run is complete
  1 - No run, or the last run is incomplete
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "salesmix.yaml", "path to config file")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), "failed to load config", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := sink.Open(ctx, cfg.Sink, logger)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "failed to open sink", err)
	}
	defer st.Close()

	run, err := st.LastRun(ctx, cfg.Sink.Dataset)
	if errors.Is(err, sink.ErrNoRun) {
		return formatter.fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no run published for dataset %q", cfg.Sink.Dataset), nil)
	}
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, "failed to read run marker", err)
	}

	result := StatusResult{Run: run}
	if cfg.Manifest.Dir != "" {
		m, err := manifest.NewFilesystemManifest(cfg.Manifest.Dir).ReadLatest()
		if err == nil {
			result.Manifest = &m
		} else {
			formatter.VerboseLog("No manifest: %v", err)
		}
	}

	if err := formatter.SuccessWithRun(run.RunID, result); err != nil {
		return err
	}
	if !run.Complete {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s is incomplete", run.RunID))
	}
	return nil
}
