package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/salesmix/internal/diag"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigPath string
	Strict     bool // treat input diagnostics as failures
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Config      string            `json:"config"`
	Files       InputFiles        `json:"files"`
	Records     map[string]int    `json:"records"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	if r.Valid {
		fmt.Fprintf(&b, "✓ %s is valid\n", r.Config)
	} else {
		fmt.Fprintf(&b, "✗ %s has input problems\n", r.Config)
	}
	for _, k := range sortedKeys(r.Records) {
		fmt.Fprintf(&b, "  %-12s %d\n", k, r.Records[k])
	}
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "  %s\n", d)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate config and inputs without running the pipeline",
		Long: `Load the config, check it against the embedded schema and parse every
input and reference table. Nothing is published.

Malformed rows are reported as diagnostics. With --strict any diagnostic
fails validation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "salesmix.yaml", "path to config file")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on any input diagnostic")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), "failed to load config", err)
	}
	formatter.VerboseLog("Config %s passed schema validation", opts.ConfigPath)

	loaded, err := loadInputs(cfg, logger)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), "failed to load inputs", err)
	}

	in := loaded.Inputs
	result := ValidationResult{
		Valid:  true,
		Config: opts.ConfigPath,
		Files:  loaded.Files,
		Records: map[string]int{
			"orders":     len(in.Orders),
			"inventory":  len(in.Inventory),
			"ppc":        len(in.PPC),
			"ids":        len(in.IDs),
			"products":   len(in.Products),
			"limits":     len(in.Limits),
			"promotions": len(in.Promotions),
			"wholesale":  len(in.Wholesale),
			"shopify":    len(in.Shopify),
		},
		Diagnostics: in.Diagnostics,
	}

	if opts.Strict && len(in.Diagnostics) > 0 {
		result.Valid = false
		msg := fmt.Sprintf("%d input diagnostic(s)", len(in.Diagnostics))
		if opts.Format == "json" {
			if err := formatter.Error(ErrCodeInvalidInput, msg, result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), result)
		}
		return NewExitError(ExitFailure, msg)
	}
	return formatter.Success(result)
}
