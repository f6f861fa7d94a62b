package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/pipeline"
	"github.com/roach88/salesmix/internal/sink"
	"github.com/roach88/salesmix/internal/testutil"
)

// Dataset is the dataset id scenarios publish under.
const Dataset = "harness"

// Run executes a scenario and returns the result.
//
// Each scenario publishes into a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Convert inline inputs to pipeline inputs
// 2. Run the pipeline
// 3. Publish the tables to an in-memory SQLite sink
// 4. Evaluate assertions against rows, diagnostics and published tables
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	in, opts, err := scenario.Inputs()
	if err != nil {
		return nil, fmt.Errorf("failed to build inputs: %w", err)
	}
	opts.Logger = logger

	out, err := pipeline.Run(in, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to run pipeline: %w", err)
	}

	st, err := sink.OpenSQLite(":memory:", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory sink: %w", err)
	}
	defer st.Close()

	ids := testutil.NewFixedRunIDs()
	if scenario.RunID != "" {
		ids = testutil.NewFixedRunIDs(scenario.RunID)
	}
	runID := ids.Generate()

	ctx := context.Background()
	if err := st.Publish(ctx, sink.Publication{
		RunID:   runID,
		Dataset: Dataset,
		Digest:  out.Digest,
		Tables:  out.Tables,
		Rows:    out.Rows,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish: %w", err)
	}

	result := NewResult()
	result.RunID = runID
	result.Rows = out.Rows
	result.Diagnostics = out.Diagnostics
	result.Digest = out.Digest

	actx := &AssertionContext{
		Sink:   st,
		Ctx:    ctx,
		Amazon: amazonTotals(in, opts),
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// amazonTotals sums resolved Amazon-channel order quantities per
// product, market and month.
func amazonTotals(in pipeline.Inputs, opts pipeline.Options) map[model.AggregateKey]int64 {
	nonAmazon := opts.NonAmazonChannel
	if nonAmazon == "" {
		nonAmazon = model.ChannelNonAmazon
	}
	out := make(map[model.AggregateKey]int64)
	for _, o := range in.Orders {
		product, ok := in.IDs[o.ExternalID]
		if !ok || o.Channel == nonAmazon {
			continue
		}
		out[model.AggregateKey{Product: product, Market: o.Market, Period: o.Period.MonthOnly()}] += o.Quantity
	}
	return out
}
