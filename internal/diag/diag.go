// Package diag carries the recoverable data-quality findings of a run.
//
// Every stage of the pipeline is a pure function that returns its value
// together with the diagnostics it produced. Diagnostics never abort a
// run; only structural input failures are returned as errors.
package diag

import (
	"fmt"
	"log/slog"
)

// Kind categorizes a diagnostic.
type Kind string

const (
	// MissingReference: an external id has no canonical product.
	MissingReference Kind = "missing_reference"
	// UnresolvedProduct: a canonical product has no brand or product group.
	UnresolvedProduct Kind = "unresolved_product"
	// DuplicateReference: a mapping table lists the same key twice.
	DuplicateReference Kind = "duplicate_reference"
	// MissingLimit: no liquidation limit for a product and month.
	MissingLimit Kind = "missing_limit"
	// ZeroDenominator: a category total of zero; the share is 0.
	ZeroDenominator Kind = "zero_denominator"
	// MalformedRow: an input row could not be parsed and was dropped.
	MalformedRow Kind = "malformed_row"
	// OverAllocation: reallocated PPC orders exceeded the residual.
	OverAllocation Kind = "over_allocation"
	// NegativeResidual: liquidation plus promotion exceeded the total.
	NegativeResidual Kind = "negative_residual"
	// MissingJoin: a join between two derived tables found no partner.
	MissingJoin Kind = "missing_join"
)

// Diagnostic is one structured warning.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Stage   string `json:"stage"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", d.Kind, d.Stage, d.Key, d.Message)
}

// Result is the outcome of a stage that completed, possibly degraded.
type Result[T any] struct {
	Value       T
	Diagnostics []Diagnostic
}

// Addf appends a diagnostic to the result.
func (r *Result[T]) Addf(kind Kind, stage, key, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Kind:    kind,
		Stage:   stage,
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	})
}

// Degraded reports whether the stage produced any diagnostic.
func (r Result[T]) Degraded() bool {
	return len(r.Diagnostics) > 0
}

// Collector accumulates the diagnostics of one run. A (kind, key) pair is
// kept and logged only the first time it is seen.
type Collector struct {
	logger *slog.Logger
	seen   map[string]struct{}
	list   []Diagnostic
}

// NewCollector creates a collector. A nil logger uses slog.Default().
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger, seen: make(map[string]struct{})}
}

// Add records d unless its (kind, key) was already recorded. Returns
// true when d was new.
func (c *Collector) Add(d Diagnostic) bool {
	id := string(d.Kind) + "\x00" + d.Key
	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = struct{}{}
	c.list = append(c.list, d)
	c.logger.Warn(d.Message, "kind", d.Kind, "stage", d.Stage, "key", d.Key)
	return true
}

// Merge records every diagnostic in ds.
func (c *Collector) Merge(ds []Diagnostic) {
	for _, d := range ds {
		c.Add(d)
	}
}

// All returns the recorded diagnostics in the order they were first seen.
func (c *Collector) All() []Diagnostic {
	out := make([]Diagnostic, len(c.list))
	copy(out, c.list)
	return out
}

// Count returns how many distinct diagnostics of kind were recorded.
func (c *Collector) Count(kind Kind) int {
	n := 0
	for _, d := range c.list {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Counts returns the number of distinct diagnostics per kind.
func (c *Collector) Counts() map[Kind]int {
	out := make(map[Kind]int)
	for _, d := range c.list {
		out[d.Kind]++
	}
	return out
}
