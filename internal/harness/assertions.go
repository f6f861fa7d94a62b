package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/sink"
	"github.com/roach88/salesmix/internal/summarize"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Rows     []model.AttributedSalesRow
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for i, r := range e.Rows {
			fmt.Fprintf(&buf, "  [%d] %s %s %s %s qty=%d price=%s\n",
				i+1, r.SalesType, r.Product, r.Country, r.Period, r.Quantity, r.AvgUnitPrice)
		}
	}

	return buf.String()
}

// AssertionContext provides what assertions need beyond the result.
type AssertionContext struct {
	Sink *sink.SQLite
	Ctx  context.Context

	// Amazon holds the Amazon order totals per product month.
	Amazon map[model.AggregateKey]int64
}

// EvaluateAssertions runs all assertions and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRow:
		return assertRow(result.Rows, a)
	case AssertRowCount:
		return assertRowCount(result.Rows, a)
	case AssertTotal:
		return assertTotal(result.Rows, a)
	case AssertDiagnostic:
		return assertDiagnostic(result.Diagnostics, a)
	case AssertPartition:
		return assertPartition(result, actx)
	case AssertTable:
		return assertTable(a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// rowFields renders a row's fields as strings keyed by their canonical
// names.
func rowFields(r model.AttributedSalesRow) map[string]string {
	out := make(map[string]string)
	for k, v := range model.CanonicalRow(r) {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// matchFields reports whether fields match every entry of want. Numeric
// values compare as decimals so that "11.50" matches "11.5".
func matchFields(fields map[string]string, want map[string]interface{}) (bool, error) {
	for k, v := range want {
		actual, ok := fields[k]
		if !ok {
			return false, fmt.Errorf("unknown row field %q", k)
		}
		if !valueEqual(actual, v) {
			return false, nil
		}
	}
	return true, nil
}

func valueEqual(actual string, expected interface{}) bool {
	exp := fmt.Sprint(expected)
	if actual == exp {
		return true
	}
	a, errA := decimal.NewFromString(actual)
	e, errE := decimal.NewFromString(exp)
	return errA == nil && errE == nil && a.Equal(e)
}

func filterRows(rows []model.AttributedSalesRow, where map[string]interface{}) ([]model.AttributedSalesRow, error) {
	var out []model.AttributedSalesRow
	for _, r := range rows {
		ok, err := matchFields(rowFields(r), where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func assertRow(rows []model.AttributedSalesRow, a Assertion) error {
	matched, err := filterRows(rows, a.Where)
	if err != nil {
		return err
	}
	if len(matched) != 1 {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("exactly one row where %v", a.Where),
			Actual:   fmt.Sprintf("%d rows", len(matched)),
			Rows:     rows,
		}
	}
	fields := rowFields(matched[0])
	ok, err := matchFields(fields, a.Expect)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("%v", a.Expect),
			Actual:   formatFields(fields, a.Expect),
			Rows:     rows,
		}
	}
	return nil
}

func formatFields(fields map[string]string, want map[string]interface{}) string {
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + fields[k]
	}
	return "map[" + strings.Join(parts, " ") + "]"
}

func assertRowCount(rows []model.AttributedSalesRow, a Assertion) error {
	matched, err := filterRows(rows, a.Where)
	if err != nil {
		return err
	}
	if len(matched) != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows where %v", a.Count, a.Where),
			Actual:   fmt.Sprintf("%d rows", len(matched)),
			Rows:     rows,
		}
	}
	return nil
}

func assertTotal(rows []model.AttributedSalesRow, a Assertion) error {
	matched, err := filterRows(rows, a.Where)
	if err != nil {
		return err
	}
	var sum int64
	for _, r := range matched {
		sum += r.Quantity
	}
	if sum != a.Quantity {
		return &AssertionError{
			Type:     AssertTotal,
			Expected: fmt.Sprintf("quantity %d where %v", a.Quantity, a.Where),
			Actual:   fmt.Sprintf("quantity %d", sum),
			Rows:     rows,
		}
	}
	return nil
}

func assertDiagnostic(diags []diag.Diagnostic, a Assertion) error {
	count := 0
	for _, d := range diags {
		if string(d.Kind) == a.Kind && (a.Key == "" || d.Key == a.Key) {
			count++
		}
	}
	if count != a.Count {
		var seen []string
		for _, d := range diags {
			seen = append(seen, d.String())
		}
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: fmt.Sprintf("%d %s diagnostic(s) with key %q", a.Count, a.Kind, a.Key),
			Actual:   fmt.Sprintf("%d; all diagnostics: %v", count, seen),
		}
	}
	return nil
}

// assertPartition checks that the Amazon sales types of each product
// month add up to its Amazon order total. Keys carrying a negative
// residual or missing join diagnostic are skipped.
func assertPartition(result *Result, actx *AssertionContext) error {
	got := summarize.Totals(result.Rows, model.Liquidation, model.Promotion, model.PPC, model.Organic)

	keys := make([]model.AggregateKey, 0, len(actx.Amazon))
	for k := range actx.Amazon {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return model.CompareAggregateKeys(keys[i], keys[j]) < 0 })

	var mismatches []string
	for _, k := range keys {
		if excused(result.Diagnostics, k) {
			continue
		}
		if got[k] != actx.Amazon[k] {
			mismatches = append(mismatches, fmt.Sprintf("%s/%s/%s: %d != %d", k.Product, k.Market, k.Period, got[k], actx.Amazon[k]))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertPartition,
			Expected: "sales types sum to Amazon totals",
			Actual:   strings.Join(mismatches, "; "),
			Rows:     result.Rows,
		}
	}
	return nil
}

func excused(diags []diag.Diagnostic, k model.AggregateKey) bool {
	prefix := fmt.Sprintf("%s/%s/%s", k.Product, k.Market, k.Period)
	for _, d := range diags {
		if (d.Kind == diag.NegativeResidual || d.Kind == diag.MissingJoin) && strings.HasPrefix(d.Key, prefix) {
			return true
		}
	}
	return false
}

func assertTable(a Assertion, actx *AssertionContext) error {
	t, err := actx.Sink.ReadTable(actx.Ctx, Dataset, a.Table)
	if err != nil {
		return &AssertionError{
			Type:     AssertTable,
			Expected: fmt.Sprintf("published table %q", a.Table),
			Actual:   err.Error(),
		}
	}
	if t.Len() != a.Count {
		return &AssertionError{
			Type:     AssertTable,
			Expected: fmt.Sprintf("%d rows in %q", a.Count, a.Table),
			Actual:   fmt.Sprintf("%d rows", t.Len()),
		}
	}
	return nil
}
