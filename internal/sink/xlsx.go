package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/roach88/salesmix/internal/tabular"
)

// RunSheet is the sheet holding the run marker of an xlsx publication.
const RunSheet = "_run"

// XLSX publishes all tables as the sheets of a single workbook.
type XLSX struct {
	path   string
	logger *slog.Logger
}

// NewXLSX returns a sink writing the workbook at path.
func NewXLSX(path string, logger *slog.Logger) *XLSX {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSX{path: path, logger: logger}
}

// Publish writes the workbook to a temporary file next to the target and
// renames it into place, so readers see either the old or the new file.
func (x *XLSX) Publish(ctx context.Context, pub Publication) error {
	if err := validate(pub); err != nil {
		return err
	}
	if x.path == "" {
		return errors.New("xlsx sink: path is required")
	}
	for _, t := range pub.Tables {
		if t.Name == RunSheet {
			return fmt.Errorf("publish: table name %q is reserved", RunSheet)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	marker := tabular.New(RunSheet, "Key", "Value")
	marker.Append("run_id", pub.RunID)
	marker.Append("dataset", pub.Dataset)
	marker.Append("digest", pub.Digest)
	marker.Append("tables", strconv.Itoa(len(pub.Tables)))
	marker.Append("rows", strconv.Itoa(len(pub.Rows)))
	marker.Append("complete", "true")

	sheets := append(append([]*tabular.Table{}, pub.Tables...), marker)

	dir, base := filepath.Split(x.path)
	tmp := filepath.Join(dir, "."+base+".tmp.xlsx")
	if err := tabular.WriteXLSX(tmp, sheets...); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := os.Rename(tmp, x.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace workbook: %w", err)
	}

	x.logger.Info("published",
		"sink", "xlsx",
		"run_id", pub.RunID,
		"dataset", pub.Dataset,
		"path", x.path,
		"tables", len(pub.Tables),
	)
	return nil
}

// LastRun reads the run marker of the workbook.
func (x *XLSX) LastRun(_ context.Context, dataset string) (RunStatus, error) {
	if _, err := os.Stat(x.path); errors.Is(err, os.ErrNotExist) {
		return RunStatus{}, fmt.Errorf("dataset %q: %w", dataset, ErrNoRun)
	}
	t, err := tabular.ReadXLSX(x.path, RunSheet)
	if errors.Is(err, tabular.ErrNoSheet) {
		return RunStatus{Dataset: dataset}, nil
	}
	if err != nil {
		return RunStatus{}, err
	}

	values := make(map[string]string, t.Len())
	for _, row := range t.Rows {
		values[t.Cell(row, "Key")] = t.Cell(row, "Value")
	}
	if values["dataset"] != dataset {
		return RunStatus{}, fmt.Errorf("dataset %q: %w", dataset, ErrNoRun)
	}

	st := RunStatus{
		RunID:    values["run_id"],
		Dataset:  values["dataset"],
		Digest:   values["digest"],
		Complete: values["complete"] == "true",
	}
	if st.Tables, err = strconv.Atoi(values["tables"]); err != nil {
		return RunStatus{}, fmt.Errorf("run marker tables: %w", err)
	}
	if st.Rows, err = strconv.Atoi(values["rows"]); err != nil {
		return RunStatus{}, fmt.Errorf("run marker rows: %w", err)
	}
	return st, nil
}

// Close is a no-op.
func (x *XLSX) Close() error { return nil }
