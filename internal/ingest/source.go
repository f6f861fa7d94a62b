package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/salesmix/internal/diag"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/tabular"
)

// Files expands a glob pattern into a sorted list of paths. A pattern that
// matches nothing yields an empty list.
func Files(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// readTable reads a CSV or XLSX file by extension. XLSX files are read
// from their first sheet.
func readTable(path string, opts ...tabular.CSVOption) (*tabular.Table, error) {
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		t, err := tabular.ReadXLSX(path, "")
		if err != nil {
			return nil, err
		}
		t.Name = name
		return t, nil
	}
	return tabular.ReadCSV(path, name, opts...)
}

// ReadOrders parses every order export in paths. Order exports are
// ISO-8859-1 encoded. Duplicate rows are distinct orders and are kept.
func ReadOrders(paths []string) (diag.Result[[]model.Order], error) {
	var res diag.Result[[]model.Order]
	for _, path := range paths {
		t, err := readTable(path, tabular.WithLatin1())
		if err != nil {
			return res, err
		}
		part, err := Orders(t)
		if err != nil {
			return res, err
		}
		res.Value = append(res.Value, part.Value...)
		res.Diagnostics = append(res.Diagnostics, part.Diagnostics...)
	}
	return res, nil
}

// ReadInventory parses every out-of-stock export in paths.
func ReadInventory(paths []string) (diag.Result[[]model.OutOfStock], error) {
	var res diag.Result[[]model.OutOfStock]
	for _, path := range paths {
		t, err := readTable(path)
		if err != nil {
			return res, err
		}
		part, err := Inventory(t, filepath.Base(path))
		if err != nil {
			return res, err
		}
		res.Value = append(res.Value, part.Value...)
		res.Diagnostics = append(res.Diagnostics, part.Diagnostics...)
	}
	return res, nil
}

// ReadPPC parses every sales-per-day export in paths.
func ReadPPC(paths []string) (diag.Result[[]model.PPCCount], error) {
	var res diag.Result[[]model.PPCCount]
	for _, path := range paths {
		t, err := readTable(path)
		if err != nil {
			return res, err
		}
		part, err := PPC(t)
		if err != nil {
			return res, err
		}
		res.Value = append(res.Value, part.Value...)
		res.Diagnostics = append(res.Diagnostics, part.Diagnostics...)
	}
	return res, nil
}

// Reference reads named tables from the reference workbook. The workbook
// is either an .xlsx file whose sheets are the tables, or a directory
// holding one <name>.csv file per table.
type Reference struct {
	path string
	dir  bool
}

// OpenReference checks that path exists and returns a reader for it.
func OpenReference(path string) (*Reference, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reference workbook: %w", err)
	}
	return &Reference{path: path, dir: info.IsDir()}, nil
}

// Table reads the named table. A missing table wraps tabular.ErrNoSheet.
func (r *Reference) Table(name string) (*tabular.Table, error) {
	if !r.dir {
		return tabular.ReadXLSX(r.path, name)
	}
	t, err := tabular.ReadCSV(filepath.Join(r.path, name+".csv"), name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read table %q: %w", name, tabular.ErrNoSheet)
	}
	return t, err
}

// OptionalTable reads the named table, returning an empty table when the
// workbook has no such table.
func (r *Reference) OptionalTable(name string) (*tabular.Table, error) {
	if name == "" {
		return tabular.New(name), nil
	}
	t, err := r.Table(name)
	if errors.Is(err, tabular.ErrNoSheet) {
		return tabular.New(name), nil
	}
	return t, err
}
