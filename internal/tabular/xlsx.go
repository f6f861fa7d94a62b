package tabular

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned when a workbook or directory has no table of the
// requested name.
var ErrNoSheet = errors.New("no such sheet")

// ReadXLSX reads one sheet of a workbook. An empty sheet name selects the
// first sheet.
func ReadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, ErrNoSheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return FromValues(sheet, rows), nil
}

// WriteXLSX writes the tables as the sheets of a new workbook at path,
// replacing any previous file. Each table becomes one sheet.
func WriteXLSX(path string, tables ...*Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("write workbook: no tables")
	}
	f := excelize.NewFile()
	defer f.Close()

	for _, t := range tables {
		if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("create sheet %q: %w", t.Name, err)
		}
		for i, row := range t.Values() {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
				return fmt.Errorf("write sheet %q row %d: %w", t.Name, i+1, err)
			}
		}
	}

	if !namesSheet(tables, "Sheet1") {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}
	return f.SaveAs(path)
}

func namesSheet(tables []*Table, name string) bool {
	for _, t := range tables {
		if t.Name == name {
			return true
		}
	}
	return false
}
