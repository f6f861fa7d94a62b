package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/schema"
	"github.com/roach88/salesmix/internal/tabular"
)

const stage = "ingest"

// requireSchema checks t against the schema's required columns for table.
func requireSchema(t *tabular.Table, table string) error {
	s, err := schema.Default()
	if err != nil {
		return err
	}
	cols, err := s.RequiredColumns(table)
	if err != nil {
		return err
	}
	return t.Require(cols...)
}

// empty reports whether t carries neither header nor rows. Reference
// sheets that were never filled in read this way.
func empty(t *tabular.Table) bool {
	return len(t.Header) == 0 && t.Len() == 0
}

var moneyNoise = strings.NewReplacer("$", "", "£", "", "Â", "", ",", "", " ", "")

// parseMoney parses a price cell, ignoring currency symbols and
// thousands separators.
func parseMoney(s string) (decimal.Decimal, error) {
	s = moneyNoise.Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// parseCount parses a whole-number cell. Spreadsheet exports often render
// counts as "3.0".
func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("count %q is not a whole number", s)
	}
	return d.IntPart(), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01-02-06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"2 Jan 2006",
}

// parseDate accepts the date renderings found in marketplace exports and
// spreadsheet serial numbers.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseMonth accepts a month name, its three-letter abbreviation, or a
// number from 1 to 12.
func parseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return time.Month(n), nil
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

func parseYear(s string) (int, error) {
	n, err := parseCount(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	if n < 1900 || n > 9999 {
		return 0, fmt.Errorf("year %d out of range", n)
	}
	return int(n), nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}

var (
	monthPattern = regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december)`)
	yearPattern  = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)
)

// PeriodFromFilename extracts the month name and four-digit year that
// inventory export file names carry, e.g. "INVENTORY October 2018.csv".
func PeriodFromFilename(name string) (year int, month time.Month, err error) {
	m := monthPattern.FindString(name)
	if m == "" {
		return 0, 0, fmt.Errorf("no month name in %q", name)
	}
	y := yearPattern.FindStringSubmatch(name)
	if y == nil {
		return 0, 0, fmt.Errorf("no year in %q", name)
	}
	month, err = parseMonth(m)
	if err != nil {
		return 0, 0, err
	}
	year, err = strconv.Atoi(y[1])
	return year, month, err
}

// rowPeriod reads the period of a row from its Date column when present,
// otherwise from Year, Month and an optional Day.
func rowPeriod(t *tabular.Table, row []string, preferDate bool) (model.Period, error) {
	if preferDate && t.Has(colDate) {
		when, err := parseDate(t.Cell(row, colDate))
		if err != nil {
			return model.Period{}, err
		}
		return model.PeriodOf(when), nil
	}

	year, err := parseYear(t.Cell(row, colYear))
	if err != nil {
		return model.Period{}, err
	}
	month, err := parseMonth(t.Cell(row, colMonth))
	if err != nil {
		return model.Period{}, err
	}
	p := model.Period{Year: year, Month: month}
	if d := t.Cell(row, colDay); d != "" {
		day, err := parseCount(d)
		if err != nil || day < 0 || day > 31 {
			return model.Period{}, fmt.Errorf("invalid day %q", d)
		}
		p.Day = int(day)
	}
	return p, nil
}

func rowKey(t *tabular.Table, i int) string {
	// Header is line 1.
	return fmt.Sprintf("%s:%d", t.Name, i+2)
}
