package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
)

// CSVOption configures ReadCSV.
type CSVOption func(*csvConfig)

type csvConfig struct {
	latin1 bool
}

// WithLatin1 decodes the file as ISO-8859-1, the encoding of marketplace
// order exports.
func WithLatin1() CSVOption {
	return func(c *csvConfig) { c.latin1 = true }
}

// ReadCSV reads a CSV file whose first record is the header.
func ReadCSV(path, name string, opts ...CSVOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return DecodeCSV(f, name, opts...)
}

// DecodeCSV reads CSV records from r.
func DecodeCSV(r io.Reader, name string, opts ...CSVOption) (*Table, error) {
	var cfg csvConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %q: %w", name, err)
	}
	return FromValues(name, records), nil
}

// WriteCSV writes the header and rows of t.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Values()); err != nil {
		return fmt.Errorf("write csv %q: %w", t.Name, err)
	}
	return nil
}
