package sink

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/tabular"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// createTestSQLite opens a fresh database in a temp dir.
func createTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), quiet)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTable(name string, rows ...[]string) *tabular.Table {
	t := tabular.New(name, "Cin7", "Qty")
	for _, r := range rows {
		t.Append(r...)
	}
	return t
}

func testRow(salesType model.SalesType, qty int64, price string) model.AttributedSalesRow {
	return model.AttributedSalesRow{
		Brand:        "Acme",
		Country:      "US",
		SalesChannel: salesType.Channel(),
		ProductGroup: "Mugs",
		Product:      "P1",
		SalesType:    salesType,
		Period:       model.Period{Year: 2019, Month: time.January},
		Quantity:     qty,
		AvgUnitPrice: decimal.RequireFromString(price),
	}
}

func testPublication(runID string, tables ...*tabular.Table) Publication {
	return Publication{
		RunID:   runID,
		Dataset: "ds-1",
		Digest:  "digest-" + runID,
		Tables:  tables,
	}
}
