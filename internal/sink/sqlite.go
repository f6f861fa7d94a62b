package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/tabular"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on attributed_sales.sales_type
const currentSchemaVersion = 1

// SQLite publishes tables into a SQLite database.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite sink: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Publish replaces the dataset's tables with those of pub in a single
// transaction and marks the run complete.
func (s *SQLite) Publish(ctx context.Context, pub Publication) error {
	if err := validate(pub); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, dataset, digest) VALUES (?, ?, ?)`,
		pub.RunID, pub.Dataset, pub.Digest,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", pub.RunID, err)
	}

	for _, t := range pub.Tables {
		if err := s.writeTable(ctx, tx, pub, t); err != nil {
			return err
		}
	}

	if err := s.writeRows(ctx, tx, pub); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET complete = 1, table_count = ?, row_count = ? WHERE run_id = ?`,
		len(pub.Tables), len(pub.Rows), pub.RunID,
	); err != nil {
		return fmt.Errorf("mark run %s complete: %w", pub.RunID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish: %w", err)
	}

	s.logger.Info("published",
		"sink", "sqlite",
		"run_id", pub.RunID,
		"dataset", pub.Dataset,
		"tables", len(pub.Tables),
		"rows", len(pub.Rows),
	)
	return nil
}

func (s *SQLite) writeTable(ctx context.Context, tx *sql.Tx, pub Publication, t *tabular.Table) error {
	header, err := marshalCells(t.Header)
	if err != nil {
		return err
	}
	digest, err := t.Digest()
	if err != nil {
		return fmt.Errorf("digest table %q: %w", t.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM published_rows WHERE dataset = ? AND name = ?`,
		pub.Dataset, t.Name,
	); err != nil {
		return fmt.Errorf("clear table %q: %w", t.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO published_tables (dataset, name, run_id, header, digest, row_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset, name) DO UPDATE SET
			run_id = excluded.run_id,
			header = excluded.header,
			digest = excluded.digest,
			row_count = excluded.row_count
	`, pub.Dataset, t.Name, pub.RunID, header, digest, t.Len()); err != nil {
		return fmt.Errorf("write table %q: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO published_rows (dataset, name, row_index, cells) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rows of %q: %w", t.Name, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		cells, err := marshalCells(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, pub.Dataset, t.Name, i, cells); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i, t.Name, err)
		}
	}
	return nil
}

func (s *SQLite) writeRows(ctx context.Context, tx *sql.Tx, pub Publication) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM attributed_sales WHERE dataset = ?`, pub.Dataset,
	); err != nil {
		return fmt.Errorf("clear attributed_sales: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertAttributedSQL)
	if err != nil {
		return fmt.Errorf("prepare attributed_sales: %w", err)
	}
	defer stmt.Close()

	for i, r := range pub.Rows {
		if _, err := stmt.ExecContext(ctx, attributedArgs(pub.Dataset, i, r)...); err != nil {
			return fmt.Errorf("write attributed row %d: %w", i, err)
		}
	}
	return nil
}

// LastRun returns the most recent run of dataset, complete or not.
func (s *SQLite) LastRun(ctx context.Context, dataset string) (RunStatus, error) {
	var st RunStatus
	var complete int
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, dataset, digest, table_count, row_count, complete
		FROM runs WHERE dataset = ?
		ORDER BY seq DESC LIMIT 1
	`, dataset).Scan(&st.RunID, &st.Dataset, &st.Digest, &st.Tables, &st.Rows, &complete)
	if errors.Is(err, sql.ErrNoRows) {
		return RunStatus{}, fmt.Errorf("dataset %q: %w", dataset, ErrNoRun)
	}
	if err != nil {
		return RunStatus{}, fmt.Errorf("query last run: %w", err)
	}
	st.Complete = complete == 1
	return st, nil
}

// ReadTable loads a published table.
func (s *SQLite) ReadTable(ctx context.Context, dataset, name string) (*tabular.Table, error) {
	var header string
	err := s.db.QueryRowContext(ctx,
		`SELECT header FROM published_tables WHERE dataset = ? AND name = ?`,
		dataset, name,
	).Scan(&header)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read table %q: %w", name, tabular.ErrNoSheet)
	}
	if err != nil {
		return nil, fmt.Errorf("read table %q: %w", name, err)
	}

	cols, err := unmarshalCells(header)
	if err != nil {
		return nil, err
	}
	t := tabular.New(name, cols...)

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM published_rows WHERE dataset = ? AND name = ? ORDER BY row_index`,
		dataset, name,
	)
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("scan row of %q: %w", name, err)
		}
		values, err := unmarshalCells(cells)
		if err != nil {
			return nil, err
		}
		t.Append(values...)
	}
	return t, rows.Err()
}

// ReadRows loads the typed attributed_sales rows of dataset in published
// order.
func (s *SQLite) ReadRows(ctx context.Context, dataset string) ([]model.AttributedSalesRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT brand, country, sales_channel, product_group, product, sales_type,
		       year, month, day, quantity, out_of_stock_days, avg_unit_price
		FROM attributed_sales WHERE dataset = ?
		ORDER BY row_index
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query attributed_sales: %w", err)
	}
	defer rows.Close()

	var out []model.AttributedSalesRow
	for rows.Next() {
		var r model.AttributedSalesRow
		var salesType, price string
		var month int
		if err := rows.Scan(&r.Brand, &r.Country, &r.SalesChannel, &r.ProductGroup, &r.Product, &salesType,
			&r.Period.Year, &month, &r.Period.Day, &r.Quantity, &r.OutOfStockDays, &price); err != nil {
			return nil, fmt.Errorf("scan attributed row: %w", err)
		}
		r.SalesType = model.SalesType(salesType)
		r.Period.Month = time.Month(month)
		if r.AvgUnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse avg_unit_price %q: %w", price, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_attributed_sales_type
		ON attributed_sales(dataset, sales_type)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
