package sink

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/salesmix/internal/tabular"
)

//go:embed postgres.sql
var postgresSQL string

// Postgres publishes tables into a Postgres database.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres sink: dsn is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Publish replaces the dataset's tables with those of pub in a single
// transaction and marks the run complete.
func (p *Postgres) Publish(ctx context.Context, pub Publication) error {
	if err := validate(pub); err != nil {
		return err
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO runs (run_id, dataset, digest) VALUES ($1, $2, $3)`,
			pub.RunID, pub.Dataset, pub.Digest,
		); err != nil {
			return fmt.Errorf("insert run %s: %w", pub.RunID, err)
		}

		for _, t := range pub.Tables {
			if err := p.writeTable(ctx, tx, pub, t); err != nil {
				return err
			}
		}

		if err := p.writeRows(ctx, tx, pub); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE runs SET complete = TRUE, table_count = $1, row_count = $2 WHERE run_id = $3`,
			len(pub.Tables), len(pub.Rows), pub.RunID,
		); err != nil {
			return fmt.Errorf("mark run %s complete: %w", pub.RunID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Info("published",
		"sink", "postgres",
		"run_id", pub.RunID,
		"dataset", pub.Dataset,
		"tables", len(pub.Tables),
		"rows", len(pub.Rows),
	)
	return nil
}

func (p *Postgres) writeTable(ctx context.Context, tx pgx.Tx, pub Publication, t *tabular.Table) error {
	header, err := marshalCells(t.Header)
	if err != nil {
		return err
	}
	digest, err := t.Digest()
	if err != nil {
		return fmt.Errorf("digest table %q: %w", t.Name, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM published_rows WHERE dataset = $1 AND name = $2`,
		pub.Dataset, t.Name,
	); err != nil {
		return fmt.Errorf("clear table %q: %w", t.Name, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO published_tables (dataset, name, run_id, header, digest, row_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (dataset, name) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			header = EXCLUDED.header,
			digest = EXCLUDED.digest,
			row_count = EXCLUDED.row_count
	`, pub.Dataset, t.Name, pub.RunID, header, digest, t.Len()); err != nil {
		return fmt.Errorf("write table %q: %w", t.Name, err)
	}

	if t.Len() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, row := range t.Rows {
		cells, err := marshalCells(row)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO published_rows (dataset, name, row_index, cells) VALUES ($1, $2, $3, $4)`,
			pub.Dataset, t.Name, i, cells,
		)
	}
	return sendBatch(ctx, tx, batch, t.Name)
}

func (p *Postgres) writeRows(ctx context.Context, tx pgx.Tx, pub Publication) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM attributed_sales WHERE dataset = $1`, pub.Dataset,
	); err != nil {
		return fmt.Errorf("clear attributed_sales: %w", err)
	}
	if len(pub.Rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, r := range pub.Rows {
		batch.Queue(insertAttributedPG, attributedArgs(pub.Dataset, i, r)...)
	}
	return sendBatch(ctx, tx, batch, "attributed_sales")
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, name string) error {
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i, name, err)
		}
	}
	return nil
}

// LastRun returns the most recent run of dataset, complete or not.
func (p *Postgres) LastRun(ctx context.Context, dataset string) (RunStatus, error) {
	var st RunStatus
	err := p.pool.QueryRow(ctx, `
		SELECT run_id, dataset, digest, table_count, row_count, complete
		FROM runs WHERE dataset = $1
		ORDER BY seq DESC LIMIT 1
	`, dataset).Scan(&st.RunID, &st.Dataset, &st.Digest, &st.Tables, &st.Rows, &st.Complete)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunStatus{}, fmt.Errorf("dataset %q: %w", dataset, ErrNoRun)
	}
	if err != nil {
		return RunStatus{}, fmt.Errorf("query last run: %w", err)
	}
	return st, nil
}
