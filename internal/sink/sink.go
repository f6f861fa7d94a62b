package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/salesmix/internal/config"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/tabular"
)

// ErrNoRun is returned by LastRun when a dataset has no published run.
var ErrNoRun = errors.New("no published run")

// Publication is everything one run publishes.
type Publication struct {
	RunID   string
	Dataset string
	Digest  string
	Tables  []*tabular.Table
	Rows    []model.AttributedSalesRow
}

// RunStatus describes a published run.
type RunStatus struct {
	RunID    string `json:"run_id"`
	Dataset  string `json:"dataset"`
	Digest   string `json:"digest"`
	Tables   int    `json:"tables"`
	Rows     int    `json:"rows"`
	Complete bool   `json:"complete"`
}

// Sink is a publish destination.
type Sink interface {
	// Publish replaces every table in pub and marks the run complete.
	Publish(ctx context.Context, pub Publication) error
	// LastRun returns the most recent run of dataset.
	LastRun(ctx context.Context, dataset string) (RunStatus, error)
	Close() error
}

// Open creates the sink selected by cfg.Driver.
func Open(ctx context.Context, cfg config.SinkConfig, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.Path, logger)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN, logger)
	case "xlsx":
		return NewXLSX(cfg.Path, logger), nil
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.Driver)
	}
}

func validate(pub Publication) error {
	if pub.RunID == "" {
		return errors.New("publish: run id is required")
	}
	if pub.Dataset == "" {
		return errors.New("publish: dataset is required")
	}
	seen := make(map[string]bool, len(pub.Tables))
	for _, t := range pub.Tables {
		if t.Name == "" {
			return errors.New("publish: table without name")
		}
		if seen[t.Name] {
			return fmt.Errorf("publish: table %q listed twice", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}
