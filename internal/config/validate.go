package config

import (
	"errors"
	"fmt"

	"github.com/roach88/salesmix/internal/schema"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Inputs.Reference.Workbook == "" {
		return errors.New("inputs.reference.workbook is required")
	}
	if c.Sink.Dataset == "" {
		return errors.New("sink.dataset is required")
	}

	switch c.Sink.Driver {
	case "sqlite", "xlsx":
		if c.Sink.Path == "" {
			return fmt.Errorf("sink.path is required for driver %q", c.Sink.Driver)
		}
	case "postgres":
		if c.Sink.DSN == "" {
			return errors.New("sink.dsn is required for driver \"postgres\"")
		}
	default:
		return fmt.Errorf("sink.driver must be sqlite, postgres or xlsx, got %q", c.Sink.Driver)
	}

	if c.Manifest.Kafka.Brokers != "" && c.Manifest.Kafka.Topic == "" {
		return errors.New("manifest.kafka.topic is required when brokers are set")
	}

	s, err := schema.Default()
	if err != nil {
		return err
	}
	return s.ValidateConfig(c)
}
