// Package config loads the YAML run configuration.
//
// Values may reference environment variables as ${VAR}; dataset ids and
// database credentials are normally supplied this way. Loading applies
// defaults and validates both in Go and against the embedded CUE schema.
package config
