// Package sink publishes the tables of a run to a destination addressed
// by a dataset identifier.
//
// Every publish fully replaces the prior contents of each named table
// (clear-then-write). A publish runs in one transaction and ends by
// marking its run complete; a run without the marker is incomplete.
//
// # Destinations
//
//   - SQLite (default): tables stored as canonical JSON rows, plus a typed
//     attributed_sales table for SQL consumers
//   - Postgres: the same layout through a pgx connection pool
//   - XLSX: one workbook per dataset, written to a temporary file and
//     renamed into place
//
// Runs are ordered by a logical sequence number, never by wall-clock time.
package sink
