// Package ingest turns raw tables into typed records.
//
// Each parser first checks the table against the required columns named
// in the embedded schema; a missing column is a structural error and no
// records are returned. Rows that cannot be parsed are dropped and
// reported as MalformedRow diagnostics with their identifying fields.
package ingest
