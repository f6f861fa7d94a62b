// Package harness runs attribution scenarios as executable contract tests.
//
// A scenario declares a small batch of inputs inline, runs the pipeline
// over it, publishes the tables to an in-memory SQLite sink, and checks
// assertions against the rows, diagnostics and published tables.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	options:
//	  granularity: daily
//	  smoothing_window: 2
//	reference:
//	  ids: { B1: P1 }
//	  products:
//	    P1: { brand: Acme, product_group: Mugs }
//	  limits:
//	    - { product: P1, year: 2019, month: 1, standard_price: "10", fraction: "0" }
//	orders:
//	  - { id: B1, market: US, date: "2019-01-05", quantity: 2, total: "16" }
//	ppc:
//	  - { id: B1, market: US, date: "2019-01-05", orders: 1 }
//	assertions:
//	  - type: row
//	    where: { product: P1, sales_type: PPC }
//	    expect: { quantity: 1 }
//
// # Assertion Types
//
//   - row: exactly one output row matches where; its fields match expect
//   - row_count: the output has count rows (optionally filtered by where)
//   - total: the summed quantity of rows matching where equals quantity
//   - diagnostic: count diagnostics of kind (and key, when given)
//   - partition: for every Amazon key without a diagnostic, the sales
//     type quantities add up to the Amazon total
//   - table: the published table has count rows
//
// # Deterministic Testing
//
// Scenarios publish under a fixed run id (run_id, or "test-run-default")
// so that golden snapshots are byte-identical across runs.
package harness
