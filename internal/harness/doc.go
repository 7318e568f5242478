// Package harness runs pricing scenarios against a fresh store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: kitchen_table
//	description: "Single-level BOM with list prices"
//	catalog: ../catalogs/kitchen.cue
//	calculations:
//	  - sku: P001
//	    qty: "1"
//	    as_of: "2024-06-01"
//	    expect:
//	      total_cost: "200"
//	      price: "240"
//	      lines: 2
//	  - sku: P001
//	    as_of: "2023-12-31"
//	    expect:
//	      error_code: COST_NOT_FOUND
//
// The catalog path is resolved relative to the scenario file. Expected
// decimals are compared numerically, so "240" and "240.0000" are equal.
//
// # Determinism
//
// Each scenario runs in its own in-memory SQLite database with sequential
// run IDs, and every calculation carries an explicit as-of date. The report
// written by RunWithGolden therefore depends only on the catalog and the
// calculations.
package harness
