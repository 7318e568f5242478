// Package store provides SQLite-backed storage for the pricing catalog and
// price runs.
//
// The store holds:
//   - Catalog: products, materials, operations, BOM versions and lines
//   - Price lists: material and operation costs with validity windows
//   - Overrides: product-scoped cost overrides with validity windows
//   - Settings: the single row of global pricing defaults
//   - Runs: append-only price calculation headers and line items
//
// # Ordering
//
// Every table carries a seq INTEGER PRIMARY KEY (the rowid). Multi-row
// queries ORDER BY seq, and the pricing engine uses seq to break ties
// between records with the same effective date, so results never depend on
// SQLite's physical row order.
//
// # Transactions
//
// Store and Tx share one set of statements. A Tx satisfies costing.Source
// and offers SaveRun, so a calculation reads its catalog snapshot and writes
// its run atomically. The pool has a single connection: while a Tx is open,
// use only the Tx.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
