// Package domain defines the PriceForge entities shared by the costing
// engine, the store and the outer surfaces.
//
// # Value Rules
//
// Money and quantities are decimal.Decimal, never float64. Floats break
// replay: the same BOM exploded twice must produce byte-identical snapshots.
//
// Calendar dates are Date values (UTC midnight, text form YYYY-MM-DD). The
// text form sorts lexically in date order, which the store relies on for
// validity-window queries.
//
// Time-series records (costs, overrides, BOMs) carry a Seq assigned by the
// store in insertion order. Seq is the deterministic tie-break whenever two
// records are otherwise equal.
//
// Run snapshots are serialized with MarshalCanonical and identified by
// SnapshotHash. Both live here so every package agrees on one encoding.
package domain
