// Package costing implements the PriceForge cost resolution and BOM
// explosion engine.
//
// Given a product SKU, a quantity and an as-of date, the Calculator selects
// the product's applicable BOM, recursively explodes it into leaf material and
// operation lines, prices every leaf through the override chain, and
// assembles an immutable Run with a canonical snapshot.
//
// # Cost Priority
//
// For each leaf line the first source that yields a cost wins:
//
//  1. override_bom      - the component's own override_unit_cost
//  2. override_product  - a product-scoped CostOverride valid as of the date
//  3. listino           - the material/operation price list valid as of the date
//
// A line with no cost from any tier fails the whole calculation.
//
// # Determinism
//
// The engine reads only through Source, never the wall clock, and never
// iterates a map to produce output. Components are ordered by line_no with a
// stable sort, time-series ties are broken by store insertion order, and all
// arithmetic is decimal. Re-running identical inputs yields a byte-identical
// snapshot and therefore the same snapshot hash.
//
// # Termination
//
// The explosion carries the chain of products currently being expanded. A
// product that reappears in its own ancestry fails with CYCLIC_BOM; nesting
// beyond the configured depth fails with MAX_DEPTH_EXCEEDED.
package costing
