// Package catalog compiles CUE catalog files and imports them into the
// store.
//
// A catalog declares settings, materials and operations with their price
// lists, and products with their BOM versions and cost overrides. Entities
// reference each other by code (materials, operations) or SKU (products):
//
//	materials: M001: {name: "Solid wood", uom: "m2", costs: [{unit_cost: "30", valid_from: "2024-01-01"}]}
//	products: P001: {
//		name: "Kitchen table"
//		boms: [{version: 1, active: true, valid_from: "2024-01-01",
//			components: [{line: 1, material: "M001", quantity: "5"}]}]
//	}
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
)

// Catalog is a compiled catalog with every reference checked.
// Entities keep their declaration order.
type Catalog struct {
	Settings   *domain.Settings
	Materials  []Item
	Operations []Item
	Products   []Product
}

// Item is a material or operation with its price list.
type Item struct {
	Kind  domain.ComponentKind
	Code  string
	Name  string
	UOM   string
	Costs []Cost
}

// Cost is one price-list entry.
type Cost struct {
	UnitCost decimal.Decimal
	Currency string
	domain.Validity
}

// Product is a product with its BOM versions and overrides.
type Product struct {
	SKU              string
	Name             string
	Description      string
	Currency         string
	DefaultMarkupPct *decimal.Decimal
	IsSellable       bool
	BOMs             []BOM
	Overrides        []Override
}

// BOM is one BOM version.
type BOM struct {
	Version  int
	IsActive bool
	domain.Validity
	Lines []Line
}

// Line is one BOM line referencing an item code or product SKU.
type Line struct {
	LineNo           int
	Kind             domain.ComponentKind
	Ref              string
	Quantity         decimal.Decimal
	WastePct         decimal.Decimal
	OverrideUnitCost *decimal.Decimal
}

// Override is a product-scoped cost override for an item code.
type Override struct {
	Kind     domain.ComponentKind
	Ref      string
	UnitCost decimal.Decimal
	Currency string
	domain.Validity
}

// Stats counts the records written by Import.
type Stats struct {
	Materials  int `json:"materials"`
	Operations int `json:"operations"`
	Products   int `json:"products"`
	Costs      int `json:"costs"`
	Overrides  int `json:"overrides"`
	BOMs       int `json:"boms"`
}
