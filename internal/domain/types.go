package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComponentKind discriminates what a BOM line references.
type ComponentKind string

const (
	KindMaterial  ComponentKind = "material"
	KindOperation ComponentKind = "operation"
	KindProduct   ComponentKind = "product"
)

// Valid reports whether k is one of the known kinds.
func (k ComponentKind) Valid() bool {
	switch k {
	case KindMaterial, KindOperation, KindProduct:
		return true
	}
	return false
}

// IsLeaf reports whether lines of this kind are priced directly
// rather than by exploding another BOM.
func (k ComponentKind) IsLeaf() bool {
	return k == KindMaterial || k == KindOperation
}

// ParseComponentKind validates a kind string.
func ParseComponentKind(s string) (ComponentKind, error) {
	k := ComponentKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown component kind %q", s)
	}
	return k, nil
}

// CostSource records which tier of the override chain priced a line.
type CostSource string

const (
	// SourceBOMOverride is the component's own override_unit_cost.
	SourceBOMOverride CostSource = "override_bom"
	// SourceProductOverride is a product-scoped cost override.
	SourceProductOverride CostSource = "override_product"
	// SourcePriceList is the material/operation cost time series.
	SourcePriceList CostSource = "listino"
)

// Product is the root of a pricing request.
type Product struct {
	ID               string
	SKU              string
	Name             string
	Description      string
	Currency         string
	DefaultMarkupPct *decimal.Decimal
	IsSellable       bool
}

// CatalogItem is a material or operation as seen by a BOM line.
type CatalogItem struct {
	Kind ComponentKind
	ID   string
	Code string
	Name string
	UOM  string
}

// Keyed is implemented by store records that carry an insertion order.
type Keyed interface {
	RecordKey() RecordKey
}

// RecordKey orders records that tie on every business field.
// Higher Seq wins; ID breaks the (theoretical) Seq tie.
type RecordKey struct {
	Seq int64
	ID  string
}

// Less reports whether k sorts before o.
func (k RecordKey) Less(o RecordKey) bool {
	if k.Seq != o.Seq {
		return k.Seq < o.Seq
	}
	return k.ID < o.ID
}

// CostRecord is one entry of a material or operation price list.
type CostRecord struct {
	ID       string
	Seq      int64
	Kind     ComponentKind
	RefID    string
	UnitCost decimal.Decimal
	Currency string
	Validity
}

// RecordKey implements Keyed.
func (r CostRecord) RecordKey() RecordKey { return RecordKey{Seq: r.Seq, ID: r.ID} }

// Window returns the record's validity window.
func (r CostRecord) Window() Validity { return r.Validity }

// CostOverride is a product-scoped replacement for a price-list cost.
type CostOverride struct {
	ID        string
	Seq       int64
	ProductID string
	Kind      ComponentKind
	RefID     string
	UnitCost  decimal.Decimal
	Currency  string
	Validity
}

// RecordKey implements Keyed.
func (o CostOverride) RecordKey() RecordKey { return RecordKey{Seq: o.Seq, ID: o.ID} }

// Window returns the override's validity window.
func (o CostOverride) Window() Validity { return o.Validity }

// BOM is one version of a product's recipe.
type BOM struct {
	ID        string
	Seq       int64
	ProductID string
	Version   int
	IsActive  bool
	Validity
	Components []Component
}

// RecordKey implements Keyed.
func (b BOM) RecordKey() RecordKey { return RecordKey{Seq: b.Seq, ID: b.ID} }

// Component is one line of a BOM.
type Component struct {
	ID               string
	Seq              int64
	BOMID            string
	LineNo           int
	Kind             ComponentKind
	RefID            string
	Quantity         decimal.Decimal
	WastePct         decimal.Decimal
	OverrideUnitCost *decimal.Decimal
}

// Settings holds the process-wide pricing defaults.
type Settings struct {
	DefaultMarkupPct decimal.Decimal
	Currency         string
}

// DefaultSettings is used when no settings row exists.
func DefaultSettings() Settings {
	return Settings{
		DefaultMarkupPct: decimal.NewFromInt(15),
		Currency:         "EUR",
	}
}

// LineItem is one exploded leaf line of a run.
type LineItem struct {
	LineNo       int             `json:"line_no"`
	Kind         ComponentKind   `json:"kind"`
	RefID        string          `json:"ref_id"`
	Description  *string         `json:"description"`
	UOM          *string         `json:"uom"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	ExtendedCost decimal.Decimal `json:"extended_cost"`
	Source       CostSource      `json:"source"`
	Currency     string          `json:"currency"`
}

// Run is an immutable record of one completed price calculation.
type Run struct {
	ID             string          `json:"run_id"`
	Seq            int64           `json:"seq,omitempty"`
	ProductID      string          `json:"product_id"`
	ProductSKU     string          `json:"product_sku"`
	BOMID          string          `json:"bom_id"`
	BOMVersion     int             `json:"bom_version"`
	RequestedQty   decimal.Decimal `json:"requested_qty"`
	AsOf           Date            `json:"as_of"`
	MarkupPct      decimal.Decimal `json:"markup_pct"`
	TotalMaterial  decimal.Decimal `json:"total_material_cost"`
	TotalOperation decimal.Decimal `json:"total_operation_cost"`
	TotalOther     decimal.Decimal `json:"total_other_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	Validated      bool            `json:"validated"`
	MixedCurrency  bool            `json:"mixed_currency"`
	Snapshot       []byte          `json:"-"`
	SnapshotHash   string          `json:"snapshot_hash"`
	Items          []LineItem      `json:"items,omitempty"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
