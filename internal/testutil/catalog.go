package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
)

// ErrInjected is returned by a Catalog whose FailOn names the called method.
var ErrInjected = errors.New("injected store failure")

// Catalog is an in-memory pricing catalog implementing costing.Source.
//
// Builders assign IDs from a sequence and Seq values in call order, so
// fixtures are deterministic:
//
//	cat := testutil.NewCatalog()
//	wood := cat.Material("M001", "Wood", "m2")
//	cat.Cost(wood, "30", "2024-01-01", "")
//	table := cat.Product("P001")
//	cat.BOM(table, 1, true, "2024-01-01", "", testutil.Line(1, wood, "5"))
type Catalog struct {
	mu sync.Mutex

	ids *domain.SequenceGenerator
	seq int64

	products  []domain.Product
	items     []domain.CatalogItem
	costs     []domain.CostRecord
	overrides []domain.CostOverride
	boms      []domain.BOM
	settings  *domain.Settings

	// Unfiltered makes candidate queries ignore validity windows, so the
	// engine's own window check is exercised.
	Unfiltered bool

	// FailOn makes the named Source method return ErrInjected.
	FailOn string

	// Calls counts Source method invocations by name.
	Calls map[string]int
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		ids:   domain.NewSequenceGenerator("id"),
		Calls: make(map[string]int),
	}
}

func (c *Catalog) nextSeq() int64 {
	c.seq++
	return c.seq
}

// ProductOption customizes a product built by Catalog.Product.
type ProductOption func(*domain.Product)

// WithMarkup sets the product's default markup percentage.
func WithMarkup(pct string) ProductOption {
	return func(p *domain.Product) {
		p.DefaultMarkupPct = domain.DecimalPtr(domain.MustDecimal(pct))
	}
}

// WithCurrency sets the product's currency.
func WithCurrency(code string) ProductOption {
	return func(p *domain.Product) { p.Currency = code }
}

// Product adds a product. Currency defaults to EUR.
func (c *Catalog) Product(sku string, opts ...ProductOption) domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := domain.Product{ID: c.ids.Generate(), SKU: sku, Name: sku, Currency: "EUR", IsSellable: true}
	for _, opt := range opts {
		opt(&p)
	}
	c.products = append(c.products, p)
	return p
}

// Material adds a material.
func (c *Catalog) Material(code, name, uom string) domain.CatalogItem {
	return c.addItem(domain.KindMaterial, code, name, uom)
}

// Operation adds an operation.
func (c *Catalog) Operation(code, name, uom string) domain.CatalogItem {
	return c.addItem(domain.KindOperation, code, name, uom)
}

func (c *Catalog) addItem(kind domain.ComponentKind, code, name, uom string) domain.CatalogItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := domain.CatalogItem{Kind: kind, ID: c.ids.Generate(), Code: code, Name: name, UOM: uom}
	c.items = append(c.items, it)
	return it
}

// Cost adds a price-list entry for item. An empty to means open-ended.
func (c *Catalog) Cost(item domain.CatalogItem, unitCost, from, to string) domain.CostRecord {
	return c.CostIn(item, unitCost, "EUR", from, to)
}

// CostIn is Cost with an explicit currency.
func (c *Catalog) CostIn(item domain.CatalogItem, unitCost, currency, from, to string) domain.CostRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := domain.CostRecord{
		ID:       c.ids.Generate(),
		Seq:      c.nextSeq(),
		Kind:     item.Kind,
		RefID:    item.ID,
		UnitCost: domain.MustDecimal(unitCost),
		Currency: currency,
		Validity: window(from, to),
	}
	c.costs = append(c.costs, r)
	return r
}

// Override adds a product-scoped cost override for item.
func (c *Catalog) Override(product domain.Product, item domain.CatalogItem, unitCost, from, to string) domain.CostOverride {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := domain.CostOverride{
		ID:        c.ids.Generate(),
		Seq:       c.nextSeq(),
		ProductID: product.ID,
		Kind:      item.Kind,
		RefID:     item.ID,
		UnitCost:  domain.MustDecimal(unitCost),
		Currency:  "EUR",
		Validity:  window(from, to),
	}
	c.overrides = append(c.overrides, o)
	return o
}

// BOMLine describes one component for Catalog.BOM.
type BOMLine struct {
	LineNo   int
	Kind     domain.ComponentKind
	RefID    string
	Quantity string
	Waste    string
	Override string
}

// Line references a material or operation.
func Line(lineNo int, item domain.CatalogItem, qty string) BOMLine {
	return BOMLine{LineNo: lineNo, Kind: item.Kind, RefID: item.ID, Quantity: qty}
}

// SubLine references a sub-product.
func SubLine(lineNo int, product domain.Product, qty string) BOMLine {
	return BOMLine{LineNo: lineNo, Kind: domain.KindProduct, RefID: product.ID, Quantity: qty}
}

// WithWaste sets the line's waste percentage.
func (l BOMLine) WithWaste(pct string) BOMLine {
	l.Waste = pct
	return l
}

// WithOverride sets the line's own unit cost override.
func (l BOMLine) WithOverride(unitCost string) BOMLine {
	l.Override = unitCost
	return l
}

// BOM adds a BOM version for product with the given lines.
func (c *Catalog) BOM(product domain.Product, version int, active bool, from, to string, lines ...BOMLine) domain.BOM {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := domain.BOM{
		ID:        c.ids.Generate(),
		Seq:       c.nextSeq(),
		ProductID: product.ID,
		Version:   version,
		IsActive:  active,
		Validity:  window(from, to),
	}
	for _, l := range lines {
		comp := domain.Component{
			ID:       c.ids.Generate(),
			Seq:      c.nextSeq(),
			BOMID:    b.ID,
			LineNo:   l.LineNo,
			Kind:     l.Kind,
			RefID:    l.RefID,
			Quantity: domain.MustDecimal(l.Quantity),
			WastePct: decimal.Zero,
		}
		if l.Waste != "" {
			comp.WastePct = domain.MustDecimal(l.Waste)
		}
		if l.Override != "" {
			comp.OverrideUnitCost = domain.DecimalPtr(domain.MustDecimal(l.Override))
		}
		b.Components = append(b.Components, comp)
	}
	c.boms = append(c.boms, b)
	return b
}

// SetSettings configures the global defaults.
func (c *Catalog) SetSettings(markup, currency string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = &domain.Settings{DefaultMarkupPct: domain.MustDecimal(markup), Currency: currency}
}

func window(from, to string) domain.Validity {
	v := domain.Validity{From: domain.MustParseDate(from)}
	if to != "" {
		v.To = domain.DatePtr(domain.MustParseDate(to))
	}
	return v
}

func (c *Catalog) enter(method string) error {
	c.Calls[method]++
	if c.FailOn == method {
		return ErrInjected
	}
	return nil
}

// ProductBySKU implements costing.Source.
func (c *Catalog) ProductBySKU(_ context.Context, sku string) (domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ProductBySKU"); err != nil {
		return domain.Product{}, false, err
	}
	for _, p := range c.products {
		if p.SKU == sku {
			return p, true, nil
		}
	}
	return domain.Product{}, false, nil
}

// ProductByID implements costing.Source.
func (c *Catalog) ProductByID(_ context.Context, id string) (domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ProductByID"); err != nil {
		return domain.Product{}, false, err
	}
	for _, p := range c.products {
		if p.ID == id {
			return p, true, nil
		}
	}
	return domain.Product{}, false, nil
}

// Settings implements costing.Source.
func (c *Catalog) Settings(_ context.Context) (domain.Settings, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Settings"); err != nil {
		return domain.Settings{}, false, err
	}
	if c.settings == nil {
		return domain.Settings{}, false, nil
	}
	return *c.settings, true, nil
}

// CostCandidates implements costing.Source.
func (c *Catalog) CostCandidates(_ context.Context, kind domain.ComponentKind, refID string, asOf domain.Date) ([]domain.CostRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CostCandidates"); err != nil {
		return nil, err
	}
	var out []domain.CostRecord
	for _, r := range c.costs {
		if r.Kind == kind && r.RefID == refID && (c.Unfiltered || r.Contains(asOf)) {
			out = append(out, r)
		}
	}
	return out, nil
}

// OverrideCandidates implements costing.Source.
func (c *Catalog) OverrideCandidates(_ context.Context, productID string, kind domain.ComponentKind, refID string, asOf domain.Date) ([]domain.CostOverride, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("OverrideCandidates"); err != nil {
		return nil, err
	}
	var out []domain.CostOverride
	for _, o := range c.overrides {
		if o.ProductID == productID && o.Kind == kind && o.RefID == refID && (c.Unfiltered || o.Contains(asOf)) {
			out = append(out, o)
		}
	}
	return out, nil
}

// BOMs implements costing.Source.
func (c *Catalog) BOMs(_ context.Context, productID string) ([]domain.BOM, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("BOMs"); err != nil {
		return nil, err
	}
	var out []domain.BOM
	for _, b := range c.boms {
		if b.ProductID == productID {
			header := b
			header.Components = nil
			out = append(out, header)
		}
	}
	return out, nil
}

// Components implements costing.Source.
func (c *Catalog) Components(_ context.Context, bomID string) ([]domain.Component, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Components"); err != nil {
		return nil, err
	}
	for _, b := range c.boms {
		if b.ID == bomID {
			return append([]domain.Component(nil), b.Components...), nil
		}
	}
	return nil, nil
}

// CatalogItem implements costing.Source.
func (c *Catalog) CatalogItem(_ context.Context, kind domain.ComponentKind, refID string) (domain.CatalogItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CatalogItem"); err != nil {
		return domain.CatalogItem{}, false, err
	}
	for _, it := range c.items {
		if it.Kind == kind && it.ID == refID {
			return it, true, nil
		}
	}
	return domain.CatalogItem{}, false, nil
}
