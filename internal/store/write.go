package store

import (
	"context"
	"fmt"

	"github.com/roach88/priceforge/internal/domain"
)

// CreateProduct inserts a product and returns it with its ID assigned.
// Returns ErrDuplicate if the SKU is already in use.
func (q *queries) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = newID(p.ID)
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, description, currency, default_markup_pct, is_sellable)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.SKU, p.Name, p.Description, p.Currency, nullDecimal(p.DefaultMarkupPct), boolInt(p.IsSellable))
	if isUniqueViolation(err) {
		return domain.Product{}, fmt.Errorf("create product %s: %w", p.SKU, ErrDuplicate)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product %s: %w", p.SKU, err)
	}
	return p, nil
}

// CreateItem inserts a material or operation and returns it with its ID
// assigned. Returns ErrDuplicate if the code is already in use.
func (q *queries) CreateItem(ctx context.Context, it domain.CatalogItem) (domain.CatalogItem, error) {
	table, _, ok := itemTable(it.Kind)
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("create item %s: kind %q is not a catalog item", it.Code, it.Kind)
	}
	it.ID = newID(it.ID)
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO `+table+` (id, code, name, uom) VALUES (?, ?, ?, ?)
	`, it.ID, it.Code, it.Name, it.UOM)
	if isUniqueViolation(err) {
		return domain.CatalogItem{}, fmt.Errorf("create %s %s: %w", it.Kind, it.Code, ErrDuplicate)
	}
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("create %s %s: %w", it.Kind, it.Code, err)
	}
	return it, nil
}

// AddCost appends a price-list entry for a material or operation.
func (q *queries) AddCost(ctx context.Context, r domain.CostRecord) (domain.CostRecord, error) {
	_, table, ok := itemTable(r.Kind)
	if !ok {
		return domain.CostRecord{}, fmt.Errorf("add cost: kind %q has no price list", r.Kind)
	}
	r.ID = newID(r.ID)
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO `+table+` (id, item_id, unit_cost, currency, valid_from, valid_to)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.RefID, r.UnitCost.String(), r.Currency, r.From.String(), nullDate(r.To))
	if err != nil {
		return domain.CostRecord{}, fmt.Errorf("add cost for %s %s: %w", r.Kind, r.RefID, err)
	}
	if r.Seq, err = res.LastInsertId(); err != nil {
		return domain.CostRecord{}, fmt.Errorf("add cost for %s %s: %w", r.Kind, r.RefID, err)
	}
	return r, nil
}

// AddOverride appends a product-scoped cost override.
func (q *queries) AddOverride(ctx context.Context, o domain.CostOverride) (domain.CostOverride, error) {
	if !o.Kind.IsLeaf() {
		return domain.CostOverride{}, fmt.Errorf("add override: kind %q cannot be overridden", o.Kind)
	}
	o.ID = newID(o.ID)
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO cost_overrides (id, product_id, kind, ref_id, unit_cost, currency, valid_from, valid_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.ProductID, string(o.Kind), o.RefID, o.UnitCost.String(), o.Currency, o.From.String(), nullDate(o.To))
	if err != nil {
		return domain.CostOverride{}, fmt.Errorf("add override for %s %s: %w", o.Kind, o.RefID, err)
	}
	if o.Seq, err = res.LastInsertId(); err != nil {
		return domain.CostOverride{}, fmt.Errorf("add override for %s %s: %w", o.Kind, o.RefID, err)
	}
	return o, nil
}

// AddBOM inserts a BOM header and all its components.
// Callers wanting atomicity run it inside a Tx.
func (q *queries) AddBOM(ctx context.Context, b domain.BOM) (domain.BOM, error) {
	b.ID = newID(b.ID)
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO boms (id, product_id, version, is_active, valid_from, valid_to)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, b.ProductID, b.Version, boolInt(b.IsActive), b.From.String(), nullDate(b.To))
	if err != nil {
		return domain.BOM{}, fmt.Errorf("add bom v%d for %s: %w", b.Version, b.ProductID, err)
	}
	if b.Seq, err = res.LastInsertId(); err != nil {
		return domain.BOM{}, fmt.Errorf("add bom v%d for %s: %w", b.Version, b.ProductID, err)
	}

	for i := range b.Components {
		c := &b.Components[i]
		c.ID = newID(c.ID)
		c.BOMID = b.ID
		res, err := q.q.ExecContext(ctx, `
			INSERT INTO bom_components (id, bom_id, line_no, kind, ref_id, quantity, waste_pct, override_unit_cost)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.BOMID, c.LineNo, string(c.Kind), c.RefID, c.Quantity.String(), c.WastePct.String(), nullDecimal(c.OverrideUnitCost))
		if err != nil {
			return domain.BOM{}, fmt.Errorf("add bom line %d: %w", c.LineNo, err)
		}
		if c.Seq, err = res.LastInsertId(); err != nil {
			return domain.BOM{}, fmt.Errorf("add bom line %d: %w", c.LineNo, err)
		}
	}
	return b, nil
}

// PutSettings creates or replaces the global pricing defaults.
func (q *queries) PutSettings(ctx context.Context, s domain.Settings) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO pricing_settings (id, default_markup_pct, currency) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			default_markup_pct = excluded.default_markup_pct,
			currency = excluded.currency
	`, s.DefaultMarkupPct.String(), s.Currency)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}
