package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
)

// querier is the subset of *sql.DB and *sql.Tx used by queries.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement of the store. Store runs them against the
// database, Tx against an open transaction.
type queries struct {
	q querier
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// windowClause matches rows whose validity window contains the as-of
// date bound twice.
const windowClause = `valid_from <= ? AND (valid_to IS NULL OR valid_to >= ?)`

// ProductBySKU implements costing.Source.
func (q *queries) ProductBySKU(ctx context.Context, sku string) (domain.Product, bool, error) {
	return q.readProduct(ctx, "sku", sku)
}

// ProductByID implements costing.Source.
func (q *queries) ProductByID(ctx context.Context, id string) (domain.Product, bool, error) {
	return q.readProduct(ctx, "id", id)
}

func (q *queries) readProduct(ctx context.Context, column, value string) (domain.Product, bool, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT id, sku, name, description, currency, default_markup_pct, is_sellable
		FROM products
		WHERE `+column+` = ?
	`, value)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("read product: %w", err)
	}
	return p, true, nil
}

// ListProducts returns every product in insertion order.
// Returns an empty slice (not nil) if there are none.
func (q *queries) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, sku, name, description, currency, default_markup_pct, is_sellable
		FROM products
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p      domain.Product
		markup decimal.NullDecimal
		sell   int
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Currency, &markup, &sell); err != nil {
		return domain.Product{}, err
	}
	p.DefaultMarkupPct = decimalPtr(markup)
	p.IsSellable = sell != 0
	return p, nil
}

// Settings implements costing.Source.
func (q *queries) Settings(ctx context.Context) (domain.Settings, bool, error) {
	var s domain.Settings
	err := q.q.QueryRowContext(ctx, `
		SELECT default_markup_pct, currency FROM pricing_settings WHERE id = 1
	`).Scan(&s.DefaultMarkupPct, &s.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{}, false, nil
	}
	if err != nil {
		return domain.Settings{}, false, fmt.Errorf("read settings: %w", err)
	}
	return s, true, nil
}

// itemTable returns the catalog table and price-list table of a leaf kind.
func itemTable(kind domain.ComponentKind) (items, costs string, ok bool) {
	switch kind {
	case domain.KindMaterial:
		return "materials", "material_costs", true
	case domain.KindOperation:
		return "operations", "operation_costs", true
	}
	return "", "", false
}

// CostCandidates implements costing.Source.
func (q *queries) CostCandidates(ctx context.Context, kind domain.ComponentKind, refID string, asOf domain.Date) ([]domain.CostRecord, error) {
	_, table, ok := itemTable(kind)
	if !ok {
		return nil, fmt.Errorf("query costs: kind %q has no price list", kind)
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT seq, id, item_id, unit_cost, currency, valid_from, valid_to
		FROM `+table+`
		WHERE item_id = ? AND `+windowClause+`
		ORDER BY seq ASC
	`, refID, asOf.String(), asOf.String())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	records := []domain.CostRecord{}
	for rows.Next() {
		r := domain.CostRecord{Kind: kind}
		var to sql.NullString
		if err := rows.Scan(&r.Seq, &r.ID, &r.RefID, &r.UnitCost, &r.Currency, &r.From, &to); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		if r.To, err = datePtr(to); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return records, nil
}

// OverrideCandidates implements costing.Source.
func (q *queries) OverrideCandidates(ctx context.Context, productID string, kind domain.ComponentKind, refID string, asOf domain.Date) ([]domain.CostOverride, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT seq, id, product_id, kind, ref_id, unit_cost, currency, valid_from, valid_to
		FROM cost_overrides
		WHERE product_id = ? AND kind = ? AND ref_id = ? AND `+windowClause+`
		ORDER BY seq ASC
	`, productID, string(kind), refID, asOf.String(), asOf.String())
	if err != nil {
		return nil, fmt.Errorf("query cost overrides: %w", err)
	}
	defer rows.Close()

	overrides := []domain.CostOverride{}
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cost overrides: %w", err)
	}
	return overrides, nil
}

func scanOverride(row rowScanner) (domain.CostOverride, error) {
	var (
		o  domain.CostOverride
		to sql.NullString
	)
	if err := row.Scan(&o.Seq, &o.ID, &o.ProductID, &o.Kind, &o.RefID, &o.UnitCost, &o.Currency, &o.From, &to); err != nil {
		return domain.CostOverride{}, fmt.Errorf("scan cost override: %w", err)
	}
	var err error
	if o.To, err = datePtr(to); err != nil {
		return domain.CostOverride{}, err
	}
	return o, nil
}

// BOMs implements costing.Source.
func (q *queries) BOMs(ctx context.Context, productID string) ([]domain.BOM, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT seq, id, product_id, version, is_active, valid_from, valid_to
		FROM boms
		WHERE product_id = ?
		ORDER BY seq ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("query boms: %w", err)
	}
	defer rows.Close()

	boms := []domain.BOM{}
	for rows.Next() {
		var (
			b      domain.BOM
			active int
			to     sql.NullString
		)
		if err := rows.Scan(&b.Seq, &b.ID, &b.ProductID, &b.Version, &active, &b.From, &to); err != nil {
			return nil, fmt.Errorf("scan bom: %w", err)
		}
		b.IsActive = active != 0
		if b.To, err = datePtr(to); err != nil {
			return nil, err
		}
		boms = append(boms, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boms: %w", err)
	}
	return boms, nil
}

// Components implements costing.Source.
func (q *queries) Components(ctx context.Context, bomID string) ([]domain.Component, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT seq, id, bom_id, line_no, kind, ref_id, quantity, waste_pct, override_unit_cost
		FROM bom_components
		WHERE bom_id = ?
		ORDER BY seq ASC
	`, bomID)
	if err != nil {
		return nil, fmt.Errorf("query bom components: %w", err)
	}
	defer rows.Close()

	comps := []domain.Component{}
	for rows.Next() {
		var (
			c        domain.Component
			override decimal.NullDecimal
		)
		if err := rows.Scan(&c.Seq, &c.ID, &c.BOMID, &c.LineNo, &c.Kind, &c.RefID, &c.Quantity, &c.WastePct, &override); err != nil {
			return nil, fmt.Errorf("scan bom component: %w", err)
		}
		c.OverrideUnitCost = decimalPtr(override)
		comps = append(comps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bom components: %w", err)
	}
	return comps, nil
}

// CatalogItem implements costing.Source.
func (q *queries) CatalogItem(ctx context.Context, kind domain.ComponentKind, refID string) (domain.CatalogItem, bool, error) {
	return q.readItem(ctx, kind, "id", refID)
}

// ItemByCode looks up a material or operation by its code.
func (q *queries) ItemByCode(ctx context.Context, kind domain.ComponentKind, code string) (domain.CatalogItem, bool, error) {
	return q.readItem(ctx, kind, "code", code)
}

func (q *queries) readItem(ctx context.Context, kind domain.ComponentKind, column, value string) (domain.CatalogItem, bool, error) {
	table, _, ok := itemTable(kind)
	if !ok {
		return domain.CatalogItem{}, false, nil
	}
	it := domain.CatalogItem{Kind: kind}
	err := q.q.QueryRowContext(ctx, `
		SELECT id, code, name, uom FROM `+table+` WHERE `+column+` = ?
	`, value).Scan(&it.ID, &it.Code, &it.Name, &it.UOM)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogItem{}, false, nil
	}
	if err != nil {
		return domain.CatalogItem{}, false, fmt.Errorf("read %s: %w", table, err)
	}
	return it, true, nil
}

// ListItems returns every material or operation in insertion order.
func (q *queries) ListItems(ctx context.Context, kind domain.ComponentKind) ([]domain.CatalogItem, error) {
	table, _, ok := itemTable(kind)
	if !ok {
		return nil, fmt.Errorf("list items: kind %q is not a catalog item", kind)
	}
	rows, err := q.q.QueryContext(ctx, `SELECT id, code, name, uom FROM `+table+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	items := []domain.CatalogItem{}
	for rows.Next() {
		it := domain.CatalogItem{Kind: kind}
		if err := rows.Scan(&it.ID, &it.Code, &it.Name, &it.UOM); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return items, nil
}
