package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
)

//go:embed schema.cue
var schemaCUE string

// defaultCurrency applies to costs when neither the entry nor the
// catalog settings name one.
const defaultCurrency = "EUR"

// LoadFile compiles a catalog from a .cue file or a directory of .cue
// files forming one CUE package.
func LoadFile(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("catalog: no CUE instances in %s", path)
		}
		if err := instances[0].Err; err != nil {
			return nil, fromCUE(err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}
	return compileValue(ctx, v)
}

// Compile compiles catalog source. name is used in error positions.
func Compile(name string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()
	return compileValue(ctx, ctx.CompileBytes(src, cue.Filename(name)))
}

func compileValue(ctx *cue.Context, v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, fromCUE(err)
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}

	v = schema.LookupPath(cue.ParsePath("#Catalog")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(err)
	}

	c := &compiler{}
	cat := c.compile(v)
	if err := c.errs.err(); err != nil {
		return nil, err
	}
	return cat, nil
}

type rawCost struct {
	UnitCost  string  `json:"unit_cost"`
	Currency  string  `json:"currency"`
	ValidFrom string  `json:"valid_from"`
	ValidTo   *string `json:"valid_to"`
}

type rawItem struct {
	Name  string    `json:"name"`
	UOM   string    `json:"uom"`
	Costs []rawCost `json:"costs"`
}

type rawComponent struct {
	Line             int     `json:"line"`
	Quantity         string  `json:"quantity"`
	WastePct         *string `json:"waste_pct"`
	OverrideUnitCost *string `json:"override_unit_cost"`
	Material         string  `json:"material"`
	Operation        string  `json:"operation"`
	Product          string  `json:"product"`
}

type rawBOM struct {
	Version    int            `json:"version"`
	Active     bool           `json:"active"`
	ValidFrom  string         `json:"valid_from"`
	ValidTo    *string        `json:"valid_to"`
	Components []rawComponent `json:"components"`
}

type rawOverride struct {
	Material  string  `json:"material"`
	Operation string  `json:"operation"`
	UnitCost  string  `json:"unit_cost"`
	Currency  string  `json:"currency"`
	ValidFrom string  `json:"valid_from"`
	ValidTo   *string `json:"valid_to"`
}

type rawProduct struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Currency         string  `json:"currency"`
	DefaultMarkupPct *string `json:"default_markup_pct"`
	Sellable         bool    `json:"sellable"`
}

// compiler accumulates errors so one pass reports every problem.
type compiler struct {
	errs ErrorList
}

func (c *compiler) fail(v cue.Value, field, format string, args ...any) {
	c.errs = append(c.errs, &CompileError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Pos:     v.Pos(),
	})
}

func (c *compiler) decode(v cue.Value, field string, dst any) bool {
	if err := v.Decode(dst); err != nil {
		c.fail(v, field, "%v", err)
		return false
	}
	return true
}

func (c *compiler) decimal(v cue.Value, field, s string) decimal.Decimal {
	d, err := domain.ParseDecimal(field, s)
	if err != nil {
		c.fail(v, field, "%v", err)
	}
	return d
}

func (c *compiler) window(v cue.Value, field, from string, to *string) domain.Validity {
	var w domain.Validity
	var err error
	if w.From, err = domain.ParseDate(from); err != nil {
		c.fail(v, field+".valid_from", "%v", err)
		return w
	}
	if to == nil {
		return w
	}
	end, err := domain.ParseDate(*to)
	if err != nil {
		c.fail(v, field+".valid_to", "%v", err)
		return w
	}
	if end.Before(w.From) {
		c.fail(v, field+".valid_to", "valid_to %s is before valid_from %s", end, w.From)
	}
	w.To = &end
	return w
}

func (c *compiler) compile(v cue.Value) *Catalog {
	cat := &Catalog{}
	currency := defaultCurrency

	if sv := v.LookupPath(cue.ParsePath("settings")); sv.Exists() {
		var raw struct {
			Markup   string `json:"default_markup_pct"`
			Currency string `json:"currency"`
		}
		if c.decode(sv, "settings", &raw) {
			cat.Settings = &domain.Settings{
				DefaultMarkupPct: c.decimal(sv, "settings.default_markup_pct", raw.Markup),
				Currency:         raw.Currency,
			}
			currency = raw.Currency
		}
	}

	cat.Materials = c.items(v, "materials", domain.KindMaterial, currency)
	cat.Operations = c.items(v, "operations", domain.KindOperation, currency)

	known := map[domain.ComponentKind]map[string]bool{
		domain.KindMaterial:  codes(cat.Materials),
		domain.KindOperation: codes(cat.Operations),
		domain.KindProduct:   {},
	}

	pv := v.LookupPath(cue.ParsePath("products"))
	if !pv.Exists() {
		return cat
	}
	iter, err := pv.Fields()
	if err != nil {
		c.errs = append(c.errs, fromCUE(err)...)
		return cat
	}
	// Products may reference products declared after them, so collect
	// every SKU before compiling any BOM.
	type entry struct {
		sku string
		v   cue.Value
	}
	var pending []entry
	for iter.Next() {
		known[domain.KindProduct][iter.Label()] = true
		pending = append(pending, entry{iter.Label(), iter.Value()})
	}
	for _, e := range pending {
		cat.Products = append(cat.Products, c.product(e.v, e.sku, currency, known))
	}
	return cat
}

func codes(items []Item) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it.Code] = true
	}
	return m
}

func (c *compiler) items(v cue.Value, section string, kind domain.ComponentKind, currency string) []Item {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		c.errs = append(c.errs, fromCUE(err)...)
		return nil
	}

	var out []Item
	for iter.Next() {
		code := iter.Label()
		field := section + "." + code
		var raw rawItem
		if !c.decode(iter.Value(), field, &raw) {
			continue
		}
		it := Item{Kind: kind, Code: code, Name: raw.Name, UOM: raw.UOM}
		for i, rc := range raw.Costs {
			cf := fmt.Sprintf("%s.costs[%d]", field, i)
			cost := Cost{
				UnitCost: c.decimal(iter.Value(), cf+".unit_cost", rc.UnitCost),
				Currency: rc.Currency,
				Validity: c.window(iter.Value(), cf, rc.ValidFrom, rc.ValidTo),
			}
			if cost.UnitCost.IsNegative() {
				c.fail(iter.Value(), cf+".unit_cost", "unit cost must be >= 0, got %s", cost.UnitCost)
			}
			if cost.Currency == "" {
				cost.Currency = currency
			}
			it.Costs = append(it.Costs, cost)
		}
		out = append(out, it)
	}
	return out
}

func (c *compiler) product(v cue.Value, sku, currency string, known map[domain.ComponentKind]map[string]bool) Product {
	field := "products." + sku

	var raw rawProduct
	c.decode(v, field, &raw)
	p := Product{
		SKU:         sku,
		Name:        raw.Name,
		Description: raw.Description,
		Currency:    raw.Currency,
		IsSellable:  raw.Sellable,
	}
	if raw.DefaultMarkupPct != nil {
		p.DefaultMarkupPct = domain.DecimalPtr(c.decimal(v, field+".default_markup_pct", *raw.DefaultMarkupPct))
	}
	overrideCurrency := currency
	if p.Currency != "" {
		overrideCurrency = p.Currency
	}

	if bv := v.LookupPath(cue.ParsePath("boms")); bv.Exists() {
		list, err := bv.List()
		if err != nil {
			c.errs = append(c.errs, fromCUE(err)...)
		}
		for i := 0; err == nil && list.Next(); i++ {
			p.BOMs = append(p.BOMs, c.bom(list.Value(), fmt.Sprintf("%s.boms[%d]", field, i), known))
		}
	}

	if ov := v.LookupPath(cue.ParsePath("overrides")); ov.Exists() {
		list, err := ov.List()
		if err != nil {
			c.errs = append(c.errs, fromCUE(err)...)
		}
		for i := 0; err == nil && list.Next(); i++ {
			if o, ok := c.override(list.Value(), fmt.Sprintf("%s.overrides[%d]", field, i), overrideCurrency, known); ok {
				p.Overrides = append(p.Overrides, o)
			}
		}
	}
	return p
}

func (c *compiler) bom(v cue.Value, field string, known map[domain.ComponentKind]map[string]bool) BOM {
	var raw rawBOM
	if !c.decode(v, field, &raw) {
		return BOM{}
	}
	b := BOM{
		Version:  raw.Version,
		IsActive: raw.Active,
		Validity: c.window(v, field, raw.ValidFrom, raw.ValidTo),
	}

	comps := v.LookupPath(cue.ParsePath("components"))
	list, err := comps.List()
	if err != nil {
		c.errs = append(c.errs, fromCUE(err)...)
		return b
	}
	for i := 0; list.Next(); i++ {
		lv := list.Value()
		lf := fmt.Sprintf("%s.components[%d]", field, i)
		rc := raw.Components[i]

		kind, ref, ok := c.reference(lv, lf, rc.Material, rc.Operation, rc.Product, true)
		if !ok {
			continue
		}
		if !known[kind][ref] {
			c.fail(lv, lf+"."+string(kind), "unknown %s %q", kind, ref)
			continue
		}

		line := Line{
			LineNo:   rc.Line,
			Kind:     kind,
			Ref:      ref,
			Quantity: c.decimal(lv, lf+".quantity", rc.Quantity),
			WastePct: decimal.Zero,
		}
		if !line.Quantity.IsPositive() {
			c.fail(lv, lf+".quantity", "quantity must be > 0, got %s", rc.Quantity)
		}
		if rc.WastePct != nil {
			line.WastePct = c.decimal(lv, lf+".waste_pct", *rc.WastePct)
			if line.WastePct.IsNegative() {
				c.fail(lv, lf+".waste_pct", "waste must be >= 0, got %s", *rc.WastePct)
			}
		}
		if rc.OverrideUnitCost != nil {
			if kind == domain.KindProduct {
				c.fail(lv, lf+".override_unit_cost", "product lines are priced by their own BOM and cannot be overridden")
			}
			line.OverrideUnitCost = domain.DecimalPtr(c.decimal(lv, lf+".override_unit_cost", *rc.OverrideUnitCost))
		}
		b.Lines = append(b.Lines, line)
	}
	return b
}

func (c *compiler) override(v cue.Value, field, currency string, known map[domain.ComponentKind]map[string]bool) (Override, bool) {
	var raw rawOverride
	if !c.decode(v, field, &raw) {
		return Override{}, false
	}
	kind, ref, ok := c.reference(v, field, raw.Material, raw.Operation, "", false)
	if !ok {
		return Override{}, false
	}
	if !known[kind][ref] {
		c.fail(v, field+"."+string(kind), "unknown %s %q", kind, ref)
		return Override{}, false
	}
	o := Override{
		Kind:     kind,
		Ref:      ref,
		UnitCost: c.decimal(v, field+".unit_cost", raw.UnitCost),
		Currency: raw.Currency,
		Validity: c.window(v, field, raw.ValidFrom, raw.ValidTo),
	}
	if o.Currency == "" {
		o.Currency = currency
	}
	return o, true
}

// reference returns the single kind/ref a line or override names.
func (c *compiler) reference(v cue.Value, field, material, operation, product string, allowProduct bool) (domain.ComponentKind, string, bool) {
	var (
		kind  domain.ComponentKind
		ref   string
		count int
	)
	if material != "" {
		kind, ref, count = domain.KindMaterial, material, count+1
	}
	if operation != "" {
		kind, ref, count = domain.KindOperation, operation, count+1
	}
	if product != "" {
		kind, ref, count = domain.KindProduct, product, count+1
	}

	want := "material or operation"
	if allowProduct {
		want = "material, operation or product"
	}
	if count != 1 {
		c.fail(v, field, "must name exactly one %s", want)
		return "", "", false
	}
	return kind, ref, true
}
