package costing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
)

// DefaultMaxDepth bounds BOM nesting when no limit is configured.
const DefaultMaxDepth = 32

// ExplodeRequest is the input of one explosion.
type ExplodeRequest struct {
	// ProductID is the product whose BOM is exploded.
	ProductID string

	// Quantity is the number of product units, already scaled by every
	// ancestor's quantity and waste factor.
	Quantity decimal.Decimal

	// AsOf selects BOMs, overrides and price-list entries.
	AsOf domain.Date

	// Currency is recorded on lines priced by a BOM-line override, which
	// carries no currency of its own.
	Currency string
}

// Explosion is the flattened, priced result of exploding a BOM.
type Explosion struct {
	MaterialTotal  decimal.Decimal
	OperationTotal decimal.Decimal
	Items          []domain.LineItem
}

func (x *Explosion) absorb(sub Explosion) {
	x.MaterialTotal = x.MaterialTotal.Add(sub.MaterialTotal)
	x.OperationTotal = x.OperationTotal.Add(sub.OperationTotal)
	x.Items = append(x.Items, sub.Items...)
}

// Exploder walks a BOM graph and prices its leaf lines.
type Exploder struct {
	src       Source
	boms      *BOMSelector
	overrides *OverrideResolver
	costs     *CostResolver
	maxDepth  int
	logger    *slog.Logger
}

// NewExploder creates an exploder over src. maxDepth <= 0 selects
// DefaultMaxDepth; a nil logger discards output.
func NewExploder(src Source, maxDepth int, logger *slog.Logger) *Exploder {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exploder{
		src:       src,
		boms:      NewBOMSelector(src),
		overrides: NewOverrideResolver(src),
		costs:     NewCostResolver(src),
		maxDepth:  maxDepth,
		logger:    logger,
	}
}

// Explode explodes req.ProductID's BOM into priced leaf lines numbered from
// cursor. The cursor is advanced by the number of lines produced.
func (e *Exploder) Explode(ctx context.Context, req ExplodeRequest, cursor *LineCursor) (Explosion, error) {
	return e.explode(ctx, req, cursor, NewAncestry())
}

func (e *Exploder) explode(ctx context.Context, req ExplodeRequest, cursor *LineCursor, anc *Ancestry) (Explosion, error) {
	if err := ctx.Err(); err != nil {
		return Explosion{}, err
	}

	if anc.Contains(req.ProductID) {
		return Explosion{}, newCyclicBOM(e.productNames(ctx, anc.CycleTo(req.ProductID)))
	}
	if anc.Depth() >= e.maxDepth {
		return Explosion{}, newMaxDepth(e.productName(ctx, req.ProductID), e.maxDepth)
	}
	anc.Push(req.ProductID)
	defer anc.Pop()

	bom, ok, err := e.boms.Select(ctx, req.ProductID, req.AsOf)
	if err != nil {
		return Explosion{}, err
	}
	if !ok {
		return Explosion{}, newBOMNotFound(e.productName(ctx, req.ProductID), req.AsOf.String())
	}

	e.logger.Debug("exploding bom",
		"product_id", req.ProductID,
		"bom_id", bom.ID,
		"version", bom.Version,
		"quantity", req.Quantity.String(),
		"depth", anc.Depth(),
	)

	out := Explosion{MaterialTotal: decimal.Zero, OperationTotal: decimal.Zero}
	for _, comp := range bom.Components {
		effQty := req.Quantity.Mul(comp.Quantity).Mul(domain.PercentFactor(comp.WastePct))

		switch comp.Kind {
		case domain.KindProduct:
			sub, err := e.explode(ctx, ExplodeRequest{
				ProductID: comp.RefID,
				Quantity:  effQty,
				AsOf:      req.AsOf,
				Currency:  req.Currency,
			}, cursor, anc)
			if err != nil {
				return Explosion{}, err
			}
			out.absorb(sub)

		case domain.KindMaterial, domain.KindOperation:
			item, err := e.priceLeaf(ctx, bom.ProductID, comp, effQty, req, cursor)
			if err != nil {
				return Explosion{}, err
			}
			if comp.Kind == domain.KindMaterial {
				out.MaterialTotal = out.MaterialTotal.Add(item.ExtendedCost)
			} else {
				out.OperationTotal = out.OperationTotal.Add(item.ExtendedCost)
			}
			out.Items = append(out.Items, item)

		default:
			return Explosion{}, newUnsupportedKind(e.productName(ctx, req.ProductID), comp.LineNo, string(comp.Kind))
		}
	}

	return out, nil
}

// priceLeaf resolves the unit cost of a material or operation line and
// builds its line item. ownerID is the product whose BOM holds the line;
// product overrides are scoped to it.
func (e *Exploder) priceLeaf(ctx context.Context, ownerID string, comp domain.Component, qty decimal.Decimal, req ExplodeRequest, cursor *LineCursor) (domain.LineItem, error) {
	var (
		unitCost decimal.Decimal
		source   domain.CostSource
		currency string
	)

	item, hasItem, err := e.src.CatalogItem(ctx, comp.Kind, comp.RefID)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("lookup %s %s: %w", comp.Kind, comp.RefID, err)
	}

	if comp.OverrideUnitCost != nil {
		unitCost, source, currency = *comp.OverrideUnitCost, domain.SourceBOMOverride, req.Currency
	} else {
		o, ok, err := e.overrides.Resolve(ctx, ownerID, comp.Kind, comp.RefID, req.AsOf)
		if err != nil {
			return domain.LineItem{}, err
		}
		if ok {
			unitCost, source, currency = o.UnitCost, domain.SourceProductOverride, o.Currency
		} else {
			rec, ok, err := e.costs.Resolve(ctx, comp.Kind, comp.RefID, req.AsOf)
			if err != nil {
				return domain.LineItem{}, err
			}
			if !ok {
				ref := comp.RefID
				if hasItem {
					ref = item.Code
				}
				return domain.LineItem{}, newCostNotFound(string(comp.Kind), ref, req.AsOf.String())
			}
			unitCost, source, currency = rec.UnitCost, domain.SourcePriceList, rec.Currency
		}
	}

	line := domain.LineItem{
		LineNo:       cursor.Next(),
		Kind:         comp.Kind,
		RefID:        comp.RefID,
		Quantity:     qty,
		UnitCost:     unitCost,
		ExtendedCost: qty.Mul(unitCost),
		Source:       source,
		Currency:     currency,
	}
	if hasItem {
		line.Description = domain.StringPtr(item.Name)
		line.UOM = domain.StringPtr(item.UOM)
	}
	return line, nil
}

// productName returns the SKU of productID for error messages, falling
// back to the ID when the product cannot be read.
func (e *Exploder) productName(ctx context.Context, productID string) string {
	p, ok, err := e.src.ProductByID(ctx, productID)
	if err != nil || !ok {
		return productID
	}
	return p.SKU
}

func (e *Exploder) productNames(ctx context.Context, ids []string) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = e.productName(ctx, id)
	}
	return names
}
