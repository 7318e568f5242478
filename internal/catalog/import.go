package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/priceforge/internal/domain"
	"github.com/roach88/priceforge/internal/store"
)

// Import writes cat into st in a single transaction.
//
// Import is additive. Items and products whose code or SKU already exists
// are reused as-is (their names are not updated) and receive the catalog's
// new price-list entries, BOM versions and overrides. Settings, when
// present, replace the stored settings.
func Import(ctx context.Context, st *store.Store, cat *Catalog) (Stats, error) {
	var stats Stats
	err := st.InTx(ctx, func(tx *store.Tx) error {
		im := &importer{tx: tx, ids: map[domain.ComponentKind]map[string]string{
			domain.KindMaterial:  {},
			domain.KindOperation: {},
			domain.KindProduct:   {},
		}}
		if err := im.run(ctx, cat); err != nil {
			return err
		}
		stats = im.stats
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("import catalog: %w", err)
	}
	return stats, nil
}

type importer struct {
	tx    *store.Tx
	ids   map[domain.ComponentKind]map[string]string
	stats Stats
}

func (im *importer) run(ctx context.Context, cat *Catalog) error {
	if cat.Settings != nil {
		if err := im.tx.PutSettings(ctx, *cat.Settings); err != nil {
			return err
		}
	}

	for _, it := range cat.Materials {
		if err := im.item(ctx, it, &im.stats.Materials); err != nil {
			return err
		}
	}
	for _, it := range cat.Operations {
		if err := im.item(ctx, it, &im.stats.Operations); err != nil {
			return err
		}
	}

	// Every product must have an ID before any BOM can reference it.
	for _, p := range cat.Products {
		if err := im.product(ctx, p); err != nil {
			return err
		}
	}
	for _, p := range cat.Products {
		productID := im.ids[domain.KindProduct][p.SKU]
		for _, b := range p.BOMs {
			if err := im.bom(ctx, productID, b); err != nil {
				return fmt.Errorf("product %s: %w", p.SKU, err)
			}
		}
		for _, o := range p.Overrides {
			_, err := im.tx.AddOverride(ctx, domain.CostOverride{
				ProductID: productID,
				Kind:      o.Kind,
				RefID:     im.ids[o.Kind][o.Ref],
				UnitCost:  o.UnitCost,
				Currency:  o.Currency,
				Validity:  o.Validity,
			})
			if err != nil {
				return fmt.Errorf("product %s: %w", p.SKU, err)
			}
			im.stats.Overrides++
		}
	}
	return nil
}

func (im *importer) item(ctx context.Context, it Item, created *int) error {
	existing, ok, err := im.tx.ItemByCode(ctx, it.Kind, it.Code)
	if err != nil {
		return err
	}
	if !ok {
		existing, err = im.tx.CreateItem(ctx, domain.CatalogItem{Kind: it.Kind, Code: it.Code, Name: it.Name, UOM: it.UOM})
		if err != nil {
			return err
		}
		*created++
	}
	im.ids[it.Kind][it.Code] = existing.ID

	for _, c := range it.Costs {
		_, err := im.tx.AddCost(ctx, domain.CostRecord{
			Kind:     it.Kind,
			RefID:    existing.ID,
			UnitCost: c.UnitCost,
			Currency: c.Currency,
			Validity: c.Validity,
		})
		if err != nil {
			return err
		}
		im.stats.Costs++
	}
	return nil
}

func (im *importer) product(ctx context.Context, p Product) error {
	existing, ok, err := im.tx.ProductBySKU(ctx, p.SKU)
	if err != nil {
		return err
	}
	if !ok {
		existing, err = im.tx.CreateProduct(ctx, domain.Product{
			SKU:              p.SKU,
			Name:             p.Name,
			Description:      p.Description,
			Currency:         p.Currency,
			DefaultMarkupPct: p.DefaultMarkupPct,
			IsSellable:       p.IsSellable,
		})
		if err != nil {
			return err
		}
		im.stats.Products++
	}
	im.ids[domain.KindProduct][p.SKU] = existing.ID
	return nil
}

func (im *importer) bom(ctx context.Context, productID string, b BOM) error {
	comps := make([]domain.Component, len(b.Lines))
	for i, l := range b.Lines {
		comps[i] = domain.Component{
			LineNo:           l.LineNo,
			Kind:             l.Kind,
			RefID:            im.ids[l.Kind][l.Ref],
			Quantity:         l.Quantity,
			WastePct:         l.WastePct,
			OverrideUnitCost: l.OverrideUnitCost,
		}
	}
	_, err := im.tx.AddBOM(ctx, domain.BOM{
		ProductID:  productID,
		Version:    b.Version,
		IsActive:   b.IsActive,
		Validity:   b.Validity,
		Components: comps,
	})
	if err != nil {
		return err
	}
	im.stats.BOMs++
	return nil
}
