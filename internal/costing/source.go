package costing

import (
	"context"

	"github.com/roach88/priceforge/internal/domain"
)

// Source is the read side of the data store, scoped to one consistent
// snapshot (in practice, one database transaction).
//
// Lookups that may legitimately find nothing return found=false with a nil
// error. A non-nil error always means the store itself failed.
type Source interface {
	// ProductBySKU looks up a product by its unique SKU.
	ProductBySKU(ctx context.Context, sku string) (domain.Product, bool, error)

	// ProductByID looks up a product by identity.
	ProductByID(ctx context.Context, id string) (domain.Product, bool, error)

	// Settings returns the global pricing defaults, if configured.
	Settings(ctx context.Context) (domain.Settings, bool, error)

	// CostCandidates returns the price-list records for (kind, refID)
	// whose validity window contains asOf.
	CostCandidates(ctx context.Context, kind domain.ComponentKind, refID string, asOf domain.Date) ([]domain.CostRecord, error)

	// OverrideCandidates returns the product-scoped overrides for
	// (productID, kind, refID) whose validity window contains asOf.
	OverrideCandidates(ctx context.Context, productID string, kind domain.ComponentKind, refID string, asOf domain.Date) ([]domain.CostOverride, error)

	// BOMs returns every BOM header of a product, without components.
	BOMs(ctx context.Context, productID string) ([]domain.BOM, error)

	// Components returns the lines of a BOM in store order.
	Components(ctx context.Context, bomID string) ([]domain.Component, error)

	// CatalogItem looks up the material or operation a line references.
	CatalogItem(ctx context.Context, kind domain.ComponentKind, refID string) (domain.CatalogItem, bool, error)
}
