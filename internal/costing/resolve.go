package costing

import (
	"context"
	"fmt"

	"github.com/roach88/priceforge/internal/domain"
)

// dated is a time-series record the temporal rule can pick from.
type dated interface {
	domain.Keyed
	Window() domain.Validity
}

// PickEffective returns the record in effect on asOf.
//
// A record matches when ValidFrom <= asOf and ValidTo is open or >= asOf.
// Among matches the latest ValidFrom wins; equal ValidFrom falls back to the
// highest RecordKey (latest inserted). The result does not depend on the
// order of records.
func PickEffective[T dated](records []T, asOf domain.Date) (T, bool) {
	var best T
	found := false
	for _, r := range records {
		w := r.Window()
		if !w.Contains(asOf) {
			continue
		}
		if !found {
			best, found = r, true
			continue
		}
		bw := best.Window()
		switch c := w.From.Compare(bw.From); {
		case c > 0:
			best = r
		case c == 0 && best.RecordKey().Less(r.RecordKey()):
			best = r
		}
	}
	return best, found
}

// CostResolver resolves price-list costs for materials and operations.
type CostResolver struct {
	src Source
}

// NewCostResolver creates a resolver reading from src.
func NewCostResolver(src Source) *CostResolver {
	return &CostResolver{src: src}
}

// Resolve returns the price-list record in effect for (kind, refID) on asOf.
// found is false when no record matches; the caller decides whether that is
// fatal.
func (r *CostResolver) Resolve(ctx context.Context, kind domain.ComponentKind, refID string, asOf domain.Date) (domain.CostRecord, bool, error) {
	if !kind.IsLeaf() {
		return domain.CostRecord{}, false, fmt.Errorf("resolve cost: kind %q has no price list", kind)
	}
	records, err := r.src.CostCandidates(ctx, kind, refID, asOf)
	if err != nil {
		return domain.CostRecord{}, false, fmt.Errorf("resolve cost %s %s: %w", kind, refID, err)
	}
	rec, ok := PickEffective(records, asOf)
	return rec, ok, nil
}

// OverrideResolver resolves product-scoped cost overrides.
type OverrideResolver struct {
	src Source
}

// NewOverrideResolver creates a resolver reading from src.
func NewOverrideResolver(src Source) *OverrideResolver {
	return &OverrideResolver{src: src}
}

// Resolve returns the override in effect for (productID, kind, refID) on asOf.
// Product lines are never overridden: they are priced by re-explosion.
func (r *OverrideResolver) Resolve(ctx context.Context, productID string, kind domain.ComponentKind, refID string, asOf domain.Date) (domain.CostOverride, bool, error) {
	if !kind.IsLeaf() {
		return domain.CostOverride{}, false, nil
	}
	overrides, err := r.src.OverrideCandidates(ctx, productID, kind, refID, asOf)
	if err != nil {
		return domain.CostOverride{}, false, fmt.Errorf("resolve override %s %s: %w", kind, refID, err)
	}
	o, ok := PickEffective(overrides, asOf)
	return o, ok, nil
}
