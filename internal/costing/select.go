package costing

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/priceforge/internal/domain"
)

// BOMSelector chooses the BOM version that prices a product on a date.
type BOMSelector struct {
	src Source
}

// NewBOMSelector creates a selector reading from src.
func NewBOMSelector(src Source) *BOMSelector {
	return &BOMSelector{src: src}
}

// Select returns the applicable BOM for productID on asOf with its
// components sorted by line number. found is false when the product has no
// active BOM and no BOM valid on asOf.
//
// Policy: the active BOM with the highest version wins regardless of its
// window; otherwise the highest version whose window contains asOf.
func (s *BOMSelector) Select(ctx context.Context, productID string, asOf domain.Date) (domain.BOM, bool, error) {
	boms, err := s.src.BOMs(ctx, productID)
	if err != nil {
		return domain.BOM{}, false, fmt.Errorf("select bom for %s: %w", productID, err)
	}

	bom, ok := pickBOM(boms, func(b domain.BOM) bool { return b.IsActive })
	if !ok {
		bom, ok = pickBOM(boms, func(b domain.BOM) bool { return b.Contains(asOf) })
	}
	if !ok {
		return domain.BOM{}, false, nil
	}

	comps, err := s.src.Components(ctx, bom.ID)
	if err != nil {
		return domain.BOM{}, false, fmt.Errorf("load components of bom %s: %w", bom.ID, err)
	}
	bom.Components = SortComponents(comps)
	return bom, true, nil
}

// pickBOM returns the highest-version BOM satisfying keep.
// Equal versions fall back to the latest inserted.
func pickBOM(boms []domain.BOM, keep func(domain.BOM) bool) (domain.BOM, bool) {
	var best domain.BOM
	found := false
	for _, b := range boms {
		if !keep(b) {
			continue
		}
		if !found || b.Version > best.Version ||
			(b.Version == best.Version && best.RecordKey().Less(b.RecordKey())) {
			best, found = b, true
		}
	}
	return best, found
}

// SortComponents returns a copy of comps ordered by line number.
// Lines sharing a number keep their insertion order.
func SortComponents(comps []domain.Component) []domain.Component {
	out := slices.Clone(comps)
	slices.SortStableFunc(out, func(a, b domain.Component) int {
		if a.LineNo != b.LineNo {
			return a.LineNo - b.LineNo
		}
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return out
}
