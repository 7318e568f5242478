package costing

import (
	"github.com/roach88/priceforge/internal/domain"
)

// MarshalSnapshot returns the canonical JSON snapshot of a run.
//
// The snapshot covers every input and output needed to audit the run
// without consulting the catalog again. It deliberately excludes the run ID,
// the store sequence and the validated flag, which are not results of the
// calculation, so identical inputs always produce identical bytes.
func MarshalSnapshot(run domain.Run) ([]byte, error) {
	items := make([]any, len(run.Items))
	for i, it := range run.Items {
		items[i] = map[string]any{
			"line_no":       it.LineNo,
			"kind":          it.Kind,
			"ref_id":        it.RefID,
			"description":   it.Description,
			"uom":           it.UOM,
			"quantity":      it.Quantity,
			"unit_cost":     it.UnitCost,
			"extended_cost": it.ExtendedCost,
			"source":        it.Source,
			"currency":      it.Currency,
		}
	}

	return domain.MarshalCanonical(map[string]any{
		"as_of":                run.AsOf,
		"requested_qty":        run.RequestedQty,
		"markup_pct":           run.MarkupPct,
		"currency":             run.Currency,
		"product_id":           run.ProductID,
		"product_sku":          run.ProductSKU,
		"bom_id":               run.BOMID,
		"bom_version":          run.BOMVersion,
		"total_material_cost":  run.TotalMaterial,
		"total_operation_cost": run.TotalOperation,
		"total_other_cost":     run.TotalOther,
		"total_cost":           run.TotalCost,
		"price":                run.Price,
		"mixed_currency":       run.MixedCurrency,
		"items":                items,
	})
}
