package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/priceforge/internal/domain"
)

// Report renders a result as canonical JSON for golden comparison.
//
// Run IDs and snapshot hashes are left out: the report should only change
// when a price or a line changes.
func Report(r *Result) ([]byte, error) {
	calcs := make([]any, len(r.Outcomes))
	for i, out := range r.Outcomes {
		entry := map[string]any{
			"sku":   out.Calculation.SKU,
			"as_of": out.Calculation.AsOf,
			"qty":   out.Quantity,
		}
		if out.Err != nil {
			entry["error_code"] = string(out.Err.Code)
			calcs[i] = entry
			continue
		}

		run := out.Run
		lines := make([]any, len(run.Items))
		for j, it := range run.Items {
			lines[j] = map[string]any{
				"line_no":       it.LineNo,
				"kind":          it.Kind,
				"description":   it.Description,
				"quantity":      it.Quantity,
				"unit_cost":     it.UnitCost,
				"extended_cost": it.ExtendedCost,
				"source":        it.Source,
				"currency":      it.Currency,
			}
		}
		entry["bom_version"] = run.BOMVersion
		entry["currency"] = run.Currency
		entry["mixed_currency"] = run.MixedCurrency
		entry["total_material"] = run.TotalMaterial
		entry["total_operation"] = run.TotalOperation
		entry["total_cost"] = run.TotalCost
		entry["markup_pct"] = run.MarkupPct
		entry["price"] = run.Price
		entry["lines"] = lines
		calcs[i] = entry
	}

	return domain.MarshalCanonical(map[string]any{
		"scenario_name": r.Name,
		"calculations":  calcs,
	})
}

// RunWithGolden executes a scenario and compares its report against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, Options{})
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, result *Result) error {
	t.Helper()

	data, err := Report(result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Name, data)
	return nil
}
