package costing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/priceforge/internal/domain"
	"github.com/roach88/priceforge/internal/testutil"
)

// tableCatalog builds the kitchen-table fixture: 5 m2 of wood at 30 and
// 2 h of cutting at 25, markup 20%.
func tableCatalog() (*testutil.Catalog, domain.Product, domain.CatalogItem, domain.CatalogItem) {
	cat := testutil.NewCatalog()
	wood := cat.Material("M001", "Solid wood", "m2")
	cut := cat.Operation("O001", "Wood cutting", "h")
	cat.Cost(wood, "30.00", "2024-01-01", "")
	cat.Cost(cut, "25.00", "2024-01-01", "")
	table := cat.Product("P001", testutil.WithMarkup("20"))
	cat.BOM(table, 1, true, "2024-01-01", "",
		testutil.Line(1, wood, "5"),
		testutil.Line(2, cut, "2"),
	)
	return cat, table, wood, cut
}

func newTestCalculator() *Calculator {
	return NewCalculator(Options{IDs: domain.NewSequenceGenerator("run")})
}

func calcRequest(sku, qty, asOf string) Request {
	return Request{SKU: sku, Quantity: domain.MustDecimal(qty), AsOf: domain.MustParseDate(asOf)}
}

func assertDecimal(t *testing.T, want string, got interface{ String() string }, field string) {
	t.Helper()
	assert.True(t, domain.MustDecimal(want).Equal(domain.MustDecimal(got.String())),
		"%s: want %s, got %s", field, want, got.String())
}

func TestCalculate_SingleLevel(t *testing.T) {
	cat, table, wood, cut := tableCatalog()

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, table.ID, run.ProductID)
	assert.Equal(t, "P001", run.ProductSKU)
	assert.Equal(t, 1, run.BOMVersion)
	assert.Equal(t, "EUR", run.Currency)
	assertDecimal(t, "20", run.MarkupPct, "markup")
	assertDecimal(t, "150", run.TotalMaterial, "total_material")
	assertDecimal(t, "50", run.TotalOperation, "total_operation")
	assertDecimal(t, "0", run.TotalOther, "total_other")
	assertDecimal(t, "200", run.TotalCost, "total_cost")
	assert.Equal(t, "240", run.Price.String())
	assert.False(t, run.MixedCurrency)

	require.Len(t, run.Items, 2)
	assert.Equal(t, 1, run.Items[0].LineNo)
	assert.Equal(t, domain.KindMaterial, run.Items[0].Kind)
	assert.Equal(t, wood.ID, run.Items[0].RefID)
	assert.Equal(t, "Solid wood", *run.Items[0].Description)
	assert.Equal(t, "m2", *run.Items[0].UOM)
	assertDecimal(t, "5", run.Items[0].Quantity, "line 1 qty")
	assertDecimal(t, "30", run.Items[0].UnitCost, "line 1 unit")
	assertDecimal(t, "150", run.Items[0].ExtendedCost, "line 1 ext")
	assert.Equal(t, domain.SourcePriceList, run.Items[0].Source)

	assert.Equal(t, 2, run.Items[1].LineNo)
	assert.Equal(t, cut.ID, run.Items[1].RefID)
	assertDecimal(t, "2", run.Items[1].Quantity, "line 2 qty")
	assertDecimal(t, "50", run.Items[1].ExtendedCost, "line 2 ext")
}

func TestCalculate_ScalesWithQuantity(t *testing.T) {
	cat, _, _, _ := tableCatalog()

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "3", "2024-06-01"))
	require.NoError(t, err)

	assertDecimal(t, "450", run.TotalMaterial, "total_material")
	assertDecimal(t, "150", run.TotalOperation, "total_operation")
	assertDecimal(t, "600", run.TotalCost, "total_cost")
	assertDecimal(t, "720", run.Price, "price")
	assertDecimal(t, "15", run.Items[0].Quantity, "line 1 qty")
	assertDecimal(t, "6", run.Items[1].Quantity, "line 2 qty")
}

func TestCalculate_TotalsAreSumOfLines(t *testing.T) {
	cat, _, _, _ := tableCatalog()

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "7.5", "2024-06-01"))
	require.NoError(t, err)

	material := domain.MustDecimal("0")
	operation := domain.MustDecimal("0")
	for _, it := range run.Items {
		assert.True(t, it.ExtendedCost.Equal(it.Quantity.Mul(it.UnitCost)))
		if it.Kind == domain.KindMaterial {
			material = material.Add(it.ExtendedCost)
		} else {
			operation = operation.Add(it.ExtendedCost)
		}
	}
	assert.True(t, run.TotalMaterial.Equal(material))
	assert.True(t, run.TotalOperation.Equal(operation))
	assert.True(t, run.TotalCost.Equal(material.Add(operation).Add(run.TotalOther)))
}

func TestCalculate_WasteFactor(t *testing.T) {
	cat := testutil.NewCatalog()
	wood := cat.Material("M001", "Wood", "m2")
	cat.Cost(wood, "10", "2024-01-01", "")
	p := cat.Product("P001", testutil.WithMarkup("0"))
	cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, wood, "2").WithWaste("10"))

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
	require.NoError(t, err)

	require.Len(t, run.Items, 1)
	assertDecimal(t, "2.2", run.Items[0].Quantity, "qty with waste")
	assertDecimal(t, "22", run.TotalMaterial, "total_material")
	assertDecimal(t, "22", run.Price, "price")
}

func TestCalculate_MultiLevelPropagation(t *testing.T) {
	cat := testutil.NewCatalog()
	screw := cat.Material("M010", "Screw", "pc")
	leg := cat.Material("M011", "Leg blank", "pc")
	assemble := cat.Operation("O010", "Assembly", "h")
	cat.Cost(screw, "0.10", "2024-01-01", "")
	cat.Cost(leg, "4", "2024-01-01", "")
	cat.Cost(assemble, "20", "2024-01-01", "")

	legKit := cat.Product("K001")
	cat.BOM(legKit, 1, true, "2024-01-01", "",
		testutil.Line(1, leg, "1"),
		testutil.Line(2, screw, "4").WithWaste("50"),
	)
	table := cat.Product("P001", testutil.WithMarkup("10"))
	cat.BOM(table, 1, true, "2024-01-01", "",
		testutil.SubLine(1, legKit, "4"),
		testutil.Line(2, assemble, "0.5"),
	)

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "2", "2024-06-01"))
	require.NoError(t, err)

	// Sub-products contribute only their leaves: 2 legs lines + assembly.
	require.Len(t, run.Items, 3)
	for _, it := range run.Items {
		assert.NotEqual(t, domain.KindProduct, it.Kind)
	}

	// 2 tables x 4 kits x 1 leg.
	assert.Equal(t, leg.ID, run.Items[0].RefID)
	assertDecimal(t, "8", run.Items[0].Quantity, "legs")
	// 2 x 4 x 4 screws x 1.5 waste.
	assert.Equal(t, screw.ID, run.Items[1].RefID)
	assertDecimal(t, "48", run.Items[1].Quantity, "screws")
	assertDecimal(t, "4.8", run.Items[1].ExtendedCost, "screws ext")
	// 2 x 0.5 h.
	assert.Equal(t, assemble.ID, run.Items[2].RefID)
	assertDecimal(t, "1", run.Items[2].Quantity, "assembly")

	assert.Equal(t, []int{1, 2, 3}, []int{run.Items[0].LineNo, run.Items[1].LineNo, run.Items[2].LineNo})
	assertDecimal(t, "36.8", run.TotalMaterial, "total_material")
	assertDecimal(t, "20", run.TotalOperation, "total_operation")
	assertDecimal(t, "56.8", run.TotalCost, "total_cost")
	assertDecimal(t, "62.48", run.Price, "price")
}

func TestCalculate_SubAssemblyUsedTwiceIsNotACycle(t *testing.T) {
	cat := testutil.NewCatalog()
	board := cat.Material("M001", "Board", "pc")
	cat.Cost(board, "5", "2024-01-01", "")
	panel := cat.Product("S001")
	cat.BOM(panel, 1, true, "2024-01-01", "", testutil.Line(1, board, "1"))
	cabinet := cat.Product("P001")
	cat.BOM(cabinet, 1, true, "2024-01-01", "",
		testutil.SubLine(1, panel, "2"),
		testutil.SubLine(2, panel, "3"),
	)

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
	require.NoError(t, err)
	require.Len(t, run.Items, 2)
	assertDecimal(t, "25", run.TotalMaterial, "total_material")
}

func TestCalculate_OverridePriority(t *testing.T) {
	asOf := "2024-06-01"

	t.Run("price list", func(t *testing.T) {
		cat, _, _, _ := tableCatalog()
		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", asOf))
		require.NoError(t, err)
		assert.Equal(t, domain.SourcePriceList, run.Items[0].Source)
		assertDecimal(t, "30", run.Items[0].UnitCost, "unit")
	})

	t.Run("product override beats price list", func(t *testing.T) {
		cat, table, wood, _ := tableCatalog()
		cat.Override(table, wood, "28", "2024-01-01", "")
		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", asOf))
		require.NoError(t, err)
		assert.Equal(t, domain.SourceProductOverride, run.Items[0].Source)
		assertDecimal(t, "28", run.Items[0].UnitCost, "unit")
		assertDecimal(t, "140", run.TotalMaterial, "total_material")
	})

	t.Run("expired product override is ignored", func(t *testing.T) {
		cat, table, wood, _ := tableCatalog()
		cat.Override(table, wood, "28", "2024-01-01", "2024-03-31")
		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", asOf))
		require.NoError(t, err)
		assert.Equal(t, domain.SourcePriceList, run.Items[0].Source)
	})

	t.Run("bom line override beats everything", func(t *testing.T) {
		cat := testutil.NewCatalog()
		wood := cat.Material("M001", "Wood", "m2")
		cat.Cost(wood, "30", "2024-01-01", "")
		table := cat.Product("P001", testutil.WithMarkup("20"))
		cat.Override(table, wood, "28", "2024-01-01", "")
		cat.BOM(table, 1, true, "2024-01-01", "", testutil.Line(1, wood, "5").WithOverride("27"))

		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", asOf))
		require.NoError(t, err)
		assert.Equal(t, domain.SourceBOMOverride, run.Items[0].Source)
		assertDecimal(t, "27", run.Items[0].UnitCost, "unit")
		assert.Equal(t, "EUR", run.Items[0].Currency)
	})

	t.Run("bom line override needs no price list", func(t *testing.T) {
		cat := testutil.NewCatalog()
		wood := cat.Material("M001", "Wood", "m2")
		table := cat.Product("P001")
		cat.BOM(table, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1").WithOverride("9"))

		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", asOf))
		require.NoError(t, err)
		assertDecimal(t, "9", run.TotalCost, "total_cost")
		assert.Zero(t, cat.Calls["CostCandidates"])
	})
}

func TestCalculate_OverrideScopedToOwningProduct(t *testing.T) {
	cat := testutil.NewCatalog()
	wood := cat.Material("M001", "Wood", "m2")
	cat.Cost(wood, "30", "2024-01-01", "")
	top := cat.Product("P001")
	frame := cat.Product("S001")
	cat.BOM(frame, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"))
	cat.BOM(top, 1, true, "2024-01-01", "",
		testutil.SubLine(1, frame, "1"),
		testutil.Line(2, wood, "1"),
	)
	// The top product's override applies only to its own lines.
	cat.Override(top, wood, "10", "2024-01-01", "")

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
	require.NoError(t, err)
	require.Len(t, run.Items, 2)
	assert.Equal(t, domain.SourcePriceList, run.Items[0].Source)
	assert.Equal(t, domain.SourceProductOverride, run.Items[1].Source)
}

func TestCalculate_TemporalSelection(t *testing.T) {
	cat := testutil.NewCatalog()
	wood := cat.Material("M001", "Wood", "m2")
	cat.Cost(wood, "30", "2024-01-01", "2024-06-30")
	cat.Cost(wood, "35", "2024-07-01", "")
	p := cat.Product("P001", testutil.WithMarkup("0"))
	cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"))

	calc := newTestCalculator()
	ctx := context.Background()

	june, err := calc.Calculate(ctx, cat, calcRequest("P001", "1", "2024-06-30"))
	require.NoError(t, err)
	assertDecimal(t, "30", june.TotalCost, "june cost")

	july, err := calc.Calculate(ctx, cat, calcRequest("P001", "1", "2024-07-01"))
	require.NoError(t, err)
	assertDecimal(t, "35", july.TotalCost, "july cost")

	_, err = calc.Calculate(ctx, cat, calcRequest("P001", "1", "2023-12-31"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeCostNotFound, CodeOf(err))
}

func TestCalculate_DefaultsFromSettings(t *testing.T) {
	t.Run("fallback when no settings row", func(t *testing.T) {
		cat := testutil.NewCatalog()
		wood := cat.Material("M001", "Wood", "m2")
		cat.Cost(wood, "100", "2024-01-01", "")
		p := cat.Product("P001", testutil.WithCurrency(""))
		cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"))

		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
		require.NoError(t, err)
		assertDecimal(t, "15", run.MarkupPct, "markup")
		assertDecimal(t, "115", run.Price, "price")
		assert.Equal(t, "EUR", run.Currency)
	})

	t.Run("settings row", func(t *testing.T) {
		cat := testutil.NewCatalog()
		cat.SetSettings("25", "USD")
		wood := cat.Material("M001", "Wood", "m2")
		cat.CostIn(wood, "100", "USD", "2024-01-01", "")
		p := cat.Product("P001", testutil.WithCurrency(""))
		cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"))

		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
		require.NoError(t, err)
		assertDecimal(t, "25", run.MarkupPct, "markup")
		assertDecimal(t, "125", run.Price, "price")
		assert.Equal(t, "USD", run.Currency)
		assert.False(t, run.MixedCurrency)
	})

	t.Run("product markup beats settings", func(t *testing.T) {
		cat, _, _, _ := tableCatalog()
		cat.SetSettings("50", "EUR")
		run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
		require.NoError(t, err)
		assertDecimal(t, "20", run.MarkupPct, "markup")
	})
}

func TestCalculate_PriceRounding(t *testing.T) {
	cat := testutil.NewCatalog()
	bolt := cat.Material("M001", "Bolt", "pc")
	cat.Cost(bolt, "0.33333", "2024-01-01", "")
	p := cat.Product("P001", testutil.WithMarkup("10"))
	cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, bolt, "1"))

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
	require.NoError(t, err)
	// 0.33333 * 1.1 = 0.366663
	assert.Equal(t, "0.3667", run.Price.String())
	assertDecimal(t, "0.33333", run.TotalCost, "total_cost keeps full precision")
}

func TestCalculate_MixedCurrencyIsFlagged(t *testing.T) {
	cat, _, _, _ := tableCatalog()
	glue := cat.Material("M002", "Glue", "kg")
	cat.CostIn(glue, "3", "USD", "2024-01-01", "")
	p := cat.Product("P002")
	cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, glue, "1"))

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P002", "1", "2024-06-01"))
	require.NoError(t, err)
	assert.True(t, run.MixedCurrency)
	assert.Equal(t, "EUR", run.Currency)
	assert.Equal(t, "USD", run.Items[0].Currency)
}

func TestCalculate_Deterministic(t *testing.T) {
	cat, _, _, _ := tableCatalog()
	calc := newTestCalculator()
	ctx := context.Background()

	first, err := calc.Calculate(ctx, cat, calcRequest("P001", "2", "2024-06-01"))
	require.NoError(t, err)
	second, err := calc.Calculate(ctx, cat, calcRequest("P001", "2", "2024-06-01"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.SnapshotHash, second.SnapshotHash)
	assert.Equal(t, string(first.Snapshot), string(second.Snapshot))
	assert.Equal(t, first.Items, second.Items)

	other, err := calc.Calculate(ctx, cat, calcRequest("P001", "3", "2024-06-01"))
	require.NoError(t, err)
	assert.NotEqual(t, first.SnapshotHash, other.SnapshotHash)
}

func TestCalculate_ValidatedFlagDoesNotAffectHash(t *testing.T) {
	cat, _, _, _ := tableCatalog()
	calc := newTestCalculator()

	plain, err := calc.Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
	require.NoError(t, err)
	req := calcRequest("P001", "1", "2024-06-01")
	req.Validate = true
	validated, err := calc.Calculate(context.Background(), cat, req)
	require.NoError(t, err)

	assert.True(t, validated.Validated)
	assert.Equal(t, plain.SnapshotHash, validated.SnapshotHash)
}

func TestCalculate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(cat *testutil.Catalog)
		req   Request
		code  ErrorCode
	}{
		{
			name:  "unknown sku",
			setup: func(cat *testutil.Catalog) {},
			req:   calcRequest("NOPE", "1", "2024-06-01"),
			code:  ErrCodeProductNotFound,
		},
		{
			name: "no bom",
			setup: func(cat *testutil.Catalog) {
				cat.Product("P001")
			},
			req:  calcRequest("P001", "1", "2024-06-01"),
			code: ErrCodeBOMNotFound,
		},
		{
			name: "sub-product without bom",
			setup: func(cat *testutil.Catalog) {
				sub := cat.Product("S001")
				p := cat.Product("P001")
				cat.BOM(p, 1, true, "2024-01-01", "", testutil.SubLine(1, sub, "1"))
			},
			req:  calcRequest("P001", "1", "2024-06-01"),
			code: ErrCodeBOMNotFound,
		},
		{
			name: "no cost",
			setup: func(cat *testutil.Catalog) {
				wood := cat.Material("M001", "Wood", "m2")
				p := cat.Product("P001")
				cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"))
			},
			req:  calcRequest("P001", "1", "2024-06-01"),
			code: ErrCodeCostNotFound,
		},
		{
			name: "unsupported kind",
			setup: func(cat *testutil.Catalog) {
				p := cat.Product("P001")
				cat.BOM(p, 1, true, "2024-01-01", "",
					testutil.BOMLine{LineNo: 1, Kind: "tooling", RefID: "t-1", Quantity: "1"})
			},
			req:  calcRequest("P001", "1", "2024-06-01"),
			code: ErrCodeUnsupportedKind,
		},
		{
			name:  "zero quantity",
			setup: func(cat *testutil.Catalog) {},
			req:   calcRequest("P001", "0", "2024-06-01"),
			code:  ErrCodeInvalidRequest,
		},
		{
			name:  "negative quantity",
			setup: func(cat *testutil.Catalog) {},
			req:   calcRequest("P001", "-1", "2024-06-01"),
			code:  ErrCodeInvalidRequest,
		},
		{
			name:  "blank sku",
			setup: func(cat *testutil.Catalog) {},
			req:   calcRequest("  ", "1", "2024-06-01"),
			code:  ErrCodeInvalidRequest,
		},
		{
			name:  "missing as-of",
			setup: func(cat *testutil.Catalog) {},
			req:   Request{SKU: "P001", Quantity: domain.MustDecimal("1")},
			code:  ErrCodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := testutil.NewCatalog()
			tt.setup(cat)

			_, err := newTestCalculator().Calculate(context.Background(), cat, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err), "error: %v", err)
		})
	}
}

func TestCalculate_CostNotFoundNamesItemCode(t *testing.T) {
	cat := testutil.NewCatalog()
	wood := cat.Material("M001", "Wood", "m2")
	p := cat.Product("P001")
	cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"))

	_, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))

	var ce *CalcError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "M001", ce.Ref)
	assert.Equal(t, "2024-06-01", ce.AsOf)
	assert.Contains(t, ce.Error(), "material M001")
}

func TestCalculate_MissingCatalogItemLeavesDescriptionEmpty(t *testing.T) {
	cat := testutil.NewCatalog()
	ghost := domain.CatalogItem{Kind: domain.KindMaterial, ID: "ghost"}
	p := cat.Product("P001")
	cat.BOM(p, 1, true, "2024-01-01", "", testutil.Line(1, ghost, "1").WithOverride("4"))

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
	require.NoError(t, err)
	require.Len(t, run.Items, 1)
	assert.Nil(t, run.Items[0].Description)
	assert.Nil(t, run.Items[0].UOM)
}

func TestCalculate_StoreFailureIsNotACalcError(t *testing.T) {
	for _, method := range []string{"ProductBySKU", "Settings", "BOMs", "Components", "CostCandidates", "OverrideCandidates", "CatalogItem"} {
		t.Run(method, func(t *testing.T) {
			cat, _, _, _ := tableCatalog()
			cat.FailOn = method

			_, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P001", "1", "2024-06-01"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, testutil.ErrInjected))
			assert.False(t, IsCalcError(err))
		})
	}
}

func TestCalculate_CancelledContext(t *testing.T) {
	cat, _, _, _ := tableCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCalculator().Calculate(ctx, cat, calcRequest("P001", "1", "2024-06-01"))
	require.ErrorIs(t, err, context.Canceled)
}
