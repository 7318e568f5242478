package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/priceforge/internal/domain"
)

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{SKU: "P001", Name: "Table"})
	require.NoError(t, err)

	_, err = s.CreateProduct(ctx, domain.Product{SKU: "P001", Name: "Other table"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestProducts_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, domain.Product{
		SKU:              "P001",
		Name:             "Table",
		Description:      "Oak",
		Currency:         "EUR",
		DefaultMarkupPct: domain.DecimalPtr(domain.MustDecimal("12.5")),
		IsSellable:       true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	_, err = s.CreateProduct(ctx, domain.Product{SKU: "S001", Name: "Frame"})
	require.NoError(t, err)

	got, ok, err := s.ProductBySKU(ctx, "P001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Oak", got.Description)
	require.NotNil(t, got.DefaultMarkupPct)
	assert.Equal(t, "12.5", got.DefaultMarkupPct.String())
	assert.True(t, got.IsSellable)

	byID, ok, err := s.ProductByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "P001", byID.SKU)

	frame, ok, err := s.ProductBySKU(ctx, "S001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, frame.DefaultMarkupPct)
	assert.False(t, frame.IsSellable)

	_, ok, err = s.ProductBySKU(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "P001", all[0].SKU)
	assert.Equal(t, "S001", all[1].SKU)
}

func TestListProducts_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	products, err := s.ListProducts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestSettings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutSettings(ctx, domain.Settings{DefaultMarkupPct: domain.MustDecimal("20"), Currency: "EUR"}))
	require.NoError(t, s.PutSettings(ctx, domain.Settings{DefaultMarkupPct: domain.MustDecimal("25"), Currency: "USD"}))

	got, ok, err := s.Settings(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "25", got.DefaultMarkupPct.String())
	assert.Equal(t, "USD", got.Currency)
}

func TestCatalogItems(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, wood, cut, _ := seedTable(t, s)

	got, ok, err := s.CatalogItem(ctx, domain.KindMaterial, wood.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Solid wood", got.Name)
	assert.Equal(t, "m2", got.UOM)

	_, ok, err = s.CatalogItem(ctx, domain.KindMaterial, cut.ID)
	require.NoError(t, err)
	assert.False(t, ok, "materials and operations live in separate tables")

	_, ok, err = s.CatalogItem(ctx, domain.KindProduct, wood.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	byCode, ok, err := s.ItemByCode(ctx, domain.KindOperation, "O001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cut.ID, byCode.ID)

	_, err = s.CreateItem(ctx, domain.CatalogItem{Kind: domain.KindMaterial, Code: "M001", Name: "dup", UOM: "m2"})
	assert.ErrorIs(t, err, ErrDuplicate)

	materials, err := s.ListItems(ctx, domain.KindMaterial)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, "M001", materials[0].Code)
}

func TestCostCandidates_FiltersByWindow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, wood, _, _ := seedTable(t, s)

	_, err := s.AddCost(ctx, domain.CostRecord{
		Kind: domain.KindMaterial, RefID: wood.ID, UnitCost: domain.MustDecimal("32"), Currency: "EUR",
		Validity: domain.Validity{From: domain.MustParseDate("2024-06-01"), To: domain.DatePtr(domain.MustParseDate("2024-06-30"))},
	})
	require.NoError(t, err)

	tests := []struct {
		asOf string
		want []string
	}{
		{"2023-12-31", nil},
		{"2024-01-01", []string{"30"}},
		{"2024-06-30", []string{"30", "32"}},
		{"2024-07-01", []string{"30"}},
	}
	for _, tt := range tests {
		t.Run(tt.asOf, func(t *testing.T) {
			records, err := s.CostCandidates(ctx, domain.KindMaterial, wood.ID, domain.MustParseDate(tt.asOf))
			require.NoError(t, err)
			var got []string
			for _, r := range records {
				got = append(got, r.UnitCost.String())
				assert.Equal(t, domain.KindMaterial, r.Kind)
				assert.NotZero(t, r.Seq)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCostCandidates_ProductKindIsError(t *testing.T) {
	s := createTestStore(t)
	_, err := s.CostCandidates(context.Background(), domain.KindProduct, "x", domain.MustParseDate("2024-01-01"))
	assert.Error(t, err)
}

func TestCostCandidates_SeqBreaksTies(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, wood, _, _ := seedTable(t, s)

	second, err := s.AddCost(ctx, domain.CostRecord{
		Kind: domain.KindMaterial, RefID: wood.ID, UnitCost: domain.MustDecimal("31"), Currency: "EUR",
		Validity: domain.Validity{From: domain.MustParseDate("2024-01-01")},
	})
	require.NoError(t, err)

	records, err := s.CostCandidates(ctx, domain.KindMaterial, wood.ID, domain.MustParseDate("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Less(t, records[0].Seq, records[1].Seq)
	assert.Equal(t, second.Seq, records[1].Seq)
}

func TestOverrideCandidates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	table, wood, _, _ := seedTable(t, s)

	o, err := s.AddOverride(ctx, domain.CostOverride{
		ProductID: table.ID, Kind: domain.KindMaterial, RefID: wood.ID,
		UnitCost: domain.MustDecimal("28"), Currency: "EUR",
		Validity: domain.Validity{From: domain.MustParseDate("2024-06-01")},
	})
	require.NoError(t, err)

	got, err := s.OverrideCandidates(ctx, table.ID, domain.KindMaterial, wood.ID, domain.MustParseDate("2024-06-15"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, o.ID, got[0].ID)
	assert.Nil(t, got[0].To)

	got, err = s.OverrideCandidates(ctx, table.ID, domain.KindMaterial, wood.ID, domain.MustParseDate("2024-05-31"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.AddOverride(ctx, domain.CostOverride{ProductID: table.ID, Kind: domain.KindProduct, RefID: table.ID,
		UnitCost: domain.MustDecimal("1"), Validity: domain.Validity{From: domain.MustParseDate("2024-01-01")}})
	assert.Error(t, err)
}

func TestBOMsAndComponents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	table, wood, _, bom := seedTable(t, s)

	_, err := s.AddBOM(ctx, domain.BOM{
		ProductID: table.ID,
		Version:   2,
		Validity:  domain.Validity{From: domain.MustParseDate("2025-01-01"), To: domain.DatePtr(domain.MustParseDate("2025-12-31"))},
		Components: []domain.Component{{
			LineNo: 1, Kind: domain.KindMaterial, RefID: wood.ID,
			Quantity: domain.MustDecimal("4.5"), WastePct: domain.MustDecimal("10"),
			OverrideUnitCost: domain.DecimalPtr(domain.MustDecimal("29.90")),
		}},
	})
	require.NoError(t, err)

	boms, err := s.BOMs(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, boms, 2)
	assert.Equal(t, bom.ID, boms[0].ID)
	assert.True(t, boms[0].IsActive)
	assert.Nil(t, boms[0].To)
	assert.Empty(t, boms[0].Components, "headers only")
	assert.False(t, boms[1].IsActive)
	require.NotNil(t, boms[1].To)
	assert.Equal(t, "2025-12-31", boms[1].To.String())

	comps, err := s.Components(ctx, boms[1].ID)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, "4.5", comps[0].Quantity.String())
	assert.Equal(t, "10", comps[0].WastePct.String())
	require.NotNil(t, comps[0].OverrideUnitCost)
	assert.Equal(t, "29.9", comps[0].OverrideUnitCost.String())

	comps, err = s.Components(ctx, bom.ID)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Nil(t, comps[0].OverrideUnitCost)
	assert.Equal(t, 1, comps[0].LineNo)
	assert.Equal(t, 2, comps[1].LineNo)
}

func TestAddBOM_UnknownProductViolatesForeignKey(t *testing.T) {
	s := createTestStore(t)
	_, err := s.AddBOM(context.Background(), domain.BOM{
		ProductID: "nope",
		Version:   1,
		Validity:  domain.Validity{From: domain.MustParseDate("2024-01-01")},
	})
	assert.Error(t, err)
}
