package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/priceforge/internal/costing"
	"github.com/roach88/priceforge/internal/domain"
)

var (
	_ costing.Source = (*Store)(nil)
	_ costing.Source = (*Tx)(nil)
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedTable stores the kitchen-table catalog and returns its entities.
func seedTable(t *testing.T, s *Store) (domain.Product, domain.CatalogItem, domain.CatalogItem, domain.BOM) {
	t.Helper()
	ctx := context.Background()

	table, err := s.CreateProduct(ctx, domain.Product{
		SKU:              "P001",
		Name:             "Kitchen table",
		Currency:         "EUR",
		DefaultMarkupPct: domain.DecimalPtr(domain.MustDecimal("20")),
		IsSellable:       true,
	})
	require.NoError(t, err)

	wood, err := s.CreateItem(ctx, domain.CatalogItem{Kind: domain.KindMaterial, Code: "M001", Name: "Solid wood", UOM: "m2"})
	require.NoError(t, err)
	cut, err := s.CreateItem(ctx, domain.CatalogItem{Kind: domain.KindOperation, Code: "O001", Name: "Wood cutting", UOM: "h"})
	require.NoError(t, err)

	for _, c := range []domain.CostRecord{
		{Kind: domain.KindMaterial, RefID: wood.ID, UnitCost: domain.MustDecimal("30.00"), Currency: "EUR",
			Validity: domain.Validity{From: domain.MustParseDate("2024-01-01")}},
		{Kind: domain.KindOperation, RefID: cut.ID, UnitCost: domain.MustDecimal("25.00"), Currency: "EUR",
			Validity: domain.Validity{From: domain.MustParseDate("2024-01-01")}},
	} {
		_, err := s.AddCost(ctx, c)
		require.NoError(t, err)
	}

	bom, err := s.AddBOM(ctx, domain.BOM{
		ProductID: table.ID,
		Version:   1,
		IsActive:  true,
		Validity:  domain.Validity{From: domain.MustParseDate("2024-01-01")},
		Components: []domain.Component{
			{LineNo: 1, Kind: domain.KindMaterial, RefID: wood.ID, Quantity: domain.MustDecimal("5"), WastePct: domain.MustDecimal("0")},
			{LineNo: 2, Kind: domain.KindOperation, RefID: cut.ID, Quantity: domain.MustDecimal("2"), WastePct: domain.MustDecimal("0")},
		},
	})
	require.NoError(t, err)

	return table, wood, cut, bom
}
