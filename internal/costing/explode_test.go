package costing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/priceforge/internal/domain"
	"github.com/roach88/priceforge/internal/testutil"
)

func TestExplode_DirectCycle(t *testing.T) {
	cat := testutil.NewCatalog()
	a := cat.Product("A")
	cat.BOM(a, 1, true, "2024-01-01", "", testutil.SubLine(1, a, "1"))

	_, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("A", "1", "2024-06-01"))

	var ce *CalcError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeCyclicBOM, ce.Code)
	assert.Equal(t, []string{"A", "A"}, ce.Chain)
	assert.True(t, IsCycleError(err))
}

func TestExplode_IndirectCycle(t *testing.T) {
	cat := testutil.NewCatalog()
	wood := cat.Material("M001", "Wood", "m2")
	cat.Cost(wood, "1", "2024-01-01", "")
	table := cat.Product("TABLE")
	frame := cat.Product("FRAME")
	leg := cat.Product("LEG")
	cat.BOM(table, 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"), testutil.SubLine(2, frame, "1"))
	cat.BOM(frame, 1, true, "2024-01-01", "", testutil.SubLine(1, leg, "4"))
	cat.BOM(leg, 1, true, "2024-01-01", "", testutil.SubLine(1, frame, "1"))

	_, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("TABLE", "1", "2024-06-01"))

	var ce *CalcError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeCyclicBOM, ce.Code)
	assert.Equal(t, []string{"FRAME", "LEG", "FRAME"}, ce.Chain)
	assert.Contains(t, ce.Message, "FRAME -> LEG -> FRAME")
}

// chain builds P0 -> P1 -> ... -> Pn where Pn holds one priced material.
func chain(cat *testutil.Catalog, n int) {
	wood := cat.Material("M001", "Wood", "m2")
	cat.Cost(wood, "1", "2024-01-01", "")
	products := make([]domain.Product, n+1)
	for i := range products {
		products[i] = cat.Product(fmt.Sprintf("P%d", i))
	}
	for i := 0; i < n; i++ {
		cat.BOM(products[i], 1, true, "2024-01-01", "", testutil.SubLine(1, products[i+1], "1"))
	}
	cat.BOM(products[n], 1, true, "2024-01-01", "", testutil.Line(1, wood, "1"))
}

func TestExplode_MaxDepth(t *testing.T) {
	t.Run("at limit", func(t *testing.T) {
		cat := testutil.NewCatalog()
		chain(cat, 3) // four nested BOMs

		calc := NewCalculator(Options{MaxDepth: 4})
		run, err := calc.Calculate(context.Background(), cat, calcRequest("P0", "1", "2024-06-01"))
		require.NoError(t, err)
		assert.Len(t, run.Items, 1)
	})

	t.Run("over limit", func(t *testing.T) {
		cat := testutil.NewCatalog()
		chain(cat, 4)

		calc := NewCalculator(Options{MaxDepth: 4})
		_, err := calc.Calculate(context.Background(), cat, calcRequest("P0", "1", "2024-06-01"))
		require.Error(t, err)
		assert.Equal(t, ErrCodeMaxDepth, CodeOf(err))
	})

	t.Run("default limit", func(t *testing.T) {
		cat := testutil.NewCatalog()
		chain(cat, DefaultMaxDepth)

		_, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("P0", "1", "2024-06-01"))
		assert.Equal(t, ErrCodeMaxDepth, CodeOf(err))
	})
}

func TestExplode_LineNumbersSpanLevels(t *testing.T) {
	cat := testutil.NewCatalog()
	a := cat.Material("A", "A", "pc")
	b := cat.Material("B", "B", "pc")
	c := cat.Operation("C", "C", "h")
	for _, it := range []domain.CatalogItem{a, b, c} {
		cat.Cost(it, "1", "2024-01-01", "")
	}
	sub := cat.Product("SUB")
	cat.BOM(sub, 1, true, "2024-01-01", "", testutil.Line(1, b, "1"), testutil.Line(2, b, "2"))
	top := cat.Product("TOP")
	cat.BOM(top, 1, true, "2024-01-01", "",
		testutil.Line(10, a, "1"),
		testutil.SubLine(20, sub, "1"),
		testutil.Line(30, c, "1"),
	)

	x, err := NewExploder(cat, 0, nil).Explode(context.Background(), ExplodeRequest{
		ProductID: top.ID,
		Quantity:  domain.MustDecimal("1"),
		AsOf:      domain.MustParseDate("2024-06-01"),
		Currency:  "EUR",
	}, NewLineCursor(1))
	require.NoError(t, err)

	var lines []int
	var refs []string
	for _, it := range x.Items {
		lines = append(lines, it.LineNo)
		refs = append(refs, it.RefID)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, lines)
	assert.Equal(t, []string{a.ID, b.ID, b.ID, c.ID}, refs)
	assert.True(t, x.MaterialTotal.Equal(domain.MustDecimal("4")))
	assert.True(t, x.OperationTotal.Equal(domain.MustDecimal("1")))
}

func TestExplode_UsesActiveBOMOfSubProduct(t *testing.T) {
	cat := testutil.NewCatalog()
	old := cat.Material("OLD", "Old", "pc")
	cur := cat.Material("NEW", "New", "pc")
	cat.Cost(old, "1", "2024-01-01", "")
	cat.Cost(cur, "2", "2024-01-01", "")
	sub := cat.Product("SUB")
	cat.BOM(sub, 1, false, "2024-01-01", "", testutil.Line(1, old, "1"))
	cat.BOM(sub, 2, true, "2030-01-01", "", testutil.Line(1, cur, "1"))
	top := cat.Product("TOP")
	cat.BOM(top, 1, true, "2024-01-01", "", testutil.SubLine(1, sub, "1"))

	run, err := newTestCalculator().Calculate(context.Background(), cat, calcRequest("TOP", "1", "2024-06-01"))
	require.NoError(t, err)
	require.Len(t, run.Items, 1)
	assert.Equal(t, cur.ID, run.Items[0].RefID)
}
