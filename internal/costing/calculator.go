package costing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
)

// Request is the input of one price calculation.
type Request struct {
	SKU      string
	Quantity decimal.Decimal
	AsOf     domain.Date
	Validate bool
}

// Options configures a Calculator.
type Options struct {
	// MaxDepth bounds BOM nesting. Zero selects DefaultMaxDepth.
	MaxDepth int

	// IDs generates run identifiers. Nil selects UUIDv7.
	IDs domain.IDGenerator

	// Logger receives engine diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Calculator prices a product from its exploded BOM.
// It holds no per-request state and is safe for concurrent use as long as
// each call gets its own Source.
type Calculator struct {
	maxDepth int
	ids      domain.IDGenerator
	logger   *slog.Logger
}

// NewCalculator creates a calculator.
func NewCalculator(opts Options) *Calculator {
	c := &Calculator{
		maxDepth: opts.MaxDepth,
		ids:      opts.IDs,
		logger:   opts.Logger,
	}
	if c.ids == nil {
		c.ids = domain.UUIDv7Generator{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Calculate prices req against src and returns the assembled run.
// Nothing is persisted; see pricing.Service for the transactional wrapper.
func (c *Calculator) Calculate(ctx context.Context, src Source, req Request) (domain.Run, error) {
	if err := validateRequest(req); err != nil {
		return domain.Run{}, err
	}

	product, ok, err := src.ProductBySKU(ctx, req.SKU)
	if err != nil {
		return domain.Run{}, fmt.Errorf("lookup product %q: %w", req.SKU, err)
	}
	if !ok {
		return domain.Run{}, newProductNotFound(req.SKU)
	}

	settings, ok, err := src.Settings(ctx)
	if err != nil {
		return domain.Run{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		settings = domain.DefaultSettings()
	}

	markup := settings.DefaultMarkupPct
	if product.DefaultMarkupPct != nil {
		markup = *product.DefaultMarkupPct
	}
	currency := settings.Currency
	if product.Currency != "" {
		currency = product.Currency
	}

	exploder := NewExploder(src, c.maxDepth, c.logger)
	x, err := exploder.Explode(ctx, ExplodeRequest{
		ProductID: product.ID,
		Quantity:  req.Quantity,
		AsOf:      req.AsOf,
		Currency:  currency,
	}, NewLineCursor(1))
	if err != nil {
		return domain.Run{}, err
	}

	// Record which BOM priced the run. Explosion already selected it in
	// this snapshot, so a miss here means the source is inconsistent.
	bom, ok, err := exploder.boms.Select(ctx, product.ID, req.AsOf)
	if err != nil {
		return domain.Run{}, err
	}
	if !ok {
		return domain.Run{}, &CalcError{
			Code:    ErrCodeInternal,
			Message: fmt.Sprintf("BOM for product %s vanished after explosion", product.SKU),
			Product: product.SKU,
			AsOf:    req.AsOf.String(),
		}
	}

	totalOther := decimal.Zero
	totalCost := x.MaterialTotal.Add(x.OperationTotal).Add(totalOther)

	run := domain.Run{
		ID:             c.ids.Generate(),
		ProductID:      product.ID,
		ProductSKU:     product.SKU,
		BOMID:          bom.ID,
		BOMVersion:     bom.Version,
		RequestedQty:   req.Quantity,
		AsOf:           req.AsOf,
		MarkupPct:      markup,
		TotalMaterial:  x.MaterialTotal,
		TotalOperation: x.OperationTotal,
		TotalOther:     totalOther,
		TotalCost:      totalCost,
		Price:          domain.RoundPrice(totalCost.Mul(domain.PercentFactor(markup))),
		Currency:       currency,
		Validated:      req.Validate,
		Items:          x.Items,
	}

	if mixed := foreignCurrencies(x.Items, currency); len(mixed) > 0 {
		run.MixedCurrency = true
		c.logger.Warn("summing costs in mixed currencies without conversion",
			"sku", product.SKU,
			"run_currency", currency,
			"other_currencies", strings.Join(mixed, ","),
		)
	}

	snapshot, err := MarshalSnapshot(run)
	if err != nil {
		return domain.Run{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	run.Snapshot = snapshot
	run.SnapshotHash = domain.SnapshotHash(snapshot)

	return run, nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.SKU) == "" {
		return newInvalidRequest("product SKU is required")
	}
	if !req.Quantity.IsPositive() {
		return newInvalidRequest("requested quantity must be > 0, got %s", req.Quantity)
	}
	if req.AsOf.IsZero() {
		return newInvalidRequest("as-of date is required")
	}
	return nil
}

// foreignCurrencies lists, in first-seen order, line currencies that
// differ from the run currency.
func foreignCurrencies(items []domain.LineItem, currency string) []string {
	var out []string
	seen := map[string]bool{currency: true, "": true}
	for _, it := range items {
		if !seen[it.Currency] {
			seen[it.Currency] = true
			out = append(out, it.Currency)
		}
	}
	return out
}
