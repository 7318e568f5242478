package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/catalog"
	"github.com/roach88/priceforge/internal/costing"
	"github.com/roach88/priceforge/internal/domain"
	"github.com/roach88/priceforge/internal/pricing"
	"github.com/roach88/priceforge/internal/store"
)

// Options configures a scenario run.
type Options struct {
	// MaxDepth bounds BOM nesting. Zero selects the engine default.
	MaxDepth int

	// Logger receives service logs. Nil discards them.
	Logger *slog.Logger
}

// Result is the outcome of a scenario execution.
type Result struct {
	Name string `json:"name"`

	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Errors contains one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Outcomes holds one entry per calculation, in scenario order.
	Outcomes []Outcome `json:"-"`
}

// Outcome is what one calculation produced: a run or a calculation error.
type Outcome struct {
	Calculation Calculation
	Quantity    decimal.Decimal
	Run         *domain.Run
	Err         *costing.CalcError
}

func newResult(name string) *Result {
	return &Result{Name: name, Pass: true}
}

// addError records a failed expectation and marks the result as failed.
func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario in a fresh in-memory database.
//
// Expectation mismatches are reported in the Result. The returned error is
// reserved for problems that prevent the scenario from running at all: an
// unreadable catalog, a failed import or a store failure.
func Run(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cat, err := catalog.LoadFile(s.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if _, err := catalog.Import(ctx, st, cat); err != nil {
		return nil, fmt.Errorf("import catalog: %w", err)
	}

	svc := pricing.NewService(st, pricing.Options{
		MaxDepth: opts.MaxDepth,
		IDs:      domain.NewSequenceGenerator("run"),
		Logger:   opts.Logger,
	})

	result := newResult(s.Name)
	for i, c := range s.Calculations {
		out, err := calculate(ctx, svc, c)
		if err != nil {
			return nil, fmt.Errorf("calculations[%d]: %w", i, err)
		}
		result.Outcomes = append(result.Outcomes, out)
		if c.Expect != nil {
			check(result, fmt.Sprintf("calculations[%d] %s@%s", i, c.SKU, c.AsOf), c.Expect, out)
		} else if out.Err != nil {
			result.addError("calculations[%d] %s@%s: unexpected error: %v", i, c.SKU, c.AsOf, out.Err)
		}
	}
	return result, nil
}

func calculate(ctx context.Context, svc *pricing.Service, c Calculation) (Outcome, error) {
	qty := decimal.NewFromInt(1)
	if c.Qty != "" {
		var err error
		if qty, err = decimal.NewFromString(c.Qty); err != nil {
			return Outcome{}, fmt.Errorf("qty: %w", err)
		}
	}
	asOf, err := domain.ParseDate(c.AsOf)
	if err != nil {
		return Outcome{}, fmt.Errorf("as_of: %w", err)
	}

	out := Outcome{Calculation: c, Quantity: qty}
	run, err := svc.CalculateAndPersist(ctx, pricing.Request{SKU: c.SKU, Quantity: &qty, AsOf: &asOf})
	if err != nil {
		var ce *costing.CalcError
		if !errors.As(err, &ce) {
			return Outcome{}, err
		}
		out.Err = ce
		return out, nil
	}
	out.Run = &run
	return out, nil
}

// check compares one outcome with its expectation.
func check(r *Result, label string, e *Expectation, out Outcome) {
	if e.ErrorCode != "" {
		switch {
		case out.Err == nil:
			r.addError("%s: expected error %s, got price %s", label, e.ErrorCode, out.Run.Price)
		case string(out.Err.Code) != e.ErrorCode:
			r.addError("%s: expected error %s, got %s (%s)", label, e.ErrorCode, out.Err.Code, out.Err.Message)
		}
		return
	}
	if out.Err != nil {
		r.addError("%s: unexpected error: %v", label, out.Err)
		return
	}

	run := out.Run
	checkDecimal(r, label, "total_material", e.TotalMaterial, run.TotalMaterial)
	checkDecimal(r, label, "total_operation", e.TotalOperation, run.TotalOperation)
	checkDecimal(r, label, "total_cost", e.TotalCost, run.TotalCost)
	checkDecimal(r, label, "price", e.Price, run.Price)
	if e.Currency != "" && e.Currency != run.Currency {
		r.addError("%s: currency: expected %s, got %s", label, e.Currency, run.Currency)
	}
	if e.MixedCurrency != nil && *e.MixedCurrency != run.MixedCurrency {
		r.addError("%s: mixed_currency: expected %t, got %t", label, *e.MixedCurrency, run.MixedCurrency)
	}
	if e.Lines != nil && *e.Lines != len(run.Items) {
		r.addError("%s: lines: expected %d, got %d", label, *e.Lines, len(run.Items))
	}

	for _, want := range e.Items {
		item, ok := lineByNo(run.Items, want.LineNo)
		if !ok {
			r.addError("%s: line %d: not in run", label, want.LineNo)
			continue
		}
		lineLabel := fmt.Sprintf("%s line %d", label, want.LineNo)
		if want.Description != "" {
			got := ""
			if item.Description != nil {
				got = *item.Description
			}
			if got != want.Description {
				r.addError("%s: description: expected %q, got %q", lineLabel, want.Description, got)
			}
		}
		checkDecimal(r, lineLabel, "quantity", want.Quantity, item.Quantity)
		checkDecimal(r, lineLabel, "unit_cost", want.UnitCost, item.UnitCost)
		checkDecimal(r, lineLabel, "extended_cost", want.ExtendedCost, item.ExtendedCost)
		if want.Source != "" && want.Source != string(item.Source) {
			r.addError("%s: source: expected %s, got %s", lineLabel, want.Source, item.Source)
		}
	}
}

func checkDecimal(r *Result, label, field, want string, got decimal.Decimal) {
	if want == "" {
		return
	}
	w, err := decimal.NewFromString(want)
	if err != nil {
		r.addError("%s: %s: invalid expectation %q", label, field, want)
		return
	}
	if !w.Equal(got) {
		r.addError("%s: %s: expected %s, got %s", label, field, want, got)
	}
}

func lineByNo(items []domain.LineItem, n int) (domain.LineItem, bool) {
	for _, it := range items {
		if it.LineNo == n {
			return it, true
		}
	}
	return domain.LineItem{}, false
}
