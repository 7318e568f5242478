// Package pricing runs price calculations against the store.
//
// Each call opens exactly one store transaction. A calculation reads its
// whole catalog snapshot and writes its run inside that transaction, and
// commits only if both succeed, so a failed calculation never leaves a
// partial run behind.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/costing"
	"github.com/roach88/priceforge/internal/domain"
	"github.com/roach88/priceforge/internal/store"
)

// Request is a calculation request as received from a caller.
// Nil Quantity defaults to 1; nil AsOf defaults to the service clock's today.
type Request struct {
	SKU      string
	Quantity *decimal.Decimal
	AsOf     *domain.Date
	Validate bool
}

// Options configures a Service.
type Options struct {
	// MaxDepth bounds BOM nesting. Zero selects costing.DefaultMaxDepth.
	MaxDepth int

	// IDs generates run identifiers. Nil selects UUIDv7.
	IDs domain.IDGenerator

	// Clock supplies the default as-of date. Nil selects SystemClock.
	Clock Clock

	// Logger receives service and engine logs. Nil discards them.
	Logger *slog.Logger
}

// Service calculates, persists, validates and replays price runs.
type Service struct {
	store  *store.Store
	calc   *costing.Calculator
	clock  Clock
	logger *slog.Logger
}

// NewService creates a service over st.
func NewService(st *store.Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store: st,
		calc: costing.NewCalculator(costing.Options{
			MaxDepth: opts.MaxDepth,
			IDs:      opts.IDs,
			Logger:   opts.Logger,
		}),
		clock:  opts.Clock,
		logger: opts.Logger,
	}
}

func (s *Service) normalize(req Request) costing.Request {
	out := costing.Request{
		SKU:      req.SKU,
		Quantity: decimal.NewFromInt(1),
		AsOf:     s.clock.Today(),
		Validate: req.Validate,
	}
	if req.Quantity != nil {
		out.Quantity = *req.Quantity
	}
	if req.AsOf != nil {
		out.AsOf = *req.AsOf
	}
	return out
}

// CalculateAndPersist prices a product and stores the run with its line
// items. It returns the stored run, including items.
//
// Calculation failures are returned as *costing.CalcError; nothing is
// written in that case.
func (s *Service) CalculateAndPersist(ctx context.Context, req Request) (domain.Run, error) {
	creq := s.normalize(req)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Run{}, err
	}
	defer tx.Rollback()

	run, err := s.calc.Calculate(ctx, tx, creq)
	if err != nil {
		s.logFailure(creq, err)
		return domain.Run{}, err
	}

	run, err = tx.SaveRun(ctx, run)
	if err != nil {
		s.logFailure(creq, err)
		return domain.Run{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logFailure(creq, err)
		return domain.Run{}, err
	}

	s.logger.Info("calculation completed",
		"run_id", run.ID,
		"sku", run.ProductSKU,
		"as_of", run.AsOf.String(),
		"qty", run.RequestedQty.String(),
		"price", run.Price.String(),
		"currency", run.Currency,
		"lines", len(run.Items),
	)
	return run, nil
}

func (s *Service) logFailure(req costing.Request, err error) {
	if code := costing.CodeOf(err); code != "" {
		s.logger.Warn("calculation failed",
			"sku", req.SKU,
			"as_of", req.AsOf.String(),
			"code", string(code),
			"error", err,
		)
		return
	}
	s.logger.Error("calculation failed",
		"sku", req.SKU,
		"as_of", req.AsOf.String(),
		"error", err,
	)
}

// Run returns a stored run with its items.
// Returns an error wrapping store.ErrNotFound for unknown IDs.
func (s *Service) Run(ctx context.Context, runID string) (domain.Run, error) {
	return s.store.ReadRun(ctx, runID)
}

// Runs lists stored run headers, optionally filtered by SKU.
func (s *Service) Runs(ctx context.Context, sku string) ([]domain.Run, error) {
	return s.store.ListRuns(ctx, sku)
}

// Validate marks a run as validated and returns it.
// Validating an already validated run is a no-op.
func (s *Service) Validate(ctx context.Context, runID string) (domain.Run, error) {
	if err := s.store.SetValidated(ctx, runID, true); err != nil {
		return domain.Run{}, err
	}
	s.logger.Info("run validated", "run_id", runID)
	return s.store.ReadRun(ctx, runID)
}

// ReplayResult compares a stored run with a fresh recomputation.
type ReplayResult struct {
	RunID        string `json:"run_id"`
	SKU          string `json:"product_sku"`
	AsOf         string `json:"as_of"`
	StoredHash   string `json:"stored_hash"`
	ComputedHash string `json:"computed_hash,omitempty"`
	Match        bool   `json:"match"`

	// Error is set when the recomputation itself failed, for example
	// because a cost the run used no longer resolves.
	Error string `json:"error,omitempty"`
}

// Replay recomputes runID from its recorded inputs (SKU, quantity, as-of)
// against the current catalog and reports whether the snapshot hash is
// unchanged. Nothing is written.
//
// A calculation failure during recomputation is reported in the result,
// not as an error; the returned error is reserved for store failures and
// unknown run IDs.
func (s *Service) Replay(ctx context.Context, runID string) (ReplayResult, error) {
	stored, err := s.store.ReadRun(ctx, runID)
	if err != nil {
		return ReplayResult{}, err
	}
	return s.replay(ctx, stored)
}

// ReplayAll replays every stored run (optionally filtered by SKU) in
// insertion order.
func (s *Service) ReplayAll(ctx context.Context, sku string) ([]ReplayResult, error) {
	runs, err := s.store.ListRuns(ctx, sku)
	if err != nil {
		return nil, err
	}
	results := make([]ReplayResult, 0, len(runs))
	for _, run := range runs {
		res, err := s.replay(ctx, run)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) replay(ctx context.Context, stored domain.Run) (ReplayResult, error) {
	res := ReplayResult{
		RunID:      stored.ID,
		SKU:        stored.ProductSKU,
		AsOf:       stored.AsOf.String(),
		StoredHash: stored.SnapshotHash,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ReplayResult{}, err
	}
	defer tx.Rollback()

	run, err := s.calc.Calculate(ctx, tx, costing.Request{
		SKU:      stored.ProductSKU,
		Quantity: stored.RequestedQty,
		AsOf:     stored.AsOf,
	})
	if err != nil {
		var ce *costing.CalcError
		if !errors.As(err, &ce) {
			return ReplayResult{}, fmt.Errorf("replay %s: %w", stored.ID, err)
		}
		res.Error = ce.Error()
		s.logger.Warn("replay failed", "run_id", stored.ID, "code", string(ce.Code))
		return res, nil
	}

	res.ComputedHash = run.SnapshotHash
	res.Match = run.SnapshotHash == stored.SnapshotHash
	if !res.Match {
		s.logger.Warn("replay drift", "run_id", stored.ID, "stored", stored.SnapshotHash, "computed", run.SnapshotHash)
	}
	return res, nil
}
