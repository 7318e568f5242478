package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/priceforge/internal/domain"
)

// SaveRun inserts a run header and all its line items.
//
// Runs are append-only. SaveRun is meant to be called on the Tx that read
// the catalog for the calculation, so a failed insert leaves nothing behind
// once the Tx is rolled back.
func (q *queries) SaveRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO price_runs (
			id, product_id, product_sku, bom_id, bom_version, requested_qty, as_of, markup_pct,
			total_material, total_operation, total_other, total_cost, price, currency,
			validated, mixed_currency, snapshot, snapshot_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.ProductID,
		run.ProductSKU,
		run.BOMID,
		run.BOMVersion,
		run.RequestedQty.String(),
		run.AsOf.String(),
		run.MarkupPct.String(),
		run.TotalMaterial.String(),
		run.TotalOperation.String(),
		run.TotalOther.String(),
		run.TotalCost.String(),
		run.Price.String(),
		run.Currency,
		boolInt(run.Validated),
		boolInt(run.MixedCurrency),
		string(run.Snapshot),
		run.SnapshotHash,
	)
	if isUniqueViolation(err) {
		return domain.Run{}, fmt.Errorf("save run %s: %w", run.ID, ErrDuplicate)
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	if run.Seq, err = res.LastInsertId(); err != nil {
		return domain.Run{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	for _, it := range run.Items {
		_, err := q.q.ExecContext(ctx, `
			INSERT INTO price_run_items (
				run_id, line_no, kind, ref_id, description, uom,
				quantity, unit_cost, extended_cost, source, currency
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			it.LineNo,
			string(it.Kind),
			it.RefID,
			nullString(it.Description),
			nullString(it.UOM),
			it.Quantity.String(),
			it.UnitCost.String(),
			it.ExtendedCost.String(),
			string(it.Source),
			it.Currency,
		)
		if err != nil {
			return domain.Run{}, fmt.Errorf("save run %s line %d: %w", run.ID, it.LineNo, err)
		}
	}
	return run, nil
}

const runColumns = `
	seq, id, product_id, product_sku, bom_id, bom_version, requested_qty, as_of, markup_pct,
	total_material, total_operation, total_other, total_cost, price, currency,
	validated, mixed_currency, snapshot, snapshot_hash`

func scanRun(row rowScanner) (domain.Run, error) {
	var (
		r         domain.Run
		validated int
		mixed     int
		snapshot  string
	)
	err := row.Scan(
		&r.Seq, &r.ID, &r.ProductID, &r.ProductSKU, &r.BOMID, &r.BOMVersion,
		&r.RequestedQty, &r.AsOf, &r.MarkupPct,
		&r.TotalMaterial, &r.TotalOperation, &r.TotalOther, &r.TotalCost, &r.Price, &r.Currency,
		&validated, &mixed, &snapshot, &r.SnapshotHash,
	)
	if err != nil {
		return domain.Run{}, err
	}
	r.Validated = validated != 0
	r.MixedCurrency = mixed != 0
	r.Snapshot = []byte(snapshot)
	return r, nil
}

// ReadRun returns a run with its line items in line order.
// Returns ErrNotFound if no run has the given ID.
func (q *queries) ReadRun(ctx context.Context, id string) (domain.Run, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM price_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.Items, err = q.readRunItems(ctx, id); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (q *queries) readRunItems(ctx context.Context, runID string) ([]domain.LineItem, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT line_no, kind, ref_id, description, uom, quantity, unit_cost, extended_cost, source, currency
		FROM price_run_items
		WHERE run_id = ?
		ORDER BY line_no ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var (
			it          domain.LineItem
			description sql.NullString
			uom         sql.NullString
		)
		if err := rows.Scan(&it.LineNo, &it.Kind, &it.RefID, &description, &uom,
			&it.Quantity, &it.UnitCost, &it.ExtendedCost, &it.Source, &it.Currency); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		it.Description = stringPtr(description)
		it.UOM = stringPtr(uom)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run items: %w", err)
	}
	return items, nil
}

// ListRuns returns run headers (without items) in insertion order.
// An empty sku lists every run.
func (q *queries) ListRuns(ctx context.Context, sku string) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM price_runs`
	var args []any
	if sku != "" {
		query += ` WHERE product_sku = ?`
		args = append(args, sku)
	}
	query += ` ORDER BY seq ASC`

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// SetValidated marks a run as validated (or not). It is the only mutation
// a run ever receives. Returns ErrNotFound if no run has the given ID.
func (q *queries) SetValidated(ctx context.Context, id string, validated bool) error {
	res, err := q.q.ExecContext(ctx, `UPDATE price_runs SET validated = ? WHERE id = ?`, boolInt(validated), id)
	if err != nil {
		return fmt.Errorf("set validated %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set validated %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set validated %s: %w", id, ErrNotFound)
	}
	return nil
}
