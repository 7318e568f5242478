package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Tx is a store transaction. It exposes the same reads and writes as Store
// and satisfies costing.Source, so a calculation can read its whole catalog
// snapshot and write its run without leaving the transaction.
type Tx struct {
	*queries
	tx   *sql.Tx
	done bool
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	t.done = true
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit, so it can
// always be deferred.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
