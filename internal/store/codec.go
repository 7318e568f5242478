package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// such as a product SKU or item code already in use.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// nullDecimal converts an optional decimal to a TEXT column value.
func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// nullDate converts an optional date to a TEXT column value.
func nullDate(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// nullString converts an optional string to a TEXT column value.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func decimalPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	return domain.DecimalPtr(nd.Decimal)
}

func datePtr(ns sql.NullString) (*domain.Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := domain.ParseDate(ns.String)
	if err != nil {
		return nil, fmt.Errorf("scan date: %w", err)
	}
	return &d, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return domain.StringPtr(ns.String)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newID returns id, or a fresh UUIDv7 when id is empty.
func newID(id string) string {
	if id != "" {
		return id
	}
	return domain.UUIDv7Generator{}.Generate()
}
