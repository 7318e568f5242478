package costing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes calculation failures.
type ErrorCode string

const (
	// ErrCodeProductNotFound indicates no product has the requested SKU.
	ErrCodeProductNotFound ErrorCode = "PRODUCT_NOT_FOUND"

	// ErrCodeBOMNotFound indicates a product has no active or valid BOM.
	ErrCodeBOMNotFound ErrorCode = "BOM_NOT_FOUND"

	// ErrCodeUnsupportedKind indicates a BOM line of unknown kind.
	ErrCodeUnsupportedKind ErrorCode = "UNSUPPORTED_COMPONENT_KIND"

	// ErrCodeCostNotFound indicates no price-list entry is valid for a line.
	ErrCodeCostNotFound ErrorCode = "COST_NOT_FOUND"

	// ErrCodeCyclicBOM indicates a product reappears in its own expansion.
	ErrCodeCyclicBOM ErrorCode = "CYCLIC_BOM"

	// ErrCodeMaxDepth indicates BOM nesting exceeded the configured limit.
	ErrCodeMaxDepth ErrorCode = "MAX_DEPTH_EXCEEDED"

	// ErrCodeInvalidRequest indicates malformed calculation input.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeInternal indicates the engine observed inconsistent data
	// between two reads of the same transaction.
	ErrCodeInternal ErrorCode = "INTERNAL_CONSISTENCY"
)

// CalcError is a user-facing calculation failure.
//
// All codes are data-integrity problems; none of them is worth retrying.
// Store failures are returned as plain wrapped errors instead.
type CalcError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable reason naming the offending entity.
	Message string

	// Product is the SKU (or ID) of the product being expanded, if any.
	Product string

	// Ref names the material/operation/product reference, if any.
	Ref string

	// AsOf is the as-of date of the calculation, if known.
	AsOf string

	// Chain lists the product expansion path for cycle errors.
	Chain []string
}

// Error implements the error interface.
func (e *CalcError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCalcError reports whether err (or anything it wraps) is a CalcError.
func IsCalcError(err error) bool {
	var ce *CalcError
	return errors.As(err, &ce)
}

// CodeOf returns the CalcError code of err, or "" if err is not one.
func CodeOf(err error) ErrorCode {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCycleError reports whether err is a CYCLIC_BOM error.
func IsCycleError(err error) bool {
	return CodeOf(err) == ErrCodeCyclicBOM
}

func newProductNotFound(sku string) *CalcError {
	return &CalcError{
		Code:    ErrCodeProductNotFound,
		Message: fmt.Sprintf("product with SKU %q not found", sku),
		Product: sku,
	}
}

func newBOMNotFound(product, asOf string) *CalcError {
	return &CalcError{
		Code:    ErrCodeBOMNotFound,
		Message: fmt.Sprintf("no active or valid BOM for product %s as of %s", product, asOf),
		Product: product,
		AsOf:    asOf,
	}
}

func newUnsupportedKind(product string, lineNo int, kind string) *CalcError {
	return &CalcError{
		Code:    ErrCodeUnsupportedKind,
		Message: fmt.Sprintf("unsupported component kind %q on line %d of product %s", kind, lineNo, product),
		Product: product,
		Ref:     kind,
	}
}

func newCostNotFound(kind, ref, asOf string) *CalcError {
	return &CalcError{
		Code:    ErrCodeCostNotFound,
		Message: fmt.Sprintf("no valid cost for %s %s as of %s", kind, ref, asOf),
		Ref:     ref,
		AsOf:    asOf,
	}
}

func newCyclicBOM(chain []string) *CalcError {
	return &CalcError{
		Code:    ErrCodeCyclicBOM,
		Message: fmt.Sprintf("BOM cycle detected: %s", strings.Join(chain, " -> ")),
		Product: chain[0],
		Chain:   chain,
	}
}

func newMaxDepth(product string, maxDepth int) *CalcError {
	return &CalcError{
		Code:    ErrCodeMaxDepth,
		Message: fmt.Sprintf("BOM nesting for product %s exceeds max depth %d", product, maxDepth),
		Product: product,
	}
}

func newInvalidRequest(format string, args ...any) *CalcError {
	return &CalcError{
		Code:    ErrCodeInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}
