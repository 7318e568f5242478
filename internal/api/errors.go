package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/roach88/priceforge/internal/costing"
	"github.com/roach88/priceforge/internal/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func abort(c *gin.Context, status int, body errorBody) {
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// fail maps err to a status code and writes the error response.
// Calculation errors are the caller's problem (400); anything the caller
// cannot fix is logged and reported as 500 without detail.
func (h *handlers) fail(c *gin.Context, err error) {
	var ce *costing.CalcError
	switch {
	case errors.As(err, &ce) && ce.Code == costing.ErrCodeInternal:
		h.logger.Error("inconsistent catalog", "path", c.FullPath(), "error", err)
		abort(c, http.StatusInternalServerError, errorBody{Code: string(ce.Code), Message: ce.Message})
	case ce != nil:
		abort(c, http.StatusBadRequest, errorBody{Code: string(ce.Code), Message: ce.Message})
	case errors.Is(err, store.ErrNotFound):
		abort(c, http.StatusNotFound, errorBody{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, store.ErrDuplicate):
		abort(c, http.StatusConflict, errorBody{Code: "DUPLICATE", Message: err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		abort(c, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
	}
}

// badRequest reports a request body that failed to bind or validate.
func badRequest(c *gin.Context, err error) {
	body := errorBody{Code: string(costing.ErrCodeInvalidRequest), Message: "invalid request body"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Field()] = fe.Tag()
		}
	} else {
		body.Message = err.Error()
	}
	abort(c, http.StatusBadRequest, body)
}
