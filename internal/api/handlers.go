package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/roach88/priceforge/internal/domain"
	"github.com/roach88/priceforge/internal/pricing"
	"github.com/roach88/priceforge/internal/store"
)

type handlers struct {
	svc    *pricing.Service
	store  *store.Store
	logger *slog.Logger
}

type calculateRequest struct {
	ProductSKU   string           `json:"product_sku" binding:"required"`
	RequestedQty *decimal.Decimal `json:"requested_qty"`
	AsOf         string           `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
	Validate     bool             `json:"validate"`
}

func (h *handlers) calculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	preq := pricing.Request{
		SKU:      req.ProductSKU,
		Quantity: req.RequestedQty,
		Validate: req.Validate,
	}
	if req.AsOf != "" {
		asOf, err := domain.ParseDate(req.AsOf)
		if err != nil {
			badRequest(c, err)
			return
		}
		preq.AsOf = &asOf
	}

	run, err := h.svc.CalculateAndPersist(c.Request.Context(), preq)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *handlers) getRun(c *gin.Context) {
	run, err := h.svc.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *handlers) listRuns(c *gin.Context) {
	runs, err := h.svc.Runs(c.Request.Context(), c.Query("sku"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *handlers) validateRun(c *gin.Context) {
	run, err := h.svc.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *handlers) replayRun(c *gin.Context) {
	res, err := h.svc.Replay(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type productBody struct {
	ID               string           `json:"id"`
	SKU              string           `json:"sku" binding:"required,max=64"`
	Name             string           `json:"name" binding:"required"`
	Description      string           `json:"description"`
	Currency         string           `json:"currency" binding:"omitempty,len=3,uppercase"`
	DefaultMarkupPct *decimal.Decimal `json:"default_markup_pct"`
	IsSellable       *bool            `json:"is_sellable"`
}

func toProductBody(p domain.Product) productBody {
	sellable := p.IsSellable
	return productBody{
		ID:               p.ID,
		SKU:              p.SKU,
		Name:             p.Name,
		Description:      p.Description,
		Currency:         p.Currency,
		DefaultMarkupPct: p.DefaultMarkupPct,
		IsSellable:       &sellable,
	}
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]productBody, len(products))
	for i, p := range products {
		out[i] = toProductBody(p)
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) createProduct(c *gin.Context) {
	var req productBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.DefaultMarkupPct != nil && req.DefaultMarkupPct.IsNegative() {
		abort(c, http.StatusBadRequest, errorBody{Code: "INVALID_REQUEST", Message: "default_markup_pct must be >= 0"})
		return
	}

	p := domain.Product{
		SKU:              req.SKU,
		Name:             req.Name,
		Description:      req.Description,
		Currency:         req.Currency,
		DefaultMarkupPct: req.DefaultMarkupPct,
		IsSellable:       req.IsSellable == nil || *req.IsSellable,
	}
	created, err := h.store.CreateProduct(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("product created", "id", created.ID, "sku", created.SKU)
	c.JSON(http.StatusCreated, toProductBody(created))
}
