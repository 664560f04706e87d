package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/fishly-storefront/internal/storefront"
	"github.com/imrishuroy/fishly-storefront/internal/validation"
)

type cartResponse struct {
	Lines      []storefront.Line `json:"lines"`
	TotalCount int               `json:"total_count"`
	Total      string            `json:"total"`
	Badge      int               `json:"badge"`
}

func renderCart(c *gin.Context, status int, v *storefront.CartView) {
	count, total := v.Totals()
	c.JSON(status, cartResponse{
		Lines:      v.Lines(),
		TotalCount: count,
		Total:      total.StringFixed(2),
		Badge:      v.BadgeCount(),
	})
}

func (h *handler) getCart(c *gin.Context) {
	renderCart(c, http.StatusOK, h.session(c).Cart())
}

func (h *handler) addItem(c *gin.Context) {
	var req validation.AddItemRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}

	p, err := h.cfg.Catalog.Lookup(req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_product", "product_id": req.ProductID})
		return
	}

	view := h.session(c).Cart()
	view.Add(p.LineItem())
	renderCart(c, http.StatusCreated, view)
}

func (h *handler) incrementItem(c *gin.Context) {
	view := h.session(c).Cart()
	if !view.Increment(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_in_cart"})
		return
	}
	renderCart(c, http.StatusOK, view)
}

func (h *handler) decrementItem(c *gin.Context) {
	view := h.session(c).Cart()
	if !view.Decrement(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_in_cart"})
		return
	}
	renderCart(c, http.StatusOK, view)
}

func (h *handler) removeItem(c *gin.Context) {
	view := h.session(c).Cart()
	view.Remove(c.Param("id"))
	renderCart(c, http.StatusOK, view)
}
