package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/catalog"
	"github.com/imrishuroy/fishly-storefront/internal/middleware"
	"github.com/imrishuroy/fishly-storefront/internal/orders"
	"github.com/imrishuroy/fishly-storefront/internal/storefront"
)

// OrderReader reads placed orders. *orders.Submitter satisfies it.
type OrderReader interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
}

// HandlerConfig groups dependencies for the storefront handlers.
type HandlerConfig struct {
	Registry  *storefront.Registry
	Catalog   *catalog.Catalog
	Orders    OrderReader
	Validator *validatorv10.Validate
	Logger    *zap.Logger
}

type handler struct {
	cfg HandlerConfig
}

// RegisterRoutes registers the cart, session, checkout and order routes. r must
// run middleware.BrowsingSession.
func RegisterRoutes(r gin.IRouter, cfg HandlerConfig) {
	h := &handler{cfg: cfg}

	r.GET("/products", h.listProducts)

	r.GET("/cart", h.getCart)
	r.POST("/cart/items", h.addItem)
	r.POST("/cart/items/:id/increment", h.incrementItem)
	r.POST("/cart/items/:id/decrement", h.decrementItem)
	r.DELETE("/cart/items/:id", h.removeItem)

	r.POST("/session", h.establishSession)
	r.DELETE("/session", h.logout)

	r.POST("/checkout/proceed", h.proceed)
	r.GET("/checkout", h.getCheckout)
	r.DELETE("/checkout", h.leaveCheckout)
	r.PUT("/checkout/address", h.setAddress)
	r.PUT("/checkout/service", h.setService)
	r.PUT("/checkout/payment", h.setPayment)
	r.POST("/checkout/submit", h.submit)

	r.GET("/orders/:id", h.getOrder)
}

func (h *handler) session(c *gin.Context) *storefront.Session {
	return h.cfg.Registry.Session(middleware.BrowsingSessionID(c))
}

func (h *handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.cfg.Catalog.Products()})
}

func (h *handler) getOrder(c *gin.Context) {
	ctx := c.Request.Context()
	sess := h.session(c)

	order, err := h.cfg.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		h.cfg.Logger.Error("get order", zap.String("order_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed"})
		return
	}
	// orders of other shoppers look the same as missing ones
	if order == nil || order.SubjectID != sess.Guard().SubjectID(ctx) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":    order,
		"tracking": orders.Tracker(order.Status),
	})
}
