package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/checkout"
	"github.com/imrishuroy/fishly-storefront/internal/orders"
	"github.com/imrishuroy/fishly-storefront/internal/session"
	"github.com/imrishuroy/fishly-storefront/internal/storefront"
	"github.com/imrishuroy/fishly-storefront/internal/validation"
)

type checkoutResponse struct {
	checkout.View
	Missing []string `json:"missing,omitempty"`
}

func renderCheckout(c *gin.Context, cv *storefront.CheckoutView) {
	c.JSON(http.StatusOK, checkoutResponse{View: cv.View(), Missing: cv.Missing()})
}

func (h *handler) establishSession(c *gin.Context) {
	var req validation.EstablishSessionRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}

	sess := h.session(c)
	// a new credential must be verified again before checkout
	sess.LeaveCheckout()
	if err := sess.Guard().Establish(c.Request.Context(), session.Credential{SubjectID: req.SubjectID, Token: req.Token}); err != nil {
		h.cfg.Logger.Error("establish session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_store_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) logout(c *gin.Context) {
	h.session(c).Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *handler) proceed(c *gin.Context) {
	ctx := c.Request.Context()
	sess := h.session(c)

	state, err := sess.Cart().ProceedToCheckout(ctx)
	switch {
	case errors.Is(err, storefront.ErrVerificationInFlight), errors.Is(err, storefront.ErrVerificationAbandoned):
		c.JSON(http.StatusConflict, gin.H{"error": "verification_in_flight", "state": state.String()})
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification_pending", "state": state.String()})
		return
	case err != nil:
		h.cfg.Logger.Error("proceed to checkout", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "proceed_failed"})
		return
	}

	if state != storefront.Authorized {
		c.JSON(http.StatusUnauthorized, gin.H{"route": "login"})
		return
	}

	cv, err := sess.OpenCheckout(ctx)
	if err != nil {
		// left or logged out between verification and here
		c.JSON(http.StatusUnauthorized, gin.H{"route": "login"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"route":    "checkout",
		"checkout": checkoutResponse{View: cv.View(), Missing: cv.Missing()},
	})
}

// checkoutView resolves the open checkout or writes 403 and returns nil.
func (h *handler) checkoutView(c *gin.Context) *storefront.CheckoutView {
	cv, err := h.session(c).Checkout()
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "checkout_not_authorized", "route": "cart"})
		return nil
	}
	return cv
}

func (h *handler) getCheckout(c *gin.Context) {
	if cv := h.checkoutView(c); cv != nil {
		renderCheckout(c, cv)
	}
}

func (h *handler) leaveCheckout(c *gin.Context) {
	h.session(c).LeaveCheckout()
	c.Status(http.StatusNoContent)
}

func (h *handler) setAddress(c *gin.Context) {
	cv := h.checkoutView(c)
	if cv == nil {
		return
	}
	var req validation.AddressRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}
	cv.SetAddress(checkout.Address{
		Street:   req.Street,
		Area:     req.Area,
		City:     req.City,
		Pincode:  req.Pincode,
		Landmark: req.Landmark,
	})
	renderCheckout(c, cv)
}

func (h *handler) setService(c *gin.Context) {
	cv := h.checkoutView(c)
	if cv == nil {
		return
	}
	var req validation.ServiceRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}
	opt, _ := checkout.ParseServiceOption(req.Service)
	cv.SelectService(opt)
	if opt == checkout.PreBooking {
		cv.SetSchedule(checkout.Schedule{Date: req.Date, Time: req.Time})
	}
	renderCheckout(c, cv)
}

func (h *handler) setPayment(c *gin.Context) {
	cv := h.checkoutView(c)
	if cv == nil {
		return
	}
	var req validation.PaymentRequest
	if err := validation.BindAndValidate(c, &req, h.cfg.Validator); err != nil {
		return
	}
	method, _ := checkout.ParsePaymentMethod(req.Method)
	cv.SelectPayment(method)
	renderCheckout(c, cv)
}

func (h *handler) submit(c *gin.Context) {
	cv := h.checkoutView(c)
	if cv == nil {
		return
	}

	// Require idempotency key header
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
		return
	}

	receipt, err := cv.Submit(c.Request.Context(), key)
	switch {
	case errors.Is(err, storefront.ErrNotReady):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "order_not_ready", "missing": cv.Missing()})
		return
	case errors.Is(err, orders.ErrEmptyOrder):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart_empty"})
		return
	case errors.Is(err, orders.ErrInvalidDraft):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "order_invalid", "detail": err.Error()})
		return
	case errors.Is(err, orders.ErrMissingKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_idempotency_key"})
		return
	case errors.Is(err, orders.ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": "submission_in_progress"})
		return
	case err != nil:
		h.cfg.Logger.Error("submit order", zap.String("idempotency_key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submit_failed"})
		return
	}

	if receipt.Replayed {
		c.JSON(http.StatusOK, receipt)
		return
	}
	c.Header("Location", fmt.Sprintf("/orders/%s", receipt.OrderID))
	c.JSON(http.StatusCreated, receipt)
}
