package storefront

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/cart"
	"github.com/imrishuroy/fishly-storefront/internal/checkout"
	"github.com/imrishuroy/fishly-storefront/internal/orders"
)

var ErrNotReady = errors.New("order draft is not ready")

// Submitter persists a ready draft. *orders.Submitter satisfies it.
type Submitter interface {
	Submit(ctx context.Context, key, subjectID string, draft checkout.OrderDraft) (*orders.Receipt, error)
}

// CheckoutView is the checkout screen of an authorized browsing session.
type CheckoutView struct {
	assembler *checkout.Assembler
	cart      *cart.Store
	submitter Submitter
	subjectID string
	logger    *zap.Logger

	submitMu sync.Mutex
}

func newCheckoutView(a *checkout.Assembler, c *cart.Store, s Submitter, subjectID string, logger *zap.Logger) *CheckoutView {
	return &CheckoutView{
		assembler: a,
		cart:      c,
		submitter: s,
		subjectID: subjectID,
		logger:    logger,
	}
}

func (v *CheckoutView) SubjectID() string { return v.subjectID }

func (v *CheckoutView) SetAddress(a checkout.Address) { v.assembler.SetAddress(a) }

func (v *CheckoutView) SelectService(s checkout.ServiceOption) { v.assembler.SelectService(s) }

func (v *CheckoutView) SetSchedule(s checkout.Schedule) { v.assembler.SetSchedule(s) }

func (v *CheckoutView) SelectPayment(p checkout.PaymentMethod) { v.assembler.SelectPayment(p) }

func (v *CheckoutView) Ready() bool { return v.assembler.Ready() }

func (v *CheckoutView) Missing() []string { return v.assembler.Missing() }

func (v *CheckoutView) View() checkout.View { return v.assembler.View() }

// Submit hands the ready draft to the submitter under key and empties the cart
// once the order is accepted.
func (v *CheckoutView) Submit(ctx context.Context, key string) (*orders.Receipt, error) {
	v.submitMu.Lock()
	defer v.submitMu.Unlock()

	if !v.assembler.Ready() {
		return nil, ErrNotReady
	}
	draft := v.assembler.Draft()

	receipt, err := v.submitter.Submit(ctx, key, v.subjectID, draft)
	if err != nil {
		return nil, err
	}
	v.cart.Clear()

	v.logger.Info("checkout submitted",
		zap.String("subject_id", v.subjectID),
		zap.String("order_id", receipt.OrderID),
		zap.Bool("replayed", receipt.Replayed))
	return receipt, nil
}
