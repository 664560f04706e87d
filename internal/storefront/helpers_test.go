package storefront

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/fishly-storefront/internal/cart"
	"github.com/imrishuroy/fishly-storefront/internal/checkout"
	"github.com/imrishuroy/fishly-storefront/internal/orders"
	"github.com/imrishuroy/fishly-storefront/internal/session"
)

// blockingVerifier holds each verification until release is closed.
type blockingVerifier struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan struct{}
	release chan struct{}
}

func newBlockingVerifier(err error) *blockingVerifier {
	return &blockingVerifier{
		err:     err,
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (v *blockingVerifier) Verify(ctx context.Context, c session.Credential) error {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	v.started <- struct{}{}
	<-v.release
	return v.err
}

func (v *blockingVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type stubVerifier struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (v *stubVerifier) Verify(ctx context.Context, c session.Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.err
}

func (v *stubVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type stubLookup struct {
	addr *checkout.Address
	err  error
}

func (l stubLookup) Lookup(ctx context.Context, subjectID, token string) (*checkout.Address, error) {
	return l.addr, l.err
}

type recordingSubmitter struct {
	mu        sync.Mutex
	err       error
	subjectID string
	keys      []string
	drafts    []checkout.OrderDraft
}

func (s *recordingSubmitter) Submit(ctx context.Context, key, subjectID string, d checkout.OrderDraft) (*orders.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.keys = append(s.keys, key)
	s.subjectID = subjectID
	s.drafts = append(s.drafts, d)
	return &orders.Receipt{
		OrderID: "order-" + key,
		Status:  orders.StatusReceived,
		Total:   d.Total.StringFixed(2),
	}, nil
}

func catla() cart.LineItem {
	return cart.LineItem{ID: "1", Name: "CATLA", UnitPrice: decimal.RequireFromString("10.00"), Packaging: "500g"}
}

func rohu() cart.LineItem {
	return cart.LineItem{ID: "3", Name: "ROHU", UnitPrice: decimal.RequireFromString("15.00"), Packaging: "500g"}
}

func savedAddress() *checkout.Address {
	return &checkout.Address{Street: "12 Bay Rd", Area: "Harbor", City: "Porttown", Pincode: "500001"}
}
