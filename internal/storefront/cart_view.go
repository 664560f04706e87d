package storefront

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/fishly-storefront/internal/cart"
)

// Line is a cart line as the cart screen shows it.
type Line struct {
	cart.LineItem
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the cart screen of one browsing session. It is the only writer of
// the session's cart apart from the checkout clearing it after submission.
type CartView struct {
	store *cart.Store
	gate  *Gate

	mu sync.Mutex // serializes read-modify-write steps

	badgeMu      sync.Mutex
	badge        int
	badgeVersion uint64
	unsubscribe  func()
}

// NewCartView subscribes the badge to store.
func NewCartView(store *cart.Store, gate *Gate) *CartView {
	v := &CartView{store: store, gate: gate}
	v.unsubscribe = store.Subscribe(v.onChange)
	v.onChange(store.Snapshot())
	return v
}

func (v *CartView) onChange(s cart.Snapshot) {
	count, _ := s.Totals()
	v.badgeMu.Lock()
	defer v.badgeMu.Unlock()
	if s.Version < v.badgeVersion {
		return
	}
	v.badge = count
	v.badgeVersion = s.Version
}

// Add puts one more of item in the cart.
func (v *CartView) Add(item cart.LineItem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.store.AddOrIncrement(item)
}

// Increment bumps the count of a line already in the cart. Reports false when
// id is not in the cart.
func (v *CartView) Increment(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, it := range v.store.Items() {
		if it.ID == id {
			v.store.AddOrIncrement(it)
			return true
		}
	}
	return false
}

// Decrement lowers the count of id by one, never below 1.
func (v *CartView) Decrement(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := v.store.Count(id)
	if n == 0 {
		return false
	}
	v.store.SetCount(id, n-1)
	return true
}

func (v *CartView) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.store.Remove(id)
}

// Lines returns the cart lines in cart order with their line totals.
func (v *CartView) Lines() []Line {
	items := v.store.Items()
	out := make([]Line, len(items))
	for i, it := range items {
		out[i] = Line{LineItem: it, LineTotal: it.LineTotal()}
	}
	return out
}

func (v *CartView) Totals() (int, decimal.Decimal) {
	return v.store.Totals()
}

// BadgeCount is the item count shown on the cart icon.
func (v *CartView) BadgeCount() int {
	v.badgeMu.Lock()
	defer v.badgeMu.Unlock()
	return v.badge
}

// ProceedToCheckout runs the checkout gate and waits for its outcome.
func (v *CartView) ProceedToCheckout(ctx context.Context) (GateState, error) {
	return v.gate.Await(ctx)
}

// Close stops following the cart.
func (v *CartView) Close() {
	v.unsubscribe()
}
