package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/bg"
	"github.com/imrishuroy/fishly-storefront/internal/cart"
	"github.com/imrishuroy/fishly-storefront/internal/checkout"
	"github.com/imrishuroy/fishly-storefront/internal/session"
)

var ErrNotAuthorized = errors.New("checkout requires a verified session")

// Session is one browsing session: exactly one cart, shared by its cart and
// checkout views, plus the guard and gate in front of checkout.
type Session struct {
	id        string
	cart      *cart.Store
	guard     *session.Guard
	gate      *Gate
	cartView  *CartView
	lookup    checkout.AddressLookup
	submitter Submitter
	validate  *validatorv10.Validate
	logger    *zap.Logger

	mu       sync.Mutex
	checkout *CheckoutView

	lastUsed time.Time // guarded by Registry.mu
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Cart() *CartView        { return s.cartView }
func (s *Session) Guard() *session.Guard  { return s.guard }
func (s *Session) Gate() *Gate            { return s.gate }
func (s *Session) CartStore() *cart.Store { return s.cart }

// OpenCheckout returns the checkout view, creating it on first use after the gate
// authorized the session. Creating it consults the saved address.
func (s *Session) OpenCheckout(ctx context.Context) (*CheckoutView, error) {
	if s.gate.State() != Authorized {
		return nil, ErrNotAuthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout != nil {
		return s.checkout, nil
	}

	cred := s.guard.Credential(ctx)
	a := checkout.NewAssembler(s.cart, s.lookup, s.validate, s.logger)
	a.Enter(ctx, cred.SubjectID, cred.Token)
	s.checkout = newCheckoutView(a, s.cart, s.submitter, cred.SubjectID, s.logger)
	return s.checkout, nil
}

// Checkout returns the open checkout view, or ErrNotAuthorized when there is none.
func (s *Session) Checkout() (*CheckoutView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil || s.gate.State() != Authorized {
		return nil, ErrNotAuthorized
	}
	return s.checkout, nil
}

// LeaveCheckout goes back to the cart. The draft is dropped and a verification
// still in flight is ignored when it lands.
func (s *Session) LeaveCheckout() {
	s.gate.Leave()
	s.mu.Lock()
	s.checkout = nil
	s.mu.Unlock()
}

// Logout discards the credential and leaves checkout. The cart is kept.
func (s *Session) Logout(ctx context.Context) {
	s.guard.Discard(ctx)
	s.LeaveCheckout()
}

func (s *Session) close() {
	s.cartView.Close()
}

// Config carries the collaborators shared by every browsing session.
type Config struct {
	// Storage returns the credential storage bound to one browsing session.
	// Defaults to in-memory storage.
	Storage   func(sessionID string) session.Storage
	Verifier  session.Verifier
	Counter   session.Counter
	Lookup    checkout.AddressLookup
	Submitter Submitter
	Runner    bg.Runner
	Validate  *validatorv10.Validate
	Logger    *zap.Logger
	// IdleTTL evicts sessions not used for that long. Zero keeps them forever.
	IdleTTL time.Duration
}

// Registry maps browsing-session ids to their Session, created on first use.
type Registry struct {
	cfg     Config
	nowFunc func() time.Time

	mu        sync.Mutex
	sessions  map[string]*Session
	lastSweep time.Time
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Storage == nil {
		cfg.Storage = func(string) session.Storage { return &session.MemoryStorage{} }
	}
	if cfg.Validate == nil {
		cfg.Validate = checkout.NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg,
		nowFunc:  time.Now,
		sessions: map[string]*Session{},
	}
}

// Session returns the session for id, creating it with an empty cart if needed.
// Idle sessions are swept along the way.
func (r *Registry) Session(id string) *Session {
	now := r.nowFunc()

	r.mu.Lock()
	var evicted []*Session
	if r.cfg.IdleTTL > 0 && now.Sub(r.lastSweep) >= r.cfg.IdleTTL/2 {
		evicted = r.sweepLocked(now)
	}
	s := r.sessionLocked(id, now)
	r.mu.Unlock()

	r.closeAll(evicted)
	return s
}

// Sweep evicts every session idle for longer than IdleTTL and returns how many
// it removed. Sessions still verifying are kept.
func (r *Registry) Sweep() int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	evicted := r.sweepLocked(r.nowFunc())
	r.mu.Unlock()

	r.closeAll(evicted)
	return len(evicted)
}

func (r *Registry) sweepLocked(now time.Time) []*Session {
	r.lastSweep = now
	var evicted []*Session
	for id, s := range r.sessions {
		if now.Sub(s.lastUsed) <= r.cfg.IdleTTL || s.gate.State() == Verifying {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, s)
	}
	if len(evicted) > 0 {
		r.cfg.Logger.Debug("evicted idle browsing sessions", zap.Int("count", len(evicted)))
	}
	return evicted
}

func (r *Registry) closeAll(sessions []*Session) {
	for _, s := range sessions {
		s.LeaveCheckout()
		s.close()
	}
}

func (r *Registry) sessionLocked(id string, now time.Time) *Session {
	if s, ok := r.sessions[id]; ok {
		s.lastUsed = now
		return s
	}

	logger := r.cfg.Logger.With(zap.String("browsing_session", id))
	store := cart.NewStore()
	guard := session.NewGuard(r.cfg.Storage(id), r.cfg.Verifier, r.cfg.Counter, logger)
	gate := NewGate(guard, r.cfg.Runner, logger)
	s := &Session{
		id:        id,
		cart:      store,
		guard:     guard,
		gate:      gate,
		cartView:  NewCartView(store, gate),
		lookup:    r.cfg.Lookup,
		submitter: r.cfg.Submitter,
		validate:  r.cfg.Validate,
		logger:    logger,
		lastUsed:  now,
	}
	r.sessions[id] = s
	return s
}

// Drop forgets the session for id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
