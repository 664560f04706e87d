package storefront

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/bg"
	"github.com/imrishuroy/fishly-storefront/internal/session"
)

// GateState is where a browsing session stands on the way from cart to checkout.
type GateState int

const (
	Idle GateState = iota
	Verifying
	Authorized
	Rejected
)

func (s GateState) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authorized:
		return "authorized"
	case Rejected:
		return "rejected"
	default:
		return "idle"
	}
}

var (
	ErrVerificationInFlight  = errors.New("session verification already in flight")
	ErrVerificationAbandoned = errors.New("session verification abandoned")
)

// Authority is what the gate needs from session.Guard.
type Authority interface {
	IsAuthenticated(ctx context.Context) bool
	Verify(ctx context.Context) session.Outcome
}

// Gate is the cart-to-checkout transition. One "proceed" starts at most one
// verification; a second one while the first is pending is refused. Leave makes
// the pending result stale so it is dropped when it arrives.
type Gate struct {
	authority Authority
	runner    bg.Runner
	logger    *zap.Logger

	mu         sync.Mutex
	state      GateState
	generation uint64
	abandoned  chan struct{}
}

// NewGate returns an Idle gate. runner defaults to bg.Async.
func NewGate(a Authority, runner bg.Runner, logger *zap.Logger) *Gate {
	if runner == nil {
		runner = bg.Async{}
	}
	return &Gate{
		authority: a,
		runner:    runner,
		logger:    logger,
	}
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Proceed starts the verification for one "proceed to checkout" action. onDone is
// called once with Authorized or Rejected, unless Leave is called first.
func (g *Gate) Proceed(ctx context.Context, onDone func(GateState)) error {
	_, err := g.start(ctx, onDone)
	return err
}

// Await is Proceed for callers that block until the result, such as HTTP handlers.
func (g *Gate) Await(ctx context.Context) (GateState, error) {
	done := make(chan GateState, 1)
	abandoned, err := g.start(ctx, func(s GateState) { done <- s })
	if err != nil {
		return Verifying, err
	}
	select {
	case s := <-done:
		return s, nil
	case <-abandoned:
		return Idle, ErrVerificationAbandoned
	case <-ctx.Done():
		return Verifying, ctx.Err()
	}
}

// Leave returns the gate to Idle. A verification still in flight is discarded
// when it completes.
func (g *Gate) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generation++
	if g.state == Verifying && g.abandoned != nil {
		close(g.abandoned)
	}
	g.abandoned = nil
	g.state = Idle
}

func (g *Gate) start(ctx context.Context, onDone func(GateState)) (<-chan struct{}, error) {
	g.mu.Lock()
	if g.state == Verifying {
		g.mu.Unlock()
		return nil, ErrVerificationInFlight
	}
	g.generation++
	gen := g.generation
	abandoned := make(chan struct{})
	g.abandoned = abandoned
	g.state = Verifying
	g.mu.Unlock()

	// the result is not tied to the caller; staleness is handled by generation
	ctx = context.WithoutCancel(ctx)

	if !g.authority.IsAuthenticated(ctx) {
		// no local credential: the guard rejects without a remote call
		g.finish(gen, toState(g.authority.Verify(ctx)), onDone)
		return abandoned, nil
	}

	g.runner.Do(func() {
		g.finish(gen, toState(g.authority.Verify(ctx)), onDone)
	})
	return abandoned, nil
}

func (g *Gate) finish(gen uint64, state GateState, onDone func(GateState)) {
	g.mu.Lock()
	if gen != g.generation {
		g.mu.Unlock()
		g.logger.Debug("dropping stale verification result", zap.Stringer("state", state))
		return
	}
	g.state = state
	g.mu.Unlock()

	if onDone != nil {
		onDone(state)
	}
}

func toState(o session.Outcome) GateState {
	if o == session.Authorized {
		return Authorized
	}
	return Rejected
}
