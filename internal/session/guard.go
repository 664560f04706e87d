package session

import (
	"context"

	"go.uber.org/zap"
)

// Outcome is the single result of a verification: the caller either proceeds to
// checkout or goes back to login.
type Outcome int

const (
	Rejected Outcome = iota
	Authorized
)

func (o Outcome) String() string {
	if o == Authorized {
		return "authorized"
	}
	return "rejected"
}

// Counter names reported by the guard.
const (
	MetricVerified = "SessionVerified"
	MetricRejected = "SessionRejected"
)

// Counter records funnel events. *aws.Metrics satisfies it.
type Counter interface {
	Count(ctx context.Context, name string) error
}

// Guard owns the persisted credential of one browsing session and gates checkout
// on it. No other component reads or writes the underlying Storage.
type Guard struct {
	storage  Storage
	verifier Verifier
	counter  Counter
	logger   *zap.Logger
}

// NewGuard wires a guard. counter may be nil.
func NewGuard(storage Storage, verifier Verifier, counter Counter, logger *zap.Logger) *Guard {
	return &Guard{
		storage:  storage,
		verifier: verifier,
		counter:  counter,
		logger:   logger,
	}
}

// Establish stores a credential issued by the login collaborator.
func (g *Guard) Establish(ctx context.Context, c Credential) error {
	return g.storage.Save(ctx, c)
}

// Credential returns the stored credential, zero when absent or unreadable.
func (g *Guard) Credential(ctx context.Context) Credential {
	c, err := g.storage.Load(ctx)
	if err != nil {
		g.logger.Warn("load session credential", zap.Error(err))
		return Credential{}
	}
	return c
}

func (g *Guard) SubjectID(ctx context.Context) string {
	return g.Credential(ctx).SubjectID
}

// IsAuthenticated is the cheap local pre-filter: both subject id and token are
// present in the persisted session state. It is not sufficient for checkout.
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	return g.Credential(ctx).Present()
}

// Verify asks the remote authority to confirm the stored credential. Every kind of
// failure, including a missing local credential, a rejection and a transport
// error, ends the same way: the verified credential is discarded and Rejected is
// returned. A credential saved in the meantime is kept. There is no retry.
func (g *Guard) Verify(ctx context.Context) Outcome {
	cred := g.Credential(ctx)
	if !cred.Present() {
		g.reject(ctx, cred, "no local credential")
		return Rejected
	}

	if err := g.verifier.Verify(ctx, cred); err != nil {
		g.logger.Warn("session verification failed",
			zap.String("subject_id", cred.SubjectID),
			zap.Error(err))
		g.reject(ctx, cred, "verification failed")
		return Rejected
	}

	g.logger.Debug("session verified", zap.String("subject_id", cred.SubjectID))
	g.count(ctx, MetricVerified)
	return Authorized
}

// Discard removes the credential, e.g. on explicit logout.
func (g *Guard) Discard(ctx context.Context) {
	g.clear(ctx, "logout")
}

// reject drops cred unless a different credential was established while it was
// being verified.
func (g *Guard) reject(ctx context.Context, cred Credential, reason string) {
	cleared, err := g.storage.ClearIf(context.WithoutCancel(ctx), cred)
	switch {
	case err != nil:
		g.logger.Error("clear session credential", zap.String("reason", reason), zap.Error(err))
	case !cleared:
		g.logger.Debug("credential replaced during verification, keeping it", zap.String("reason", reason))
	}
	g.count(ctx, MetricRejected)
}

func (g *Guard) clear(ctx context.Context, reason string) {
	// clearing must happen even when the caller's context is already done
	if err := g.storage.Clear(context.WithoutCancel(ctx)); err != nil {
		g.logger.Error("clear session credential", zap.String("reason", reason), zap.Error(err))
	}
}

func (g *Guard) count(ctx context.Context, name string) {
	if g.counter == nil {
		return
	}
	if err := g.counter.Count(context.WithoutCancel(ctx), name); err != nil {
		g.logger.Debug("emit metric", zap.String("metric", name), zap.Error(err))
	}
}
