package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/fishly-storefront/internal/checkout"
	"github.com/imrishuroy/fishly-storefront/internal/idempotency"
)

var (
	ErrMissingKey          = errors.New("idempotency key required")
	ErrEmptyOrder          = errors.New("order has no items")
	ErrInvalidDraft        = errors.New("order draft failed validation")
	ErrDuplicateSubmission = errors.New("submission already in progress for this key")
)

// Counter names reported by the submitter.
const (
	MetricOrderPlaced  = "OrderPlaced"
	MetricOrderReplay  = "OrderReplayed"
	MetricSubmitFailed = "OrderSubmitFailed"
)

// Publisher sends the order-placed message. *aws.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, payload interface{}, attributes map[string]string) error
}

// Counter records funnel events. *aws.Metrics satisfies it.
type Counter interface {
	Count(ctx context.Context, name string) error
}

// Submitter is the order-persistence collaborator: it accepts a ready draft and
// turns it into exactly one order per idempotency key.
type Submitter struct {
	orders      *Store
	idempotency *idempotency.Store
	publisher   Publisher
	counter     Counter
	validate    *validatorv10.Validate
	logger      *zap.Logger
	newID       func() string
	nowFunc     func() time.Time
}

// NewSubmitter wires the submitter. counter may be nil.
func NewSubmitter(orders *Store, idem *idempotency.Store, pub Publisher, counter Counter, v *validatorv10.Validate, logger *zap.Logger) *Submitter {
	return &Submitter{
		orders:      orders,
		idempotency: idem,
		publisher:   pub,
		counter:     counter,
		validate:    v,
		logger:      logger,
		newID:       uuid.NewString,
		nowFunc:     time.Now,
	}
}

// Submit places the order for draft under key. A key that already produced an
// order returns that order's receipt with Replayed set.
func (s *Submitter) Submit(ctx context.Context, key, subjectID string, draft checkout.OrderDraft) (*Receipt, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrMissingKey
	}

	// a used key answers with its first outcome, whatever the cart holds now
	rec, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read idempotency record: %w", err)
	}
	if rec != nil {
		return s.replay(ctx, rec, subjectID)
	}

	if len(draft.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if err := s.validate.Struct(draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	now := s.nowFunc()
	order := NewOrder(s.newID(), subjectID, key, draft, now)

	claim, err := s.idempotency.ClaimItem(key, order.OrderID, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.CreateWithIdempotency(ctx, claim, order); err != nil {
		if !errors.Is(err, ErrConditionFailed) {
			return nil, fmt.Errorf("create order: %w", err)
		}
		// lost the race for this key to a concurrent submission
		rec, gerr := s.idempotency.Get(ctx, key)
		if gerr != nil || rec == nil {
			return nil, ErrDuplicateSubmission
		}
		return s.replay(ctx, rec, subjectID)
	}

	msg := OrderPlaced{
		OrderID:        order.OrderID,
		SubjectID:      subjectID,
		IdempotencyKey: key,
		Total:          order.Total,
		PaymentMethod:  order.PaymentMethod,
		CreatedAt:      now,
	}
	if err := s.publisher.Publish(ctx, msg, map[string]string{
		"order_id":        order.OrderID,
		"idempotency_key": key,
		"payment_method":  order.PaymentMethod,
	}); err != nil {
		if merr := s.idempotency.MarkFailed(context.WithoutCancel(ctx), key, "publish failed"); merr != nil {
			s.logger.Error("mark idempotency failed", zap.String("idempotency_key", key), zap.Error(merr))
		}
		s.count(ctx, MetricSubmitFailed)
		return nil, fmt.Errorf("publish order placed: %w", err)
	}

	receipt := Receipt{
		OrderID:       order.OrderID,
		Status:        order.Status,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     now,
	}
	body, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt: %w", err)
	}
	if err := s.idempotency.MarkDone(context.WithoutCancel(ctx), key, string(body)); err != nil {
		// the order exists; a retry with this key will see IN_PROGRESS instead of the receipt
		s.logger.Warn("mark idempotency done", zap.String("order_id", order.OrderID), zap.Error(err))
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.String("subject_id", subjectID),
		zap.String("total", order.Total),
		zap.Int("items", len(order.Items)))
	s.count(ctx, MetricOrderPlaced)
	return &receipt, nil
}

// Get reads one order for tracking.
func (s *Submitter) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.Get(ctx, orderID)
}

func (s *Submitter) replay(ctx context.Context, rec *idempotency.Record, subjectID string) (*Receipt, error) {
	if rec.SubjectID != "" && rec.SubjectID != subjectID {
		return nil, fmt.Errorf("%w: key belongs to another subject", ErrDuplicateSubmission)
	}
	switch rec.Status {
	case idempotency.StatusDone:
		var r Receipt
		if err := json.Unmarshal([]byte(rec.ResponseBody), &r); err != nil {
			return nil, fmt.Errorf("decode stored receipt: %w", err)
		}
		r.Replayed = true
		s.count(ctx, MetricOrderReplay)
		return &r, nil
	default:
		return nil, fmt.Errorf("%w: status %s", ErrDuplicateSubmission, rec.Status)
	}
}

func (s *Submitter) count(ctx context.Context, name string) {
	if s.counter == nil {
		return
	}
	if err := s.counter.Count(context.WithoutCancel(ctx), name); err != nil {
		s.logger.Warn("emit metric", zap.String("metric", name), zap.Error(err))
	}
}
