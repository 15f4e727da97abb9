package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultNotifyTimeout = 10 * time.Second

// transitions is the only authority over order status changes.
var transitions = map[Status][]Status{
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
	StatusReturned:   {StatusRefunded},
	StatusCancelled:  nil,
	StatusRefunded:   nil,
}

// CanTransition reports whether from → to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// AllowedTargets lists the statuses reachable from the given status.
func AllowedTargets(from Status) []Status {
	return slices.Clone(transitions[from])
}

// TransitionOptions carries data written together with a status change.
type TransitionOptions struct {
	Note              string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	CancelReason      *string
	RefundAmount      *decimal.Decimal
	RefundMethod      *string
}

// EngineDeps bundles collaborators for the lifecycle engine.
type EngineDeps struct {
	Store         Store
	Notifier      Notifier
	Metrics       Metrics
	Logger        logrus.FieldLogger
	Clock         func() time.Time
	NotifyTimeout time.Duration
}

// Engine validates and applies order status transitions.
type Engine struct {
	store         Store
	notifier      Notifier
	metrics       Metrics
	log           logrus.FieldLogger
	clock         func() time.Time
	notifyTimeout time.Duration

	inflight sync.WaitGroup
}

// NewEngine wires dependencies into an Engine.
func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("lifecycle engine: store is required")
	}
	e := &Engine{
		store:         deps.Store,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		log:           deps.Logger,
		clock:         deps.Clock,
		notifyTimeout: deps.NotifyTimeout,
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.notifyTimeout <= 0 {
		e.notifyTimeout = defaultNotifyTimeout
	}
	return e, nil
}

// Plan validates target against the transition table and builds the change
// to persist. It performs no I/O.
func (e *Engine) Plan(order Order, target Status, actor Actor, opts TransitionOptions) (StatusChange, error) {
	if !CanTransition(order.Status, target) {
		return StatusChange{}, &InvalidTransitionError{From: order.Status, To: target}
	}
	now := e.clock().UTC()
	return StatusChange{
		OrderID: order.ID,
		From:    order.Status,
		To:      target,
		At:      now,
		Entry: HistoryEntry{
			Status:    target,
			ChangedAt: now,
			ChangedBy: actor.UserID,
			Note:      opts.Note,
		},
		TrackingNumber:    opts.TrackingNumber,
		EstimatedDelivery: opts.EstimatedDelivery,
		CancelReason:      opts.CancelReason,
		RefundAmount:      opts.RefundAmount,
		RefundMethod:      opts.RefundMethod,
	}, nil
}

func (e *Engine) apply(ctx context.Context, order Order, target Status, actor Actor, opts TransitionOptions) (Order, error) {
	change, err := e.Plan(order, target, actor, opts)
	if err != nil {
		return Order{}, err
	}

	updated, err := e.store.ApplyStatusChange(ctx, change)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return Order{}, e.describeConflict(ctx, change, err)
		}
		return Order{}, err
	}

	e.committed(ctx, updated, change)
	return updated, nil
}

// describeConflict re-reads the order so the caller learns which status won.
func (e *Engine) describeConflict(ctx context.Context, change StatusChange, cause error) error {
	current, err := e.store.GetOrder(ctx, change.OrderID)
	if err != nil {
		return cause
	}
	return fmt.Errorf("%w: order %s is now %s, cannot apply %s → %s",
		ErrConflict, change.OrderID, current.Status, change.From, change.To)
}

// committed runs the side effects of a persisted transition.
func (e *Engine) committed(ctx context.Context, order Order, change StatusChange) {
	log := e.log.WithFields(logrus.Fields{
		"order_id": change.OrderID,
		"from":     change.From,
		"to":       change.To,
		"actor":    change.Entry.ChangedBy,
	})
	log.Info("order status changed")

	if err := e.metrics.Count(ctx, "OrderTransition", map[string]string{
		"From": string(change.From),
		"To":   string(change.To),
	}); err != nil {
		log.WithError(err).Debug("record transition metric")
	}

	if change.To == StatusShipped {
		e.dispatch(ctx, shipmentNotification(order))
	}
}

func shipmentNotification(order Order) Notification {
	n := Notification{
		Kind:        NotifyOrderShipped,
		RecipientID: order.UserID,
		Context: map[string]string{
			"order_id": order.ID,
		},
	}
	if order.TrackingNumber != nil {
		n.Context["tracking_number"] = *order.TrackingNumber
	}
	if order.EstimatedDelivery != nil {
		n.Context["estimated_delivery"] = order.EstimatedDelivery.Format(time.DateOnly)
	}
	return n
}

// dispatch delivers n in the background. The caller never waits for it and
// its outcome never reaches the caller.
func (e *Engine) dispatch(ctx context.Context, n Notification) {
	log := e.log.WithFields(logrus.Fields{
		"kind":      n.Kind,
		"recipient": n.RecipientID,
		"order_id":  n.Context["order_id"],
	})

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("notifier panicked")
			}
		}()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
		defer cancel()

		if err := e.notifier.Notify(nctx, n); err != nil {
			reason := "error"
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "timeout"
			}
			log.WithError(err).WithField("reason", reason).Warn("notification failed")
			// nctx may already be spent.
			mctx, mcancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
			defer mcancel()
			_ = e.metrics.Count(mctx, "NotificationFailure", map[string]string{"Kind": string(n.Kind), "Reason": reason})
			return
		}
		log.Debug("notification sent")
	}()
}

// Wait blocks until background notifications have finished. Call it on shutdown.
func (e *Engine) Wait() {
	e.inflight.Wait()
}
