package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCatalogConcurrency = 4
	defaultCatalogTimeout     = 5 * time.Second
	defaultCancelReason       = "No reason provided"
)

// ServiceDeps bundles collaborators for the order service.
type ServiceDeps struct {
	Store    Store
	Catalog  Catalog
	Notifier Notifier
	Metrics  Metrics
	Logger   logrus.FieldLogger

	Clock       func() time.Time
	IDGenerator func() string

	// CatalogConcurrency bounds parallel product lookups during CreateOrder.
	CatalogConcurrency int
	CatalogTimeout     time.Duration
	NotifyTimeout      time.Duration
}

// Service implements order creation, lifecycle operations and returns.
type Service struct {
	store   Store
	catalog Catalog
	engine  *Engine
	metrics Metrics
	log     logrus.FieldLogger
	clock   func() time.Time
	newID   func() string

	catalogConcurrency int
	catalogTimeout     time.Duration
}

// NewService validates deps and builds a Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("order service: store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuid.NewString
	}
	if deps.CatalogConcurrency <= 0 {
		deps.CatalogConcurrency = defaultCatalogConcurrency
	}
	if deps.CatalogTimeout <= 0 {
		deps.CatalogTimeout = defaultCatalogTimeout
	}

	engine, err := NewEngine(EngineDeps{
		Store:         deps.Store,
		Notifier:      deps.Notifier,
		Metrics:       deps.Metrics,
		Logger:        deps.Logger,
		Clock:         deps.Clock,
		NotifyTimeout: deps.NotifyTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		store:              deps.Store,
		catalog:            deps.Catalog,
		engine:             engine,
		metrics:            deps.Metrics,
		log:                deps.Logger,
		clock:              deps.Clock,
		newID:              deps.IDGenerator,
		catalogConcurrency: deps.CatalogConcurrency,
		catalogTimeout:     deps.CatalogTimeout,
	}, nil
}

// Engine exposes the lifecycle engine backing the service.
func (s *Service) Engine() *Engine { return s.engine }

// Wait blocks until background notifications have drained.
func (s *Service) Wait() { s.engine.Wait() }

// ItemRequest is one requested line of a new order.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateOrderCommand is the input for CreateOrder.
type CreateOrderCommand struct {
	UserID          string
	ShippingAddress string
	// BillingAddress defaults to ShippingAddress when empty.
	BillingAddress string
	PaymentMethod  string
	Items          []ItemRequest
}

func (c CreateOrderCommand) normalize() (CreateOrderCommand, error) {
	c.UserID = strings.TrimSpace(c.UserID)
	c.ShippingAddress = strings.TrimSpace(c.ShippingAddress)
	c.BillingAddress = strings.TrimSpace(c.BillingAddress)
	c.PaymentMethod = strings.TrimSpace(c.PaymentMethod)

	if c.UserID == "" {
		return c, validationErr("user id is required")
	}
	if c.ShippingAddress == "" {
		return c, validationErr("shipping address is required")
	}
	if c.PaymentMethod == "" {
		return c, validationErr("payment method is required")
	}
	if c.BillingAddress == "" {
		c.BillingAddress = c.ShippingAddress
	}
	if len(c.Items) == 0 {
		return c, validationErr("at least one item is required")
	}

	seen := make(map[string]struct{}, len(c.Items))
	items := make([]ItemRequest, len(c.Items))
	for i, item := range c.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" {
			return c, validationErr("items[%d]: product id is required", i)
		}
		if item.Quantity <= 0 {
			return c, validationErr("items[%d]: quantity must be positive", i)
		}
		if _, dup := seen[item.ProductID]; dup {
			return c, validationErr("items[%d]: product %s listed more than once", i, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		items[i] = item
	}
	c.Items = items
	return c, nil
}

// CreateOrder resolves every item against the catalog and persists the order
// with all of its items, or nothing.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand, actor Actor) (Order, error) {
	cmd, err := cmd.normalize()
	if err != nil {
		return Order{}, err
	}
	if cmd.UserID != actor.UserID && !actor.Admin {
		return Order{}, fmt.Errorf("%w: cannot place an order for another user", ErrUnauthorized)
	}

	items, total, err := s.resolveItems(ctx, cmd.Items)
	if err != nil {
		return Order{}, err
	}

	now := s.clock().UTC()
	order := Order{
		ID:              s.newID(),
		UserID:          cmd.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
		TotalAmount:     total,
		Status:          StatusProcessing,
		ShippingAddress: cmd.ShippingAddress,
		BillingAddress:  cmd.BillingAddress,
		PaymentMethod:   cmd.PaymentMethod,
		PaymentStatus:   PaymentPending,
		Items:           items,
		History: []HistoryEntry{{
			Status:    StatusProcessing,
			ChangedAt: now,
			ChangedBy: actor.UserID,
			Note:      "Order placed",
		}},
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return Order{}, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"items":    order.ItemCount(),
		"total":    order.TotalAmount.StringFixed(2),
	}).Info("order created")
	if err := s.metrics.Count(ctx, "OrderCreated", nil); err != nil {
		s.log.WithError(err).Debug("record order metric")
	}
	return order, nil
}

// resolveItems fetches products concurrently and prices each line. Any
// failure aborts the whole set.
func (s *Service) resolveItems(ctx context.Context, reqs []ItemRequest) ([]OrderItem, decimal.Decimal, error) {
	lines := make([]OrderItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.catalogConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			line, err := s.resolveItem(gctx, req)
			if err != nil {
				return err
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return lines, total, nil
}

func (s *Service) resolveItem(ctx context.Context, req ItemRequest) (OrderItem, error) {
	cctx, cancel := context.WithTimeout(ctx, s.catalogTimeout)
	defer cancel()

	product, err := s.catalog.GetProduct(cctx, req.ProductID)
	switch {
	case errors.Is(err, ErrProductNotFound):
		return OrderItem{}, &ProductNotFoundError{ProductID: req.ProductID}
	case err != nil:
		return OrderItem{}, fmt.Errorf("%w: product %s: %w", ErrCatalogUnavailable, req.ProductID, err)
	}
	if product.Price.IsNegative() {
		return OrderItem{}, fmt.Errorf("%w: product %s has negative price", ErrCatalogUnavailable, req.ProductID)
	}
	if product.Stock < req.Quantity {
		return OrderItem{}, &InsufficientStockError{
			ProductID: req.ProductID,
			Available: product.Stock,
			Requested: req.Quantity,
		}
	}

	return OrderItem{
		ID:          s.newID(),
		ProductID:   req.ProductID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		UnitPrice:   product.Price,
		Discount:    decimal.Zero,
	}, nil
}

// GetOrder returns the order if the actor owns it or is an administrator.
func (s *Service) GetOrder(ctx context.Context, orderID string, actor Actor) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, validationErr("order id is required")
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !canView(order, actor) {
		return Order{}, fmt.Errorf("%w: order %s", ErrUnauthorized, orderID)
	}
	return order, nil
}

// GetHistory returns the status changes of an order, oldest first.
func (s *Service) GetHistory(ctx context.Context, orderID string, actor Actor) ([]HistoryEntry, error) {
	order, err := s.GetOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	return order.History, nil
}

// ListOrders returns a user's orders, newest first. An empty userID lists the
// actor's own orders.
func (s *Service) ListOrders(ctx context.Context, userID string, status *Status, actor Actor) ([]Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = actor.UserID
	}
	if userID == "" {
		return nil, validationErr("user id is required")
	}
	if userID != actor.UserID && !actor.Admin {
		return nil, fmt.Errorf("%w: cannot list orders of another user", ErrUnauthorized)
	}
	if status != nil {
		if _, ok := ParseStatus(string(*status)); !ok {
			return nil, validationErr("unknown status %q", *status)
		}
	}
	return s.store.ListOrders(ctx, ListFilter{UserID: userID, Status: status})
}

// Transition moves an order along any edge of the lifecycle. Administrators only.
// Cancellation and refund go through the same rules as CancelOrder and Refund;
// returns are completed by ProcessReturn.
func (s *Service) Transition(ctx context.Context, orderID string, target Status, actor Actor, opts TransitionOptions) (Order, error) {
	if !actor.Admin {
		return Order{}, fmt.Errorf("%w: status changes require an administrator", ErrUnauthorized)
	}
	if _, ok := ParseStatus(string(target)); !ok {
		return Order{}, validationErr("unknown status %q", target)
	}
	if err := checkTransitionOptions(target, opts); err != nil {
		return Order{}, err
	}

	order, err := s.GetOrder(ctx, orderID, actor)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(order.Status, target) {
		return Order{}, &InvalidTransitionError{From: order.Status, To: target}
	}
	if order.PendingReturnID != "" {
		return Order{}, fmt.Errorf("%w: order %s has a pending return request",
			ErrInvalidOrderState, order.ID)
	}

	switch target {
	case StatusReturned:
		if order.Status == StatusDelivered {
			return Order{}, fmt.Errorf("%w: delivered orders are returned by approving a return request",
				ErrInvalidOrderState)
		}
	case StatusCancelled:
		reason := ""
		if opts.CancelReason != nil {
			reason = *opts.CancelReason
		}
		opts = cancelOptions(reason, opts.Note)
	case StatusRefunded:
		method := ""
		if opts.RefundMethod != nil {
			method = *opts.RefundMethod
		}
		opts, err = refundOptions(order, opts.RefundAmount, method, opts.Note)
		if err != nil {
			return Order{}, err
		}
	}
	return s.engine.apply(ctx, order, target, actor, opts)
}

// checkTransitionOptions rejects metadata that does not belong to target.
func checkTransitionOptions(target Status, opts TransitionOptions) error {
	if (opts.RefundAmount != nil || opts.RefundMethod != nil) && target != StatusRefunded {
		return validationErr("refund details only apply to a %s transition", StatusRefunded)
	}
	if opts.CancelReason != nil && target != StatusCancelled {
		return validationErr("cancel reason only applies to a %s transition", StatusCancelled)
	}
	if (opts.TrackingNumber != nil || opts.EstimatedDelivery != nil) && target != StatusShipped {
		return validationErr("tracking details only apply to a %s transition", StatusShipped)
	}
	return nil
}

// CancelOrder cancels an order that has not shipped yet.
func (s *Service) CancelOrder(ctx context.Context, orderID, reason string, actor Actor) (Order, error) {
	order, err := s.GetOrder(ctx, orderID, actor)
	if err != nil {
		return Order{}, err
	}
	if order.Status != StatusProcessing {
		return Order{}, fmt.Errorf("%w: cannot cancel an order that is %s",
			ErrInvalidOrderState, strings.ToLower(string(order.Status)))
	}
	return s.engine.apply(ctx, order, StatusCancelled, actor, cancelOptions(reason, ""))
}

func cancelOptions(reason, note string) TransitionOptions {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelReason
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = reason
	}
	return TransitionOptions{Note: note, CancelReason: &reason}
}

// FulfillmentCommand updates shipping metadata.
type FulfillmentCommand struct {
	OrderID           string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
}

// UpdateFulfillment records tracking data without changing status. Administrators only.
func (s *Service) UpdateFulfillment(ctx context.Context, cmd FulfillmentCommand, actor Actor) (Order, error) {
	if !actor.Admin {
		return Order{}, fmt.Errorf("%w: fulfillment updates require an administrator", ErrUnauthorized)
	}
	if cmd.TrackingNumber == nil && cmd.EstimatedDelivery == nil {
		return Order{}, validationErr("tracking number or estimated delivery is required")
	}
	if cmd.TrackingNumber != nil {
		tn := strings.TrimSpace(*cmd.TrackingNumber)
		if tn == "" {
			return Order{}, validationErr("tracking number must not be blank")
		}
		cmd.TrackingNumber = &tn
	}

	order, err := s.GetOrder(ctx, cmd.OrderID, actor)
	if err != nil {
		return Order{}, err
	}
	if order.Status == StatusCancelled || order.Status == StatusRefunded {
		return Order{}, fmt.Errorf("%w: cannot update fulfillment of a %s order",
			ErrInvalidOrderState, strings.ToLower(string(order.Status)))
	}

	return s.store.UpdateFulfillment(ctx, FulfillmentUpdate{
		OrderID:           order.ID,
		TrackingNumber:    cmd.TrackingNumber,
		EstimatedDelivery: cmd.EstimatedDelivery,
		At:                s.clock().UTC(),
	})
}

// RefundCommand is the input for Refund. Amount defaults to the order total
// and Method to the order's payment method.
type RefundCommand struct {
	OrderID string
	Amount  *decimal.Decimal
	Method  string
	Note    string
}

// Refund records the refund of a returned order. Administrators only.
func (s *Service) Refund(ctx context.Context, cmd RefundCommand, actor Actor) (Order, error) {
	if !actor.Admin {
		return Order{}, fmt.Errorf("%w: refunds require an administrator", ErrUnauthorized)
	}
	order, err := s.GetOrder(ctx, cmd.OrderID, actor)
	if err != nil {
		return Order{}, err
	}

	opts, err := refundOptions(order, cmd.Amount, cmd.Method, cmd.Note)
	if err != nil {
		return Order{}, err
	}
	return s.engine.apply(ctx, order, StatusRefunded, actor, opts)
}

// refundOptions fills in the refund defaults: the order total, the payment
// method it was paid with, and a note naming both.
func refundOptions(order Order, requested *decimal.Decimal, method, note string) (TransitionOptions, error) {
	amount, err := refundAmount(order, requested)
	if err != nil {
		return TransitionOptions{}, err
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = order.PaymentMethod
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = fmt.Sprintf("Refunded %s via %s", amount.StringFixed(2), method)
	}
	return TransitionOptions{
		Note:         note,
		RefundAmount: &amount,
		RefundMethod: &method,
	}, nil
}

func refundAmount(order Order, requested *decimal.Decimal) (decimal.Decimal, error) {
	if requested == nil {
		return order.TotalAmount, nil
	}
	if !requested.IsPositive() {
		return decimal.Zero, validationErr("refund amount must be positive")
	}
	if requested.GreaterThan(order.TotalAmount) {
		return decimal.Zero, validationErr("refund amount %s exceeds order total %s",
			requested.StringFixed(2), order.TotalAmount.StringFixed(2))
	}
	return *requested, nil
}

func canView(order Order, actor Actor) bool {
	return actor.Admin || (actor.UserID != "" && order.OwnedBy(actor.UserID))
}
