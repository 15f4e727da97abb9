package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RequestReturn opens a pending return request for a delivered order. The
// order itself is not changed until an administrator approves the return.
func (s *Service) RequestReturn(ctx context.Context, orderID, reason string, actor Actor) (ReturnRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ReturnRequest{}, validationErr("return reason is required")
	}
	order, err := s.GetOrder(ctx, orderID, actor)
	if err != nil {
		return ReturnRequest{}, err
	}
	if order.Status != StatusDelivered {
		return ReturnRequest{}, fmt.Errorf("%w: only delivered orders can be returned, order is %s",
			ErrInvalidOrderState, strings.ToLower(string(order.Status)))
	}
	if order.PendingReturnID != "" {
		return ReturnRequest{}, fmt.Errorf("%w: return %s is still pending for order %s",
			ErrDuplicateReturnRequest, order.PendingReturnID, order.ID)
	}

	ret := ReturnRequest{
		ID:          s.newID(),
		OrderID:     order.ID,
		UserID:      actor.UserID,
		RequestDate: s.clock().UTC(),
		Reason:      reason,
		Status:      ReturnPending,
	}
	if err := s.store.CreateReturn(ctx, ret); err != nil {
		if errors.Is(err, ErrConflict) {
			return ReturnRequest{}, fmt.Errorf("%w: order %s is no longer delivered", ErrInvalidOrderState, order.ID)
		}
		return ReturnRequest{}, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"return_id": ret.ID,
		"actor":     actor.UserID,
	}).Info("return requested")
	return ret, nil
}

// GetReturn returns a return request to its requester, the order owner or an
// administrator.
func (s *Service) GetReturn(ctx context.Context, returnID string, actor Actor) (ReturnRequest, error) {
	returnID = strings.TrimSpace(returnID)
	if returnID == "" {
		return ReturnRequest{}, validationErr("return id is required")
	}
	ret, err := s.store.GetReturn(ctx, returnID)
	if err != nil {
		return ReturnRequest{}, err
	}
	if actor.Admin || (actor.UserID != "" && ret.UserID == actor.UserID) {
		return ret, nil
	}
	order, err := s.store.GetOrder(ctx, ret.OrderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ReturnRequest{}, err
	}
	if err == nil && canView(order, actor) {
		return ret, nil
	}
	return ReturnRequest{}, fmt.Errorf("%w: return %s", ErrUnauthorized, returnID)
}

// ProcessReturnCommand is the administrative decision on a pending return.
type ProcessReturnCommand struct {
	ReturnID   string
	Action     ReturnAction
	Resolution string
	// RefundAmount and RefundMethod are the approved refund terms. Only valid
	// with ActionApprove.
	RefundAmount *decimal.Decimal
	RefundMethod string
}

// ProcessReturn approves or rejects a pending return. Approval moves the order
// from Delivered to Returned in the same write that closes the request.
func (s *Service) ProcessReturn(ctx context.Context, cmd ProcessReturnCommand, actor Actor) (ReturnRequest, error) {
	if !actor.Admin {
		return ReturnRequest{}, fmt.Errorf("%w: processing returns requires an administrator", ErrUnauthorized)
	}
	if cmd.Action != ActionApprove && cmd.Action != ActionReject {
		return ReturnRequest{}, validationErr("action must be %q or %q", ActionApprove, ActionReject)
	}
	if cmd.Action == ActionReject && (cmd.RefundAmount != nil || strings.TrimSpace(cmd.RefundMethod) != "") {
		return ReturnRequest{}, validationErr("refund terms are only accepted when approving")
	}

	ret, err := s.store.GetReturn(ctx, strings.TrimSpace(cmd.ReturnID))
	if err != nil {
		return ReturnRequest{}, err
	}
	if ret.Status != ReturnPending {
		return ReturnRequest{}, fmt.Errorf("%w: return %s is already %s",
			ErrInvalidReturnState, ret.ID, strings.ToLower(string(ret.Status)))
	}
	order, err := s.store.GetOrder(ctx, ret.OrderID)
	if err != nil {
		return ReturnRequest{}, err
	}

	now := s.clock().UTC()
	res := ReturnResolution{
		ReturnID:      ret.ID,
		OrderID:       order.ID,
		Resolution:    strings.TrimSpace(cmd.Resolution),
		ProcessedDate: now,
		ProcessedBy:   actor.UserID,
	}

	var change *StatusChange
	switch cmd.Action {
	case ActionApprove:
		res.Status = ReturnApproved
		if res.Resolution == "" {
			res.Resolution = ReturnApproved.Description()
		}
		if order.Status != StatusDelivered {
			return ReturnRequest{}, &InvalidTransitionError{From: order.Status, To: StatusReturned}
		}
		if cmd.RefundAmount != nil {
			amount, err := refundAmount(order, cmd.RefundAmount)
			if err != nil {
				return ReturnRequest{}, err
			}
			res.RefundAmount = &amount
		}
		if m := strings.TrimSpace(cmd.RefundMethod); m != "" {
			res.RefundMethod = &m
		}
		planned, err := s.engine.Plan(order, StatusReturned, actor, TransitionOptions{Note: res.Resolution})
		if err != nil {
			return ReturnRequest{}, err
		}
		change = &planned
		res.OrderChange = change
	case ActionReject:
		res.Status = ReturnRejected
		if res.Resolution == "" {
			res.Resolution = ReturnRejected.Description()
		}
	}

	resolved, err := s.store.ResolveReturn(ctx, res)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ReturnRequest{}, fmt.Errorf("%w: order %s changed while return %s was processed",
				ErrConflict, order.ID, ret.ID)
		}
		return ReturnRequest{}, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"return_id": ret.ID,
		"actor":     actor.UserID,
		"status":    resolved.Status,
	}).Info("return processed")

	if change != nil {
		order.Status = change.To
		order.UpdatedAt = change.At
		order.PendingReturnID = ""
		order.History = append(order.History, change.Entry)
		s.engine.committed(ctx, order, *change)
	}
	s.engine.dispatch(ctx, Notification{
		Kind: NotifyReturnResolved,
		// The requester hears about the decision, even when staff filed it.
		RecipientID: ret.UserID,
		Context: map[string]string{
			"order_id":   order.ID,
			"return_id":  resolved.ID,
			"status":     string(resolved.Status),
			"resolution": res.Resolution,
		},
	})
	return resolved, nil
}
