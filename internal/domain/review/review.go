// Package review implements the admin review surface: confirming or
// rejecting bank-transfer evidence and manual status bookkeeping.
package review

import (
	"context"

	"github.com/veloshop/orderdesk/internal/domain/auth"
	"github.com/veloshop/orderdesk/internal/domain/order"
	"github.com/veloshop/orderdesk/internal/notify"
)

// DefaultRejectReason is stored and mailed when an admin rejects without
// giving a reason.
const DefaultRejectReason = "payment could not be verified"

// Service exposes the admin-only lifecycle operations, gated by the access
// guard. HTTP-level success of every operation is determined solely by
// whether the state transition committed; emails are fire-and-forget.
type Service struct {
	engine     *order.Service
	guard      auth.AccessGuard
	notifier   notify.Sender
	historyURL string
}

// NewService builds the review service. historyURL is included in
// confirmation emails so customers can jump to their order history.
func NewService(engine *order.Service, guard auth.AccessGuard, notifier notify.Sender, historyURL string) *Service {
	return &Service{
		engine:     engine,
		guard:      guard,
		notifier:   notifier,
		historyURL: historyURL,
	}
}

// ConfirmOrder approves the payment evidence: pending_review -> processing,
// payment marked paid, customer notified.
//
// A repeat confirm on an order already processing is a no-op success rather
// than an error: the triggering click is not idempotent at the UI level even
// though the mutation is. Every other out-of-state call is an
// IllegalTransitionError, and a lost same-state race is ErrConflict.
func (s *Service) ConfirmOrder(ctx context.Context, orderID string, admin auth.Principal) error {
	if !s.guard.IsAdmin(ctx, admin) {
		return order.ErrForbidden
	}

	o, err := s.engine.Get(ctx, orderID)
	if err != nil {
		return err
	}
	switch o.Status {
	case order.StatusProcessing:
		// Already confirmed. The dedupe store keeps a re-delivered click from
		// producing a second email even if it raced the first confirm.
		return nil
	case order.StatusPendingReview:
		// Proceed.
	default:
		return &order.IllegalTransitionError{From: o.Status, Event: order.EventAdminConfirmed}
	}

	if _, err := s.engine.ApplyTransition(ctx, orderID, order.Transition{
		Event:    order.EventAdminConfirmed,
		Expected: order.StatusPendingReview,
	}); err != nil {
		return err
	}

	s.notifier.Dispatch(ctx, notify.Message{
		OrderID:   o.ID,
		Template:  notify.TemplateOrderConfirmed,
		Recipient: o.Shipping.Email,
		Params: map[string]string{
			"order_number": o.OrderNumber,
			"history_url":  s.historyURL,
		},
	})
	return nil
}

// RejectOrder declines the payment evidence: pending_review -> cancelled,
// payment marked failed, customer notified with the reason.
func (s *Service) RejectOrder(ctx context.Context, orderID string, admin auth.Principal, reason string) error {
	if !s.guard.IsAdmin(ctx, admin) {
		return order.ErrForbidden
	}
	if reason == "" {
		reason = DefaultRejectReason
	}

	o, err := s.engine.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != order.StatusPendingReview {
		return &order.IllegalTransitionError{From: o.Status, Event: order.EventAdminRejected}
	}

	if _, err := s.engine.ApplyTransition(ctx, orderID, order.Transition{
		Event:        order.EventAdminRejected,
		Expected:     order.StatusPendingReview,
		RejectReason: reason,
	}); err != nil {
		return err
	}

	s.notifier.Dispatch(ctx, notify.Message{
		OrderID:   o.ID,
		Template:  notify.TemplateOrderRejected,
		Recipient: o.Shipping.Email,
		Params: map[string]string{
			"order_number": o.OrderNumber,
			"reason":       reason,
		},
	})
	return nil
}

// OverrideStatus is the administrative bookkeeping path for shipping and
// delivery updates. It moves the order to any operational status without
// payment side effects or emails, still through the conditional update so a
// concurrent workflow transition cannot be silently overwritten.
func (s *Service) OverrideStatus(ctx context.Context, orderID string, admin auth.Principal, target order.Status) error {
	if !s.guard.IsAdmin(ctx, admin) {
		return order.ErrForbidden
	}

	o, err := s.engine.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status == target {
		return nil
	}

	_, err = s.engine.ApplyTransition(ctx, orderID, order.Transition{
		Event:    order.EventStatusOverride,
		Expected: o.Status,
		Target:   target,
	})
	return err
}
