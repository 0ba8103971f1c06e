package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/lemonsqueezy"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/queue"
	"github.com/designengineer/course-api/internal/repository"
	"github.com/designengineer/course-api/internal/utils"
)

// Fulfillment turns verified Lemon Squeezy webhooks into enrollments.
type Fulfillment struct {
	ents    *Entitlements
	catalog lemonsqueezy.Catalog
	log     *zap.Logger

	Now func() time.Time
}

func NewFulfillment(ents *Entitlements, catalog lemonsqueezy.Catalog, log *zap.Logger) *Fulfillment {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fulfillment{ents: ents, catalog: catalog, log: log.Named("fulfillment"), Now: time.Now}
}

// WebhookResult is the body returned to Lemon Squeezy.
type WebhookResult struct {
	Received   bool              `json:"received"`
	Duplicate  bool              `json:"duplicate,omitempty"`
	Message    string            `json:"message,omitempty"`
	Enrollment *model.Enrollment `json:"-"`
}

// Handle applies one event.  The signature must already be verified.
func (s *Fulfillment) Handle(ctx context.Context, ev lemonsqueezy.Event) (WebhookResult, error) {
	name := ev.Meta.EventName
	switch name {
	case lemonsqueezy.EventOrderCreated:
		return s.orderCreated(ctx, ev)
	case lemonsqueezy.EventOrderRefunded:
		return s.orderRefunded(ctx, ev)
	case lemonsqueezy.EventSubscriptionCancelled:
		s.log.Info("subscription cancelled", zap.String("user_id", string(ev.Meta.CustomData.UserID)))
	default:
		s.log.Debug("ignoring webhook event", zap.String("event", name))
	}
	return WebhookResult{Received: true}, nil
}

func (s *Fulfillment) orderCreated(ctx context.Context, ev lemonsqueezy.Event) (WebhookResult, error) {
	userID := string(ev.Meta.CustomData.UserID)
	if userID == "" {
		s.log.Error("order without user_id in custom data", zap.String("order_id", ev.OrderID()))
		return WebhookResult{}, fail(ErrInvalidInput, "Missing user ID")
	}
	variant := ev.VariantID()
	if variant == "" {
		s.log.Warn("order without variant_id, treating as test webhook", zap.String("user_id", userID))
		return WebhookResult{Received: true, Message: "Test webhook received (no variant_id)"}, nil
	}
	level, ok := s.catalog.Lookup(variant)
	if !ok {
		s.log.Error("unknown variant id", zap.String("variant_id", variant))
		return WebhookResult{}, fail(ErrInvalidInput, "Unknown product")
	}

	orderID := ev.OrderID()
	if orderID != "" {
		if existing, err := s.ents.store.GetByOrderID(ctx, orderID); err == nil {
			return WebhookResult{Received: true, Duplicate: true, Enrollment: &existing}, nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return WebhookResult{}, fmt.Errorf("get enrollment by order: %w", err)
		}
	}

	now := s.Now().UTC()
	purchasedAt := now
	if t, err := time.Parse(time.RFC3339, ev.Data.Attributes.CreatedAt); err == nil {
		purchasedAt = t.UTC()
	}
	suffix, err := utils.RandomID(8)
	if err != nil {
		return WebhookResult{}, err
	}
	email := ev.Data.Attributes.UserEmail
	e := model.Enrollment{
		Slug:        "enrollment-" + userID + "-" + suffix,
		UserID:      userID,
		ProductID:   string(level),
		AccessLevel: level,
		PurchasedAt: purchasedAt,
		CustomerID:  string(ev.Data.Attributes.CustomerID),
		OrderID:     orderID,
		EmailDomain: utils.EmailDomain(email),
		Status:      model.EnrollmentActive,
		CreatedAt:   now,
	}
	if err := s.ents.store.Create(ctx, &e); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return WebhookResult{Received: true, Duplicate: true}, nil
		}
		return WebhookResult{}, fmt.Errorf("create enrollment: %w", err)
	}
	s.ents.Invalidate(ctx, userID)
	s.ents.publish(ctx, e, email, queue.SourcePurchase)
	s.log.Info("enrollment created", zap.String("user_id", userID), zap.String("access_level", string(level)),
		zap.String("order_id", orderID))
	return WebhookResult{Received: true, Enrollment: &e}, nil
}

func (s *Fulfillment) orderRefunded(ctx context.Context, ev lemonsqueezy.Event) (WebhookResult, error) {
	orderID := ev.OrderID()
	if orderID == "" {
		s.log.Warn("refund without order id")
		return WebhookResult{Received: true}, nil
	}
	e, err := s.ents.store.GetByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("refund for unknown order", zap.String("order_id", orderID))
		return WebhookResult{Received: true}, nil
	}
	if err != nil {
		return WebhookResult{}, fmt.Errorf("get enrollment by order: %w", err)
	}
	if err := s.ents.store.SetStatusByOrder(ctx, orderID, model.EnrollmentRefunded); err != nil {
		return WebhookResult{}, fmt.Errorf("mark refunded: %w", err)
	}
	s.ents.Invalidate(ctx, e.UserID)
	e.Status = model.EnrollmentRefunded
	s.log.Info("enrollment refunded", zap.String("user_id", e.UserID), zap.String("order_id", orderID))
	return WebhookResult{Received: true, Enrollment: &e}, nil
}
