package entitlement

import (
	"context"
	"fmt"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

// Resolver decides whether a user may download a content item and through which source.
// Resolution is read-only; quota is consumed at redemption.
//
//go:generate mockgen -source=resolver.go -destination=../mocks/resolver.go -package=mocks -mock_names=Resolver=MockResolver
type Resolver interface {
	// ResolveAccess runs the resolution against st, which may be bound to a transaction
	ResolveAccess(ctx context.Context, st store.Store, userID string, contentType domain.ContentType, contentID string) (domain.AccessDecision, error)
}

type resolver struct {
	clock adapter.Clock
}

// NewResolver creates a new entitlement resolver
func NewResolver(clock adapter.Clock) Resolver {
	return &resolver{clock: clock}
}

// ResolveAccess applies the rules in order, first match wins:
// purchase, content exists, active subscription to the owning DJ, fan-only tier, per-type quota.
func (r *resolver) ResolveAccess(ctx context.Context, st store.Store, userID string, contentType domain.ContentType, contentID string) (domain.AccessDecision, error) {
	purchased, err := st.HasPurchase(ctx, userID, contentType, contentID)
	if err != nil {
		return domain.Denied, fmt.Errorf("failed to check purchase: %w", err)
	}
	if purchased {
		return domain.AccessDecision{Allowed: true, Via: domain.AccessSourcePurchase}, nil
	}

	item, err := st.GetContentItem(ctx, contentType, contentID)
	if err != nil {
		return domain.Denied, fmt.Errorf("failed to get content item: %w", err)
	}
	if item == nil {
		return domain.Denied, nil
	}

	sub, err := st.GetActiveSubscription(ctx, userID, item.DJID, r.clock.Now())
	if err != nil {
		return domain.Denied, fmt.Errorf("failed to get active subscription: %w", err)
	}
	if sub == nil {
		return domain.Denied, nil
	}

	if item.IsFanOnly {
		if sub.Plan.CanAccessFanOnly() {
			return domain.AccessDecision{Allowed: true, Via: domain.AccessSourceSubscription}, nil
		}
		return domain.Denied, nil
	}

	if sub.HasQuotaFor(item.ContentType) {
		return domain.AccessDecision{Allowed: true, Via: domain.AccessSourceSubscription}, nil
	}

	return domain.Denied, nil
}
