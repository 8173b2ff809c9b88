package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

// Outcome is the result of a quota consumption
type Outcome string

const (
	// OutcomeConsumed means the matching usage counter was incremented
	OutcomeConsumed Outcome = "consumed"
	// OutcomeSkipped means there was no active subscription to charge.
	// The download is still served and usage is under-counted.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeExhausted means the subscription is active but the quota is full
	OutcomeExhausted Outcome = "exhausted"
)

// ConsumeRequest identifies the subscription and the counter to charge
type ConsumeRequest struct {
	UserID      string
	DJID        string
	ContentType domain.ContentType
	IsFanOnly   bool
}

// Ledger charges subscription quotas for served downloads
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Ledger=MockLedger
type Ledger interface {
	// Consume increments the counter matching the request against st,
	// which is normally bound to the redemption transaction
	Consume(ctx context.Context, st store.Store, req ConsumeRequest) (Outcome, error)
}

type ledger struct {
	clock adapter.Clock
}

// NewLedger creates a new quota ledger
func NewLedger(clock adapter.Clock) Ledger {
	return &ledger{clock: clock}
}

// CounterFor returns the usage counter charged for a download
func CounterFor(contentType domain.ContentType, isFanOnly bool) (store.UsageCounter, error) {
	if isFanOnly {
		return store.UsageCounterFanUploads, nil
	}
	switch contentType {
	case domain.ContentTypeTrack:
		return store.UsageCounterTracks, nil
	case domain.ContentTypeZip:
		return store.UsageCounterZip, nil
	default:
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func (l *ledger) Consume(ctx context.Context, st store.Store, req ConsumeRequest) (Outcome, error) {
	counter, err := CounterFor(req.ContentType, req.IsFanOnly)
	if err != nil {
		return "", err
	}

	now := l.clock.Now()
	ok, err := st.IncrementUsage(ctx, store.IncrementUsageInput{
		UserID:  req.UserID,
		DJID:    req.DJID,
		Counter: counter,
		Now:     now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to increment usage: %w", err)
	}
	if ok {
		metrics.RecordQuotaOutcome(string(OutcomeConsumed))
		return OutcomeConsumed, nil
	}

	// The guard refused: tell an expired subscription from a full quota
	sub, err := st.GetActiveSubscription(ctx, req.UserID, req.DJID, now)
	if err != nil {
		return "", fmt.Errorf("failed to get active subscription: %w", err)
	}
	if sub == nil {
		logger.WarnCtx(ctx, "No active subscription to charge, skipping quota consumption",
			zap.String("user_id", req.UserID),
			zap.String("dj_id", req.DJID),
			zap.String("counter", string(counter)),
		)
		metrics.RecordQuotaOutcome(string(OutcomeSkipped))
		return OutcomeSkipped, nil
	}

	metrics.RecordQuotaOutcome(string(OutcomeExhausted))
	return OutcomeExhausted, nil
}
