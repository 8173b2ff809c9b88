package download

import (
	"context"
	"fmt"
	"time"

	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

// checkConcurrentLimit denies issuance when the user already holds maxConcurrent
// or more unexpired, unused tokens. st must hold the user's download lock.
func checkConcurrentLimit(ctx context.Context, st store.Store, userID string, now time.Time, maxConcurrent int) error {
	outstanding, err := st.CountOutstandingTokens(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("failed to count outstanding tokens: %w", err)
	}
	if outstanding >= int64(maxConcurrent) {
		return domain.ErrTooManyDownloads
	}
	return nil
}
