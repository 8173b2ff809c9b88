package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
	"github.com/mixmint/mixmint-downloads/internal/store"
)

// Issue runs the concurrency guard, entitlement resolution, version lookup and
// token persistence in one transaction under the user's download lock
func (s *service) Issue(ctx context.Context, req IssueRequest) (*domain.IssuedToken, error) {
	if req.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	var (
		issued   *domain.IssuedToken
		decision domain.AccessDecision
	)
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.LockUserDownloads(ctx, req.UserID); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := checkConcurrentLimit(ctx, tx, req.UserID, now, cfg.MaxConcurrentDownloads); err != nil {
			return err
		}

		decision, err = s.resolver.ResolveAccess(ctx, tx, req.UserID, req.ContentType, req.ContentID)
		if err != nil {
			return fmt.Errorf("failed to resolve access: %w", err)
		}
		if !decision.Allowed {
			return domain.ErrAccessDenied
		}

		if req.VersionID != nil {
			version, err := tx.GetContentVersion(ctx, req.ContentID, *req.VersionID)
			if err != nil {
				return fmt.Errorf("failed to get content version: %w", err)
			}
			if version == nil {
				return domain.ErrVersionNotFound
			}
		}

		issued, err = s.issueToken(ctx, tx, req, decision.Via, now, cfg.TokenTTL)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTokenIssued(string(decision.Via))
	logger.InfoCtx(ctx, "Download token issued",
		zap.String("user_id", req.UserID),
		zap.String("content_id", req.ContentID),
		zap.String("access_source", string(decision.Via)),
		zap.String("token", domain.RedactToken(issued.Token)),
	)

	s.emitter.Emit(ctx, domain.DownloadEvent{
		EventType:    domain.DownloadEventTokenIssued,
		UserID:       req.UserID,
		ContentID:    req.ContentID,
		ContentType:  req.ContentType,
		AccessSource: decision.Via,
		IPAddress:    req.ClientIP,
		OccurredAt:   s.clock.Now(),
	})

	return issued, nil
}

// issueToken generates and persists a token. It does not check entitlement;
// Issue is its only caller.
func (s *service) issueToken(ctx context.Context, st store.Store, req IssueRequest, via domain.AccessSource, now time.Time, ttl time.Duration) (*domain.IssuedToken, error) {
	token, err := domain.NewDownloadToken(s.random)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("user_id", req.UserID))
		return nil, domain.ErrTokenGeneration
	}

	var ip *string
	if req.ClientIP != "" {
		ip = &req.ClientIP
	}

	row, err := st.CreateDownloadToken(ctx, store.CreateDownloadTokenInput{
		Token:        token,
		UserID:       req.UserID,
		ContentID:    req.ContentID,
		ContentType:  req.ContentType,
		VersionID:    req.VersionID,
		AccessSource: via,
		ExpiresAt:    now.Add(ttl),
		IPAddress:    ip,
	})
	if err != nil {
		logger.ErrorCtx(ctx, errors.Join(domain.ErrTokenGeneration, err),
			zap.String("user_id", req.UserID),
			zap.String("content_id", req.ContentID),
		)
		return nil, domain.ErrTokenGeneration
	}

	return &domain.IssuedToken{
		Token:     row.Token,
		ExpiresAt: row.ExpiresAt,
	}, nil
}
