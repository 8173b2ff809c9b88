package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/mixmint/mixmint-downloads/internal/blob"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/logger"
	"github.com/mixmint/mixmint-downloads/internal/metrics"
	"github.com/mixmint/mixmint-downloads/internal/quota"
	"github.com/mixmint/mixmint-downloads/internal/store"
	"github.com/mixmint/mixmint-downloads/internal/store/schema"
)

// Redeem validates the token, opens the file and then, in one transaction,
// flips the token to used, charges the subscription quota and logs the download.
// The token is only consumed once the file stream has been obtained.
func (s *service) Redeem(ctx context.Context, req RedeemRequest) (*Download, error) {
	dl, err := s.redeem(ctx, req)
	metrics.RecordRedemption(redemptionResult(err))
	return dl, err
}

func (s *service) redeem(ctx context.Context, req RedeemRequest) (*Download, error) {
	if req.Token == "" {
		return nil, domain.ErrInvalidToken
	}

	fields := []zap.Field{
		zap.String("token", domain.RedactToken(req.Token)),
		zap.String("client_ip", req.ClientIP),
	}

	// Missing, used and expired tokens all miss this lookup
	token, err := s.store.GetRedeemableToken(ctx, req.Token, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get download token: %w", err)
	}
	if token == nil {
		return nil, domain.ErrInvalidToken
	}
	fields = append(fields, zap.String("user_id", token.UserID))

	if !token.MatchesIP(req.ClientIP) {
		logger.WarnCtx(ctx, "Download token presented from a different IP", fields...)
		return nil, domain.ErrInvalidToken
	}

	item, err := s.store.GetContentItem(ctx, token.ContentType, token.ContentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrContentNotFound
	}

	storageKey, mediaType, versionLabel := item.StorageKey, item.MediaType, ""
	if token.VersionID != nil {
		version, err := s.store.GetContentVersion(ctx, item.ID, *token.VersionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get content version: %w", err)
		}
		if version == nil {
			return nil, domain.ErrContentNotFound
		}
		storageKey, mediaType, versionLabel = version.StorageKey, version.MediaType, version.Label
	}

	obj, err := s.blobs.GetObject(ctx, s.config.Bucket, storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s/%s: %w", s.config.Bucket, storageKey, err)
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		return s.consume(ctx, tx, token, item, req, versionLabel)
	})
	if err != nil {
		if closeErr := obj.Body.Close(); closeErr != nil {
			logger.WarnCtx(ctx, "Failed to close blob stream", append(fields, zap.Error(closeErr))...)
		}
		return nil, err
	}

	logger.InfoCtx(ctx, "Download token redeemed", append(fields,
		zap.String("content_id", item.ID),
		zap.String("access_source", string(token.AccessSource)),
	)...)

	s.emitter.Emit(ctx, domain.DownloadEvent{
		EventType:    domain.DownloadEventRedeemed,
		UserID:       token.UserID,
		ContentID:    item.ID,
		ContentType:  item.ContentType,
		AccessSource: token.AccessSource,
		IPAddress:    req.ClientIP,
		OccurredAt:   s.clock.Now(),
	})

	contentType := obj.ContentType
	if contentType == "" || contentType == blob.DEFAULT_CONTENT_TYPE {
		contentType = mediaType
	}

	return &Download{
		Body:          obj.Body,
		ContentType:   contentType,
		ContentLength: obj.ContentLength,
		Filename:      item.Title,
	}, nil
}

// consume is the transactional part of a redemption
func (s *service) consume(ctx context.Context, tx store.Store, token *schema.DownloadToken, item *schema.ContentItem, req RedeemRequest, versionLabel string) error {
	flipped, err := tx.MarkTokenUsed(ctx, token.Token, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}
	if !flipped {
		// Lost the race to a concurrent redemption
		return domain.ErrInvalidToken
	}

	if token.AccessSource == domain.AccessSourceSubscription {
		outcome, err := s.ledger.Consume(ctx, tx, quota.ConsumeRequest{
			UserID:      token.UserID,
			DJID:        item.DJID,
			ContentType: item.ContentType,
			IsFanOnly:   item.IsFanOnly,
		})
		if err != nil {
			return fmt.Errorf("failed to consume quota: %w", err)
		}
		if outcome == quota.OutcomeExhausted {
			return domain.ErrAccessDenied
		}
	}

	metadata, err := downloadMetadata(req.UserAgent, versionLabel)
	if err != nil {
		return err
	}

	return tx.CreateDownloadLog(ctx, store.CreateDownloadLogInput{
		TokenID:      token.ID,
		UserID:       token.UserID,
		ContentID:    item.ID,
		ContentType:  item.ContentType,
		AccessSource: token.AccessSource,
		IPAddress:    req.ClientIP,
		Metadata:     metadata,
	})
}

func downloadMetadata(userAgent, versionLabel string) (datatypes.JSON, error) {
	m := map[string]string{}
	if userAgent != "" {
		m["user_agent"] = userAgent
	}
	if versionLabel != "" {
		m["version"] = versionLabel
	}
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal download metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// redemptionResult labels a redemption for metrics
func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "served"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrAccessDenied):
		return "quota_exhausted"
	case errors.Is(err, domain.ErrContentNotFound):
		return "content_not_found"
	case errors.Is(err, blob.ErrObjectNotFound):
		return "object_missing"
	default:
		return "internal"
	}
}
