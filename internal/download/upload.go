package download

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/blob"
	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/logger"
)

// Upload stores a file for a content item and points the item at it.
// Only the owning DJ may upload.
func (s *service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	item, err := s.store.GetContentItem(ctx, req.ContentType, req.ContentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrContentNotFound
	}
	if item.DJID != req.UserID {
		return nil, domain.ErrAccessDenied
	}

	mediaType := req.MediaType
	if mediaType == "" || mediaType == blob.DEFAULT_CONTENT_TYPE {
		mediaType = blob.DetectContentType(req.Body)
	}

	key := StorageKey(item.DJID, item.ContentType, item.ID, req.Filename)
	err = s.blobs.PutObject(ctx, s.config.Bucket, key, req.Body, mediaType, map[string]string{
		"content_id":   item.ID,
		"content_type": string(item.ContentType),
		"dj_id":        item.DJID,
	})
	if err != nil {
		if errors.Is(err, blob.ErrObjectTooLarge) {
			return nil, fmt.Errorf("%w: %v", domain.ErrUploadTooLarge, err)
		}
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	if err := s.store.UpdateContentFile(ctx, item.ID, key, mediaType, s.clock.Now()); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Content file uploaded",
		zap.String("content_id", item.ID),
		zap.String("storage_key", key),
		zap.String("media_type", mediaType),
		zap.Int("size", len(req.Body)),
	)

	return &UploadResult{StorageKey: key, MediaType: mediaType}, nil
}

// StorageKey builds the blob key of an uploaded file: <dj_id>/<content_type>/<content_id>/<filename>
func StorageKey(djID string, contentType domain.ContentType, contentID string, filename string) string {
	return path.Join(djID, string(contentType), contentID, sanitizeFilename(filename))
}

// sanitizeFilename keeps the base name and replaces characters outside a safe set
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
