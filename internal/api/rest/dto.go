package rest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mixmint/mixmint-downloads/internal/domain"
	"github.com/mixmint/mixmint-downloads/internal/settings"
)

// IssueTokenRequest is the body of POST /api/v1/downloads/tokens
type IssueTokenRequest struct {
	ContentID   string  `json:"content_id" binding:"required"`
	ContentType string  `json:"content_type" binding:"required"`
	VersionID   *string `json:"version_id,omitempty"`
}

// Validate checks the request and returns the normalized content type
func (r IssueTokenRequest) Validate() (domain.ContentType, error) {
	contentType, ok := domain.ParseContentType(r.ContentType)
	if !ok {
		return "", fmt.Errorf("invalid content_type: %q", r.ContentType)
	}
	if err := validateID("content_id", r.ContentID); err != nil {
		return "", err
	}
	if r.VersionID != nil {
		if err := validateID("version_id", *r.VersionID); err != nil {
			return "", err
		}
	}
	return contentType, nil
}

// IssueTokenResponse is returned after a token was issued
type IssueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	// DownloadURL is the relative redemption URL for the token
	DownloadURL string `json:"download_url"`
}

// AccessResponse is the result of an entitlement check
type AccessResponse struct {
	Allowed bool   `json:"allowed"`
	Via     string `json:"via,omitempty"`
}

// UploadResponse tells the DJ where the uploaded file was stored
type UploadResponse struct {
	StorageKey string `json:"storage_key"`
	MediaType  string `json:"media_type"`
}

// UpdateSettingsRequest is the body of PUT /api/v1/admin/settings
type UpdateSettingsRequest struct {
	TokenTTLSeconds            *int `json:"token_ttl_seconds"`
	MaxConcurrentDownloads     *int `json:"max_concurrent_downloads"`
	DownloadRateLimitPerMinute *int `json:"download_rate_limit_per_minute"`
}

func (r UpdateSettingsRequest) toUpdate() settings.Update {
	return settings.Update{
		TokenTTLSeconds:            r.TokenTTLSeconds,
		MaxConcurrentDownloads:     r.MaxConcurrentDownloads,
		DownloadRateLimitPerMinute: r.DownloadRateLimitPerMinute,
	}
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid %s: must be a UUID", field)
	}
	return nil
}
