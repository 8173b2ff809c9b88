package domain

import "errors"

var (
	// ErrUnauthorized is returned when no valid session identifies the caller
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccessDenied is returned when entitlement resolution denies access
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidToken is returned for any token that cannot be redeemed.
	// Nonexistent, expired, used and IP-mismatched tokens all map here.
	ErrInvalidToken = errors.New("invalid or expired download link")

	// ErrContentNotFound is returned when the content row behind a request is gone
	ErrContentNotFound = errors.New("content not found")

	// ErrVersionNotFound is returned when a requested version does not belong to the content
	ErrVersionNotFound = errors.New("content version not found")

	// ErrTooManyDownloads is returned when the per-user concurrency cap is reached
	ErrTooManyDownloads = errors.New("too many concurrent downloads")

	// ErrRateLimited is returned when the IP download rate limit is exceeded
	ErrRateLimited = errors.New("download rate limit exceeded")

	// ErrUploadTooLarge is returned when the blob backend can not hold the uploaded file
	ErrUploadTooLarge = errors.New("upload too large")

	// ErrTokenGeneration is returned when a token cannot be persisted
	ErrTokenGeneration = errors.New("failed to generate token")
)
