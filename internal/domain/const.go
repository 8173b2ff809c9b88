package domain

import "time"

const (
	// DEFAULT_TOKEN_TTL is how long a download token stays redeemable
	DEFAULT_TOKEN_TTL = 5 * time.Minute

	// DEFAULT_MAX_CONCURRENT_DOWNLOADS caps outstanding tokens per user
	DEFAULT_MAX_CONCURRENT_DOWNLOADS = 3

	// DOWNLOAD_TOKEN_BYTES is the number of random bytes behind a token (hex encoded on the wire)
	DOWNLOAD_TOKEN_BYTES = 32

	// UNLIMITED_QUOTA disables the quota check for a category
	UNLIMITED_QUOTA = -1
)
