package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// NewDownloadToken returns a hex-encoded token backed by DOWNLOAD_TOKEN_BYTES random bytes read from r.
// Pass crypto/rand.Reader in production.
func NewDownloadToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, DOWNLOAD_TOKEN_BYTES)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RedactToken returns a short prefix of a token that is safe to log
func RedactToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
