package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrObjectNotFound is returned when a bucket has no object under the key
	ErrObjectNotFound = errors.New("object not found")

	// ErrObjectTooLarge is returned when a backend can not hold an object of that size
	ErrObjectTooLarge = errors.New("object too large for blob backend")
)

// DEFAULT_CONTENT_TYPE is stored when the content type can not be detected
const DEFAULT_CONTENT_TYPE = "application/octet-stream"

// Object is an opened blob. The caller must close Body.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Metadata      map[string]string
}

// Store defines the blob store consumed by uploads and redemptions
//
//go:generate mockgen -source=blob.go -destination=../mocks/blob.go -package=mocks -mock_names=Store=MockBlobStore
type Store interface {
	// PutObject writes body under bucket/key, replacing any existing object
	// An empty contentType is detected from the body
	PutObject(ctx context.Context, bucket string, key string, body []byte, contentType string, metadata map[string]string) error

	// GetObject opens the object stored under bucket/key
	// Returns ErrObjectNotFound when nothing is stored there
	GetObject(ctx context.Context, bucket string, key string) (*Object, error)
}

// objectMeta is persisted next to each object
type objectMeta struct {
	ContentType   string            `json:"content_type"`
	ContentLength int64             `json:"content_length"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DetectContentType sniffs the media type of body
func DetectContentType(body []byte) string {
	if len(body) == 0 {
		return DEFAULT_CONTENT_TYPE
	}
	return mimetype.Detect(body).String()
}

// ExtensionFor returns the conventional file extension (with dot) for a media type
func ExtensionFor(contentType string) string {
	mtype := mimetype.Lookup(contentType)
	if mtype == nil {
		return ""
	}
	return mtype.Extension()
}

// cleanKey validates bucket and key and joins them into a slash separated object path
func cleanKey(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket: %q", bucket)
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	return bucket + "/" + cleaned, nil
}
