package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/cloudflare-go"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
)

// CLOUDFLARE_MAX_OBJECT_SIZE is the largest object the Workers KV backend accepts.
// A KV value is capped at 25 MiB and objects are stored base64 encoded.
const CLOUDFLARE_MAX_OBJECT_SIZE = 25 << 20 / 4 * 3

// CloudflareConfig holds the Workers KV settings of the cloudflare backend
type CloudflareConfig struct {
	AccountID string
	// Namespaces maps a bucket name to a Workers KV namespace ID
	Namespaces map[string]string
}

type cloudflareStore struct {
	client adapter.CloudflareClient
	rc     *cloudflare.ResourceContainer
	config CloudflareConfig
	json   adapter.JSON
}

// NewCloudflareStore creates a blob store on Cloudflare Workers KV.
// Object bytes and metadata are written as two entries in one bulk write.
// Objects are read whole, so this backend suits files up to CLOUDFLARE_MAX_OBJECT_SIZE.
func NewCloudflareStore(cfg CloudflareConfig, client adapter.CloudflareClient, jsonAdapter adapter.JSON) Store {
	return &cloudflareStore{
		client: client,
		rc:     cloudflare.AccountIdentifier(cfg.AccountID),
		config: cfg,
		json:   jsonAdapter,
	}
}

func (s *cloudflareStore) namespace(bucket string) (string, error) {
	ns, ok := s.config.Namespaces[bucket]
	if !ok || ns == "" {
		return "", fmt.Errorf("no workers kv namespace configured for bucket %q", bucket)
	}
	return ns, nil
}

// PutObject writes the object bytes (base64) and its metadata entry
func (s *cloudflareStore) PutObject(ctx context.Context, bucket string, key string, body []byte, contentType string, metadata map[string]string) error {
	if _, err := cleanKey(bucket, key); err != nil {
		return err
	}
	if len(body) > CLOUDFLARE_MAX_OBJECT_SIZE {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrObjectTooLarge, len(body), CLOUDFLARE_MAX_OBJECT_SIZE)
	}
	ns, err := s.namespace(bucket)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = DetectContentType(body)
	}

	meta, err := s.json.Marshal(objectMeta{
		ContentType:   contentType,
		ContentLength: int64(len(body)),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal object metadata: %w", err)
	}

	_, err = s.client.WriteWorkersKVEntries(ctx, s.rc, cloudflare.WriteWorkersKVEntriesParams{
		NamespaceID: ns,
		KVs: []*cloudflare.WorkersKVPair{
			{
				Key:    key,
				Value:  base64.StdEncoding.EncodeToString(body),
				Base64: true,
			},
			{
				Key:   key + META_SUFFIX,
				Value: string(meta),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write workers kv entries: %w", err)
	}

	return nil
}

// GetObject reads the object and its metadata entry
func (s *cloudflareStore) GetObject(ctx context.Context, bucket string, key string) (*Object, error) {
	if _, err := cleanKey(bucket, key); err != nil {
		return nil, err
	}
	ns, err := s.namespace(bucket)
	if err != nil {
		return nil, err
	}

	body, err := s.client.GetWorkersKV(ctx, s.rc, cloudflare.GetWorkersKVParams{NamespaceID: ns, Key: key})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read workers kv entry: %w", err)
	}

	obj := &Object{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentType:   DEFAULT_CONTENT_TYPE,
		ContentLength: int64(len(body)),
	}

	raw, err := s.client.GetWorkersKV(ctx, s.rc, cloudflare.GetWorkersKVParams{NamespaceID: ns, Key: key + META_SUFFIX})
	switch {
	case err == nil:
		var meta objectMeta
		if err := s.json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode object metadata: %w", err)
		}
		if meta.ContentType != "" {
			obj.ContentType = meta.ContentType
		}
		obj.Metadata = meta.Metadata
	case isNotFound(err):
		obj.ContentType = DetectContentType(body)
	default:
		return nil, fmt.Errorf("failed to read workers kv metadata: %w", err)
	}

	return obj, nil
}

func isNotFound(err error) bool {
	var notFound cloudflare.NotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var notFoundPtr *cloudflare.NotFoundError
	return errors.As(err, &notFoundPtr)
}
