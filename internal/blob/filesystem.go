package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/mixmint/mixmint-downloads/internal/adapter"
)

// META_SUFFIX names the sidecar entry holding an object's metadata
const META_SUFFIX = ".meta.json"

type filesystemStore struct {
	root string
	fs   adapter.FileSystem
	json adapter.JSON
}

// NewFilesystemStore creates a blob store rooted at a local directory.
// Each bucket is a sub-directory; object metadata lives in a sidecar file.
func NewFilesystemStore(root string, fileSystem adapter.FileSystem, jsonAdapter adapter.JSON) Store {
	return &filesystemStore{
		root: root,
		fs:   fileSystem,
		json: jsonAdapter,
	}
}

func (s *filesystemStore) objectPath(bucket, key string) (string, error) {
	p, err := cleanKey(bucket, key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(p)), nil
}

// PutObject writes the object and its sidecar metadata
func (s *filesystemStore) PutObject(ctx context.Context, bucket string, key string, body []byte, contentType string, metadata map[string]string) error {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = DetectContentType(body)
	}

	if err := s.fs.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	meta, err := s.json.Marshal(objectMeta{
		ContentType:   contentType,
		ContentLength: int64(len(body)),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal object metadata: %w", err)
	}

	if err := s.fs.WriteFile(p, body, 0o640); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := s.fs.WriteFile(p+META_SUFFIX, meta, 0o640); err != nil {
		return fmt.Errorf("failed to write object metadata: %w", err)
	}

	return nil
}

// GetObject opens the object for streaming
func (s *filesystemStore) GetObject(ctx context.Context, bucket string, key string) (*Object, error) {
	p, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	obj := &Object{
		Body:          f,
		ContentType:   DEFAULT_CONTENT_TYPE,
		ContentLength: info.Size(),
	}

	// Objects copied into the root by hand have no sidecar
	raw, err := s.fs.ReadFile(p + META_SUFFIX)
	switch {
	case err == nil:
		var meta objectMeta
		if err := s.json.Unmarshal(raw, &meta); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to decode object metadata: %w", err)
		}
		if meta.ContentType != "" {
			obj.ContentType = meta.ContentType
		}
		obj.Metadata = meta.Metadata
	case errors.Is(err, fs.ErrNotExist):
	default:
		_ = f.Close()
		return nil, fmt.Errorf("failed to read object metadata: %w", err)
	}

	return obj, nil
}
