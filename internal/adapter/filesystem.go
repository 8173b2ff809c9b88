package adapter

import (
	"io"
	"io/fs"
	"os"
)

// FileSystem defines an interface for file system operations to enable mocking
//
//go:generate mockgen -source=filesystem.go -destination=../mocks/filesystem.go -package=mocks -mock_names=FileSystem=MockFileSystem
type FileSystem interface {
	// MkdirAll creates a directory along with any necessary parents
	MkdirAll(path string, perm fs.FileMode) error

	// Open opens the named file for reading
	Open(name string) (ReadableFile, error)

	// ReadFile reads the whole named file
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to a temporary sibling and renames it over name
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Remove removes the named file or directory
	Remove(name string) error
}

// ReadableFile defines an interface for an opened file
type ReadableFile interface {
	io.ReadCloser
	Stat() (fs.FileInfo, error)
}

// RealFileSystem implements FileSystem using the standard os package
type RealFileSystem struct{}

// NewFileSystem creates a new real file system
func NewFileSystem() FileSystem {
	return &RealFileSystem{}
}

// MkdirAll creates a directory along with any necessary parents
func (fs *RealFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Open opens the named file for reading
func (fs *RealFileSystem) Open(name string) (ReadableFile, error) {
	return os.Open(name) //nolint:gosec,G304
}

// ReadFile reads the whole named file
func (fs *RealFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name) //nolint:gosec,G304
}

// WriteFile writes data to a temporary sibling and renames it over name,
// so readers never observe a partially written file
func (fs *RealFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Remove removes the named file or directory
func (fs *RealFileSystem) Remove(name string) error {
	return os.Remove(name)
}
