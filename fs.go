package fileaccess

import (
	"context"
	"io"
	"time"
)

// FileInfo represents file/directory metadata
type FileInfo struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	ContentType string
	Metadata    map[string]string
}

// ============================================================================
// Provider Interfaces
// ============================================================================
// A provider is the storage a namespace is bound to. Paths handed to a
// provider are always cleaned, slash-separated and absolute ("/db/test.log").

// FileReader provides read-only provider access.
type FileReader interface {
	// Read returns a stream for reading file content.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// FileExists checks if a file exists at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// DirExists checks if a directory exists at path.
	DirExists(ctx context.Context, path string) (bool, error)

	// Stat returns file/directory metadata.
	Stat(ctx context.Context, path string) (*FileInfo, error)
}

// FileWriter provides write provider operations.
type FileWriter interface {
	// Write writes content from reader to path.
	Write(ctx context.Context, path string, r io.Reader, opts ...Option) error

	// Delete removes a file or an empty directory.
	Delete(ctx context.Context, path string) error

	// CreateDir creates a directory (and parents if needed).
	CreateDir(ctx context.Context, path string) error
}

// FileSystem provides full read-write provider access.
type FileSystem interface {
	FileReader
	FileWriter
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Use type assertion to check if a driver supports a capability:
//
//	if mover, ok := fs.(CanMove); ok {
//	    mover.Move(ctx, src, dst)
//	}
//
// Decorators always implement these and return ErrNotSupported when the
// wrapped provider does not.

// CanMove indicates the provider supports native move/rename operations.
type CanMove interface {
	Move(ctx context.Context, src, dst string) error
}

// CanOpenWriter indicates the provider can hand out a streaming writer.
// The file is created (or truncated) when the writer is opened. Writers that
// also implement Sync() error support durable-write synchronization.
type CanOpenWriter interface {
	OpenWriter(ctx context.Context, path string) (io.WriteCloser, error)
}

// CanURL indicates the provider has its own fully qualified locator for a
// path, such as "gs://bucket/key" or "file:///var/db/key".
type CanURL interface {
	URL(path string) string
}
