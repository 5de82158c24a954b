package fileaccess

import (
	"context"
	"io"
)

// FileAccess is the capability a storage engine uses to reach its
// elements (files). Names are forward-slash logical paths.
//
// IsElement reports false on any failure and the mutations are best-effort
// and silent. The stream openers and GetFileSync return errors matching
// ErrIO.
type FileAccess interface {
	// IsElement reports whether name exists.
	IsElement(ctx context.Context, name string) bool

	// OpenInputElement opens name for reading.
	OpenInputElement(ctx context.Context, name string) (io.ReadCloser, error)

	// OpenOutputElement opens name for writing, creating or truncating it.
	// Parent directories are not created.
	OpenOutputElement(ctx context.Context, name string) (io.WriteCloser, error)

	// CreateParentDirs creates the parent directory of name if missing.
	CreateParentDirs(ctx context.Context, name string)

	// RemoveElement deletes name if it exists.
	RemoveElement(ctx context.Context, name string)

	// RenameElement moves oldName to newName, replacing newName.
	RenameElement(ctx context.Context, oldName, newName string)

	// GetFileSync returns a token that flushes w to durable storage.
	GetFileSync(w io.Writer) (FileSync, error)
}

// FileSync forces the buffered writes of one open output stream to durable
// storage. It is valid only while that stream is open.
type FileSync interface {
	Sync() error
}
