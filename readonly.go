package fileaccess

import (
	"context"
	"errors"
	"io"
)

// ErrReadOnly is returned when a write operation is attempted on a read-only
// provider or through the resource backend.
var ErrReadOnly = errors.New("filesystem is read-only")

// ============================================================================
// ReadOnlyFileSystem Decorator
// ============================================================================

// ReadOnlyFileSystem wraps a provider to prevent all write operations.
// A namespace bound with Config.ReadOnly serves its provider through this
// decorator, so every VFSAccess mutation fails or reports false.
//
// Example:
//
//	provider, _ := local.New("/data")
//	readOnly := fileaccess.NewReadOnlyFileSystem(provider)
//
//	// Read operations work normally
//	reader, _ := readOnly.Read(ctx, "/db/test.script")
//
//	// Write operations return ErrReadOnly
//	err := readOnly.Write(ctx, "/db/test.script", reader)
//	// err wraps ErrReadOnly
type ReadOnlyFileSystem struct {
	fs   FileSystem
	opts ReadOnlyOptions
}

// ReadOnlyOptions configures the ReadOnlyFileSystem behavior.
type ReadOnlyOptions struct {
	// AllowCreateDir permits directory creation even in read-only mode.
	AllowCreateDir bool

	// AllowDelete permits deletion in read-only mode.
	AllowDelete bool

	// OnWriteAttempt is called when a write operation is attempted.
	// If it returns nil the write is allowed.
	OnWriteAttempt func(op, path string) error
}

// ReadOnlyOption is a functional option for configuring ReadOnlyFileSystem.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithAllowCreateDir allows directory creation in read-only mode.
func WithAllowCreateDir(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowCreateDir = allow
	}
}

// WithAllowDelete allows deletion in read-only mode.
func WithAllowDelete(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowDelete = allow
	}
}

// WithWriteAttemptHandler sets a custom handler for write attempts.
func WithWriteAttemptHandler(handler func(op, path string) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.OnWriteAttempt = handler
	}
}

// NewReadOnlyFileSystem creates a read-only wrapper around a provider.
func NewReadOnlyFileSystem(fs FileSystem, opts ...ReadOnlyOption) *ReadOnlyFileSystem {
	options := ReadOnlyOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return &ReadOnlyFileSystem{
		fs:   fs,
		opts: options,
	}
}

// Unwrap returns the underlying provider.
func (r *ReadOnlyFileSystem) Unwrap() FileSystem {
	return r.fs
}

// IsReadOnly returns true, indicating this is a read-only provider.
func (r *ReadOnlyFileSystem) IsReadOnly() bool {
	return true
}

// Close closes the underlying provider if it holds resources.
func (r *ReadOnlyFileSystem) Close() error {
	if c, ok := r.fs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *ReadOnlyFileSystem) readOnlyError(op, path string) error {
	if r.opts.OnWriteAttempt != nil {
		if err := r.opts.OnWriteAttempt(op, path); err != nil {
			return &PathError{Op: op, Path: path, Err: err}
		}
		return nil
	}
	return &PathError{Op: op, Path: path, Err: ErrReadOnly}
}

// ============================================================================
// Read Operations (Delegated)
// ============================================================================

// Read delegates to the underlying provider.
func (r *ReadOnlyFileSystem) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	return r.fs.Read(ctx, path)
}

// FileExists delegates to the underlying provider.
func (r *ReadOnlyFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	return r.fs.FileExists(ctx, path)
}

// DirExists delegates to the underlying provider.
func (r *ReadOnlyFileSystem) DirExists(ctx context.Context, path string) (bool, error) {
	return r.fs.DirExists(ctx, path)
}

// Stat delegates to the underlying provider.
func (r *ReadOnlyFileSystem) Stat(ctx context.Context, path string) (*FileInfo, error) {
	return r.fs.Stat(ctx, path)
}

// URL delegates to the underlying provider.
func (r *ReadOnlyFileSystem) URL(path string) string {
	if u, ok := r.fs.(CanURL); ok {
		return u.URL(path)
	}
	return ""
}

// ============================================================================
// Write Operations (Blocked)
// ============================================================================

// Write returns ErrReadOnly.
func (r *ReadOnlyFileSystem) Write(ctx context.Context, path string, content io.Reader, options ...Option) error {
	if err := r.readOnlyError("write", path); err != nil {
		return err
	}
	return r.fs.Write(ctx, path, content, options...)
}

// Delete returns ErrReadOnly unless AllowDelete is enabled.
func (r *ReadOnlyFileSystem) Delete(ctx context.Context, path string) error {
	if !r.opts.AllowDelete {
		if err := r.readOnlyError("delete", path); err != nil {
			return err
		}
	}
	return r.fs.Delete(ctx, path)
}

// CreateDir returns ErrReadOnly unless AllowCreateDir is enabled.
func (r *ReadOnlyFileSystem) CreateDir(ctx context.Context, path string) error {
	if !r.opts.AllowCreateDir {
		if err := r.readOnlyError("createdir", path); err != nil {
			return err
		}
	}
	return r.fs.CreateDir(ctx, path)
}

// OpenWriter returns ErrReadOnly.
func (r *ReadOnlyFileSystem) OpenWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := r.readOnlyError("openwriter", path); err != nil {
		return nil, err
	}
	if w, ok := r.fs.(CanOpenWriter); ok {
		return w.OpenWriter(ctx, path)
	}
	return nil, &PathError{Op: "openwriter", Path: path, Err: ErrNotSupported}
}

// Move returns ErrReadOnly.
func (r *ReadOnlyFileSystem) Move(ctx context.Context, src, dst string) error {
	if err := r.readOnlyError("move", dst); err != nil {
		return err
	}
	if mover, ok := r.fs.(CanMove); ok {
		return mover.Move(ctx, src, dst)
	}
	return &PathError{Op: "move", Path: src, Err: ErrNotSupported}
}

var (
	_ FileSystem    = (*ReadOnlyFileSystem)(nil)
	_ CanMove       = (*ReadOnlyFileSystem)(nil)
	_ CanOpenWriter = (*ReadOnlyFileSystem)(nil)
	_ CanURL        = (*ReadOnlyFileSystem)(nil)
)

// IsReadOnlyError checks if an error is due to read-only restrictions.
func IsReadOnlyError(err error) bool {
	return errors.Is(err, ErrReadOnly)
}
