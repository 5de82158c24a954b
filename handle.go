package fileaccess

import (
	"context"
	"errors"
	"io"

	"github.com/gobeaver/fileaccess/internal/pathutil"
)

// FileName is the scheme and normalized path of a handle.
type FileName struct {
	scheme string
	path   string
}

// Scheme returns the URI scheme.
func (n FileName) Scheme() string {
	return n.scheme
}

// Path returns the cleaned absolute path within the provider.
func (n FileName) Path() string {
	return n.path
}

// URI returns "scheme://path".
func (n FileName) URI() string {
	return n.scheme + "://" + n.path
}

func (n FileName) String() string {
	return n.URI()
}

// FileObject is a handle to one path in a namespace. It holds no state
// besides its name: every query goes to the provider, and there is nothing
// to close.
type FileObject struct {
	name FileName
	fs   FileSystem
}

// Name returns the handle's name.
func (f *FileObject) Name() FileName {
	return f.name
}

// Exists reports whether a file or directory exists at the handle's path.
func (f *FileObject) Exists(ctx context.Context) (bool, error) {
	ok, err := f.fs.FileExists(ctx, f.name.path)
	if err != nil || ok {
		return ok, err
	}
	return f.fs.DirExists(ctx, f.name.path)
}

// InputStream opens the file content for reading.
func (f *FileObject) InputStream(ctx context.Context) (io.ReadCloser, error) {
	return f.fs.Read(ctx, f.name.path)
}

// OutputStream opens the file for writing, creating or truncating it. The
// parent directory must already exist.
//
// Providers without a native writer get a pipe whose reader is consumed by
// a provider Write running in its own goroutine; Close waits for that write
// and returns its error.
func (f *FileObject) OutputStream(ctx context.Context) (io.WriteCloser, error) {
	if parent := f.Parent(); parent != nil && !pathutil.IsRoot(parent.name.path) {
		ok, err := f.fs.DirExists(ctx, parent.name.path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &PathError{Op: "openwriter", Path: f.name.path, Err: ErrNotExist}
		}
	}

	if w, ok := f.fs.(CanOpenWriter); ok {
		wc, err := w.OpenWriter(ctx, f.name.path)
		if err == nil || !errors.Is(err, ErrNotSupported) {
			return wc, err
		}
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := f.fs.Write(ctx, f.name.path, pr, WithOverwrite(true))
		pr.CloseWithError(err)
		done <- err
	}()
	return &pipeWriter{pw: pw, done: done}, nil
}

type pipeWriter struct {
	pw     *io.PipeWriter
	done   chan error
	closed bool
	err    error
}

func (w *pipeWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *pipeWriter) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	w.pw.Close()
	w.err = <-w.done
	return w.err
}

// Parent returns the handle of the parent directory, or nil at the
// provider root.
func (f *FileObject) Parent() *FileObject {
	p, ok := pathutil.Parent(f.name.path)
	if !ok {
		return nil
	}
	return &FileObject{
		name: FileName{scheme: f.name.scheme, path: p},
		fs:   f.fs,
	}
}

// CreateFolder creates the directory and any missing ancestors.
func (f *FileObject) CreateFolder(ctx context.Context) error {
	return f.fs.CreateDir(ctx, f.name.path)
}

// Delete removes the file or empty directory. It reports false, without
// error, when nothing exists at the path.
func (f *FileObject) Delete(ctx context.Context) (bool, error) {
	ok, err := f.Exists(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := f.fs.Delete(ctx, f.name.path); err != nil {
		if errors.Is(err, ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MoveTo moves the file to dst. It fails with ErrExist when dst already
// exists and with ErrNotExist when the source is missing. Providers without
// a native move get copy-then-delete.
func (f *FileObject) MoveTo(ctx context.Context, dst *FileObject) error {
	exists, err := dst.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return &PathError{Op: "move", Path: dst.name.path, Err: ErrExist}
	}

	exists, err = f.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return &PathError{Op: "move", Path: f.name.path, Err: ErrNotExist}
	}

	if mover, ok := f.fs.(CanMove); ok {
		err := mover.Move(ctx, f.name.path, dst.name.path)
		if err == nil || !errors.Is(err, ErrNotSupported) {
			return err
		}
	}

	rc, err := f.fs.Read(ctx, f.name.path)
	if err != nil {
		return err
	}
	err = dst.fs.Write(ctx, dst.name.path, rc)
	rc.Close()
	if err != nil {
		return err
	}
	return f.fs.Delete(ctx, f.name.path)
}

// URL returns the provider's locator for the handle, or its URI when the
// provider has none.
func (f *FileObject) URL() string {
	if u, ok := f.fs.(CanURL); ok {
		if s := u.URL(f.name.path); s != "" {
			return s
		}
	}
	return f.name.URI()
}
