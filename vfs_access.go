package fileaccess

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/gobeaver/fileaccess/internal/metrics"
)

const vfsBackend = "vfs"

// VFSAccess is the writable FileAccess backend. Every operation resolves a
// handle through the namespace first.
//
// Exists, Delete, the path helpers and the mutations never fail loudly:
// errors are logged at debug level and reported as false, "" or nothing.
// OpenInputElement, OpenOutputElement, CanonicalPath and GetFileSync return
// errors matching ErrIO.
type VFSAccess struct {
	ns     *Namespace
	logger *zap.Logger
}

// NewVFSAccess creates a writable backend over ns.
func NewVFSAccess(ns *Namespace) *VFSAccess {
	return &VFSAccess{
		ns:     ns,
		logger: ns.Logger().With(zap.String("backend", vfsBackend)),
	}
}

// Namespace returns the namespace the backend resolves through.
func (a *VFSAccess) Namespace() *Namespace {
	return a.ns
}

func (a *VFSAccess) swallow(op, name string, err error) {
	a.logger.Debug("Element operation failed",
		zap.String("operation", op),
		zap.String("path", name),
		zap.Error(err))
}

// Exists reports whether name exists. Any failure reads as false.
func (a *VFSAccess) Exists(ctx context.Context, name string) bool {
	start := time.Now()
	ok, err := a.exists(ctx, name)
	metrics.ObserveOp(vfsBackend, "exists", start, err == nil)
	if err != nil {
		a.swallow("exists", name, err)
		return false
	}
	return ok
}

func (a *VFSAccess) exists(ctx context.Context, name string) (bool, error) {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		return false, err
	}
	return obj.Exists(ctx)
}

// IsElement is Exists.
func (a *VFSAccess) IsElement(ctx context.Context, name string) bool {
	return a.Exists(ctx, name)
}

// OpenInputElement opens name for reading.
func (a *VFSAccess) OpenInputElement(ctx context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := a.openInput(ctx, name)
	metrics.ObserveOp(vfsBackend, "open_input", start, err == nil)
	return rc, err
}

func (a *VFSAccess) openInput(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		return nil, ioError("open", name, err)
	}
	rc, err := obj.InputStream(ctx)
	if err != nil {
		return nil, ioError("open", name, err)
	}
	return rc, nil
}

// OpenOutputElement opens name for writing, creating or truncating it. The
// parent directory must exist; see CreateParentDirs.
func (a *VFSAccess) OpenOutputElement(ctx context.Context, name string) (io.WriteCloser, error) {
	start := time.Now()
	wc, err := a.openOutput(ctx, name)
	metrics.ObserveOp(vfsBackend, "open_output", start, err == nil)
	return wc, err
}

func (a *VFSAccess) openOutput(ctx context.Context, name string) (io.WriteCloser, error) {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		return nil, ioError("create", name, err)
	}
	wc, err := obj.OutputStream(ctx)
	if err != nil {
		return nil, ioError("create", name, err)
	}
	return wc, nil
}

// CreateParentDirs creates the parent directory of name when it is
// missing. Errors are swallowed.
func (a *VFSAccess) CreateParentDirs(ctx context.Context, name string) {
	start := time.Now()
	err := a.createParentDirs(ctx, name)
	metrics.ObserveOp(vfsBackend, "create_parent_dirs", start, err == nil)
	if err != nil {
		a.swallow("create_parent_dirs", name, err)
	}
}

func (a *VFSAccess) createParentDirs(ctx context.Context, name string) error {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		return err
	}
	parent := obj.Parent()
	if parent == nil {
		return nil
	}
	ok, err := parent.Exists(ctx)
	if err != nil || ok {
		return err
	}
	return parent.CreateFolder(ctx)
}

// Delete removes name and reports whether it did. A missing element and
// any failure both read as false.
func (a *VFSAccess) Delete(ctx context.Context, name string) bool {
	start := time.Now()
	deleted, err := a.delete(ctx, name)
	metrics.ObserveOp(vfsBackend, "delete", start, err == nil)
	if err != nil {
		a.swallow("delete", name, err)
		return false
	}
	return deleted
}

func (a *VFSAccess) delete(ctx context.Context, name string) (bool, error) {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		return false, err
	}
	return obj.Delete(ctx)
}

// RemoveElement deletes name if it exists. The check and the delete are
// two separate provider calls.
func (a *VFSAccess) RemoveElement(ctx context.Context, name string) {
	if a.Exists(ctx, name) {
		a.Delete(ctx, name)
	}
}

// RenameElement moves oldName to newName, replacing any existing newName.
// It is not atomic: when the plain move fails, newName is deleted and the
// move retried once. If that fails too the call gives up silently, which
// can leave neither element in place.
func (a *VFSAccess) RenameElement(ctx context.Context, oldName, newName string) {
	start := time.Now()
	err := a.renameWithOverwrite(ctx, oldName, newName)
	metrics.ObserveOp(vfsBackend, "rename", start, err == nil)
	if err != nil {
		a.logger.Debug("Rename failed",
			zap.String("from", oldName),
			zap.String("to", newName),
			zap.Error(err))
	}
}

func (a *VFSAccess) renameWithOverwrite(ctx context.Context, oldName, newName string) error {
	src, err := a.ns.Resolve(ctx, oldName)
	if err != nil {
		return err
	}
	dst, err := a.ns.Resolve(ctx, newName)
	if err != nil {
		return err
	}
	if src.Name().Path() == dst.Name().Path() {
		return nil
	}

	if err := src.MoveTo(ctx, dst); err == nil {
		return nil
	}

	deleted, err := dst.Delete(ctx)
	if err != nil {
		return err
	}
	if !deleted {
		return &PathError{Op: "rename", Path: newName, Err: ErrExist}
	}
	return src.MoveTo(ctx, dst)
}

// AbsolutePath returns the provider locator of name, or name itself when it
// cannot be resolved.
func (a *VFSAccess) AbsolutePath(ctx context.Context, name string) string {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		a.swallow("absolute_path", name, err)
		return name
	}
	return obj.URL()
}

// CanonicalPath returns the normalized path of name within the provider.
func (a *VFSAccess) CanonicalPath(ctx context.Context, name string) (string, error) {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		return "", ioError("canonical", name, err)
	}
	return obj.Name().Path(), nil
}

// CanonicalOrAbsolutePath returns CanonicalPath, falling back to
// AbsolutePath.
func (a *VFSAccess) CanonicalOrAbsolutePath(ctx context.Context, name string) string {
	p, err := a.CanonicalPath(ctx, name)
	if err != nil {
		return a.AbsolutePath(ctx, name)
	}
	return p
}

// MakeDirectories creates the directory name and its ancestors and returns
// its canonical path. On failure it returns "" and false.
func (a *VFSAccess) MakeDirectories(ctx context.Context, name string) (string, bool) {
	start := time.Now()
	p, err := a.makeDirectories(ctx, name)
	metrics.ObserveOp(vfsBackend, "make_directories", start, err == nil)
	if err != nil {
		a.swallow("make_directories", name, err)
		return "", false
	}
	return p, true
}

func (a *VFSAccess) makeDirectories(ctx context.Context, name string) (string, error) {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	if err := obj.CreateFolder(ctx); err != nil {
		return "", err
	}
	return obj.Name().Path(), nil
}

// GetFileSync returns the durable-write token for a stream returned by
// OpenOutputElement.
func (a *VFSAccess) GetFileSync(w io.Writer) (FileSync, error) {
	return NewFileSync(w)
}

// Checksum computes the hex checksum of the element content.
func (a *VFSAccess) Checksum(ctx context.Context, name string, algorithm ChecksumAlgorithm) (string, error) {
	rc, err := a.OpenInputElement(ctx, name)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	sum, err := CalculateChecksum(rc, algorithm)
	if err != nil {
		return "", ioError("checksum", name, err)
	}
	return sum, nil
}

// DeleteOnExit schedules name for deletion when the namespace is torn
// down. Names that cannot be resolved are ignored.
func (a *VFSAccess) DeleteOnExit(ctx context.Context, name string) {
	obj, err := a.ns.Resolve(ctx, name)
	if err != nil {
		a.swallow("delete_on_exit", name, err)
		return
	}
	a.ns.scheduleDeleteOnExit(name)
	a.logger.Debug("Scheduled delete on exit", zap.String("path", obj.Name().Path()))
}

var _ FileAccess = (*VFSAccess)(nil)
