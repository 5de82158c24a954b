package fileaccess

import (
	"context"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gobeaver/fileaccess/internal/metrics"
)

const resourceBackend = "resource"

// ResourceAccess is the read-only FileAccess backend over bundled
// resources, typically an embed.FS.
//
// Names without a leading slash are looked up under the base directory of
// the primary filesystem; names with one are absolute within it. When a
// resource is missing from the primary filesystem, OpenInputElement also
// tries the fallback filesystem, where every name is root-relative.
//
// Mutations are accepted and ignored. OpenOutputElement and GetFileSync
// always fail with errors matching ErrIO and ErrReadOnly.
type ResourceAccess struct {
	primary  fs.FS
	base     string
	fallback fs.FS
	logger   *zap.Logger
}

// ResourceOption configures a ResourceAccess.
type ResourceOption func(*ResourceAccess)

// WithBase sets the directory relative names are resolved under.
func WithBase(dir string) ResourceOption {
	return func(r *ResourceAccess) {
		r.base = strings.Trim(path.Clean("/"+dir), "/")
	}
}

// WithFallback sets the filesystem searched when the primary lookup fails.
func WithFallback(fallback fs.FS) ResourceOption {
	return func(r *ResourceAccess) {
		r.fallback = fallback
	}
}

// WithResourceLogger sets the logger.
func WithResourceLogger(logger *zap.Logger) ResourceOption {
	return func(r *ResourceAccess) {
		r.logger = logger
	}
}

// NewResourceAccess creates a resource backend over primary.
func NewResourceAccess(primary fs.FS, opts ...ResourceOption) *ResourceAccess {
	r := &ResourceAccess{
		primary: primary,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("backend", resourceBackend))
	return r
}

// primaryName maps name to a path in the primary filesystem.
func (r *ResourceAccess) primaryName(name string) (string, bool) {
	var p string
	if strings.HasPrefix(name, "/") {
		p = path.Clean(name)
	} else {
		p = path.Join("/", r.base, name)
	}
	return validResourcePath(p)
}

// fallbackName maps name to a path in the fallback filesystem.
func (r *ResourceAccess) fallbackName(name string) (string, bool) {
	return validResourcePath(path.Clean("/" + name))
}

func validResourcePath(p string) (string, bool) {
	p = strings.TrimPrefix(p, "/")
	if p == "" || !fs.ValidPath(p) {
		return "", false
	}
	return p, true
}

// IsElement reports whether name exists in the primary filesystem. The
// fallback is not consulted.
func (r *ResourceAccess) IsElement(_ context.Context, name string) bool {
	start := time.Now()
	p, ok := r.primaryName(name)
	if !ok {
		metrics.ObserveOp(resourceBackend, "exists", start, true)
		return false
	}
	_, err := fs.Stat(r.primary, p)
	metrics.ObserveOp(resourceBackend, "exists", start, true)
	return err == nil
}

// OpenInputElement opens name from the primary filesystem, then from the
// fallback. A resource found in neither fails with ErrIO and ErrNotExist.
func (r *ResourceAccess) OpenInputElement(_ context.Context, name string) (io.ReadCloser, error) {
	start := time.Now()

	if p, ok := r.primaryName(name); ok {
		if f, ok := openRegular(r.primary, p); ok {
			metrics.ObserveOp(resourceBackend, "open_input", start, true)
			return f, nil
		}
	}

	if r.fallback != nil {
		if p, ok := r.fallbackName(name); ok {
			if f, ok := openRegular(r.fallback, p); ok {
				r.logger.Debug("Resource served from fallback", zap.String("path", name))
				metrics.ObserveOp(resourceBackend, "open_input", start, true)
				return f, nil
			}
		}
	}

	metrics.ObserveOp(resourceBackend, "open_input", start, false)
	return nil, ioError("open", name, ErrNotExist)
}

func openRegular(fsys fs.FS, p string) (fs.File, bool) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, false
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, false
	}
	return f, true
}

// OpenOutputElement always fails: resources are read-only.
func (r *ResourceAccess) OpenOutputElement(_ context.Context, name string) (io.WriteCloser, error) {
	return nil, ioError("create", name, ErrReadOnly)
}

// CreateParentDirs does nothing.
func (r *ResourceAccess) CreateParentDirs(context.Context, string) {}

// RemoveElement does nothing.
func (r *ResourceAccess) RemoveElement(context.Context, string) {}

// RenameElement does nothing.
func (r *ResourceAccess) RenameElement(context.Context, string, string) {}

// GetFileSync always fails: resources are read-only.
func (r *ResourceAccess) GetFileSync(w io.Writer) (FileSync, error) {
	return nil, ioError("sync", writerName(w), ErrReadOnly)
}

var _ FileAccess = (*ResourceAccess)(nil)
