package fileaccess

import (
	"fmt"
	"io"
	"strings"

	"github.com/gobeaver/fileaccess/internal/pathutil"
)

// Manager is a bound virtual filesystem: a scheme, a root within the
// provider, and the (possibly decorated) provider itself. It turns
// "scheme://path" URIs into handles. A Manager is created by Namespace and
// is safe for concurrent use.
type Manager struct {
	scheme string
	root   string
	fs     FileSystem
}

func newManager(scheme, root string, fs FileSystem) *Manager {
	return &Manager{
		scheme: scheme,
		root:   root,
		fs:     fs,
	}
}

// Scheme returns the URI scheme this manager resolves.
func (m *Manager) Scheme() string {
	return m.scheme
}

// Root returns the provider path all handles are resolved under.
func (m *Manager) Root() string {
	return m.root
}

// Provider returns the provider handles are bound to.
func (m *Manager) Provider() FileSystem {
	return m.fs
}

// ResolveFile resolves uri to a handle. The URI must carry this manager's
// scheme; its path is cleaned and placed under the root. Resolving never
// touches the provider, so it never creates anything.
func (m *Manager) ResolveFile(uri string) (*FileObject, error) {
	marker := m.scheme + "://"
	if !strings.HasPrefix(uri, marker) {
		return nil, resolutionError("resolve", uri, fmt.Errorf("%w: scheme not handled by this manager", ErrNotSupported))
	}

	p, err := pathutil.Join(m.root, strings.TrimPrefix(uri, marker))
	if err != nil {
		return nil, resolutionError("resolve", uri, err)
	}

	return &FileObject{
		name: FileName{scheme: m.scheme, path: p},
		fs:   m.fs,
	}, nil
}

// ClearCache drops cached provider metadata, if the provider is cached.
func (m *Manager) ClearCache() {
	if c, ok := m.fs.(*CachingFileSystem); ok {
		c.Clear()
	}
}

// Close clears the provider cache and releases the provider connection.
func (m *Manager) Close() error {
	m.ClearCache()
	if c, ok := m.fs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
