package fileaccess_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobeaver/fileaccess"
	"github.com/gobeaver/fileaccess/driver/memory"
)

func memoryConfig() *fileaccess.Config {
	cfg := fileaccess.DefaultConfig()
	cfg.Driver = "memory"
	return cfg
}

// newMemoryNamespace returns a namespace bound lazily to a fresh in-memory
// provider, plus that provider for direct inspection.
func newMemoryNamespace(t *testing.T, cfg *fileaccess.Config, opts ...fileaccess.NamespaceOption) (*fileaccess.Namespace, *memory.Adapter) {
	t.Helper()
	if cfg == nil {
		cfg = memoryConfig()
	}
	provider := memory.New()
	opts = append([]fileaccess.NamespaceOption{
		fileaccess.WithDriverFactory(func(*fileaccess.Config) (fileaccess.FileSystem, error) {
			return provider, nil
		}),
	}, opts...)
	ns := fileaccess.NewNamespace(cfg, opts...)
	t.Cleanup(func() { ns.Teardown(context.Background()) })
	return ns, provider
}

func writeFile(t *testing.T, fs fileaccess.FileSystem, p, content string) {
	t.Helper()
	require.NoError(t, fs.Write(context.Background(), p, strings.NewReader(content), fileaccess.WithOverwrite(true)))
}

func readFile(t *testing.T, fs fileaccess.FileReader, p string) string {
	t.Helper()
	rc, err := fs.Read(context.Background(), p)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

// countingFactory counts how many providers it hands out.
type countingFactory struct {
	calls atomic.Int32
	err   error
}

func (f *countingFactory) create(*fileaccess.Config) (fileaccess.FileSystem, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return memory.New(), nil
}

// faultyFS is a memory provider with injectable failures.
type faultyFS struct {
	*memory.Adapter

	mu        sync.Mutex
	deleteErr error
	dirExistsErr  error
	closed    bool
}

func newFaultyFS() *faultyFS {
	return &faultyFS{Adapter: memory.New()}
}

func (f *faultyFS) Delete(ctx context.Context, p string) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Adapter.Delete(ctx, p)
}

func (f *faultyFS) DirExists(ctx context.Context, p string) (bool, error) {
	f.mu.Lock()
	err := f.dirExistsErr
	f.mu.Unlock()
	if err != nil {
		return false, err
	}
	return f.Adapter.DirExists(ctx, p)
}

func (f *faultyFS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *faultyFS) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// plainFS hides every optional capability of the memory provider, so
// handles fall back to pipe writers and copy-then-delete moves.
type plainFS struct {
	inner *memory.Adapter
}

func (p plainFS) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	return p.inner.Read(ctx, path)
}

func (p plainFS) FileExists(ctx context.Context, path string) (bool, error) {
	return p.inner.FileExists(ctx, path)
}

func (p plainFS) DirExists(ctx context.Context, path string) (bool, error) {
	return p.inner.DirExists(ctx, path)
}

func (p plainFS) Stat(ctx context.Context, path string) (*fileaccess.FileInfo, error) {
	return p.inner.Stat(ctx, path)
}

func (p plainFS) Write(ctx context.Context, path string, content io.Reader, options ...fileaccess.Option) error {
	return p.inner.Write(ctx, path, content, options...)
}

func (p plainFS) Delete(ctx context.Context, path string) error {
	return p.inner.Delete(ctx, path)
}

func (p plainFS) CreateDir(ctx context.Context, path string) error {
	return p.inner.CreateDir(ctx, path)
}

var errBoom = errors.New("boom")
