package fileaccess

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/gobeaver/fileaccess/internal/metrics"
	"github.com/gobeaver/fileaccess/internal/pathutil"
)

// Namespace is the root of a virtual filesystem: a provider bound once,
// under a root path, and shared by every handle resolved through it.
//
// The first call to Initialize or Resolve binds the namespace. Concurrent
// first callers block until that single bind completes and all observe its
// outcome. A failed bind is not retried: resolves then fail with an error
// wrapping ErrManagerUnavailable until Reset is called.
//
// Teardown must not run concurrently with Resolve.
type Namespace struct {
	cfg     *Config
	factory DriverFactory
	cache   Cache
	logger  *zap.Logger

	mu           sync.RWMutex
	once         *sync.Once
	root         string
	manager      *Manager
	bindErr      error
	closed       bool
	deleteOnExit []string
}

// NamespaceOption configures a Namespace.
type NamespaceOption func(*Namespace)

// WithDriverFactory overrides how the provider is created. The default is
// CreateDriver, which looks up Config.Driver in the driver registry.
func WithDriverFactory(factory DriverFactory) NamespaceOption {
	return func(n *Namespace) {
		n.factory = factory
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) NamespaceOption {
	return func(n *Namespace) {
		n.logger = logger
	}
}

// WithCache sets the metadata cache used when Config.CacheEnabled is set.
// The default is a fresh MemoryCache.
func WithCache(cache Cache) NamespaceOption {
	return func(n *Namespace) {
		n.cache = cache
	}
}

// NewNamespace creates an unbound namespace. A nil cfg means DefaultConfig.
func NewNamespace(cfg *Config, opts ...NamespaceOption) *Namespace {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	n := &Namespace{
		cfg:     cfg,
		factory: CreateDriver,
		logger:  zap.NewNop(),
		once:    &sync.Once{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Config returns the namespace configuration.
func (n *Namespace) Config() *Config {
	return n.cfg
}

// Logger returns the namespace logger.
func (n *Namespace) Logger() *zap.Logger {
	return n.logger
}

// Root returns the bound root path, or "" when unbound.
func (n *Namespace) Root() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.root
}

// Manager returns the bound manager, or nil when the namespace is unbound,
// failed to bind, or was torn down.
func (n *Namespace) Manager() *Manager {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.manager
}

// Initialize binds the namespace to root. Only the first call has any
// effect; every call returns the outcome of that bind.
func (n *Namespace) Initialize(ctx context.Context, root string) error {
	n.mu.RLock()
	once := n.once
	n.mu.RUnlock()

	once.Do(func() {
		n.bind(ctx, root)
	})

	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.bindErr
}

func (n *Namespace) bind(ctx context.Context, root string) {
	m, err := n.newManager(ctx, root)
	metrics.ObserveBind(n.cfg.Driver, err)

	n.mu.Lock()
	defer n.mu.Unlock()

	if err != nil {
		n.bindErr = err
		n.logger.Warn("Namespace bind failed",
			zap.String("driver", n.cfg.Driver),
			zap.String("root", root),
			zap.Error(err))
		return
	}

	n.root = m.Root()
	n.manager = m
	n.logger.Info("Namespace bound",
		zap.String("driver", n.cfg.Driver),
		zap.String("scheme", n.cfg.Scheme),
		zap.String("root", n.root),
		zap.Bool("read_only", n.cfg.ReadOnly),
		zap.Bool("cache", n.cfg.CacheEnabled))
}

func (n *Namespace) newManager(ctx context.Context, root string) (*Manager, error) {
	cleanRoot, err := pathutil.Clean(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %q: %w", root, err)
	}

	provider, err := n.factory(n.cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", n.cfg.Driver, err)
	}

	// Check the root on the provider so bad credentials or an unreachable
	// host fail the bind instead of the first resolve.
	if _, err := provider.DirExists(ctx, cleanRoot); err != nil {
		if c, ok := provider.(io.Closer); ok {
			c.Close()
		}
		return nil, fmt.Errorf("check %s provider root: %w", n.cfg.Driver, err)
	}

	fs := provider
	if n.cfg.ReadOnly {
		fs = NewReadOnlyFileSystem(fs)
	}
	if n.cfg.CacheEnabled {
		cache := n.cache
		if cache == nil {
			cache = NewMemoryCache()
		}
		fs = NewCachingFileSystem(fs, cache, WithCacheTTL(n.cfg.CacheTTL()))
	}

	return newManager(n.cfg.Scheme, cleanRoot, fs), nil
}

// Resolve returns the handle for name, binding the namespace to
// Config.Root first if nobody has called Initialize.
func (n *Namespace) Resolve(ctx context.Context, name string) (*FileObject, error) {
	_ = n.Initialize(ctx, n.cfg.Root)

	n.mu.RLock()
	m, closed, bindErr := n.manager, n.closed, n.bindErr
	n.mu.RUnlock()

	switch {
	case closed:
		return nil, resolutionError("resolve", name, ErrNamespaceClosed)
	case bindErr != nil:
		return nil, resolutionError("resolve", name, fmt.Errorf("%w: %w", ErrManagerUnavailable, bindErr))
	case m == nil:
		return nil, resolutionError("resolve", name, ErrManagerUnavailable)
	}

	return m.ResolveFile(n.cfg.Scheme + "://" + name)
}

func (n *Namespace) scheduleDeleteOnExit(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleteOnExit = append(n.deleteOnExit, name)
}

// Teardown deletes elements scheduled with DeleteOnExit, clears the
// provider cache and releases the provider connection. The namespace stays
// closed, and Initialize stays a no-op, until Reset.
func (n *Namespace) Teardown(ctx context.Context) error {
	n.mu.Lock()
	once := n.once
	m := n.manager
	pending := n.deleteOnExit
	n.manager = nil
	n.deleteOnExit = nil
	n.closed = true
	n.mu.Unlock()

	// Consume the once so a later Initialize cannot bind.
	once.Do(func() {})

	if m == nil {
		return nil
	}

	for _, name := range pending {
		obj, err := m.ResolveFile(m.Scheme() + "://" + name)
		if err == nil {
			_, err = obj.Delete(ctx)
		}
		if err != nil {
			n.logger.Debug("Delete on exit failed", zap.String("path", name), zap.Error(err))
		}
	}

	err := m.Close()
	n.logger.Info("Namespace torn down",
		zap.String("root", m.Root()),
		zap.Int("deleted_on_exit", len(pending)),
		zap.Error(err))
	return err
}

// Reset returns the namespace to its unbound state, releasing any bound
// provider. The next Initialize or Resolve binds again.
func (n *Namespace) Reset() {
	n.mu.Lock()
	m := n.manager
	n.once = &sync.Once{}
	n.root = ""
	n.manager = nil
	n.bindErr = nil
	n.closed = false
	n.deleteOnExit = nil
	n.mu.Unlock()

	if m != nil {
		if err := m.Close(); err != nil {
			n.logger.Debug("Releasing provider on reset failed", zap.Error(err))
		}
	}
}
