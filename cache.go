package fileaccess

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gobeaver/fileaccess/internal/pathutil"
)

// ============================================================================
// Cache Interface
// ============================================================================

// Cache defines the interface for metadata cache backends.
//
// Implementations should be thread-safe.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found, nil and false otherwise.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 means no expiration.
	Set(key string, value interface{}, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()
}

// CacheStats provides statistics about cache usage.
// Implementations may optionally support this interface.
type CacheStats interface {
	Stats() CacheStatistics
}

// CacheStatistics contains cache performance metrics.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

// ============================================================================
// In-Memory Cache Implementation
// ============================================================================

type cacheEntry struct {
	value      interface{}
	expiration time.Time
	hasExpiry  bool
}

// MemoryCache is a simple in-memory cache implementation.
// It is thread-safe and supports TTL-based expiration.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    int64
	misses  int64
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if entry.hasExpiry && time.Now().After(entry.expiration) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.value, true
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{value: value}
	if ttl > 0 {
		entry.expiration = time.Now().Add(ttl)
		entry.hasExpiry = true
	}
	c.entries[key] = entry
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStatistics{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    int64(len(c.entries)),
		HitRate: hitRate,
	}
}

var (
	_ Cache      = (*MemoryCache)(nil)
	_ CacheStats = (*MemoryCache)(nil)
)

// ============================================================================
// CachingFileSystem Decorator
// ============================================================================

// CachingFileSystem wraps a provider to cache metadata lookups. Only
// FileExists, DirExists and Stat are cached; content always goes to the
// provider. A namespace bound with Config.CacheEnabled serves its provider
// through this decorator and clears the cache on teardown.
//
// Mutations made through the decorator invalidate the affected paths. Changes
// made to the provider behind its back are visible only after the TTL.
type CachingFileSystem struct {
	fs    FileSystem
	cache Cache
	opts  CacheOptions
}

// CacheOptions configures the CachingFileSystem behavior.
type CacheOptions struct {
	// TTL is the time-to-live for cache entries. Default: 5 minutes
	TTL time.Duration

	// KeyPrefix is prepended to all cache keys. Default: "fileaccess:"
	KeyPrefix string

	// OnCacheHit is called when a cache hit occurs.
	OnCacheHit func(op, path string)

	// OnCacheMiss is called when a cache miss occurs.
	OnCacheMiss func(op, path string)
}

// CacheOption is a functional option for configuring CachingFileSystem.
type CacheOption func(*CacheOptions)

// WithCacheTTL sets the TTL for cache entries.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *CacheOptions) {
		o.TTL = ttl
	}
}

// WithCacheKeyPrefix sets the prefix for cache keys.
func WithCacheKeyPrefix(prefix string) CacheOption {
	return func(o *CacheOptions) {
		o.KeyPrefix = prefix
	}
}

// WithCacheHitCallback sets the callback for cache hits.
func WithCacheHitCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) {
		o.OnCacheHit = callback
	}
}

// WithCacheMissCallback sets the callback for cache misses.
func WithCacheMissCallback(callback func(op, path string)) CacheOption {
	return func(o *CacheOptions) {
		o.OnCacheMiss = callback
	}
}

// NewCachingFileSystem creates a caching wrapper around a provider.
func NewCachingFileSystem(fs FileSystem, cache Cache, opts ...CacheOption) *CachingFileSystem {
	options := CacheOptions{
		TTL:       5 * time.Minute,
		KeyPrefix: "fileaccess:",
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &CachingFileSystem{
		fs:    fs,
		cache: cache,
		opts:  options,
	}
}

// Unwrap returns the underlying provider.
func (c *CachingFileSystem) Unwrap() FileSystem {
	return c.fs
}

// Cache returns the underlying Cache.
func (c *CachingFileSystem) Cache() Cache {
	return c.cache
}

// Clear drops every cached entry.
func (c *CachingFileSystem) Clear() {
	c.cache.Clear()
}

// Close clears the cache and closes the underlying provider if it holds
// resources.
func (c *CachingFileSystem) Close() error {
	c.cache.Clear()
	if closer, ok := c.fs.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *CachingFileSystem) cacheKey(op, path string) string {
	return c.opts.KeyPrefix + op + ":" + path
}

// invalidatePath removes cache entries for a path.
func (c *CachingFileSystem) invalidatePath(path string) {
	c.cache.Delete(c.cacheKey("fileexists", path))
	c.cache.Delete(c.cacheKey("direxists", path))
	c.cache.Delete(c.cacheKey("stat", path))
}

// invalidateTree removes entries for path and its ancestors, which a write
// may have created implicitly.
func (c *CachingFileSystem) invalidateTree(path string) {
	c.invalidatePath(path)
	for p, ok := pathutil.Parent(path); ok; p, ok = pathutil.Parent(p) {
		c.invalidatePath(p)
	}
}

func (c *CachingFileSystem) cachedBool(ctx context.Context, op, path string, fn func(context.Context, string) (bool, error)) (bool, error) {
	key := c.cacheKey(op, path)

	if cached, ok := c.cache.Get(key); ok {
		if c.opts.OnCacheHit != nil {
			c.opts.OnCacheHit(op, path)
		}
		return cached.(bool), nil
	}

	if c.opts.OnCacheMiss != nil {
		c.opts.OnCacheMiss(op, path)
	}

	exists, err := fn(ctx, path)
	if err != nil {
		return false, err
	}

	c.cache.Set(key, exists, c.opts.TTL)
	return exists, nil
}

// ============================================================================
// Cached Operations
// ============================================================================

// FileExists checks if a file exists, using cache when available.
func (c *CachingFileSystem) FileExists(ctx context.Context, path string) (bool, error) {
	return c.cachedBool(ctx, "fileexists", path, c.fs.FileExists)
}

// DirExists checks if a directory exists, using cache when available.
func (c *CachingFileSystem) DirExists(ctx context.Context, path string) (bool, error) {
	return c.cachedBool(ctx, "direxists", path, c.fs.DirExists)
}

// Stat returns file information, using cache when available.
func (c *CachingFileSystem) Stat(ctx context.Context, path string) (*FileInfo, error) {
	key := c.cacheKey("stat", path)

	if cached, ok := c.cache.Get(key); ok {
		if c.opts.OnCacheHit != nil {
			c.opts.OnCacheHit("stat", path)
		}
		// Return a copy to prevent mutation
		info := *cached.(*FileInfo)
		return &info, nil
	}

	if c.opts.OnCacheMiss != nil {
		c.opts.OnCacheMiss("stat", path)
	}

	info, err := c.fs.Stat(ctx, path)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, info, c.opts.TTL)
	return info, nil
}

// ============================================================================
// Pass-through Operations
// ============================================================================

// Read delegates to the underlying provider (content is not cached).
func (c *CachingFileSystem) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	return c.fs.Read(ctx, path)
}

// Write delegates to the underlying provider and invalidates cache.
func (c *CachingFileSystem) Write(ctx context.Context, path string, content io.Reader, options ...Option) error {
	err := c.fs.Write(ctx, path, content, options...)
	c.invalidateTree(path)
	return err
}

// Delete delegates to the underlying provider and invalidates cache.
func (c *CachingFileSystem) Delete(ctx context.Context, path string) error {
	err := c.fs.Delete(ctx, path)
	c.invalidatePath(path)
	return err
}

// CreateDir delegates to the underlying provider and invalidates cache.
func (c *CachingFileSystem) CreateDir(ctx context.Context, path string) error {
	err := c.fs.CreateDir(ctx, path)
	c.invalidateTree(path)
	return err
}

// OpenWriter delegates to the underlying provider. The path is invalidated
// when the writer is opened, since that creates the file.
func (c *CachingFileSystem) OpenWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	w, ok := c.fs.(CanOpenWriter)
	if !ok {
		return nil, &PathError{Op: "openwriter", Path: path, Err: ErrNotSupported}
	}
	wc, err := w.OpenWriter(ctx, path)
	c.invalidateTree(path)
	return wc, err
}

// Move delegates to the underlying provider and invalidates cache.
func (c *CachingFileSystem) Move(ctx context.Context, src, dst string) error {
	mover, ok := c.fs.(CanMove)
	if !ok {
		return &PathError{Op: "move", Path: src, Err: ErrNotSupported}
	}
	err := mover.Move(ctx, src, dst)
	c.invalidatePath(src)
	c.invalidateTree(dst)
	return err
}

// URL delegates to the underlying provider.
func (c *CachingFileSystem) URL(path string) string {
	if u, ok := c.fs.(CanURL); ok {
		return u.URL(path)
	}
	return ""
}

var (
	_ FileSystem    = (*CachingFileSystem)(nil)
	_ CanMove       = (*CachingFileSystem)(nil)
	_ CanOpenWriter = (*CachingFileSystem)(nil)
	_ CanURL        = (*CachingFileSystem)(nil)
)
