package fileaccess_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gobeaver/fileaccess"
)

func TestNamespaceLazyBind(t *testing.T) {
	ctx := context.Background()
	ns, _ := newMemoryNamespace(t, nil)

	assert.Nil(t, ns.Manager())
	assert.Equal(t, "", ns.Root())

	obj, err := ns.Resolve(ctx, "db/test.script")
	require.NoError(t, err)
	assert.Equal(t, "/db/test.script", obj.Name().Path())
	assert.Equal(t, "vfs:///db/test.script", obj.Name().URI())

	require.NotNil(t, ns.Manager())
	assert.Equal(t, "/", ns.Root())
	assert.Equal(t, "vfs", ns.Manager().Scheme())
}

func TestNamespaceInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("binds once under concurrency", func(t *testing.T) {
		factory := &countingFactory{}
		ns := fileaccess.NewNamespace(memoryConfig(), fileaccess.WithDriverFactory(factory.create))
		t.Cleanup(func() { ns.Teardown(ctx) })

		var wg sync.WaitGroup
		errs := make([]error, 32)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					errs[i] = ns.Initialize(ctx, "/")
				} else {
					_, errs[i] = ns.Resolve(ctx, "x")
				}
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, int32(1), factory.calls.Load())
	})

	t.Run("later roots are ignored", func(t *testing.T) {
		ns, _ := newMemoryNamespace(t, nil)

		require.NoError(t, ns.Initialize(ctx, "/db"))
		require.NoError(t, ns.Initialize(ctx, "/other"))
		assert.Equal(t, "/db", ns.Root())

		obj, err := ns.Resolve(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "/db/a.txt", obj.Name().Path())
	})

	t.Run("custom scheme", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Scheme = "gae"
		ns, _ := newMemoryNamespace(t, cfg)

		obj, err := ns.Resolve(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "gae:///a.txt", obj.Name().URI())
	})

	t.Run("invalid root fails the bind", func(t *testing.T) {
		ns, _ := newMemoryNamespace(t, nil)

		err := ns.Initialize(ctx, "/../up")
		require.Error(t, err)

		_, err = ns.Resolve(ctx, "a.txt")
		assert.ErrorIs(t, err, fileaccess.ErrManagerUnavailable)
	})
}

func TestNamespaceBindFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("factory error", func(t *testing.T) {
		factory := &countingFactory{err: errBoom}
		ns := fileaccess.NewNamespace(memoryConfig(), fileaccess.WithDriverFactory(factory.create))

		err := ns.Initialize(ctx, "/")
		assert.ErrorIs(t, err, errBoom)
		assert.Nil(t, ns.Manager())

		for i := 0; i < 3; i++ {
			_, err := ns.Resolve(ctx, "a.txt")
			assert.ErrorIs(t, err, fileaccess.ErrResolution)
			assert.ErrorIs(t, err, fileaccess.ErrManagerUnavailable)
			assert.ErrorIs(t, err, errBoom)
			assert.True(t, fileaccess.IsResolution(err))
			assert.False(t, fileaccess.IsIO(err))
		}
		assert.Equal(t, int32(1), factory.calls.Load(), "a failed bind is not retried")

		factory.err = nil
		ns.Reset()
		_, err = ns.Resolve(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, int32(2), factory.calls.Load())
		require.NoError(t, ns.Teardown(ctx))
	})

	t.Run("root check error closes the provider", func(t *testing.T) {
		provider := newFaultyFS()
		provider.dirExistsErr = errBoom
		ns := fileaccess.NewNamespace(memoryConfig(), fileaccess.WithDriverFactory(
			func(*fileaccess.Config) (fileaccess.FileSystem, error) { return provider, nil },
		))

		assert.ErrorIs(t, ns.Initialize(ctx, "/"), errBoom)
		assert.True(t, provider.isClosed())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Driver = "does-not-exist"
		ns := fileaccess.NewNamespace(cfg)

		_, err := ns.Resolve(ctx, "a.txt")
		assert.ErrorIs(t, err, fileaccess.ErrManagerUnavailable)
	})
}

func TestNamespaceResolve(t *testing.T) {
	ctx := context.Background()
	ns, _ := newMemoryNamespace(t, nil)
	require.NoError(t, ns.Initialize(ctx, "/db"))

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "relative", input: "test.script", want: "/db/test.script"},
		{name: "leading slash", input: "/test.script", want: "/db/test.script"},
		{name: "dot segments", input: "./a/../b/./c", want: "/db/b/c"},
		{name: "backslashes", input: `a\b`, want: "/db/a/b"},
		{name: "empty is the root", input: "", want: "/db"},
		{name: "escape", input: "../etc/passwd", wantErr: fileaccess.ErrResolution},
		{name: "control character", input: "a\x00b", wantErr: fileaccess.ErrResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ns.Resolve(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, obj.Name().Path())
		})
	}
}

func TestNamespaceTeardown(t *testing.T) {
	ctx := context.Background()

	t.Run("closes the namespace until reset", func(t *testing.T) {
		provider := newFaultyFS()
		ns := fileaccess.NewNamespace(memoryConfig(), fileaccess.WithDriverFactory(
			func(*fileaccess.Config) (fileaccess.FileSystem, error) { return provider, nil },
		))

		_, err := ns.Resolve(ctx, "a.txt")
		require.NoError(t, err)

		require.NoError(t, ns.Teardown(ctx))
		assert.True(t, provider.isClosed())
		assert.Nil(t, ns.Manager())

		_, err = ns.Resolve(ctx, "a.txt")
		assert.ErrorIs(t, err, fileaccess.ErrNamespaceClosed)
		assert.ErrorIs(t, err, fileaccess.ErrResolution)

		// Teardown is idempotent.
		require.NoError(t, ns.Teardown(ctx))

		ns.Reset()
		_, err = ns.Resolve(ctx, "a.txt")
		assert.NoError(t, err)
	})

	t.Run("before bind", func(t *testing.T) {
		factory := &countingFactory{}
		ns := fileaccess.NewNamespace(memoryConfig(), fileaccess.WithDriverFactory(factory.create))

		require.NoError(t, ns.Teardown(ctx))
		_, err := ns.Resolve(ctx, "a.txt")
		assert.ErrorIs(t, err, fileaccess.ErrNamespaceClosed)
		assert.Equal(t, int32(0), factory.calls.Load())
	})

	t.Run("clears the provider cache", func(t *testing.T) {
		cache := fileaccess.NewMemoryCache()
		cfg := memoryConfig()
		cfg.CacheEnabled = true
		ns, provider := newMemoryNamespace(t, cfg, fileaccess.WithCache(cache))
		writeFile(t, provider, "/a.txt", "x")

		obj, err := ns.Resolve(ctx, "a.txt")
		require.NoError(t, err)
		ok, err := obj.Exists(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotZero(t, cache.Stats().Size)

		require.NoError(t, ns.Teardown(ctx))
		assert.Zero(t, cache.Stats().Size)
	})

	t.Run("logs bind and teardown", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		ns, _ := newMemoryNamespace(t, nil, fileaccess.WithLogger(zap.New(core)))

		require.NoError(t, ns.Initialize(ctx, "/db"))
		require.NoError(t, ns.Teardown(ctx))

		assert.Equal(t, 1, logs.FilterMessage("Namespace bound").Len())
		assert.Equal(t, 1, logs.FilterMessage("Namespace torn down").Len())
	})
}

func TestNamespaceReadOnly(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.ReadOnly = true
	ns, provider := newMemoryNamespace(t, cfg)
	writeFile(t, provider, "/a.txt", "content")

	obj, err := ns.Resolve(ctx, "a.txt")
	require.NoError(t, err)

	rc, err := obj.InputStream(ctx)
	require.NoError(t, err)
	rc.Close()

	_, err = obj.OutputStream(ctx)
	assert.ErrorIs(t, err, fileaccess.ErrReadOnly)

	_, err = obj.Delete(ctx)
	assert.True(t, fileaccess.IsReadOnlyError(err))
	assert.Equal(t, "content", readFile(t, provider, "/a.txt"))
}

func TestManagerResolveFile(t *testing.T) {
	ctx := context.Background()
	ns, _ := newMemoryNamespace(t, nil)
	require.NoError(t, ns.Initialize(ctx, "/db"))
	m := ns.Manager()
	require.NotNil(t, m)

	obj, err := m.ResolveFile("vfs://x/y")
	require.NoError(t, err)
	assert.Equal(t, "/db/x/y", obj.Name().Path())

	_, err = m.ResolveFile("s3://x/y")
	assert.ErrorIs(t, err, fileaccess.ErrNotSupported)
	assert.ErrorIs(t, err, fileaccess.ErrResolution)

	assert.True(t, strings.HasPrefix(obj.URL(), "mem://"))
}
