package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/fileaccess"
)

func readString(t *testing.T, a *Adapter, p string) string {
	t.Helper()
	rc, err := a.Read(context.Background(), p)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("writes file and creates parents", func(t *testing.T) {
		a := New()

		require.NoError(t, a.Write(ctx, "/db/sub/test.log", strings.NewReader("hello")))

		exists, err := a.FileExists(ctx, "/db/sub/test.log")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = a.DirExists(ctx, "/db/sub")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, "hello", readString(t, a, "/db/sub/test.log"))
	})

	t.Run("fails on path traversal", func(t *testing.T) {
		a := New()

		err := a.Write(ctx, "../etc/passwd", strings.NewReader("malicious"))
		assert.ErrorIs(t, err, fileaccess.ErrNotAllowed)
	})

	t.Run("prevents overwrite by default", func(t *testing.T) {
		a := New()

		require.NoError(t, a.Write(ctx, "/test.txt", strings.NewReader("first")))
		err := a.Write(ctx, "/test.txt", strings.NewReader("second"))
		assert.ErrorIs(t, err, fileaccess.ErrExist)
	})

	t.Run("allows overwrite with option", func(t *testing.T) {
		a := New()

		require.NoError(t, a.Write(ctx, "/test.txt", strings.NewReader("first")))
		require.NoError(t, a.Write(ctx, "/test.txt", strings.NewReader("second"), fileaccess.WithOverwrite(true)))
		assert.Equal(t, "second", readString(t, a, "/test.txt"))
	})

	t.Run("fails below a file", func(t *testing.T) {
		a := New()

		require.NoError(t, a.Write(ctx, "/file", strings.NewReader("x")))
		err := a.Write(ctx, "/file/child", strings.NewReader("y"))
		assert.ErrorIs(t, err, fileaccess.ErrNotDir)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes file", func(t *testing.T) {
		a := New()
		require.NoError(t, a.Write(ctx, "/a.txt", strings.NewReader("x")))

		require.NoError(t, a.Delete(ctx, "/a.txt"))
		assert.Equal(t, 0, a.FileCount())
	})

	t.Run("missing path", func(t *testing.T) {
		a := New()
		assert.ErrorIs(t, a.Delete(ctx, "/missing"), fileaccess.ErrNotExist)
	})

	t.Run("empty directory", func(t *testing.T) {
		a := New()
		require.NoError(t, a.CreateDir(ctx, "/db"))

		require.NoError(t, a.Delete(ctx, "/db"))
		exists, err := a.DirExists(ctx, "/db")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("non-empty directory", func(t *testing.T) {
		a := New()
		require.NoError(t, a.Write(ctx, "/db/x", strings.NewReader("x")))
		assert.ErrorIs(t, a.Delete(ctx, "/db"), fileaccess.ErrNotEmpty)
	})

	t.Run("root", func(t *testing.T) {
		a := New()
		assert.ErrorIs(t, a.Delete(ctx, "/"), fileaccess.ErrNotAllowed)
	})
}

func TestCreateDir(t *testing.T) {
	ctx := context.Background()
	a := New()

	require.NoError(t, a.CreateDir(ctx, "/a/b/c"))
	require.NoError(t, a.CreateDir(ctx, "/a/b/c"))

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		exists, err := a.DirExists(ctx, p)
		require.NoError(t, err)
		assert.True(t, exists, p)
	}

	require.NoError(t, a.Write(ctx, "/a/file", strings.NewReader("x")))
	assert.ErrorIs(t, a.CreateDir(ctx, "/a/file"), fileaccess.ErrExist)
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	a := New()
	require.NoError(t, a.Write(ctx, "/db/test.script", strings.NewReader("CREATE")))

	info, err := a.Stat(ctx, "/db/test.script")
	require.NoError(t, err)
	assert.Equal(t, "test.script", info.Name)
	assert.Equal(t, int64(6), info.Size)
	assert.False(t, info.IsDir)

	info, err = a.Stat(ctx, "/db")
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	_, err = a.Stat(ctx, "/nope")
	assert.ErrorIs(t, err, fileaccess.ErrNotExist)
}

func TestMove(t *testing.T) {
	ctx := context.Background()

	t.Run("moves file", func(t *testing.T) {
		a := New()
		require.NoError(t, a.Write(ctx, "/old.data", strings.NewReader("payload")))

		require.NoError(t, a.Move(ctx, "/old.data", "/new/new.data"))

		exists, err := a.FileExists(ctx, "/old.data")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Equal(t, "payload", readString(t, a, "/new/new.data"))
	})

	t.Run("missing source", func(t *testing.T) {
		a := New()
		assert.ErrorIs(t, a.Move(ctx, "/nope", "/dst"), fileaccess.ErrNotExist)
	})

	t.Run("onto itself", func(t *testing.T) {
		a := New()
		require.NoError(t, a.Write(ctx, "/a.data", strings.NewReader("payload")))

		require.NoError(t, a.Move(ctx, "/a.data", "/a.data"))
		assert.Equal(t, "payload", readString(t, a, "/a.data"))
	})
}

func TestOpenWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("creates file at open", func(t *testing.T) {
		a := New()

		w, err := a.OpenWriter(ctx, "/test.log")
		require.NoError(t, err)

		exists, err := a.FileExists(ctx, "/test.log")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, "", readString(t, a, "/test.log"))

		_, err = w.Write([]byte("abc"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.Equal(t, "abc", readString(t, a, "/test.log"))
	})

	t.Run("sync publishes buffered writes", func(t *testing.T) {
		a := New()

		w, err := a.OpenWriter(ctx, "/test.log")
		require.NoError(t, err)
		s, ok := w.(interface{ Sync() error })
		require.True(t, ok)

		_, err = w.Write([]byte("one"))
		require.NoError(t, err)
		require.NoError(t, s.Sync())
		assert.Equal(t, "one", readString(t, a, "/test.log"))

		require.NoError(t, w.Close())
		assert.ErrorIs(t, s.Sync(), fileaccess.ErrClosed)

		_, err = w.Write([]byte("late"))
		assert.ErrorIs(t, err, fileaccess.ErrClosed)
	})

	t.Run("requires parent", func(t *testing.T) {
		a := New()

		_, err := a.OpenWriter(ctx, "/missing/test.log")
		assert.ErrorIs(t, err, fileaccess.ErrNotExist)
	})

	t.Run("writes follow a rename", func(t *testing.T) {
		a := New()

		w, err := a.OpenWriter(ctx, "/test.log")
		require.NoError(t, err)
		_, err = w.Write([]byte("pending"))
		require.NoError(t, err)

		require.NoError(t, a.Move(ctx, "/test.log", "/test.log.old"))
		require.NoError(t, w.Close())

		assert.Equal(t, "pending", readString(t, a, "/test.log.old"))
		exists, err := a.FileExists(ctx, "/test.log")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("writes after delete are dropped", func(t *testing.T) {
		a := New()

		w, err := a.OpenWriter(ctx, "/test.log")
		require.NoError(t, err)
		require.NoError(t, a.Delete(ctx, "/test.log"))
		_, err = w.Write([]byte("lost"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		exists, err := a.FileExists(ctx, "/test.log")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("truncates existing file", func(t *testing.T) {
		a := New()
		require.NoError(t, a.Write(ctx, "/test.log", strings.NewReader("old content")))

		w, err := a.OpenWriter(ctx, "/test.log")
		require.NoError(t, err)
		_, err = w.Write([]byte("new"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.Equal(t, "new", readString(t, a, "/test.log"))
	})
}

func TestURL(t *testing.T) {
	assert.Equal(t, "mem:///db/test.log", New().URL("/db/test.log"))
}

func TestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New()
	_, err := a.FileExists(ctx, "/x")
	assert.ErrorIs(t, err, context.Canceled)
}
