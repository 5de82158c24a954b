package fileaccess_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/fileaccess"
)

func bundledResources() fstest.MapFS {
	return fstest.MapFS{
		"org/hsqldb/resources/sql-state-messages.properties": {Data: []byte("08000=connection exception")},
		"org/hsqldb/resources/lob-schema.sql":                {Data: []byte("CREATE SCHEMA SYSTEM_LOBS")},
		"db/bundled.script":                                  {Data: []byte("bundled")},
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestResourceAccessIsElement(t *testing.T) {
	ctx := context.Background()
	r := fileaccess.NewResourceAccess(bundledResources(), fileaccess.WithBase("org/hsqldb/resources"))

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "relative to base", path: "lob-schema.sql", want: true},
		{name: "absolute", path: "/db/bundled.script", want: true},
		{name: "absolute into base", path: "/org/hsqldb/resources/lob-schema.sql", want: true},
		{name: "relative outside base", path: "db/bundled.script", want: false},
		{name: "directory", path: "/org/hsqldb", want: true},
		{name: "missing", path: "missing.sql", want: false},
		{name: "empty", path: "", want: false},
		{name: "root", path: "/", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsElement(ctx, tt.path))
		})
	}
}

func TestResourceAccessOpenInputElement(t *testing.T) {
	ctx := context.Background()
	fallback := fstest.MapFS{
		"db/fallback.script": {Data: []byte("from fallback")},
		"db/bundled.script":  {Data: []byte("shadowed")},
	}
	r := fileaccess.NewResourceAccess(bundledResources(),
		fileaccess.WithBase("org/hsqldb/resources"),
		fileaccess.WithFallback(fallback),
	)

	t.Run("primary relative", func(t *testing.T) {
		rc, err := r.OpenInputElement(ctx, "sql-state-messages.properties")
		require.NoError(t, err)
		assert.Equal(t, "08000=connection exception", readAll(t, rc))
	})

	t.Run("primary wins over fallback", func(t *testing.T) {
		rc, err := r.OpenInputElement(ctx, "/db/bundled.script")
		require.NoError(t, err)
		assert.Equal(t, "bundled", readAll(t, rc))
	})

	t.Run("fallback", func(t *testing.T) {
		rc, err := r.OpenInputElement(ctx, "db/fallback.script")
		require.NoError(t, err)
		assert.Equal(t, "from fallback", readAll(t, rc))

		// The fallback is never consulted for existence.
		assert.False(t, r.IsElement(ctx, "db/fallback.script"))
	})

	t.Run("missing everywhere", func(t *testing.T) {
		_, err := r.OpenInputElement(ctx, "nope.sql")
		assert.ErrorIs(t, err, fileaccess.ErrIO)
		assert.ErrorIs(t, err, fileaccess.ErrNotExist)
	})

	t.Run("directories are not elements to open", func(t *testing.T) {
		_, err := r.OpenInputElement(ctx, "/org/hsqldb")
		assert.ErrorIs(t, err, fileaccess.ErrNotExist)
	})

	t.Run("no fallback configured", func(t *testing.T) {
		r := fileaccess.NewResourceAccess(bundledResources())
		_, err := r.OpenInputElement(ctx, "db/fallback.script")
		assert.ErrorIs(t, err, fileaccess.ErrNotExist)
	})
}

func TestResourceAccessIsReadOnly(t *testing.T) {
	ctx := context.Background()
	r := fileaccess.NewResourceAccess(bundledResources())

	_, err := r.OpenOutputElement(ctx, "db/bundled.script")
	assert.ErrorIs(t, err, fileaccess.ErrIO)
	assert.ErrorIs(t, err, fileaccess.ErrReadOnly)

	_, err = r.GetFileSync(&strings.Builder{})
	assert.ErrorIs(t, err, fileaccess.ErrIO)
	assert.ErrorIs(t, err, fileaccess.ErrReadOnly)

	r.CreateParentDirs(ctx, "new/dir/file")
	r.RemoveElement(ctx, "/db/bundled.script")
	r.RenameElement(ctx, "/db/bundled.script", "/db/renamed.script")

	assert.True(t, r.IsElement(ctx, "/db/bundled.script"))
	assert.False(t, r.IsElement(ctx, "/db/renamed.script"))
	assert.False(t, r.IsElement(ctx, "/new"))
}
