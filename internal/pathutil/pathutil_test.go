package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		err      error
	}{
		{name: "empty path", input: "", expected: "/"},
		{name: "root path", input: "/", expected: "/"},
		{name: "simple path", input: "test.script", expected: "/test.script"},
		{name: "nested path", input: "db/sub/test.log", expected: "/db/sub/test.log"},
		{name: "absolute path", input: "/db/test.data", expected: "/db/test.data"},
		{name: "redundant separators", input: "db//sub///x", expected: "/db/sub/x"},
		{name: "trailing slash", input: "db/", expected: "/db"},
		{name: "backslashes", input: `db\sub\x`, expected: "/db/sub/x"},
		{name: "current directory", input: "./test.lck", expected: "/test.lck"},
		{name: "safe relative navigation", input: "db/../test.properties", expected: "/test.properties"},
		{name: "directory traversal", input: "../../etc/passwd", err: ErrOutsideRoot},
		{name: "mixed traversal", input: "db/../../x", err: ErrOutsideRoot},
		{name: "null byte", input: "db\x00x", err: ErrInvalidPath},
		{name: "control character", input: "db\nx", err: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.input)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestJoin(t *testing.T) {
	got, err := Join("/data", "db/test.script")
	require.NoError(t, err)
	assert.Equal(t, "/data/db/test.script", got)

	got, err = Join("/", "/db/test.script")
	require.NoError(t, err)
	assert.Equal(t, "/db/test.script", got)

	_, err = Join("/data", "../escape")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestParent(t *testing.T) {
	p, ok := Parent("/db/test.log")
	assert.True(t, ok)
	assert.Equal(t, "/db", p)

	p, ok = Parent("/db")
	assert.True(t, ok)
	assert.Equal(t, "/", p)

	_, ok = Parent("/")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "db/test.log", Key("", "/db/test.log"))
	assert.Equal(t, "tenant/db/test.log", Key("tenant/", "/db/test.log"))
	assert.Equal(t, "", Key("", "/"))
	assert.Equal(t, "tenant", Key("tenant", "/"))
	assert.Equal(t, "db/", DirKey("", "/db"))
	assert.Equal(t, "", DirKey("", "/"))
}
