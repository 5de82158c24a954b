package fileaccess_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/fileaccess"
)

func TestNewFileSync(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "test.log"))
	require.NoError(t, err)

	s, err := fileaccess.NewFileSync(f)
	require.NoError(t, err)

	_, err = f.WriteString("durable")
	require.NoError(t, err)
	require.NoError(t, s.Sync())

	require.NoError(t, f.Close())
	err = s.Sync()
	assert.ErrorIs(t, err, fileaccess.ErrIO)

	var pathErr *fileaccess.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, f.Name(), pathErr.Path)
}
