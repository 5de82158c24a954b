package gcs

import (
	"errors"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"

	"github.com/gobeaver/fileaccess"
)

func TestURL(t *testing.T) {
	a := New(nil, "bucket", WithPrefix("/data/"))
	assert.Equal(t, "gs://bucket/data/db/test.script", a.URL("/db/test.script"))

	a = New(nil, "bucket")
	assert.Equal(t, "gs://bucket/db/test.script", a.URL("/db/test.script"))
}

func TestMapGCSError(t *testing.T) {
	assert.ErrorIs(t, mapGCSError("read", "/a", storage.ErrObjectNotExist), fileaccess.ErrNotExist)
	assert.ErrorIs(t, mapGCSError("direxists", "/", storage.ErrBucketNotExist), fileaccess.ErrNotExist)

	cause := errors.New("quota exceeded")
	err := mapGCSError("write", "/a", cause)
	assert.ErrorIs(t, err, cause)
	assert.False(t, fileaccess.IsNotExist(err))
}
