package s3

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"

	"github.com/gobeaver/fileaccess"
)

func TestKeys(t *testing.T) {
	client := s3.New(s3.Options{Region: "us-east-1"})

	t.Run("without prefix", func(t *testing.T) {
		a := New(client, "bucket")
		assert.Equal(t, "db/test.log", a.key("/db/test.log"))
		assert.Equal(t, "s3://bucket/db/test.log", a.URL("/db/test.log"))
	})

	t.Run("with prefix", func(t *testing.T) {
		a := New(client, "bucket", WithPrefix("/tenants/a/"))
		assert.Equal(t, "tenants/a/db/test.log", a.key("/db/test.log"))
		assert.Equal(t, "tenants/a", a.key("/"))
		assert.Equal(t, "s3://bucket/tenants/a/db/test.log", a.URL("/db/test.log"))
	})
}

func TestMapS3Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no such key", err: &types.NoSuchKey{}, want: fileaccess.ErrNotExist},
		{name: "not found", err: &types.NotFound{}, want: fileaccess.ErrNotExist},
		{name: "no such bucket", err: &types.NoSuchBucket{}, want: fileaccess.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapS3Error("read", "/a", tt.err), tt.want)
		})
	}

	t.Run("other errors are kept", func(t *testing.T) {
		cause := errors.New("throttled")
		err := mapS3Error("read", "/a", cause)
		assert.ErrorIs(t, err, cause)
		assert.False(t, fileaccess.IsNotExist(err))
	})
}
