package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gobeaver/fileaccess"
	"github.com/gobeaver/fileaccess/internal/pathutil"
)

// Adapter provides an S3 implementation of fileaccess.FileSystem.
// Directories are zero-length marker objects whose key ends in a slash; a
// prefix with objects under it also counts as a directory.
type Adapter struct {
	client *s3.Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures S3Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for S3 objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// New creates a new S3 filesystem adapter
func New(client *s3.Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) key(p string) string {
	return pathutil.Key(a.prefix, p)
}

// Write implements fileaccess.FileWriter
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...fileaccess.Option) error {
	opts := fileaccess.ProcessOptions(options...)
	key := a.key(filePath)

	if !opts.Overwrite {
		exists, err := a.FileExists(ctx, filePath)
		if err != nil {
			return err
		}
		if exists {
			return &fileaccess.PathError{Op: "write", Path: filePath, Err: fileaccess.ErrExist}
		}
	}

	// Seekable readers stream without buffering
	var body io.Reader
	var contentLength int64 = -1

	switch r := content.(type) {
	case *bytes.Reader:
		contentLength = int64(r.Len())
		body = r
	case *strings.Reader:
		contentLength = int64(r.Len())
		body = r
	case *os.File:
		if info, err := r.Stat(); err == nil {
			pos, _ := r.Seek(0, io.SeekCurrent)
			contentLength = info.Size() - pos
		}
		body = r
	default:
		// PutObject needs a length; buffer everything else
		data, err := io.ReadAll(content)
		if err != nil {
			return &fileaccess.PathError{Op: "write", Path: filePath, Err: err}
		}
		contentLength = int64(len(data))
		body = bytes.NewReader(data)
	}

	input := &s3.PutObjectInput{
		Bucket:            aws.String(a.bucket),
		Key:               aws.String(key),
		Body:              body,
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
	if contentLength >= 0 {
		input.ContentLength = aws.Int64(contentLength)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(filePath))
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return mapS3Error("write", filePath, err)
	}
	return nil
}

// Read implements fileaccess.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return nil, mapS3Error("read", filePath, err)
	}
	return resp.Body, nil
}

// Delete implements fileaccess.FileWriter. S3 deletes succeed for missing
// keys, so existence is checked first. A directory is deleted by removing
// its marker, and only when nothing else lives under it.
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	if pathutil.IsRoot(filePath) {
		return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotAllowed}
	}

	exists, err := a.FileExists(ctx, filePath)
	if err != nil {
		return err
	}
	if exists {
		return a.deleteKey(ctx, "delete", filePath, a.key(filePath))
	}

	dirKey := pathutil.DirKey(a.prefix, filePath)
	resp, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(dirKey),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return mapS3Error("delete", filePath, err)
	}

	var marker bool
	for _, obj := range resp.Contents {
		if aws.ToString(obj.Key) != dirKey {
			return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotEmpty}
		}
		marker = true
	}
	if !marker {
		return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotExist}
	}

	return a.deleteKey(ctx, "delete", filePath, dirKey)
}

func (a *Adapter) deleteKey(ctx context.Context, op, filePath, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapS3Error(op, filePath, err)
	}
	return nil
}

// FileExists implements fileaccess.FileReader
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	if pathutil.IsRoot(filePath) {
		return false, nil
	}

	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, mapS3Error("fileexists", filePath, err)
	}
	return true, nil
}

// DirExists implements fileaccess.FileReader. The root exists whenever the
// bucket does.
func (a *Adapter) DirExists(ctx context.Context, dirPath string) (bool, error) {
	if pathutil.IsRoot(dirPath) && a.prefix == "" {
		_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
		if err != nil {
			return false, mapS3Error("direxists", dirPath, err)
		}
		return true, nil
	}

	resp, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(pathutil.DirKey(a.prefix, dirPath)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, mapS3Error("direxists", dirPath, err)
	}

	return len(resp.Contents) > 0 || len(resp.CommonPrefixes) > 0, nil
}

// Stat implements fileaccess.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*fileaccess.FileInfo, error) {
	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		if !isNotFound(err) {
			return nil, mapS3Error("stat", filePath, err)
		}
		ok, derr := a.DirExists(ctx, filePath)
		if derr != nil {
			return nil, derr
		}
		if !ok {
			return nil, mapS3Error("stat", filePath, err)
		}
		return &fileaccess.FileInfo{Name: path.Base(filePath), Path: filePath, IsDir: true}, nil
	}

	return &fileaccess.FileInfo{
		Name:        path.Base(filePath),
		Path:        filePath,
		Size:        aws.ToInt64(resp.ContentLength),
		ModTime:     aws.ToTime(resp.LastModified),
		ContentType: aws.ToString(resp.ContentType),
		Metadata:    resp.Metadata,
	}, nil
}

// CreateDir implements fileaccess.FileWriter. S3 has no parent directories
// to create; a marker object is written for the directory itself.
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	if pathutil.IsRoot(dirPath) {
		return nil
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(pathutil.DirKey(a.prefix, dirPath)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return mapS3Error("createdir", dirPath, err)
	}
	return nil
}

// Move implements fileaccess.CanMove using CopyObject + DeleteObject.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	srcKey := a.key(src)

	// S3 CopyObject requires source in "bucket/key" format
	_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(a.bucket),
		CopySource: aws.String(fmt.Sprintf("%s/%s", a.bucket, srcKey)),
		Key:        aws.String(a.key(dst)),
	})
	if err != nil {
		return mapS3Error("move", src, err)
	}

	return a.deleteKey(ctx, "move", src, srcKey)
}

// URL implements fileaccess.CanURL.
func (a *Adapter) URL(filePath string) string {
	return "s3://" + a.bucket + "/" + a.key(filePath)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &notFound)
}

func mapS3Error(op, filePath string, err error) error {
	var nsb *types.NoSuchBucket
	if isNotFound(err) || errors.As(err, &nsb) {
		return &fileaccess.PathError{Op: op, Path: filePath, Err: fileaccess.ErrNotExist}
	}
	return &fileaccess.PathError{Op: op, Path: filePath, Err: err}
}

var (
	_ fileaccess.FileSystem = (*Adapter)(nil)
	_ fileaccess.CanMove    = (*Adapter)(nil)
	_ fileaccess.CanURL     = (*Adapter)(nil)
)
