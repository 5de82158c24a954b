package gcs

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/gobeaver/fileaccess"
	"github.com/gobeaver/fileaccess/internal/pathutil"
)

const dirContentType = "application/x-directory"

// Adapter provides a Google Cloud Storage implementation of
// fileaccess.FileSystem. Directories are zero-length marker objects whose
// key ends in a slash; a prefix with objects under it also counts as a
// directory.
type Adapter struct {
	client *storage.Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures GCS Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for GCS objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// New creates a new GCS filesystem adapter
func New(client *storage.Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) object(p string) *storage.ObjectHandle {
	return a.client.Bucket(a.bucket).Object(pathutil.Key(a.prefix, p))
}

// Write implements fileaccess.FileWriter
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...fileaccess.Option) error {
	opts := fileaccess.ProcessOptions(options...)
	obj := a.object(filePath)

	if !opts.Overwrite {
		_, err := obj.Attrs(ctx)
		if err == nil {
			return &fileaccess.PathError{Op: "write", Path: filePath, Err: fileaccess.ErrExist}
		}
		if !errors.Is(err, storage.ErrObjectNotExist) {
			return mapGCSError("write", filePath, err)
		}
	}

	writer := a.newWriter(ctx, obj, filePath)
	if opts.ContentType != "" {
		writer.ContentType = opts.ContentType
	}
	if opts.CacheControl != "" {
		writer.CacheControl = opts.CacheControl
	}
	if len(opts.Metadata) > 0 {
		writer.Metadata = opts.Metadata
	}

	if _, err := io.Copy(writer, content); err != nil {
		writer.Close()
		return mapGCSError("write", filePath, err)
	}

	if err := writer.Close(); err != nil {
		return mapGCSError("write", filePath, err)
	}
	return nil
}

func (a *Adapter) newWriter(ctx context.Context, obj *storage.ObjectHandle, filePath string) *storage.Writer {
	writer := obj.NewWriter(ctx)
	writer.ContentType = detectContentType(filePath)
	return writer
}

// OpenWriter implements fileaccess.CanOpenWriter. The object becomes
// visible when the writer is closed.
func (a *Adapter) OpenWriter(ctx context.Context, filePath string) (io.WriteCloser, error) {
	if pathutil.IsRoot(filePath) {
		return nil, &fileaccess.PathError{Op: "openwriter", Path: filePath, Err: fileaccess.ErrIsDir}
	}
	return a.newWriter(ctx, a.object(filePath), filePath), nil
}

// Read implements fileaccess.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	reader, err := a.object(filePath).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError("read", filePath, err)
	}
	return reader, nil
}

// Delete implements fileaccess.FileWriter. A directory is deleted by
// removing its marker, and only when nothing else lives under it.
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	if pathutil.IsRoot(filePath) {
		return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotAllowed}
	}

	err := a.object(filePath).Delete(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		return mapGCSError("delete", filePath, err)
	}

	dirKey := pathutil.DirKey(a.prefix, filePath)
	it := a.client.Bucket(a.bucket).Objects(ctx, &storage.Query{Prefix: dirKey})

	var marker bool
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return mapGCSError("delete", filePath, err)
		}
		if attrs.Name != dirKey {
			return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotEmpty}
		}
		marker = true
	}

	if !marker {
		return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotExist}
	}

	if err := a.client.Bucket(a.bucket).Object(dirKey).Delete(ctx); err != nil {
		return mapGCSError("delete", filePath, err)
	}
	return nil
}

// FileExists checks if a file exists (not a directory)
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	if pathutil.IsRoot(filePath) {
		return false, nil
	}

	attrs, err := a.object(filePath).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, mapGCSError("fileexists", filePath, err)
	}

	return attrs.ContentType != dirContentType, nil
}

// DirExists checks if a directory marker or prefix exists. The root exists
// whenever the bucket does.
func (a *Adapter) DirExists(ctx context.Context, dirPath string) (bool, error) {
	bkt := a.client.Bucket(a.bucket)

	if pathutil.IsRoot(dirPath) && a.prefix == "" {
		if _, err := bkt.Attrs(ctx); err != nil {
			return false, mapGCSError("direxists", dirPath, err)
		}
		return true, nil
	}

	dirKey := pathutil.DirKey(a.prefix, dirPath)

	_, err := bkt.Object(dirKey).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		return false, mapGCSError("direxists", dirPath, err)
	}

	it := bkt.Objects(ctx, &storage.Query{Prefix: dirKey})
	_, err = it.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, mapGCSError("direxists", dirPath, err)
	}
	return true, nil
}

// Stat implements fileaccess.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*fileaccess.FileInfo, error) {
	attrs, err := a.object(filePath).Attrs(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotExist) {
			return nil, mapGCSError("stat", filePath, err)
		}
		ok, derr := a.DirExists(ctx, filePath)
		if derr != nil {
			return nil, derr
		}
		if !ok {
			return nil, mapGCSError("stat", filePath, err)
		}
		return &fileaccess.FileInfo{
			Name:  path.Base(filePath),
			Path:  filePath,
			IsDir: true,
		}, nil
	}

	return &fileaccess.FileInfo{
		Name:        path.Base(filePath),
		Path:        filePath,
		Size:        attrs.Size,
		ModTime:     attrs.Updated,
		IsDir:       attrs.ContentType == dirContentType,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
	}, nil
}

// CreateDir implements fileaccess.FileWriter. GCS has no parent
// directories to create; a marker object is written for the directory
// itself.
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	if pathutil.IsRoot(dirPath) {
		return nil
	}

	writer := a.client.Bucket(a.bucket).Object(pathutil.DirKey(a.prefix, dirPath)).NewWriter(ctx)
	writer.ContentType = dirContentType

	if err := writer.Close(); err != nil {
		return mapGCSError("createdir", dirPath, err)
	}
	return nil
}

// Move implements fileaccess.CanMove using GCS's copy + delete.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	srcObj := a.object(src)

	if _, err := a.object(dst).CopierFrom(srcObj).Run(ctx); err != nil {
		return mapGCSError("move", src, err)
	}

	if err := srcObj.Delete(ctx); err != nil {
		return mapGCSError("move", src, err)
	}
	return nil
}

// URL implements fileaccess.CanURL.
func (a *Adapter) URL(filePath string) string {
	return "gs://" + a.bucket + "/" + pathutil.Key(a.prefix, filePath)
}

// Close releases the GCS client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// detectContentType determines the content type from file extension
func detectContentType(filePath string) string {
	if ct := mime.TypeByExtension(path.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// mapGCSError maps GCS errors to fileaccess errors
func mapGCSError(op, path string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return &fileaccess.PathError{Op: op, Path: path, Err: fileaccess.ErrNotExist}
	}
	return &fileaccess.PathError{Op: op, Path: path, Err: err}
}

var (
	_ fileaccess.FileSystem    = (*Adapter)(nil)
	_ fileaccess.CanMove       = (*Adapter)(nil)
	_ fileaccess.CanOpenWriter = (*Adapter)(nil)
	_ fileaccess.CanURL        = (*Adapter)(nil)
	_ io.Closer                = (*Adapter)(nil)
)
