package azure

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/gobeaver/fileaccess"
	"github.com/gobeaver/fileaccess/internal/pathutil"
)

const dirContentType = "application/x-directory"

// Adapter provides an Azure Blob Storage implementation of
// fileaccess.FileSystem. Directories are zero-length marker blobs whose
// name ends in a slash; a prefix with blobs under it also counts as a
// directory. There is no native move: handles fall back to copy and delete.
type Adapter struct {
	client        *azblob.Client
	containerName string
	prefix        string
}

// AdapterOption is a function that configures Azure Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for Azure blobs
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// New creates a new Azure Blob Storage filesystem adapter
func New(client *azblob.Client, containerName string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client:        client,
		containerName: containerName,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) blobName(p string) string {
	return pathutil.Key(a.prefix, p)
}

func (a *Adapter) containerClient() *container.Client {
	return a.client.ServiceClient().NewContainerClient(a.containerName)
}

// Write implements fileaccess.FileWriter
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...fileaccess.Option) error {
	opts := fileaccess.ProcessOptions(options...)
	blobName := a.blobName(filePath)

	if !opts.Overwrite {
		_, err := a.containerClient().NewBlobClient(blobName).GetProperties(ctx, nil)
		if err == nil {
			return &fileaccess.PathError{Op: "write", Path: filePath, Err: fileaccess.ErrExist}
		}
		if !bloberror.HasCode(err, bloberror.BlobNotFound) {
			return mapAzureError("write", filePath, err)
		}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(filePath)
	}

	// UploadBuffer needs the whole body
	data, err := io.ReadAll(content)
	if err != nil {
		return &fileaccess.PathError{Op: "write", Path: filePath, Err: err}
	}

	uploadOpts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}
	if opts.CacheControl != "" {
		uploadOpts.HTTPHeaders.BlobCacheControl = &opts.CacheControl
	}
	if len(opts.Metadata) > 0 {
		metadata := make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			val := v
			metadata[k] = &val
		}
		uploadOpts.Metadata = metadata
	}

	if _, err := a.client.UploadBuffer(ctx, a.containerName, blobName, data, uploadOpts); err != nil {
		return mapAzureError("write", filePath, err)
	}
	return nil
}

// Read implements fileaccess.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.containerName, a.blobName(filePath), nil)
	if err != nil {
		return nil, mapAzureError("read", filePath, err)
	}
	return resp.Body, nil
}

// Delete implements fileaccess.FileWriter. A directory is deleted by
// removing its marker, and only when nothing else lives under it.
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	if pathutil.IsRoot(filePath) {
		return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotAllowed}
	}

	_, err := a.client.DeleteBlob(ctx, a.containerName, a.blobName(filePath), nil)
	if err == nil {
		return nil
	}
	if !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return mapAzureError("delete", filePath, err)
	}

	dirKey := pathutil.DirKey(a.prefix, filePath)
	pager := a.containerClient().NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:     &dirKey,
		MaxResults: ptr(int32(2)),
	})

	var marker bool
	if pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return mapAzureError("delete", filePath, err)
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil || *item.Name != dirKey {
				return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotEmpty}
			}
			marker = true
		}
	}
	if !marker {
		return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotExist}
	}

	if _, err := a.client.DeleteBlob(ctx, a.containerName, dirKey, nil); err != nil {
		return mapAzureError("delete", filePath, err)
	}
	return nil
}

// FileExists implements fileaccess.FileReader
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	if pathutil.IsRoot(filePath) {
		return false, nil
	}

	props, err := a.containerClient().NewBlobClient(a.blobName(filePath)).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, mapAzureError("fileexists", filePath, err)
	}

	if props.ContentType != nil && *props.ContentType == dirContentType {
		return false, nil
	}
	return true, nil
}

// DirExists implements fileaccess.FileReader. The root exists whenever the
// container does.
func (a *Adapter) DirExists(ctx context.Context, dirPath string) (bool, error) {
	containerClient := a.containerClient()

	if pathutil.IsRoot(dirPath) && a.prefix == "" {
		if _, err := containerClient.GetProperties(ctx, nil); err != nil {
			return false, mapAzureError("direxists", dirPath, err)
		}
		return true, nil
	}

	dirPrefix := pathutil.DirKey(a.prefix, dirPath)

	_, err := containerClient.NewBlobClient(dirPrefix).GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return false, mapAzureError("direxists", dirPath, err)
	}

	pager := containerClient.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:     &dirPrefix,
		MaxResults: ptr(int32(1)),
	})

	if pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return false, mapAzureError("direxists", dirPath, err)
		}
		return len(resp.Segment.BlobItems) > 0, nil
	}

	return false, nil
}

func ptr[T any](v T) *T {
	return &v
}

// Stat implements fileaccess.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*fileaccess.FileInfo, error) {
	props, err := a.containerClient().NewBlobClient(a.blobName(filePath)).GetProperties(ctx, nil)
	if err != nil {
		if !bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, mapAzureError("stat", filePath, err)
		}
		ok, derr := a.DirExists(ctx, filePath)
		if derr != nil {
			return nil, derr
		}
		if !ok {
			return nil, mapAzureError("stat", filePath, err)
		}
		return &fileaccess.FileInfo{Name: path.Base(filePath), Path: filePath, IsDir: true}, nil
	}

	info := &fileaccess.FileInfo{
		Name: path.Base(filePath),
		Path: filePath,
	}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		info.ModTime = *props.LastModified
	}
	if props.ContentType != nil {
		info.ContentType = *props.ContentType
		info.IsDir = *props.ContentType == dirContentType
	}
	if len(props.Metadata) > 0 {
		info.Metadata = make(map[string]string, len(props.Metadata))
		for k, v := range props.Metadata {
			if v != nil {
				info.Metadata[k] = *v
			}
		}
	}
	return info, nil
}

// CreateDir implements fileaccess.FileWriter. Blob storage has no parent
// directories to create; a marker blob is written for the directory itself.
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	if pathutil.IsRoot(dirPath) {
		return nil
	}

	contentType := dirContentType
	_, err := a.client.UploadBuffer(ctx, a.containerName, pathutil.DirKey(a.prefix, dirPath), nil, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return mapAzureError("createdir", dirPath, err)
	}
	return nil
}

// URL implements fileaccess.CanURL.
func (a *Adapter) URL(filePath string) string {
	return strings.TrimSuffix(a.client.URL(), "/") + "/" + a.containerName + "/" + a.blobName(filePath)
}

// detectContentType determines the content type from file extension
func detectContentType(filePath string) string {
	if ct := mime.TypeByExtension(path.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// mapAzureError maps Azure errors to fileaccess errors
func mapAzureError(op, path string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return &fileaccess.PathError{Op: op, Path: path, Err: fileaccess.ErrNotExist}
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return &fileaccess.PathError{Op: op, Path: path, Err: fileaccess.ErrNotExist}
		case http.StatusForbidden:
			return &fileaccess.PathError{Op: op, Path: path, Err: errors.Join(fileaccess.ErrPermission, err)}
		}
	}

	return &fileaccess.PathError{Op: op, Path: path, Err: err}
}

var (
	_ fileaccess.FileSystem = (*Adapter)(nil)
	_ fileaccess.CanURL     = (*Adapter)(nil)
)
