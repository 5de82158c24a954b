package local

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobeaver/fileaccess"
)

// Adapter provides a local filesystem implementation of fileaccess.FileSystem
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute directory the adapter serves.
func (a *Adapter) Root() string {
	return a.root
}

// fullPath maps a provider path to a native path under the root.
func (a *Adapter) fullPath(op, path string) (string, error) {
	fullPath := filepath.Join(a.root, filepath.FromSlash(filepath.Clean("/"+path)))

	if !isPathUnderRoot(a.root, fullPath) {
		return "", &fileaccess.PathError{Op: op, Path: path, Err: fileaccess.ErrNotAllowed}
	}
	return fullPath, nil
}

// pathError maps an os error to the fileaccess error vocabulary.
func pathError(op, path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &fileaccess.PathError{Op: op, Path: path, Err: fileaccess.ErrNotExist}
	case os.IsExist(err):
		return &fileaccess.PathError{Op: op, Path: path, Err: fileaccess.ErrExist}
	case os.IsPermission(err):
		return &fileaccess.PathError{Op: op, Path: path, Err: errors.Join(fileaccess.ErrPermission, err)}
	}
	return &fileaccess.PathError{Op: op, Path: path, Err: err}
}

// Write implements fileaccess.FileWriter. Missing parent directories are
// created.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...fileaccess.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := a.fullPath("write", path)
	if err != nil {
		return err
	}

	opts := fileaccess.ProcessOptions(options...)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return pathError("write", path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return pathError("write", path, err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return pathError("write", path, err)
	}

	if err := f.Close(); err != nil {
		return pathError("write", path, err)
	}
	return nil
}

// Read implements fileaccess.FileReader
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.fullPath("read", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, pathError("read", path, err)
	}
	return f, nil
}

// Delete implements fileaccess.FileWriter. Directories must be empty.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := a.fullPath("delete", path)
	if err != nil {
		return err
	}
	if fullPath == a.root {
		return &fileaccess.PathError{Op: "delete", Path: path, Err: fileaccess.ErrNotAllowed}
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return pathError("delete", path, err)
	}
	if info.IsDir() {
		entries, err := os.ReadDir(fullPath)
		if err != nil {
			return pathError("delete", path, err)
		}
		if len(entries) > 0 {
			return &fileaccess.PathError{Op: "delete", Path: path, Err: fileaccess.ErrNotEmpty}
		}
	}

	if err := os.Remove(fullPath); err != nil {
		return pathError("delete", path, err)
	}
	return nil
}

func (a *Adapter) stat(op, path string) (os.FileInfo, error) {
	fullPath, err := a.fullPath(op, path)
	if err != nil {
		return nil, err
	}
	return os.Stat(fullPath)
}

// FileExists implements fileaccess.FileReader
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := a.stat("fileexists", path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, pathError("fileexists", path, err)
	}

	// Return true only if it's a file (not a directory)
	return !info.IsDir(), nil
}

// DirExists implements fileaccess.FileReader
func (a *Adapter) DirExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := a.stat("direxists", path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, pathError("direxists", path, err)
	}

	return info.IsDir(), nil
}

// Stat implements fileaccess.FileReader
func (a *Adapter) Stat(ctx context.Context, path string) (*fileaccess.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.fullPath("stat", path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, pathError("stat", path, err)
	}

	contentType := ""
	if !info.IsDir() {
		contentType = getContentType(fullPath)
	}

	return &fileaccess.FileInfo{
		Name:        filepath.Base(fullPath),
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		ContentType: contentType,
	}, nil
}

// CreateDir implements fileaccess.FileWriter
func (a *Adapter) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := a.fullPath("createdir", path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return pathError("createdir", path, err)
	}
	return nil
}

// OpenWriter implements fileaccess.CanOpenWriter. It returns the *os.File
// itself, so callers can fsync it. The parent directory must exist.
func (a *Adapter) OpenWriter(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := a.fullPath("openwriter", path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, pathError("openwriter", path, err)
	}
	return f, nil
}

// Move implements fileaccess.CanMove for native file moving/renaming.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcPath, err := a.fullPath("move", src)
	if err != nil {
		return err
	}
	dstPath, err := a.fullPath("move", dst)
	if err != nil {
		return err
	}

	if _, err := os.Stat(srcPath); err != nil {
		return pathError("move", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return pathError("move", dst, err)
	}

	if err := os.Rename(srcPath, dstPath); err != nil {
		return pathError("move", src, err)
	}
	return nil
}

// URL implements fileaccess.CanURL.
func (a *Adapter) URL(path string) string {
	fullPath, err := a.fullPath("url", path)
	if err != nil {
		return ""
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}
	return u.String()
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// getContentType tries to determine the content type of a file
func getContentType(path string) string {
	ext := filepath.Ext(path)
	if ext != "" {
		if contentType := mime.TypeByExtension(ext); contentType != "" {
			return contentType
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}

	return http.DetectContentType(buffer[:n])
}

var (
	_ fileaccess.FileSystem    = (*Adapter)(nil)
	_ fileaccess.CanMove       = (*Adapter)(nil)
	_ fileaccess.CanOpenWriter = (*Adapter)(nil)
	_ fileaccess.CanURL        = (*Adapter)(nil)
)
