package memory

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/fileaccess"
	"github.com/gobeaver/fileaccess/internal/pathutil"
)

// memoryFile represents a file stored in memory
type memoryFile struct {
	content     []byte
	contentType string
	metadata    map[string]string
	modTime     time.Time
}

// memoryDir represents a directory in memory
type memoryDir struct {
	modTime time.Time
}

// Adapter provides an in-memory implementation of fileaccess.FileSystem.
// Useful for tests and for scratch namespaces that must not outlive the
// process.
type Adapter struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
	dirs  map[string]*memoryDir
}

// New creates a new in-memory filesystem adapter
func New() *Adapter {
	a := &Adapter{
		files: make(map[string]*memoryFile),
		dirs:  make(map[string]*memoryDir),
	}
	a.dirs["/"] = &memoryDir{modTime: time.Now()}
	return a
}

// Write implements fileaccess.FileWriter. Missing parent directories are
// created.
func (a *Adapter) Write(ctx context.Context, p string, content io.Reader, options ...fileaccess.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := normalizePath("write", p)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return &fileaccess.PathError{Op: "write", Path: p, Err: err}
	}

	opts := fileaccess.ProcessOptions(options...)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.files[p]; exists && !opts.Overwrite {
		return &fileaccess.PathError{Op: "write", Path: p, Err: fileaccess.ErrExist}
	}
	if _, exists := a.dirs[p]; exists {
		return &fileaccess.PathError{Op: "write", Path: p, Err: fileaccess.ErrIsDir}
	}
	if err := a.ensureParentDirs("write", p); err != nil {
		return err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(p, data)
	}

	a.files[p] = &memoryFile{
		content:     data,
		contentType: contentType,
		metadata:    opts.Metadata,
		modTime:     time.Now(),
	}

	return nil
}

// Read implements fileaccess.FileReader
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := normalizePath("read", p)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		return nil, &fileaccess.PathError{Op: "read", Path: p, Err: fileaccess.ErrNotExist}
	}

	// Content slices are replaced, never mutated, so sharing is safe.
	return io.NopCloser(bytes.NewReader(file.content)), nil
}

// Delete implements fileaccess.FileWriter. Directories must be empty.
func (a *Adapter) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := normalizePath("delete", p)
	if err != nil {
		return err
	}
	if pathutil.IsRoot(p) {
		return &fileaccess.PathError{Op: "delete", Path: p, Err: fileaccess.ErrNotAllowed}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.files[p]; exists {
		delete(a.files, p)
		return nil
	}

	if _, exists := a.dirs[p]; !exists {
		return &fileaccess.PathError{Op: "delete", Path: p, Err: fileaccess.ErrNotExist}
	}
	if a.hasChildren(p) {
		return &fileaccess.PathError{Op: "delete", Path: p, Err: fileaccess.ErrNotEmpty}
	}
	delete(a.dirs, p)
	return nil
}

// FileExists implements fileaccess.FileReader
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p, err := normalizePath("fileexists", p)
	if err != nil {
		return false, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.files[p]
	return exists, nil
}

// DirExists implements fileaccess.FileReader
func (a *Adapter) DirExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p, err := normalizePath("direxists", p)
	if err != nil {
		return false, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.dirs[p]
	return exists, nil
}

// Stat implements fileaccess.FileReader
func (a *Adapter) Stat(ctx context.Context, p string) (*fileaccess.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := normalizePath("stat", p)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if file, exists := a.files[p]; exists {
		return &fileaccess.FileInfo{
			Name:        path.Base(p),
			Path:        p,
			Size:        int64(len(file.content)),
			ModTime:     file.modTime,
			ContentType: file.contentType,
			Metadata:    file.metadata,
		}, nil
	}

	if dir, exists := a.dirs[p]; exists {
		return &fileaccess.FileInfo{
			Name:    path.Base(p),
			Path:    p,
			ModTime: dir.modTime,
			IsDir:   true,
		}, nil
	}

	return nil, &fileaccess.PathError{Op: "stat", Path: p, Err: fileaccess.ErrNotExist}
}

// CreateDir implements fileaccess.FileWriter. Creating an existing
// directory is not an error.
func (a *Adapter) CreateDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := normalizePath("createdir", p)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.files[p]; exists {
		return &fileaccess.PathError{Op: "createdir", Path: p, Err: fileaccess.ErrExist}
	}
	if err := a.ensureParentDirs("createdir", p); err != nil {
		return err
	}
	if _, exists := a.dirs[p]; !exists {
		a.dirs[p] = &memoryDir{modTime: time.Now()}
	}
	return nil
}

// Move implements fileaccess.CanMove. An existing destination file is
// replaced.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := normalizePath("move", src)
	if err != nil {
		return err
	}
	dst, err = normalizePath("move", dst)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	srcFile, exists := a.files[src]
	if !exists {
		return &fileaccess.PathError{Op: "move", Path: src, Err: fileaccess.ErrNotExist}
	}
	if src == dst {
		return nil
	}
	if _, exists := a.dirs[dst]; exists {
		return &fileaccess.PathError{Op: "move", Path: dst, Err: fileaccess.ErrIsDir}
	}
	if err := a.ensureParentDirs("move", dst); err != nil {
		return err
	}

	a.files[dst] = srcFile
	delete(a.files, src)
	return nil
}

// OpenWriter implements fileaccess.CanOpenWriter. The file is created
// empty (or truncated) immediately; its parent directory must exist.
// Written bytes become visible to readers on Sync and on Close.
func (a *Adapter) OpenWriter(ctx context.Context, p string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := normalizePath("openwriter", p)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.dirs[p]; exists {
		return nil, &fileaccess.PathError{Op: "openwriter", Path: p, Err: fileaccess.ErrIsDir}
	}
	if parent, ok := pathutil.Parent(p); ok {
		if _, exists := a.dirs[parent]; !exists {
			return nil, &fileaccess.PathError{Op: "openwriter", Path: p, Err: fileaccess.ErrNotExist}
		}
	}

	file := &memoryFile{
		contentType: detectContentType(p, nil),
		modTime:     time.Now(),
	}
	a.files[p] = file

	return &writer{adapter: a, path: p, file: file}, nil
}

// writer buffers writes for one open file. It holds the file itself rather
// than its path, so a rename carries pending writes along.
type writer struct {
	adapter *Adapter
	path    string
	file    *memoryFile

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// Name returns the path the writer was opened on.
func (w *writer) Name() string {
	return w.path
}

func (w *writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, &fileaccess.PathError{Op: "write", Path: w.path, Err: fileaccess.ErrClosed}
	}
	return w.buf.Write(p)
}

// Sync publishes everything written so far.
func (w *writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &fileaccess.PathError{Op: "sync", Path: w.path, Err: fileaccess.ErrClosed}
	}
	w.commit()
	return nil
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.commit()
	return nil
}

// commit must be called with w.mu held.
func (w *writer) commit() {
	data := make([]byte, w.buf.Len())
	copy(data, w.buf.Bytes())

	a := w.adapter
	a.mu.Lock()
	defer a.mu.Unlock()

	// A file deleted while open is unreachable; the writes land on it anyway.
	w.file.content = data
	w.file.modTime = time.Now()
}

// URL implements fileaccess.CanURL.
func (a *Adapter) URL(p string) string {
	return "mem://" + p
}

// Clear removes all files and directories from the memory filesystem
// Useful for testing cleanup
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.files = make(map[string]*memoryFile)
	a.dirs = make(map[string]*memoryDir)
	a.dirs["/"] = &memoryDir{modTime: time.Now()}
}

// FileCount returns the number of files stored
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// hasChildren must be called with the lock held.
func (a *Adapter) hasChildren(dir string) bool {
	prefix := dir + "/"
	for p := range a.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	for p := range a.dirs {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// ensureParentDirs creates all parent directories for a given path
// Must be called with lock held
func (a *Adapter) ensureParentDirs(op, p string) error {
	var missing []string
	for dir, ok := pathutil.Parent(p); ok; dir, ok = pathutil.Parent(dir) {
		if _, exists := a.files[dir]; exists {
			return &fileaccess.PathError{Op: op, Path: p, Err: fileaccess.ErrNotDir}
		}
		if _, exists := a.dirs[dir]; exists {
			break
		}
		missing = append(missing, dir)
	}
	now := time.Now()
	for _, dir := range missing {
		a.dirs[dir] = &memoryDir{modTime: now}
	}
	return nil
}

func normalizePath(op, p string) (string, error) {
	clean, err := pathutil.Clean(p)
	if err != nil {
		return "", &fileaccess.PathError{Op: op, Path: p, Err: fileaccess.ErrNotAllowed}
	}
	return clean, nil
}

// detectContentType determines the content type of a file
func detectContentType(p string, data []byte) string {
	if ext := path.Ext(p); ext != "" {
		if contentType := mime.TypeByExtension(ext); contentType != "" {
			return contentType
		}
	}

	if len(data) > 0 {
		return http.DetectContentType(data)
	}

	return "application/octet-stream"
}

var (
	_ fileaccess.FileSystem    = (*Adapter)(nil)
	_ fileaccess.CanMove       = (*Adapter)(nil)
	_ fileaccess.CanOpenWriter = (*Adapter)(nil)
	_ fileaccess.CanURL        = (*Adapter)(nil)
)
