package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/gobeaver/fileaccess"
	"github.com/gobeaver/fileaccess/internal/pathutil"
)

// Adapter provides an SFTP implementation of fileaccess.FileSystem.
// A dropped connection is re-established on the next call.
type Adapter struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	config   Config
}

// Config holds SFTP connection configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	BasePath   string

	// KnownHostsFile verifies the server key. Empty accepts any key.
	KnownHostsFile string
}

// AdapterOption is a function that configures SFTP Adapter
type AdapterOption func(*Adapter)

// WithBasePath sets the base path for SFTP operations
func WithBasePath(basePath string) AdapterOption {
	return func(a *Adapter) {
		a.basePath = basePath
	}
}

// New creates a new SFTP filesystem adapter and connects it.
func New(cfg Config, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config:   cfg,
		basePath: cfg.BasePath,
	}

	for _, option := range options {
		option(adapter)
	}

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if err := adapter.connect(); err != nil {
		return nil, err
	}

	return adapter, nil
}

// connect establishes SSH and SFTP connections. Must be called with a.mu held.
func (a *Adapter) connect() error {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if a.config.KnownHostsFile != "" {
		cb, err := knownhosts.New(a.config.KnownHostsFile)
		if err != nil {
			return fmt.Errorf("failed to load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	sshConfig := &ssh.ClientConfig{
		User:            a.config.Username,
		HostKeyCallback: hostKeyCallback,
	}

	if len(a.config.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(a.config.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}

	if a.config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(a.config.Password))
	}

	if len(sshConfig.Auth) == 0 {
		return fmt.Errorf("no authentication method provided")
	}

	port := a.config.Port
	if port == 0 {
		port = 22
	}

	addr := fmt.Sprintf("%s:%d", a.config.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a.sshConn = sshConn
	a.client = sftpClient
	return nil
}

// Close closes the SFTP and SSH connections
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Adapter) closeLocked() error {
	var errs []error

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}

	if a.sshConn != nil {
		if err := a.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sshConn = nil
	}

	return errors.Join(errs...)
}

// conn returns a live client, reconnecting if the connection was lost.
func (a *Adapter) conn(ctx context.Context, op, filePath string) (*sftp.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		if _, err := a.client.Getwd(); err == nil {
			return a.client, nil
		}
		a.closeLocked()
	}

	if err := a.connect(); err != nil {
		return nil, &fileaccess.PathError{Op: op, Path: filePath, Err: err}
	}
	return a.client, nil
}

// fullPath returns the remote path for a provider path. Provider paths are
// cleaned and absolute, so the result never leaves the base path.
func (a *Adapter) fullPath(filePath string) string {
	clean := path.Clean("/" + filePath)
	if a.basePath == "" {
		return clean
	}
	return path.Join(a.basePath, clean)
}

// Write implements fileaccess.FileWriter. Missing parent directories are
// created.
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...fileaccess.Option) error {
	client, err := a.conn(ctx, "write", filePath)
	if err != nil {
		return err
	}

	opts := fileaccess.ProcessOptions(options...)
	fullPath := a.fullPath(filePath)

	if !opts.Overwrite {
		_, err := client.Stat(fullPath)
		if err == nil {
			return &fileaccess.PathError{Op: "write", Path: filePath, Err: fileaccess.ErrExist}
		}
		if !os.IsNotExist(err) {
			return mapSFTPError("write", filePath, err)
		}
	}

	if err := client.MkdirAll(path.Dir(fullPath)); err != nil {
		return mapSFTPError("write", filePath, err)
	}

	file, err := client.Create(fullPath)
	if err != nil {
		return mapSFTPError("write", filePath, err)
	}

	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		return mapSFTPError("write", filePath, err)
	}

	if err := file.Close(); err != nil {
		return mapSFTPError("write", filePath, err)
	}
	return nil
}

// OpenWriter implements fileaccess.CanOpenWriter. The returned *sftp.File
// supports Sync when the server has the fsync@openssh.com extension.
func (a *Adapter) OpenWriter(ctx context.Context, filePath string) (io.WriteCloser, error) {
	client, err := a.conn(ctx, "openwriter", filePath)
	if err != nil {
		return nil, err
	}

	file, err := client.OpenFile(a.fullPath(filePath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return nil, mapSFTPError("openwriter", filePath, err)
	}
	return file, nil
}

// Read implements fileaccess.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	client, err := a.conn(ctx, "read", filePath)
	if err != nil {
		return nil, err
	}

	file, err := client.Open(a.fullPath(filePath))
	if err != nil {
		return nil, mapSFTPError("read", filePath, err)
	}
	return file, nil
}

// Delete implements fileaccess.FileWriter. Directories must be empty.
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	if pathutil.IsRoot(filePath) {
		return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotAllowed}
	}

	client, err := a.conn(ctx, "delete", filePath)
	if err != nil {
		return err
	}

	fullPath := a.fullPath(filePath)

	info, err := client.Stat(fullPath)
	if err != nil {
		return mapSFTPError("delete", filePath, err)
	}
	if info.IsDir() {
		entries, err := client.ReadDir(fullPath)
		if err != nil {
			return mapSFTPError("delete", filePath, err)
		}
		if len(entries) > 0 {
			return &fileaccess.PathError{Op: "delete", Path: filePath, Err: fileaccess.ErrNotEmpty}
		}
	}

	if err := client.Remove(fullPath); err != nil {
		return mapSFTPError("delete", filePath, err)
	}
	return nil
}

func (a *Adapter) stat(ctx context.Context, op, filePath string) (os.FileInfo, error) {
	client, err := a.conn(ctx, op, filePath)
	if err != nil {
		return nil, err
	}
	return client.Stat(a.fullPath(filePath))
}

// FileExists implements fileaccess.FileReader
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	info, err := a.stat(ctx, "fileexists", filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, mapSFTPError("fileexists", filePath, err)
	}
	return !info.IsDir(), nil
}

// DirExists implements fileaccess.FileReader
func (a *Adapter) DirExists(ctx context.Context, dirPath string) (bool, error) {
	info, err := a.stat(ctx, "direxists", dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, mapSFTPError("direxists", dirPath, err)
	}
	return info.IsDir(), nil
}

// Stat implements fileaccess.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*fileaccess.FileInfo, error) {
	info, err := a.stat(ctx, "stat", filePath)
	if err != nil {
		return nil, mapSFTPError("stat", filePath, err)
	}

	return &fileaccess.FileInfo{
		Name:    path.Base(filePath),
		Path:    filePath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// CreateDir implements fileaccess.FileWriter
func (a *Adapter) CreateDir(ctx context.Context, dirPath string) error {
	client, err := a.conn(ctx, "createdir", dirPath)
	if err != nil {
		return err
	}

	if err := client.MkdirAll(a.fullPath(dirPath)); err != nil {
		return mapSFTPError("createdir", dirPath, err)
	}
	return nil
}

// Move implements fileaccess.CanMove using the native rename.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	client, err := a.conn(ctx, "move", src)
	if err != nil {
		return err
	}

	dstPath := a.fullPath(dst)
	if err := client.MkdirAll(path.Dir(dstPath)); err != nil {
		return mapSFTPError("move", dst, err)
	}

	if err := client.Rename(a.fullPath(src), dstPath); err != nil {
		return mapSFTPError("move", src, err)
	}
	return nil
}

// URL implements fileaccess.CanURL.
func (a *Adapter) URL(filePath string) string {
	host := a.config.Host
	if a.config.Port != 0 && a.config.Port != 22 {
		host = fmt.Sprintf("%s:%d", host, a.config.Port)
	}
	return "sftp://" + host + a.fullPath(filePath)
}

func mapSFTPError(op, path string, err error) error {
	if os.IsNotExist(err) {
		return &fileaccess.PathError{Op: op, Path: path, Err: fileaccess.ErrNotExist}
	}

	if os.IsPermission(err) {
		return &fileaccess.PathError{Op: op, Path: path, Err: errors.Join(fileaccess.ErrPermission, err)}
	}

	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) && statusErr.FxCode() == sftp.ErrSSHFxNoSuchFile {
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
