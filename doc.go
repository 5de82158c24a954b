// Package fileaccess is the file-access layer of an embedded storage engine:
// the engine reads and writes its database files through a [FileAccess]
// capability, and this package supplies two implementations of it.
//
// [VFSAccess] is the writable backend. It resolves every logical name
// through a [Namespace], a virtual filesystem bound once to a storage
// provider under a root path. [ResourceAccess] is the read-only backend
// over bundled resources such as an embed.FS. A [Selector] picks one of the
// two per request.
//
// # Storage Providers
//
// A namespace binds to any provider implementing [FileSystem]. Drivers
// register themselves by name when imported:
//
//   - In-memory (github.com/gobeaver/fileaccess/driver/memory)
//   - Local filesystem (github.com/gobeaver/fileaccess/driver/local)
//   - Amazon S3 (github.com/gobeaver/fileaccess/driver/s3)
//   - Google Cloud Storage (github.com/gobeaver/fileaccess/driver/gcs)
//   - Azure Blob Storage (github.com/gobeaver/fileaccess/driver/azure)
//   - SFTP (github.com/gobeaver/fileaccess/driver/sftp)
//
// # Basic Usage
//
//	import _ "github.com/gobeaver/fileaccess/driver/local"
//
//	cfg, err := fileaccess.GetConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ns := fileaccess.NewNamespace(cfg, fileaccess.WithLogger(logger))
//	defer ns.Teardown(ctx)
//
//	access := fileaccess.NewVFSAccess(ns)
//
//	access.CreateParentDirs(ctx, "db/test.log")
//	w, err := access.OpenOutputElement(ctx, "db/test.log")
//	if err != nil {
//	    return err
//	}
//	sync, err := access.GetFileSync(w)
//
// The namespace binds lazily on the first [Namespace.Resolve], or eagerly
// through [Namespace.Initialize]. Only the first bind counts; a failed bind
// is remembered and every later resolve fails with [ErrManagerUnavailable]
// until [Namespace.Reset].
//
// # Optional Capabilities
//
// Providers may implement [CanMove], [CanOpenWriter] and [CanURL]. Handles
// fall back to copy-then-delete moves and pipe-backed writers when they are
// missing. Only writers that expose Sync() error, such as *os.File, support
// [FileAccess.GetFileSync].
//
// # Decorators
//
// A namespace wraps its provider according to [Config]:
//
//	// ReadOnly: every mutation fails with ErrReadOnly
//	readOnly := fileaccess.NewReadOnlyFileSystem(fs)
//
//	// CacheEnabled: existence and metadata lookups are cached
//	cached := fileaccess.NewCachingFileSystem(fs, fileaccess.NewMemoryCache(),
//	    fileaccess.WithCacheTTL(5*time.Minute),
//	)
//
// # Error Handling
//
// Resolution failures match [ErrResolution]; stream and sync failures match
// [ErrIO]. Both wrap the underlying cause:
//
//	_, err := access.OpenInputElement(ctx, "db/missing.script")
//	if fileaccess.IsNotExist(err) {
//	    // no such element
//	}
//
//	var pathErr *fileaccess.PathError
//	if errors.As(err, &pathErr) {
//	    fmt.Printf("Operation: %s, Path: %s\n", pathErr.Op, pathErr.Path)
//	}
//
// # Configuration
//
// [GetConfig] reads BEAVER_FILEACCESS_* environment variables, or build a
// [Config] directly:
//
//	cfg := fileaccess.DefaultConfig()
//	cfg.Driver = "s3"
//	cfg.S3Bucket = "my-bucket"
//	cfg.Root = "/databases"
//	ns := fileaccess.NewNamespace(cfg)
package fileaccess
