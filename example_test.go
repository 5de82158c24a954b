package fileaccess_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing/fstest"

	"github.com/gobeaver/fileaccess"
	_ "github.com/gobeaver/fileaccess/driver/memory"
)

func ExampleNamespace() {
	ctx := context.Background()

	cfg := fileaccess.DefaultConfig()
	cfg.Driver = "memory" // use "local", "s3", "gcs", "azure" or "sftp" in production

	ns := fileaccess.NewNamespace(cfg)
	defer ns.Teardown(ctx)

	if err := ns.Initialize(ctx, "/db"); err != nil {
		fmt.Println("Error:", err)
		return
	}

	obj, _ := ns.Resolve(ctx, "test.script")
	fmt.Println(obj.Name().URI())
	// Output:
	// vfs:///db/test.script
}

func ExampleVFSAccess() {
	ctx := context.Background()

	cfg := fileaccess.DefaultConfig()
	cfg.Driver = "memory"
	ns := fileaccess.NewNamespace(cfg)
	defer ns.Teardown(ctx)

	access := fileaccess.NewVFSAccess(ns)

	// Write the new file beside the old one, then swap it in.
	access.CreateParentDirs(ctx, "db/test.script.new")
	w, _ := access.OpenOutputElement(ctx, "db/test.script.new")
	_, _ = io.WriteString(w, "CREATE TABLE T(ID INT)")
	if s, err := access.GetFileSync(w); err == nil {
		_ = s.Sync()
	}
	_ = w.Close()

	access.RenameElement(ctx, "db/test.script.new", "db/test.script")

	rc, _ := access.OpenInputElement(ctx, "db/test.script")
	defer rc.Close()
	data, _ := io.ReadAll(rc)

	fmt.Println(access.IsElement(ctx, "db/test.script.new"))
	fmt.Println(string(data))
	// Output:
	// false
	// CREATE TABLE T(ID INT)
}

func ExampleSelector() {
	ctx := context.Background()

	cfg := fileaccess.DefaultConfig()
	cfg.Driver = "memory"
	ns := fileaccess.NewNamespace(cfg)
	defer ns.Teardown(ctx)

	resources := fileaccess.NewResourceAccess(fstest.MapFS{
		"defaults/db.properties": {Data: []byte("readonly=true")},
	}, fileaccess.WithBase("defaults"))

	s := fileaccess.NewSelector(fileaccess.NewVFSAccess(ns), resources)

	fmt.Println(s.Exists(ctx, "db.properties", true))
	fmt.Println(s.Exists(ctx, "db.properties", false))

	_, err := s.Select(true).OpenOutputElement(ctx, "db.properties")
	fmt.Println(fileaccess.IsReadOnlyError(err))
	// Output:
	// true
	// false
	// true
}

func ExampleIsResolution() {
	ctx := context.Background()

	cfg := fileaccess.DefaultConfig()
	cfg.Driver = "memory"
	ns := fileaccess.NewNamespace(cfg)
	defer ns.Teardown(ctx)

	_, err := ns.Resolve(ctx, "../outside")
	fmt.Println(fileaccess.IsResolution(err))
	// Output:
	// true
}

func ExampleNewReadOnlyFileSystem() {
	ctx := context.Background()

	cfg := fileaccess.DefaultConfig()
	cfg.Driver = "memory"
	cfg.ReadOnly = true
	ns := fileaccess.NewNamespace(cfg)
	defer ns.Teardown(ctx)

	access := fileaccess.NewVFSAccess(ns)
	_, err := access.OpenOutputElement(ctx, "test.log")

	fmt.Println(fileaccess.IsReadOnlyError(err))
	fmt.Println(strings.Contains(err.Error(), "read-only"))
	// Output:
	// true
	// true
}
