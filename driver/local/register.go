package local

import "github.com/gobeaver/fileaccess"

func init() {
	fileaccess.RegisterDriver("local", func(cfg *fileaccess.Config) (fileaccess.FileSystem, error) {
		return New(cfg.LocalBasePath)
	})
}
