package memory

import "github.com/gobeaver/fileaccess"

func init() {
	fileaccess.RegisterDriver("memory", func(cfg *fileaccess.Config) (fileaccess.FileSystem, error) {
		return New(), nil
	})
}
