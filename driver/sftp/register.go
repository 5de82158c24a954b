package sftp

import (
	"fmt"
	"os"

	"github.com/gobeaver/fileaccess"
)

func init() {
	fileaccess.RegisterDriver("sftp", func(cfg *fileaccess.Config) (fileaccess.FileSystem, error) {
		if cfg.SFTPHost == "" {
			return nil, fmt.Errorf("SFTP host is required")
		}

		sftpConfig := Config{
			Host:           cfg.SFTPHost,
			Port:           cfg.SFTPPort,
			Username:       cfg.SFTPUsername,
			Password:       cfg.SFTPPassword,
			BasePath:       cfg.SFTPBasePath,
			KnownHostsFile: cfg.SFTPKnownHosts,
		}

		if cfg.SFTPPrivateKey != "" {
			keyData, err := os.ReadFile(cfg.SFTPPrivateKey)
			if err != nil {
				return nil, fmt.Errorf("failed to read private key: %w", err)
			}
			sftpConfig.PrivateKey = keyData
		}

		return New(sftpConfig)
	})
}
