package fileaccess

import (
	"errors"
	"fmt"
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Provider driver to bind namespaces to (memory, local, gcs, s3, azure, sftp)
	Driver string `env:"FILEACCESS_DRIVER,default:local"`

	// Namespace settings
	Root            string `env:"FILEACCESS_ROOT,default:/"`
	Scheme          string `env:"FILEACCESS_SCHEME,default:vfs"`
	ReadOnly        bool   `env:"FILEACCESS_READ_ONLY,default:false"`
	CacheEnabled    bool   `env:"FILEACCESS_CACHE_ENABLED,default:false"`
	CacheTTLSeconds int    `env:"FILEACCESS_CACHE_TTL_SECONDS,default:300"`

	// Local driver configuration
	LocalBasePath string `env:"FILEACCESS_LOCAL_BASE_PATH,default:./storage"`

	// S3 driver configuration
	S3Region          string `env:"FILEACCESS_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"FILEACCESS_S3_BUCKET"`
	S3Prefix          string `env:"FILEACCESS_S3_PREFIX"`
	S3Endpoint        string `env:"FILEACCESS_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"FILEACCESS_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"FILEACCESS_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"FILEACCESS_S3_FORCE_PATH_STYLE,default:false"`

	// GCS (Google Cloud Storage) driver configuration
	GCSBucket          string `env:"FILEACCESS_GCS_BUCKET"`
	GCSPrefix          string `env:"FILEACCESS_GCS_PREFIX"`
	GCSCredentialsFile string `env:"FILEACCESS_GCS_CREDENTIALS_FILE"` // Path to service account JSON
	GCSProjectID       string `env:"FILEACCESS_GCS_PROJECT_ID"`

	// Azure Blob Storage driver configuration
	AzureAccountName   string `env:"FILEACCESS_AZURE_ACCOUNT_NAME"`
	AzureAccountKey    string `env:"FILEACCESS_AZURE_ACCOUNT_KEY"`
	AzureContainerName string `env:"FILEACCESS_AZURE_CONTAINER_NAME"`
	AzurePrefix        string `env:"FILEACCESS_AZURE_PREFIX"`
	AzureEndpoint      string `env:"FILEACCESS_AZURE_ENDPOINT"` // Optional custom endpoint

	// SFTP driver configuration
	SFTPHost       string `env:"FILEACCESS_SFTP_HOST"`
	SFTPPort       int    `env:"FILEACCESS_SFTP_PORT,default:22"`
	SFTPUsername   string `env:"FILEACCESS_SFTP_USERNAME"`
	SFTPPassword   string `env:"FILEACCESS_SFTP_PASSWORD"`
	SFTPPrivateKey string `env:"FILEACCESS_SFTP_PRIVATE_KEY"` // Path to private key file
	SFTPBasePath   string `env:"FILEACCESS_SFTP_BASE_PATH"`
	SFTPKnownHosts string `env:"FILEACCESS_SFTP_KNOWN_HOSTS"` // Path to known_hosts file

	// Directory searched when a bundled resource is missing from the
	// embedded set
	ResourceDir string `env:"FILEACCESS_RESOURCE_DIR"`

	LogLevel string `env:"FILEACCESS_LOG_LEVEL,default:info"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigWithPrefix loads config from environment variables carrying an
// extra prefix, for processes hosting more than one namespace.
func GetConfigWithPrefix(prefix string) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the environment defaults without reading the
// environment.
func DefaultConfig() *Config {
	return &Config{
		Driver:          "local",
		Root:            "/",
		Scheme:          "vfs",
		CacheTTLSeconds: 300,
		LocalBasePath:   "./storage",
		S3Region:        "us-east-1",
		SFTPPort:        22,
		LogLevel:        "info",
	}
}

// CacheTTL returns the provider cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Driver == "" {
		return errors.New("driver is required")
	}
	if c.Scheme == "" {
		return errors.New("scheme is required")
	}

	switch c.Driver {
	case "memory":
	case "local":
		if c.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3 bucket is required for S3 driver")
		}
		// Access keys can be provided via IAM roles, so not always required
	case "gcs":
		if c.GCSBucket == "" {
			return errors.New("GCS bucket is required for GCS driver")
		}
	case "azure":
		if c.AzureContainerName == "" {
			return errors.New("azure container name is required for azure driver")
		}
	case "sftp":
		if c.SFTPHost == "" {
			return errors.New("SFTP host is required for SFTP driver")
		}
	default:
		return fmt.Errorf("unknown driver: %s", c.Driver)
	}

	return nil
}
