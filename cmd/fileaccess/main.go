package main

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gobeaver/fileaccess"
	_ "github.com/gobeaver/fileaccess/driver/azure"
	_ "github.com/gobeaver/fileaccess/driver/gcs"
	_ "github.com/gobeaver/fileaccess/driver/local"
	_ "github.com/gobeaver/fileaccess/driver/memory"
	_ "github.com/gobeaver/fileaccess/driver/s3"
	_ "github.com/gobeaver/fileaccess/driver/sftp"
)

//go:embed resources
var bundled embed.FS

var (
	driverFlag   string
	rootFlag     string
	debugFlag    bool
	resourceFlag bool
	readOnlyFlag bool
)

// app holds everything a subcommand needs. It is built before the
// subcommand runs and torn down after it returns, successful or not.
type app struct {
	logger   *zap.Logger
	ns       *fileaccess.Namespace
	selector *fileaccess.Selector
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "fileaccess",
	Short: "Inspect and modify files through a fileaccess namespace",
	Long: `fileaccess binds a namespace to the configured storage driver and runs
a single element operation against it. Configuration is read from
BEAVER_FILEACCESS_* environment variables; flags override it.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "storage driver (overrides BEAVER_FILEACCESS_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "namespace root (overrides BEAVER_FILEACCESS_ROOT)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&readOnlyFlag, "read-only", false, "reject writes through the namespace")
	rootCmd.PersistentFlags().BoolVar(&resourceFlag, "resource", false, "use the bundled resource backend")

	rootCmd.AddCommand(
		existsCmd, catCmd, putCmd, mvCmd, rmCmd, mkdirCmd, pathCmd, checksumCmd, driversCmd,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if terr := teardown(ctx); terr != nil {
		fmt.Fprintf(os.Stderr, "Error: teardown: %v\n", terr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := fileaccess.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if driverFlag != "" {
		cfg.Driver = driverFlag
	}
	if rootFlag != "" {
		cfg.Root = rootFlag
	}
	if readOnlyFlag {
		cfg.ReadOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.LogLevel
	if debugFlag {
		level = "debug"
	}
	logger, err := initializeLogger(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	resources, err := fs.Sub(bundled, "resources")
	if err != nil {
		return err
	}
	resourceOpts := []fileaccess.ResourceOption{fileaccess.WithResourceLogger(logger)}
	if cfg.ResourceDir != "" {
		resourceOpts = append(resourceOpts, fileaccess.WithFallback(os.DirFS(cfg.ResourceDir)))
	}

	ns := fileaccess.NewNamespace(cfg, fileaccess.WithLogger(logger))
	current = &app{
		logger: logger,
		ns:     ns,
		selector: fileaccess.NewSelector(
			fileaccess.NewVFSAccess(ns),
			fileaccess.NewResourceAccess(resources, resourceOpts...),
		),
	}
	return nil
}

func teardown(ctx context.Context) error {
	if current == nil {
		return nil
	}
	err := current.ns.Teardown(ctx)
	_ = current.logger.Sync()
	return err
}

func initializeLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

// writable returns the writable backend, refusing --resource for commands
// that only make sense against the namespace.
func writable() (*fileaccess.VFSAccess, error) {
	if resourceFlag {
		return nil, fmt.Errorf("command is not available for bundled resources")
	}
	return current.selector.Writable(), nil
}

var existsCmd = &cobra.Command{
	Use:   "exists NAME",
	Short: "Report whether an element exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok := current.selector.Exists(cmd.Context(), args[0], resourceFlag)
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		if !ok {
			return fmt.Errorf("%s: %w", args[0], fileaccess.ErrNotExist)
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat NAME",
	Short: "Print an element's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := current.selector.Select(resourceFlag).OpenInputElement(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(cmd.OutOrStdout(), rc)
		return err
	},
}

var putCmd = &cobra.Command{
	Use:   "put NAME",
	Short: "Write standard input to an element and sync it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		access := current.selector.Select(resourceFlag)

		access.CreateParentDirs(ctx, args[0])
		w, err := access.OpenOutputElement(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, cmd.InOrStdin()); err != nil {
			w.Close()
			return err
		}

		if s, err := access.GetFileSync(w); err == nil {
			if err := s.Sync(); err != nil {
				w.Close()
				return err
			}
		} else {
			current.logger.Debug("Stream cannot be synced", zap.Error(err))
		}
		return w.Close()
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv OLD NEW",
	Short: "Rename an element, replacing the destination",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := writable()
		if err != nil {
			return err
		}
		access.RenameElement(cmd.Context(), args[0], args[1])
		if !access.Exists(cmd.Context(), args[1]) {
			return fmt.Errorf("rename %s to %s failed", args[0], args[1])
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove an element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := writable()
		if err != nil {
			return err
		}
		if !access.Delete(cmd.Context(), args[0]) {
			return fmt.Errorf("%s was not removed", args[0])
		}
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir NAME",
	Short: "Create a directory and its ancestors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := writable()
		if err != nil {
			return err
		}
		p, ok := access.MakeDirectories(cmd.Context(), args[0])
		if !ok {
			return fmt.Errorf("cannot create directory %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

var pathCmd = &cobra.Command{
	Use:   "path NAME",
	Short: "Print the canonical and absolute paths of an element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := writable()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "canonical: %s\n", access.CanonicalOrAbsolutePath(cmd.Context(), args[0]))
		fmt.Fprintf(out, "absolute:  %s\n", access.AbsolutePath(cmd.Context(), args[0]))
		return nil
	},
}

var checksumAlgorithm string

var checksumCmd = &cobra.Command{
	Use:   "checksum NAME",
	Short: "Print the checksum of an element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := writable()
		if err != nil {
			return err
		}
		algo, err := fileaccess.ParseChecksumAlgorithm(checksumAlgorithm)
		if err != nil {
			return err
		}
		sum, err := access.Checksum(cmd.Context(), args[0], algo)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, args[0])
		return nil
	},
}

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List registered storage drivers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range fileaccess.RegisteredDrivers() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	checksumCmd.Flags().StringVarP(&checksumAlgorithm, "algorithm", "a", "sha256", "checksum algorithm ("+strings.Join(fileaccess.ChecksumAlgorithms(), ", ")+")")
}
