package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docindex/config"
	"docindex/internal/app"
)

// version is overridden at build time with -ldflags "-X docindex/internal/cli.version=...".
var version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docindex",
	Short: "Document retrieval engine - ingest text and search it by embedding distance",
	Long: `docindex splits text into word-aligned chunks, embeds every chunk and
answers nearest-neighbour queries, optionally widening each hit with the
chunks around it.

The index lives in .docindex/ within the project directory.

Example usage:
  docindex ingest notes/                      # Ingest every text file under notes/
  echo "The sky is blue." | docindex ingest - # Ingest stdin as one document
  docindex query "what does a king eat"       # Search the index
  docindex serve                              # Serve POST /embed and POST /search
  docindex shell                              # Interactive search`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}
		rootDir, err = filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("invalid directory: %w", err)
		}

		// A missing .env is fine; real environment variables win.
		_ = godotenv.Load(filepath.Join(rootDir, ".env"))

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docindex.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, GetConfig(), GetRootDir(), version, os.Stderr)
}
