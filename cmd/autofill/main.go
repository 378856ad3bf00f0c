// Package main provides the form-autofill command line: profile management, form filling
// on live pages and HTML documents, and the HTTP API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/form-autofill/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath  string
	verbose     bool
	storeDriver string
	sqlitePath  string
	databaseURL string
	profileID   string
	aliasesFile string

	// settings is the merged configuration for the running command.
	settings config.Config
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "autofill",
	Short: "Fill web forms from a saved profile",
	Long: `autofill keeps a profile of personal details (name, contact, education, links and
any custom fields) and fills matching text inputs on web forms: live pages through Chrome,
or saved HTML documents.

Configuration can be loaded from a JSON file using --config. Command-line flags override
config file values.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadSettings(cmd); err != nil {
			return err
		}

		// Initialize logger
		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if settings.Verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
	pf.StringVar(&storeDriver, "store", "", "Profile store: memory, sqlite or postgres (default sqlite)")
	pf.StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file (default under the user config directory)")
	pf.StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	pf.StringVar(&profileID, "profile-id", "", "Profile UUID (default profile when empty)")
	pf.StringVar(&aliasesFile, "aliases", "", "YAML file with extra field aliases")
}

// reportedError is an error whose message was already shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
