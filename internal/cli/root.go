package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqasim81/routedb/internal/config"
	"github.com/aqasim81/routedb/internal/logging"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// AppLogger is the structured logger, set during PersistentPreRunE.
var AppLogger *zap.Logger //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the routedb CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "routedb",
	Version: version,
	Short:   "Run the route database's one-off migration units",
	Long: `routedb applies the schema and data migration units of the route
management database in order. Each operation is individually idempotent:
re-running a unit whose changes already exist succeeds without changing
anything. Units are SQL files or YAML manifests describing filtered data
updates and model syncs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", config.DefaultConfigFile, "path to configuration file (.yml or .toml)")
	rootCmd.PersistentFlags().String("database-url", "", "database connection string (postgres://, sqlite://, libsql://)")
	rootCmd.PersistentFlags().String("migrations-dir", "", "path to migration units")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "dotenv file loaded before reading MIGRATE_* variables")
}

// Execute runs the root command with ctx. Called from main.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	if cmd.Flags().Lookup("env-file") != nil {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadDotenv(envFile, !cmd.Flags().Changed("env-file")); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
	}

	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := config.MergeEnv(cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	mergeFlags(cmd, cfg)

	verbose, _ := cmd.Flags().GetBool("verbose")

	AppConfig = cfg
	AppLogger = logging.New(verbose, cmd.ErrOrStderr())

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}

	if cmd.Flags().Changed("migrations-dir") {
		cfg.MigrationsDir, _ = cmd.Flags().GetString("migrations-dir")
	}
}

// logger returns AppLogger, or a no-op logger when commands run without
// PersistentPreRunE (as in tests).
func logger() *zap.Logger {
	if AppLogger == nil {
		return zap.NewNop()
	}

	return AppLogger
}
