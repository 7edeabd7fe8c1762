package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/routedb/internal/config"
)

func TestMergeFlags_databaseURL_overridesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := &cobra.Command{}
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")

	require.NoError(t, cmd.Flags().Set("database-url", "postgres://test:5432/db"))

	mergeFlags(cmd, cfg)
	assert.Equal(t, "postgres://test:5432/db", cfg.DatabaseURL)
}

func TestMergeFlags_migrationsDir_overridesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := &cobra.Command{}
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")

	require.NoError(t, cmd.Flags().Set("migrations-dir", "/custom/migrations"))

	mergeFlags(cmd, cfg)
	assert.Equal(t, "/custom/migrations", cfg.MigrationsDir)
}

func TestMergeFlags_unchangedFlags_preserveConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.DatabaseURL = "postgres://original:5432/db"
	cfg.MigrationsDir = "/original/dir"

	cmd := &cobra.Command{}
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")

	mergeFlags(cmd, cfg)
	assert.Equal(t, "postgres://original:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "/original/dir", cfg.MigrationsDir)
}

func TestLoadConfig_missingFile_usesDefaults(t *testing.T) { // not parallel: mutates global AppConfig
	restoreGlobals(t)

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "nonexistent.yml", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, config.DefaultMigrationsDir, AppConfig.MigrationsDir)
	assert.Equal(t, config.DefaultTargetPGVersion, AppConfig.TargetPGVersion)
}

func TestLoadConfig_validFile_loadsValues(t *testing.T) { // not parallel: mutates global AppConfig
	restoreGlobals(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "test-config.yml")

	yamlContent := "migrations_dir: /from/yaml\ntarget_pg_version: 15\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")

	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, "/from/yaml", AppConfig.MigrationsDir)
	assert.Equal(t, 15, AppConfig.TargetPGVersion)
}

func TestLoadConfig_invalidFile_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	restoreGlobals(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad-config.yml")

	require.NoError(t, os.WriteFile(cfgPath, []byte("target_pg_version: [unclosed"), 0o600))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")

	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestLoadConfig_tomlFile_loadsValues(t *testing.T) { // not parallel: mutates global AppConfig
	restoreGlobals(t)

	cfgPath := filepath.Join(t.TempDir(), "migrate.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("migrations_dir = \"/from/toml\"\nformat = \"json\"\n"), 0o600))

	cmd := newRootFlagsCmd()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	require.NoError(t, loadConfig(cmd))
	assert.Equal(t, "/from/toml", AppConfig.MigrationsDir)
	assert.Equal(t, "json", AppConfig.Format)
	assert.NotNil(t, AppLogger)
}

func TestLoadConfig_envFile_feedsEnvironment(t *testing.T) { // not parallel: mutates process env and AppConfig
	restoreGlobals(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, "routedb.env")
	require.NoError(t, os.WriteFile(envPath,
		[]byte("MIGRATE_DATABASE_URL=sqlite:///tmp/rutas.db\nMIGRATE_LEDGER=false\n"), 0o600))

	// Unset so godotenv, which never overrides existing variables, can set them.
	for _, key := range []string{"MIGRATE_DATABASE_URL", "MIGRATE_LEDGER"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cmd := newRootFlagsCmd()
	require.NoError(t, cmd.Flags().Set("env-file", envPath))

	require.NoError(t, loadConfig(cmd))
	assert.Equal(t, "sqlite:///tmp/rutas.db", AppConfig.DatabaseURL)
	assert.False(t, AppConfig.Ledger)
}

func TestLoadConfig_missingExplicitEnvFile_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	restoreGlobals(t)

	cmd := newRootFlagsCmd()
	require.NoError(t, cmd.Flags().Set("env-file", filepath.Join(t.TempDir(), "absent.env")))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestLoadConfig_flagOverridesEnv(t *testing.T) { // not parallel: mutates process env and AppConfig
	restoreGlobals(t)
	t.Setenv("MIGRATE_DATABASE_URL", "postgres://env:5432/db")

	cmd := newRootFlagsCmd()
	require.NoError(t, cmd.Flags().Set("database-url", "postgres://flag:5432/db"))

	require.NoError(t, loadConfig(cmd))
	assert.Equal(t, "postgres://flag:5432/db", AppConfig.DatabaseURL)
}

func TestLogger_withoutPreRun_isNop(t *testing.T) { // not parallel: mutates global AppLogger
	restoreGlobals(t)
	AppLogger = nil

	assert.NotNil(t, logger())
}

// restoreGlobals puts AppConfig and AppLogger back after the test.
func restoreGlobals(t *testing.T) {
	t.Helper()

	oldCfg, oldLog := AppConfig, AppLogger
	t.Cleanup(func() {
		AppConfig = oldCfg
		AppLogger = oldLog
	})
}

// newRootFlagsCmd registers the persistent flags loadConfig reads.
func newRootFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", filepath.Join(os.TempDir(), "routedb-absent.yml"), "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().String("migrations-dir", "", "")
	cmd.Flags().Bool("verbose", false, "")
	cmd.Flags().String("env-file", ".env", "")

	return cmd
}
