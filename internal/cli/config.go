package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/schemasync/internal/migrate"
)

const (
	defaultConfigFile = "schemasync.yaml"
	configFileType    = "yaml"
	envPrefix         = "SCHEMASYNC"

	cfgKeyDB                     = "db"
	cfgKeyPostgresDSN            = "postgres-dsn"
	cfgKeyStrict                 = "strict"
	cfgKeyDeleteExtraFields      = "delete-extra-fields"
	cfgKeyRecreateModifiedFields = "recreate-modified-fields"
	cfgKeyProduction             = "production"
	cfgKeyMaxRetries             = "max-retries"
	cfgKeyRetryDelay             = "retry-delay"
)

// Config is the resolved option set for one command. Flags win over
// SCHEMASYNC_* environment variables, which win over schemasync.yaml.
type Config struct {
	DB                     string
	PostgresDSN            string
	Strict                 bool
	DeleteExtraFields      bool
	RecreateModifiedFields bool
	Production             bool
	MaxRetries             int
	RetryDelay             time.Duration
}

// loadConfig layers cmd's flags over the environment and an optional config
// file. A missing schemasync.yaml is not an error; a missing file named by
// --config is.
func loadConfig(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyMaxRetries, migrate.DefaultMaxRetries)
	v.SetDefault(cfgKeyRetryDelay, migrate.DefaultRetryDelay)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// Full name only; a name search also matches a schemasync binary.
	explicit := configFile != ""
	if !explicit {
		configFile = defaultConfigFile
	}
	v.SetConfigFile(configFile)
	v.SetConfigType(configFileType)
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DB:                     v.GetString(cfgKeyDB),
		PostgresDSN:            v.GetString(cfgKeyPostgresDSN),
		Strict:                 v.GetBool(cfgKeyStrict),
		DeleteExtraFields:      v.GetBool(cfgKeyDeleteExtraFields),
		RecreateModifiedFields: v.GetBool(cfgKeyRecreateModifiedFields),
		Production:             v.GetBool(cfgKeyProduction),
		MaxRetries:             v.GetInt(cfgKeyMaxRetries),
		RetryDelay:             v.GetDuration(cfgKeyRetryDelay),
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %d", cfgKeyMaxRetries, cfg.MaxRetries)
	}
	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %s", cfgKeyRetryDelay, cfg.RetryDelay)
	}
	return cfg, nil
}

// reconcilerOptions maps the config onto reconciler options.
func (c *Config) reconcilerOptions(logger *slog.Logger, ids migrate.IDGenerator) []migrate.Option {
	return []migrate.Option{
		migrate.WithStrict(c.Strict),
		migrate.WithDeleteExtraFields(c.DeleteExtraFields),
		migrate.WithRecreateModifiedFields(c.RecreateModifiedFields),
		migrate.WithProduction(c.Production),
		migrate.WithMaxRetries(c.MaxRetries),
		migrate.WithRetryDelay(c.RetryDelay),
		migrate.WithLogger(logger),
		migrate.WithIDGenerator(ids),
	}
}

// addStoreFlags registers the flags selecting a backend.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String(cfgKeyDB, "", "path to a SQLite schema store")
	cmd.Flags().String(cfgKeyPostgresDSN, "", "PostgreSQL connection string")
}

// addReconcilerFlags registers the switches passed to the reconciler.
func addReconcilerFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(cfgKeyStrict, false, "warn about undeclared classes, extra fields and type changes")
	cmd.Flags().Bool(cfgKeyDeleteExtraFields, false, "delete live fields and indexes that are not declared")
	cmd.Flags().Bool(cfgKeyRecreateModifiedFields, false, "delete and re-add fields whose type changed")
	cmd.Flags().Bool(cfgKeyProduction, false, "arm the startup timeout and fail the command when migration fails")
	cmd.Flags().Int(cfgKeyMaxRetries, migrate.DefaultMaxRetries, "retries of a failed pass")
	cmd.Flags().Duration(cfgKeyRetryDelay, migrate.DefaultRetryDelay, "base retry delay; retry n waits n times this")
}
