// Package config loads CLI configuration from an optional YAML file and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultSyncWindowDays is the look-back window used when no override is
// configured.
const DefaultSyncWindowDays = 30

// Config holds all settings the CLI needs at runtime.
type Config struct {
	// ClientID and ClientSecret identify the OAuth application. Without
	// them no auth-dependent command can proceed.
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// DBPath is the location of the local SQLite cache.
	DBPath string `mapstructure:"db_path"`

	// TokensFile is the fallback credential file used when the OS
	// keyring is unavailable.
	TokensFile string `mapstructure:"tokens_file"`

	// SyncWindowDays is the default mail sync look-back window.
	SyncWindowDays int `mapstructure:"sync_window_days"`
}

// Dir returns the per-user configuration directory, ~/.mail-cli.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mail-cli"
	}
	return filepath.Join(home, ".mail-cli")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads configuration from path (when the file exists) layered under
// environment overrides. A missing config file is not an error; the env
// variables GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET and MAIL_DB_PATH are always
// honored.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("db_path", filepath.Join(Dir(), "mail.db"))
	v.SetDefault("tokens_file", filepath.Join(Dir(), "tokens.json"))
	v.SetDefault("sync_window_days", DefaultSyncWindowDays)

	v.SetEnvPrefix("MAIL_CLI")
	v.AutomaticEnv()

	// Legacy env names kept for compatibility with existing setups.
	_ = v.BindEnv("client_id", "MAIL_CLI_CLIENT_ID", "GMAIL_CLIENT_ID")
	_ = v.BindEnv("client_secret", "MAIL_CLI_CLIENT_SECRET", "GMAIL_CLIENT_SECRET")
	_ = v.BindEnv("db_path", "MAIL_CLI_DB_PATH", "MAIL_DB_PATH")

	if err := v.ReadInConfig(); err != nil {
		// Only fail when the file exists but could not be parsed.
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// HasClientCredentials reports whether an OAuth client is configured.
func (c *Config) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
