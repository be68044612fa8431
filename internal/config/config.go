// Package config handles configuration loading and validation for romgraph.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".romgraph"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"

	// dbFileName is the SQLite database file inside the data directory.
	dbFileName = "romgraph.db"
	// diffsDirName is the diff artifact directory inside the data directory.
	diffsDirName = "diffs"
)

// Config holds all configuration for romgraph.
type Config struct {
	// Data contains storage location configuration.
	Data DataConfig `mapstructure:"data"`
	// Display contains human-output configuration.
	Display DisplayConfig `mapstructure:"display"`
}

// DataConfig holds storage location configuration.
type DataConfig struct {
	// Dir is the directory holding the database and diff artifacts.
	Dir string `mapstructure:"dir"`
}

// DisplayConfig holds human-output configuration.
type DisplayConfig struct {
	// HashLength is the number of hash characters shown in listings.
	// Internal comparisons always use the full fingerprint.
	HashLength int `mapstructure:"hash_length"`
}

// DBPath is the SQLite database path under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.Data.Dir, dbFileName)
}

// DiffsDir is the diff artifact directory under the data directory.
func (c *Config) DiffsDir() string {
	return filepath.Join(c.Data.Dir, diffsDirName)
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper)
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROMGRAPH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data directory must be configured")
	}
	if c.Display.HashLength < 4 || c.Display.HashLength > 64 {
		return fmt.Errorf("display hash_length must be between 4 and 64, got %d", c.Display.HashLength)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", ".romgraph")
	v.SetDefault("display.hash_length", 16)
}
