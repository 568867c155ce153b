// Package config loads userstore configuration from a YAML file and
// USERSTORE_* environment variables, and builds the components it
// describes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nuln/userstore"
	"github.com/nuln/userstore/catalog"
	"github.com/nuln/userstore/logging"
)

// Config is the root configuration.
type Config struct {
	Logging logging.Config        `mapstructure:"logging"`
	Storage StorageConfig         `mapstructure:"storage"`
	Gateway catalog.Config        `mapstructure:"gateway"`
	Index   userstore.IndexConfig `mapstructure:"index"`
	Catalog CatalogConfig         `mapstructure:"catalog"`
}

// StorageConfig locates the user roots and fixes their permissions.
type StorageConfig struct {
	// BaseDir holds one directory per user.
	BaseDir string `mapstructure:"base_dir" validate:"required"`

	// DirMode and FileMode are octal strings such as "0750".
	DirMode  string `mapstructure:"dir_mode"`
	FileMode string `mapstructure:"file_mode"`
}

// CatalogConfig selects the catalog client.
type CatalogConfig struct {
	// Type is "memory" or "rest".
	Type string     `mapstructure:"type" validate:"required,oneof=memory rest"`
	REST RESTConfig `mapstructure:"rest"`
}

// RESTConfig configures the registry HTTP client.
type RESTConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Load reads configuration from configPath, or from the default location
// when configPath is empty. A missing file at the default location is not
// an error.
//
// Precedence (highest to lowest):
//  1. Environment variables (USERSTORE_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variables and the config file search.
func setupViper(v *viper.Viper, configPath string) {
	// Example: USERSTORE_STORAGE_BASE_DIR=/var/lib/userstore
	v.SetEnvPrefix("USERSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only reaches keys viper knows about.
	def := GetDefaultConfig()
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
	v.SetDefault("storage.base_dir", "")
	v.SetDefault("storage.dir_mode", def.Storage.DirMode)
	v.SetDefault("storage.file_mode", def.Storage.FileMode)
	v.SetDefault("gateway.id", def.Gateway.GatewayID)
	v.SetDefault("gateway.data_store_resource_id", def.Gateway.StorageResourceID)
	v.SetDefault("gateway.data_store_hostname", "")
	v.SetDefault("index.type", def.Index.Type)
	v.SetDefault("catalog.type", def.Catalog.Type)
	v.SetDefault("catalog.rest.endpoint", "")
	v.SetDefault("catalog.rest.token", "")
	v.SetDefault("catalog.rest.timeout", def.Catalog.REST.Timeout)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/userstore, ~/.config/userstore, or
// "." when no home directory is known.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "userstore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "userstore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
