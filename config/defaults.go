package config

import (
	"os"
	"strings"

	"github.com/nuln/userstore/catalog/rest"
)

const (
	defaultDirMode    = "0750"
	defaultFileMode   = "0640"
	defaultGatewayID  = "default"
	defaultResourceID = "gateway-data-store"
)

// GetDefaultConfig returns a configuration with every default applied.
// BaseDir is left empty: it has no sensible default.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults replaces zero values with defaults; explicit values are
// kept.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(cfg)
	applyStorageDefaults(cfg)
	applyGatewayDefaults(cfg)

	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Catalog.Type == "" {
		cfg.Catalog.Type = "memory"
	}
	if cfg.Catalog.REST.Timeout == 0 {
		cfg.Catalog.REST.Timeout = rest.DefaultTimeout
	}
}

func applyLoggingDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.DirMode == "" {
		cfg.Storage.DirMode = defaultDirMode
	}
	if cfg.Storage.FileMode == "" {
		cfg.Storage.FileMode = defaultFileMode
	}
}

func applyGatewayDefaults(cfg *Config) {
	if cfg.Gateway.GatewayID == "" {
		cfg.Gateway.GatewayID = defaultGatewayID
	}
	if cfg.Gateway.StorageResourceID == "" {
		cfg.Gateway.StorageResourceID = defaultResourceID
	}
	if cfg.Gateway.Hostname == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Gateway.Hostname = host
		} else {
			cfg.Gateway.Hostname = "localhost"
		}
	}
}
