package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nuln/userstore"
	"github.com/nuln/userstore/catalog"
	catalogmem "github.com/nuln/userstore/catalog/memory"
	"github.com/nuln/userstore/catalog/rest"
	"github.com/nuln/userstore/datastore"
	"github.com/nuln/userstore/logging"
	_ "github.com/nuln/userstore/pathindex/drivers"
	"github.com/nuln/userstore/storage"
)

// CreateLogger builds the logger described by cfg.Logging.
func CreateLogger(cfg *Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging)
}

// CreateDatastore opens the datastore rooted at cfg.Storage.BaseDir.
func CreateDatastore(cfg *Config, logger *zap.Logger) (*datastore.Datastore, error) {
	dir, err := parseMode(cfg.Storage.DirMode)
	if err != nil {
		return nil, fmt.Errorf("storage.dir_mode: %w", err)
	}
	file, err := parseMode(cfg.Storage.FileMode)
	if err != nil {
		return nil, fmt.Errorf("storage.file_mode: %w", err)
	}
	return datastore.New(cfg.Storage.BaseDir,
		datastore.WithDirMode(dir),
		datastore.WithFileMode(file),
		datastore.WithLogger(logger),
	)
}

// CreateIndex opens the PathIndex driver named by cfg.Index.Type.
func CreateIndex(cfg *Config) (userstore.PathIndex, error) {
	return userstore.OpenIndex(&cfg.Index)
}

// CreateCatalogClient builds the catalog client named by cfg.Catalog.Type.
// The REST client authenticates with cfg.Catalog.REST.Token.
func CreateCatalogClient(cfg *Config) (userstore.CatalogClient, error) {
	switch cfg.Catalog.Type {
	case "memory":
		return catalogmem.New(), nil
	case "rest":
		c := rest.New(rest.Config{
			Endpoint: cfg.Catalog.REST.Endpoint,
			Timeout:  cfg.Catalog.REST.Timeout,
		}, cfg.Gateway.GatewayID)
		return c.WithToken(cfg.Catalog.REST.Token), nil
	default:
		return nil, fmt.Errorf("unknown catalog type: %q", cfg.Catalog.Type)
	}
}

// CreateStorage wires a Storage on top of ds and index.
func CreateStorage(cfg *Config, ds *datastore.Datastore, index userstore.PathIndex, logger *zap.Logger) *storage.Storage {
	bridge := catalog.New(cfg.Gateway, index, ds.Fs(), logger)
	return storage.New(ds, bridge, logger)
}
