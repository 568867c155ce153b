// Package catalog keeps the external data product catalog in step with
// files in user storage. A [Bridge] builds data product records for full
// paths, registers them through the acting user's catalog client, and
// records the path to product URI association in a PathIndex.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/nuln/userstore"
)

// Config identifies the gateway and the storage resource replicas live on.
type Config struct {
	GatewayID         string `mapstructure:"id" validate:"required"`
	StorageResourceID string `mapstructure:"data_store_resource_id" validate:"required"`
	Hostname          string `mapstructure:"data_store_hostname" validate:"required"`
}

// Bridge maps stored files to catalog registrations.
type Bridge struct {
	cfg    Config
	index  userstore.PathIndex
	fs     afero.Fs
	logger *zap.Logger
}

// New creates a Bridge. fs is used to sniff file content when no content
// type can be derived otherwise; it must be the filesystem the full paths
// refer to.
func New(cfg Config, index userstore.PathIndex, fs afero.Fs, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{cfg: cfg, index: index, fs: fs, logger: logger}
}

// ReplicaLocation builds the gateway data store replica for fullPath.
func (b *Bridge) ReplicaLocation(fullPath, name string) userstore.ReplicaLocation {
	return userstore.ReplicaLocation{
		StorageResourceID: b.cfg.StorageResourceID,
		ReplicaName:       name + " gateway data store copy",
		Category:          userstore.GatewayDataStore,
		PersistentType:    userstore.Transient,
		FilePath:          fmt.Sprintf("file://%s:%s", b.cfg.Hostname, fullPath),
	}
}

// NewDataProduct builds an unregistered product for the file at fullPath.
// An empty name defaults to the path's base name.
func (b *Bridge) NewDataProduct(owner, fullPath, name, contentType string) *userstore.DataProduct {
	if name == "" {
		name = filepath.Base(fullPath)
	}
	p := &userstore.DataProduct{
		GatewayID:   b.cfg.GatewayID,
		OwnerName:   owner,
		ProductName: name,
		Type:        userstore.DataProductFile,
		Replicas:    []userstore.ReplicaLocation{b.ReplicaLocation(fullPath, name)},
	}
	if ct := b.ContentType(fullPath, contentType); ct != "" {
		p.Metadata = map[string]string{userstore.MetadataMimeType: ct}
	}
	return p
}

// Register creates a product for fullPath owned by the actor, submits it to
// the catalog and records the association. The returned product carries
// its catalog URI.
func (b *Bridge) Register(ctx context.Context, actor userstore.Actor, fullPath, name, contentType string) (*userstore.DataProduct, error) {
	p := b.NewDataProduct(actor.Username, fullPath, name, contentType)
	return b.submit(ctx, actor, fullPath, p)
}

// EnsureRegistered returns the URI associated with fullPath, registering
// the file first when it has no association yet.
func (b *Bridge) EnsureRegistered(ctx context.Context, actor userstore.Actor, fullPath string) (string, error) {
	uri, err := b.index.Get(ctx, actor.Username, fullPath)
	if err == nil {
		return uri, nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return "", err
	}

	b.logger.Debug("registering unindexed file",
		zap.String("username", actor.Username),
		zap.String("path", fullPath),
	)
	p, err := b.Register(ctx, actor, fullPath, "", "")
	if err != nil {
		return "", err
	}
	return p.ProductURI, nil
}

// Duplicate registers a copy of existing owned by the actor whose only
// replica points at newFullPath.
func (b *Bridge) Duplicate(ctx context.Context, actor userstore.Actor, existing *userstore.DataProduct, newFullPath string) (*userstore.DataProduct, error) {
	p := existing.Relocate(actor.Username, b.ReplicaLocation(newFullPath, existing.ProductName))
	return b.submit(ctx, actor, newFullPath, p)
}

// Unregister removes the association for fullPath. The catalog entry itself
// is left in place: the catalog exposes no delete operation to gateways.
func (b *Bridge) Unregister(ctx context.Context, username, fullPath string) error {
	return b.index.Delete(ctx, username, fullPath)
}

// Lookup returns the URI associated with fullPath, or ErrNotFound.
func (b *Bridge) Lookup(ctx context.Context, username, fullPath string) (string, error) {
	return b.index.Get(ctx, username, fullPath)
}

func (b *Bridge) submit(ctx context.Context, actor userstore.Actor, fullPath string, p *userstore.DataProduct) (*userstore.DataProduct, error) {
	if actor.Catalog == nil {
		return nil, fmt.Errorf("register %s: %w: no catalog client", fullPath, userstore.ErrCatalogUnavailable)
	}
	uri, err := actor.Catalog.RegisterDataProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w: %w", fullPath, userstore.ErrCatalogUnavailable, err)
	}
	p.ProductURI = uri

	if err := b.index.Put(ctx, actor.Username, fullPath, uri); err != nil {
		b.logger.Error("data product registered but not indexed",
			zap.String("path", fullPath),
			zap.String("product_uri", uri),
			zap.Error(err),
		)
		return nil, fmt.Errorf("index %s: %w", fullPath, err)
	}
	return p, nil
}
