package userstore

import "context"

// CatalogClient registers data products with the external replica catalog.
// Implementations are expected to be authenticated for a single user.
type CatalogClient interface {
	// RegisterDataProduct submits p and returns the catalog-assigned URI.
	RegisterDataProduct(ctx context.Context, p *DataProduct) (string, error)
}

// PathIndex maps (username, full path) to the URI of the data product
// registered for that file.
type PathIndex interface {
	// Get returns the registered URI, or ErrNotFound.
	Get(ctx context.Context, username, fullPath string) (string, error)

	// Put records uri for the path, replacing any previous association.
	Put(ctx context.Context, username, fullPath, uri string) error

	// Delete removes the association. Deleting a missing key is not an error.
	Delete(ctx context.Context, username, fullPath string) error

	// Close releases resources held by the index.
	Close() error
}
