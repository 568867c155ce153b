// Package memory provides an in-process CatalogClient that stores data
// products in a map. It backs tests and local development where no
// registry service is reachable.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nuln/userstore"
)

// URIScheme prefixes every URI the catalog assigns.
const URIScheme = "airavata-dp://"

// Catalog implements userstore.CatalogClient. It is safe for concurrent use
// and may be shared by several actors.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]*userstore.DataProduct
	order    []string

	// Fail, when set, is returned by every RegisterDataProduct call.
	Fail error
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{products: make(map[string]*userstore.DataProduct)}
}

// RegisterDataProduct stores a copy of p under a freshly generated URI.
func (c *Catalog) RegisterDataProduct(ctx context.Context, p *userstore.DataProduct) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return "", c.Fail
	}

	uri := URIScheme + uuid.NewString()
	stored := clone(p)
	stored.ProductURI = uri
	c.products[uri] = stored
	c.order = append(c.order, uri)
	return uri, nil
}

// Get returns a copy of the product registered under uri.
func (c *Catalog) Get(uri string) (*userstore.DataProduct, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[uri]
	if !ok {
		return nil, false
	}
	return clone(p), true
}

// URIs lists registered URIs in registration order.
func (c *Catalog) URIs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Len reports the number of registered products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

func clone(p *userstore.DataProduct) *userstore.DataProduct {
	cp := *p
	if p.Metadata != nil {
		cp.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			cp.Metadata[k] = v
		}
	}
	cp.Replicas = append([]userstore.ReplicaLocation(nil), p.Replicas...)
	return &cp
}
