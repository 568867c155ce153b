// Package memory provides a process-local PathIndex. Associations are lost
// when the process exits; use it for tests and single-node development.
package memory

import (
	"context"
	"sync"

	"github.com/nuln/userstore"
)

// Auto-register the in-memory index driver.
func init() {
	userstore.RegisterIndex("memory", func(cfg *userstore.IndexConfig) (userstore.PathIndex, error) {
		return New(), nil
	})
}

type key struct {
	username string
	path     string
}

// Index implements userstore.PathIndex with a guarded map.
type Index struct {
	mu   sync.RWMutex
	uris map[key]string
}

// New creates an empty Index.
func New() *Index {
	return &Index{uris: make(map[key]string)}
}

func (x *Index) Get(ctx context.Context, username, fullPath string) (string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	uri, ok := x.uris[key{username, fullPath}]
	if !ok {
		return "", userstore.ErrNotFound
	}
	return uri, nil
}

func (x *Index) Put(ctx context.Context, username, fullPath, uri string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.uris[key{username, fullPath}] = uri
	return nil
}

func (x *Index) Delete(ctx context.Context, username, fullPath string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.uris, key{username, fullPath})
	return nil
}

// Len reports the number of associations held.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.uris)
}

func (x *Index) Close() error { return nil }
