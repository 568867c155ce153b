// Package badger provides a PathIndex persisted in BadgerDB, so product
// associations survive restarts of the gateway process.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/mitchellh/mapstructure"

	"github.com/nuln/userstore"
)

// Auto-register the badger index driver.
func init() {
	userstore.RegisterIndex("badger", func(cfg *userstore.IndexConfig) (userstore.PathIndex, error) {
		var opts Config
		if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("invalid badger index options: %w", err)
		}
		return New(opts)
	})
}

// keyPrefix namespaces user file associations. Keys are
// "uf:" + username + "\x00" + full path; usernames cannot contain NUL.
const keyPrefix = "uf:"

// Config configures the badger index.
type Config struct {
	// DBPath is the directory holding the database files. Ignored when
	// InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps all data in memory.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every write before it is acknowledged.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// Index implements userstore.PathIndex on top of a badger database.
type Index struct {
	db *badger.DB
}

// New opens (or creates) the database described by cfg.
func New(cfg Config) (*Index, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.DBPath != "":
		opts = badger.DefaultOptions(cfg.DBPath)
	default:
		return nil, errors.New("badger index: db_path is required unless in_memory is set")
	}
	opts = opts.WithLoggingLevel(badger.WARNING).WithSyncWrites(cfg.SyncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}
	return &Index{db: db}, nil
}

func fileKey(username, fullPath string) []byte {
	k := make([]byte, 0, len(keyPrefix)+len(username)+1+len(fullPath))
	k = append(k, keyPrefix...)
	k = append(k, username...)
	k = append(k, 0)
	return append(k, fullPath...)
}

func (x *Index) Get(ctx context.Context, username, fullPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var uri string
	err := x.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(username, fullPath))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return userstore.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			uri = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return uri, nil
}

func (x *Index) Put(ctx context.Context, username, fullPath, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return x.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(username, fullPath), []byte(uri))
	})
}

func (x *Index) Delete(ctx context.Context, username, fullPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return x.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fileKey(username, fullPath))
	})
}

func (x *Index) Close() error {
	return x.db.Close()
}
