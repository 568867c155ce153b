// Package storage is the entry point for per-user file storage. Every
// mutating operation applies its filesystem effect through a
// [datastore.Datastore] and then mirrors it into the data product catalog
// through a [catalog.Bridge].
//
// Operations run as the acting user. Products passed in are trusted to
// describe files in their owner's root; paths derived from them are still
// resolved inside that root.
package storage

import (
	"context"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nuln/userstore"
	"github.com/nuln/userstore/catalog"
	"github.com/nuln/userstore/datastore"
)

// Storage composes the datastore and the catalog bridge.
type Storage struct {
	ds     *datastore.Datastore
	bridge *catalog.Bridge
	logger *zap.Logger
}

// New creates a Storage.
func New(ds *datastore.Datastore, bridge *catalog.Bridge, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{ds: ds, bridge: bridge, logger: logger}
}

// Datastore returns the underlying datastore.
func (s *Storage) Datastore() *datastore.Datastore {
	return s.ds
}

// Bridge returns the catalog bridge.
func (s *Storage) Bridge() *catalog.Bridge {
	return s.bridge
}

// Save stores r as name in dir and registers it. The product is named
// name; the file name on disk is its sanitised, disambiguated form.
func (s *Storage) Save(ctx context.Context, actor userstore.Actor, dir string, r io.Reader, name, contentType string) (*userstore.DataProduct, error) {
	full, err := s.ds.Save(actor.Username, dir, r, name)
	if err != nil {
		return nil, err
	}
	return s.bridge.Register(ctx, actor, full, name, contentType)
}

// MoveFromFilepath moves the file at src, a path outside user storage, into
// dir and registers it. An empty name keeps the base name of src.
func (s *Storage) MoveFromFilepath(ctx context.Context, actor userstore.Actor, src, dir, name, contentType string) (*userstore.DataProduct, error) {
	if name == "" {
		name = filepath.Base(src)
	}
	full, err := s.ds.MoveExternal(src, actor.Username, dir, name)
	if err != nil {
		return nil, err
	}
	return s.bridge.Register(ctx, actor, full, name, contentType)
}

// SaveInputFile saves r into the staging area.
func (s *Storage) SaveInputFile(ctx context.Context, actor userstore.Actor, r io.Reader, name, contentType string) (*userstore.DataProduct, error) {
	return s.Save(ctx, actor, userstore.StagingDir, r, name, contentType)
}

// MoveInputFileFromFilepath moves an external file into the staging area.
func (s *Storage) MoveInputFileFromFilepath(ctx context.Context, actor userstore.Actor, src, name, contentType string) (*userstore.DataProduct, error) {
	return s.MoveFromFilepath(ctx, actor, src, userstore.StagingDir, name, contentType)
}

// CopyInputFile copies the file of p, owned by any user, into the actor's
// staging area and registers the copy as a new product.
func (s *Storage) CopyInputFile(ctx context.Context, actor userstore.Actor, p *userstore.DataProduct) (*userstore.DataProduct, error) {
	src, err := catalog.Locate(p)
	if err != nil {
		return nil, err
	}
	full, err := s.ds.Copy(p.OwnerName, src, actor.Username, userstore.StagingDir, p.ProductName)
	if err != nil {
		return nil, err
	}
	return s.bridge.Duplicate(ctx, actor, p, full)
}

// IsInputFile reports whether p is one of the actor's staged input files.
func (s *Storage) IsInputFile(ctx context.Context, actor userstore.Actor, p *userstore.DataProduct) bool {
	if p == nil || p.OwnerName != actor.Username {
		return false
	}
	path, err := catalog.Locate(p)
	if err != nil || !s.ds.Exists(actor.Username, path) {
		return false
	}
	rel, err := s.ds.RelPath(actor.Username, path)
	if err != nil {
		return false
	}
	return filepath.Dir(rel) == userstore.StagingDir
}

// MoveInputFile moves the file of p into dir of the actor's root. The old
// path loses its association and the new path is registered as a copy of p.
func (s *Storage) MoveInputFile(ctx context.Context, actor userstore.Actor, p *userstore.DataProduct, dir string) (*userstore.DataProduct, error) {
	src, err := catalog.Locate(p)
	if err != nil {
		return nil, err
	}
	full, err := s.ds.Move(p.OwnerName, src, actor.Username, dir, p.ProductName)
	if err != nil {
		return nil, err
	}
	if err := s.bridge.Unregister(ctx, p.OwnerName, src); err != nil {
		s.logger.Error("failed to remove index entry of moved file",
			zap.String("path", src),
			zap.String("product_uri", p.ProductURI),
			zap.Error(err),
		)
		return nil, err
	}
	return s.bridge.Duplicate(ctx, actor, p, full)
}

// Delete removes the file of p and its index association. Failures are
// logged and returned; a file removed before a failed unregister stays
// removed.
func (s *Storage) Delete(ctx context.Context, actor userstore.Actor, p *userstore.DataProduct) error {
	path, err := catalog.Locate(p)
	if err == nil {
		err = s.ds.Delete(p.OwnerName, path)
	}
	if err == nil {
		err = s.bridge.Unregister(ctx, p.OwnerName, path)
	}
	if err != nil {
		var uri string
		if p != nil {
			uri = p.ProductURI
		}
		s.logger.Error("unable to delete file",
			zap.String("username", actor.Username),
			zap.String("path", path),
			zap.String("product_uri", uri),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// OpenFile opens the file of p for reading.
func (s *Storage) OpenFile(ctx context.Context, actor userstore.Actor, p *userstore.DataProduct) (userstore.ReadSeekCloser, error) {
	path, err := catalog.Locate(p)
	if err != nil {
		return nil, err
	}
	return s.ds.Open(p.OwnerName, path)
}

// Exists reports whether the file of p is present in its owner's root.
func (s *Storage) Exists(ctx context.Context, actor userstore.Actor, p *userstore.DataProduct) bool {
	path, err := catalog.Locate(p)
	if err != nil {
		return false
	}
	return s.ds.Exists(p.OwnerName, path)
}

// DirExists reports whether p is a directory in the actor's root.
func (s *Storage) DirExists(ctx context.Context, actor userstore.Actor, p string) bool {
	return s.ds.DirExists(actor.Username, p)
}

// UserFileExists reports whether p is a file in the actor's root and, if
// so, returns its product URI, registering the file when it has none.
func (s *Storage) UserFileExists(ctx context.Context, actor userstore.Actor, p string) (string, bool, error) {
	if !s.ds.Exists(actor.Username, p) {
		return "", false, nil
	}
	full, err := s.ds.Path(actor.Username, p)
	if err != nil {
		return "", false, err
	}
	uri, err := s.bridge.EnsureRegistered(ctx, actor, full)
	if err != nil {
		return "", true, err
	}
	return uri, true, nil
}

// DeleteDir removes p and everything below it. Index associations of the
// removed files are left in place.
func (s *Storage) DeleteDir(ctx context.Context, actor userstore.Actor, p string) error {
	return s.ds.DeleteDir(actor.Username, p)
}

// ExperimentDir creates a fresh project/experiment directory.
func (s *Storage) ExperimentDir(ctx context.Context, actor userstore.Actor, project, experiment string) (string, error) {
	return s.ds.ExperimentDir(actor.Username, project, experiment)
}

// ExperimentDirAt ensures the directory p exists.
func (s *Storage) ExperimentDirAt(ctx context.Context, actor userstore.Actor, p string) (string, error) {
	return s.ds.ExperimentDirAt(actor.Username, p)
}

// CreateUserDir creates p and its parents; it fails with ErrExist when p is
// taken.
func (s *Storage) CreateUserDir(ctx context.Context, actor userstore.Actor, p string) error {
	return s.ds.CreateUserDir(actor.Username, p)
}

// RelPath returns p relative to the actor's root.
func (s *Storage) RelPath(ctx context.Context, actor userstore.Actor, p string) (string, error) {
	return s.ds.RelPath(actor.Username, p)
}
