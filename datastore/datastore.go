// Package datastore implements the filesystem half of user storage: every
// user owns <base>/<username>, and every path handed in is resolved and
// checked against that root before any I/O happens.
//
// All I/O goes through an afero.Fs so the same code runs against the OS
// filesystem in production and afero.MemMapFs in tests.
package datastore

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// DefaultDirMode is applied to every directory the datastore creates.
	DefaultDirMode os.FileMode = 0750
	// DefaultFileMode is applied to every file the datastore writes.
	DefaultFileMode os.FileMode = 0640

	maxCreateAttempts = 100
)

// Datastore performs file and directory operations inside per-user roots.
type Datastore struct {
	fs       afero.Fs
	base     string
	dirMode  os.FileMode
	fileMode os.FileMode
	logger   *zap.Logger

	// realPath resolves symlinks; nil when fs is not the OS filesystem.
	realPath func(string) (string, error)
}

// Option configures a Datastore.
type Option func(*Datastore)

// WithDirMode sets the permission bits enforced on created directories.
func WithDirMode(mode os.FileMode) Option {
	return func(d *Datastore) { d.dirMode = mode.Perm() }
}

// WithFileMode sets the permission bits of written files.
func WithFileMode(mode os.FileMode) Option {
	return func(d *Datastore) { d.fileMode = mode.Perm() }
}

// WithLogger sets the logger used for rejected paths and diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Datastore) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Datastore on the OS filesystem rooted at base.
func New(base string, opts ...Option) (*Datastore, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	d := NewWithFs(afero.NewOsFs(), absBase, opts...)
	if err := d.fs.MkdirAll(absBase, d.dirMode); err != nil {
		return nil, err
	}
	return d, nil
}

// NewWithFs creates a Datastore backed by a custom afero.Fs.
// This is useful for testing with afero.MemMapFs.
func NewWithFs(fs afero.Fs, base string, opts ...Option) *Datastore {
	d := &Datastore{
		fs:       fs,
		base:     filepath.Clean(base),
		dirMode:  DefaultDirMode,
		fileMode: DefaultFileMode,
		logger:   zap.NewNop(),
	}
	if _, ok := fs.(*afero.OsFs); ok {
		d.realPath = filepath.EvalSymlinks
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fs returns the underlying filesystem.
func (d *Datastore) Fs() afero.Fs {
	return d.fs
}

// Base returns the directory holding all user roots.
func (d *Datastore) Base() string {
	return d.base
}
