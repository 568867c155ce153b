package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nuln/userstore"
	"github.com/nuln/userstore/catalog"
	catalogmem "github.com/nuln/userstore/catalog/memory"
	"github.com/nuln/userstore/datastore"
	indexmem "github.com/nuln/userstore/pathindex/memory"
	"github.com/nuln/userstore/storage"
)

type fixture struct {
	fs    afero.Fs
	index *indexmem.Index
	cat   *catalogmem.Catalog
	store *storage.Storage
	alice userstore.Actor
	bob   userstore.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fs:    afero.NewMemMapFs(),
		index: indexmem.New(),
		cat:   catalogmem.New(),
	}
	ds := datastore.NewWithFs(f.fs, "/data")
	bridge := catalog.New(catalog.Config{
		GatewayID:         "seagrid",
		StorageResourceID: "gateway-store",
		Hostname:          "gw.example.org",
	}, f.index, f.fs, nil)
	f.store = storage.New(ds, bridge, nil)
	f.alice = userstore.Actor{Username: "alice", Catalog: f.cat}
	f.bob = userstore.Actor{Username: "bob", Catalog: f.cat}
	return f
}

func read(t *testing.T, s *storage.Storage, actor userstore.Actor, p *userstore.DataProduct) string {
	t.Helper()
	r, err := s.OpenFile(context.Background(), actor, p)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func replicaPath(t *testing.T, p *userstore.DataProduct) string {
	t.Helper()
	path, err := catalog.Locate(p)
	require.NoError(t, err)
	return path
}

func TestSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.store.Save(ctx, f.alice, "results", strings.NewReader("one"), "report.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "/data/alice/results/report.txt", replicaPath(t, first))
	assert.Equal(t, "report.txt", first.ProductName)
	assert.Equal(t, "text/plain", first.ContentType())
	assert.Equal(t, "alice", first.OwnerName)

	second, err := f.store.Save(ctx, f.alice, "results", strings.NewReader("two"), "report.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "/data/alice/results/report_1.txt", replicaPath(t, second))
	assert.NotEqual(t, first.ProductURI, second.ProductURI)

	assert.Equal(t, "one", read(t, f.store, f.alice, first))
	assert.Equal(t, "two", read(t, f.store, f.alice, second))

	uri, err := f.index.Get(ctx, "alice", "/data/alice/results/report_1.txt")
	require.NoError(t, err)
	assert.Equal(t, second.ProductURI, uri)
}

func TestSave_CatalogUnavailableKeepsFile(t *testing.T) {
	f := newFixture(t)
	f.cat.Fail = errors.New("registry down")

	_, err := f.store.Save(context.Background(), f.alice, "results", strings.NewReader("x"), "a.txt", "")
	assert.ErrorIs(t, err, userstore.ErrCatalogUnavailable)
	assert.True(t, f.store.Datastore().Exists("alice", "results/a.txt"))
	assert.Zero(t, f.index.Len())
}

func TestSaveInputFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.store.SaveInputFile(ctx, f.alice, strings.NewReader("a,b\n"), "input.csv", "")
	require.NoError(t, err)
	assert.Equal(t, "/data/alice/tmp/input.csv", replicaPath(t, p))
	assert.Equal(t, "text/csv", p.ContentType())
	assert.True(t, f.store.IsInputFile(ctx, f.alice, p))
	assert.False(t, f.store.IsInputFile(ctx, f.bob, p))
}

func TestMoveFromFilepath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(f.fs, "/incoming/upload.dat", []byte("raw"), 0o644))

	p, err := f.store.MoveFromFilepath(ctx, f.alice, "/incoming/upload.dat", "imports", "", "application/x-raw")
	require.NoError(t, err)
	assert.Equal(t, "/data/alice/imports/upload.dat", replicaPath(t, p))
	assert.Equal(t, "upload.dat", p.ProductName)
	assert.Equal(t, "application/x-raw", p.ContentType())
	assert.Equal(t, "raw", read(t, f.store, f.alice, p))
}

func TestMoveInputFileFromFilepath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(f.fs, "/incoming/deck.in", []byte("deck"), 0o644))

	p, err := f.store.MoveInputFileFromFilepath(ctx, f.alice, "/incoming/deck.in", "Gaussian deck", "")
	require.NoError(t, err)
	assert.Equal(t, "Gaussian deck", p.ProductName)
	assert.Equal(t, "/data/alice/tmp/Gaussian_deck", replicaPath(t, p))
	assert.True(t, f.store.IsInputFile(ctx, f.alice, p))
}

func TestMoveInputFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	staged, err := f.store.SaveInputFile(ctx, f.alice, strings.NewReader("input"), "input.dat", "")
	require.NoError(t, err)
	require.True(t, f.store.IsInputFile(ctx, f.alice, staged))

	moved, err := f.store.MoveInputFile(ctx, f.alice, staged, "results")
	require.NoError(t, err)
	assert.Equal(t, "/data/alice/results/input.dat", replicaPath(t, moved))
	assert.NotEqual(t, staged.ProductURI, moved.ProductURI)
	assert.False(t, f.store.IsInputFile(ctx, f.alice, moved))
	assert.False(t, f.store.Exists(ctx, f.alice, staged))
	assert.Equal(t, "input", read(t, f.store, f.alice, moved))

	_, err = f.index.Get(ctx, "alice", "/data/alice/tmp/input.dat")
	assert.ErrorIs(t, err, userstore.ErrNotFound)

	_, files, err := f.store.ListDir(ctx, f.alice, "results")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "input.dat", files[0].Name)
	assert.Equal(t, moved.ProductURI, files[0].DataProductURI)
}

func TestCopyInputFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orig, err := f.store.Save(ctx, f.alice, "results", strings.NewReader("shared"), "out.txt", "")
	require.NoError(t, err)

	cp, err := f.store.CopyInputFile(ctx, f.bob, orig)
	require.NoError(t, err)
	assert.Equal(t, "/data/bob/tmp/out.txt", replicaPath(t, cp))
	assert.Equal(t, "bob", cp.OwnerName)
	assert.NotEqual(t, orig.ProductURI, cp.ProductURI)
	assert.True(t, f.store.IsInputFile(ctx, f.bob, cp))
	assert.Equal(t, "shared", read(t, f.store, f.bob, cp))
	assert.True(t, f.store.Exists(ctx, f.alice, orig))
}

func TestIsInputFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	nested, err := f.store.Save(ctx, f.alice, "tmp/nested", strings.NewReader("x"), "a.txt", "")
	require.NoError(t, err)
	assert.False(t, f.store.IsInputFile(ctx, f.alice, nested))

	other, err := f.store.Save(ctx, f.alice, "other/tmp", strings.NewReader("x"), "b.txt", "")
	require.NoError(t, err)
	assert.False(t, f.store.IsInputFile(ctx, f.alice, other))

	staged, err := f.store.SaveInputFile(ctx, f.alice, strings.NewReader("x"), "c.txt", "")
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, f.alice, staged))
	assert.False(t, f.store.IsInputFile(ctx, f.alice, staged))

	assert.False(t, f.store.IsInputFile(ctx, f.alice, nil))
	assert.False(t, f.store.IsInputFile(ctx, f.alice, &userstore.DataProduct{OwnerName: "alice"}))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.store.Save(ctx, f.alice, "results", strings.NewReader("x"), "a.txt", "")
	require.NoError(t, err)
	require.True(t, f.store.Exists(ctx, f.alice, p))

	require.NoError(t, f.store.Delete(ctx, f.alice, p))
	assert.False(t, f.store.Exists(ctx, f.alice, p))
	_, err = f.index.Get(ctx, "alice", "/data/alice/results/a.txt")
	assert.ErrorIs(t, err, userstore.ErrNotFound)

	assert.ErrorIs(t, f.store.Delete(ctx, f.alice, p), userstore.ErrNotFound)
	assert.ErrorIs(t, f.store.Delete(ctx, f.alice, &userstore.DataProduct{}), userstore.ErrNoReplica)
}

// unindexable fails every Delete.
type unindexable struct {
	*indexmem.Index
	err error
}

func (x unindexable) Delete(ctx context.Context, username, fullPath string) error {
	return x.err
}

func TestDelete_UnregisterFailureIsLoggedAndReturned(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	boom := errors.New("index offline")
	index := unindexable{Index: indexmem.New(), err: boom}
	core, logs := observer.New(zapcore.ErrorLevel)

	ds := datastore.NewWithFs(fs, "/data")
	bridge := catalog.New(catalog.Config{
		GatewayID:         "seagrid",
		StorageResourceID: "gateway-store",
		Hostname:          "gw.example.org",
	}, index, fs, nil)
	store := storage.New(ds, bridge, zap.New(core))
	alice := userstore.Actor{Username: "alice", Catalog: catalogmem.New()}

	p, err := store.Save(ctx, alice, "results", strings.NewReader("x"), "a.txt", "")
	require.NoError(t, err)

	err = store.Delete(ctx, alice, p)
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.Exists(ctx, alice, p))

	entries := logs.FilterMessage("unable to delete file").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/data/alice/results/a.txt", fields["path"])
	assert.Equal(t, p.ProductURI, fields["product_uri"])
	assert.Equal(t, "alice", fields["username"])
}

func TestOpenFile_OutsideOwnerRoot(t *testing.T) {
	f := newFixture(t)
	p := &userstore.DataProduct{
		OwnerName: "alice",
		Replicas: []userstore.ReplicaLocation{{
			Category: userstore.GatewayDataStore,
			FilePath: "file://gw.example.org:/data/bob/secret.txt",
		}},
	}
	_, err := f.store.OpenFile(context.Background(), f.alice, p)
	assert.ErrorIs(t, err, userstore.ErrInvalidPath)
	assert.False(t, f.store.Exists(context.Background(), f.alice, p))
}

func TestUserFileExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(f.fs, "/data/alice/legacy.txt", []byte("old"), 0o640))

	uri, ok, err := f.store.UserFileExists(ctx, f.alice, "legacy.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, uri)

	again, ok, err := f.store.UserFileExists(ctx, f.alice, "/data/alice/legacy.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uri, again)
	assert.Equal(t, 1, f.cat.Len())

	_, ok, err = f.store.UserFileExists(ctx, f.alice, "missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.store.UserFileExists(ctx, f.alice, "../bob/x.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirectories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.CreateUserDir(ctx, f.alice, "proj/data"))
	assert.True(t, f.store.DirExists(ctx, f.alice, "proj/data"))
	assert.ErrorIs(t, f.store.CreateUserDir(ctx, f.alice, "proj/data"), userstore.ErrExist)

	rel, err := f.store.RelPath(ctx, f.alice, "/data/alice/proj/data")
	require.NoError(t, err)
	assert.Equal(t, "proj/data", rel)

	require.NoError(t, f.store.DeleteDir(ctx, f.alice, "proj"))
	assert.False(t, f.store.DirExists(ctx, f.alice, "proj"))
	assert.False(t, f.store.DirExists(ctx, f.alice, "../bob"))
}

func TestExperimentDir(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.store.ExperimentDir(ctx, f.alice, "proj1", "exp1")
	require.NoError(t, err)
	second, err := f.store.ExperimentDir(ctx, f.alice, "proj1", "exp1")
	require.NoError(t, err)
	assert.Equal(t, "/data/alice/proj1/exp1", first)
	assert.Equal(t, "/data/alice/proj1/exp1_1", second)

	at, err := f.store.ExperimentDirAt(ctx, f.alice, first)
	require.NoError(t, err)
	assert.Equal(t, first, at)
}
