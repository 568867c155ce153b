package datastore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/nuln/userstore"
)

// Open opens the regular file p for reading.
func (d *Datastore) Open(username, p string) (userstore.ReadSeekCloser, error) {
	full, err := d.Path(username, p)
	if err != nil {
		return nil, err
	}
	if !d.isRegular(full) {
		return nil, fmt.Errorf("file %s: %w", p, userstore.ErrNotFound)
	}
	return d.fs.Open(full)
}

// Save writes the content of r to a new file named after name inside dir
// and returns its absolute path. If the name is taken, a disambiguated
// sibling is used; the datastore never overwrites an existing file.
func (d *Datastore) Save(username, dir string, r io.Reader, name string) (string, error) {
	valid, err := ValidName(name)
	if err != nil {
		return "", err
	}
	if _, err := d.ensureRoot(username); err != nil {
		return "", err
	}

	f, full, err := d.createAvailable(username, filepath.Join(dir, valid))
	if err != nil {
		return "", err
	}
	if err := d.fill(f, full, r); err != nil {
		return "", err
	}
	return full, nil
}

// Move moves the regular file srcPath of srcUser into dstDir of dstUser
// under an available name derived from name.
func (d *Datastore) Move(srcUser, srcPath, dstUser, dstDir, name string) (string, error) {
	src, err := d.Path(srcUser, srcPath)
	if err != nil {
		return "", err
	}
	if !d.isRegular(src) {
		return "", fmt.Errorf("file %s: %w", srcPath, userstore.ErrNotFound)
	}
	return d.moveInto(src, dstUser, dstDir, name)
}

// MoveExternal moves a file from outside any user root into dstDir of
// dstUser. The source path is trusted as given.
func (d *Datastore) MoveExternal(externalPath, dstUser, dstDir, name string) (string, error) {
	src := filepath.Clean(externalPath)
	if !d.isRegular(src) {
		return "", fmt.Errorf("file %s: %w", externalPath, userstore.ErrNotFound)
	}
	return d.moveInto(src, dstUser, dstDir, name)
}

// Copy saves a copy of srcPath of srcUser into dstDir of dstUser. An empty
// name keeps the source's base name.
func (d *Datastore) Copy(srcUser, srcPath, dstUser, dstDir, name string) (string, error) {
	f, err := d.Open(srcUser, srcPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	if name == "" {
		name = filepath.Base(srcPath)
	}
	return d.Save(dstUser, dstDir, f, name)
}

// Delete removes the regular file p.
func (d *Datastore) Delete(username, p string) error {
	full, err := d.Path(username, p)
	if err != nil {
		return err
	}
	if !d.isRegular(full) {
		return fmt.Errorf("file %s: %w", p, userstore.ErrNotFound)
	}
	return d.fs.Remove(full)
}

// DeleteDir removes the directory p and everything below it.
func (d *Datastore) DeleteDir(username, p string) error {
	full, err := d.Path(username, p)
	if err != nil {
		return err
	}
	root, _ := d.UserRoot(username)
	if full == root {
		return fmt.Errorf("%w: refusing to delete user root", userstore.ErrInvalidPath)
	}
	info, err := d.fs.Stat(full)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory %s: %w", p, userstore.ErrNotFound)
	}
	return d.fs.RemoveAll(full)
}

// ExperimentDir creates a fresh directory project/experiment (both names
// sanitised) and returns its absolute path. When the experiment directory
// already exists a disambiguated sibling is created instead.
func (d *Datastore) ExperimentDir(username, project, experiment string) (string, error) {
	proj, err := ValidName(project)
	if err != nil {
		return "", err
	}
	exp, err := ValidName(experiment)
	if err != nil {
		return "", err
	}
	if _, err := d.ensureRoot(username); err != nil {
		return "", err
	}
	projFull, err := d.Path(username, proj)
	if err != nil {
		return "", err
	}
	if err := d.makeDirs(projFull); err != nil {
		return "", err
	}

	want := filepath.Join(proj, exp)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		avail, err := d.AvailableName(username, want)
		if err != nil {
			return "", err
		}
		full, err := d.Path(username, avail)
		if err != nil {
			return "", err
		}
		err = d.fs.Mkdir(full, d.dirMode)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := d.fs.Chmod(full, d.dirMode); err != nil {
			return "", err
		}
		return full, nil
	}
	return "", fmt.Errorf("experiment directory %s: %w", want, errExhausted)
}

// ExperimentDirAt ensures the directory p exists and returns its absolute
// path. p may be relative to the user root or absolute inside it.
func (d *Datastore) ExperimentDirAt(username, p string) (string, error) {
	if _, err := d.ensureRoot(username); err != nil {
		return "", err
	}
	full, err := d.Path(username, p)
	if err != nil {
		return "", err
	}
	if err := d.makeDirs(full); err != nil {
		return "", err
	}
	return full, nil
}

var errExhausted = fmt.Errorf("no available name after %d attempts: %w", maxCreateAttempts, userstore.ErrExist)

func (d *Datastore) isRegular(full string) bool {
	info, err := d.fs.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// createAvailable exclusively creates the first available path for rel,
// re-allocating when another writer claims the name first.
func (d *Datastore) createAvailable(username, rel string) (afero.File, string, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		avail, err := d.AvailableName(username, rel)
		if err != nil {
			return nil, "", err
		}
		full, err := d.Path(username, avail)
		if err != nil {
			return nil, "", err
		}
		if err := d.makeDirs(filepath.Dir(full)); err != nil {
			return nil, "", err
		}
		f, err := d.fs.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, d.fileMode)
		if os.IsExist(err) {
			d.logger.Debug("name claimed concurrently, retrying", zap.String("path", full))
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, full, nil
	}
	return nil, "", fmt.Errorf("create %s: %w", rel, errExhausted)
}

// fill copies r into f and closes it. On failure the partial file is removed.
func (d *Datastore) fill(f afero.File, full string, r io.Reader) error {
	_, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = d.fs.Chmod(full, d.fileMode)
	}
	if err != nil {
		_ = d.fs.Remove(full)
		return fmt.Errorf("write %s: %w", full, err)
	}
	return nil
}

// moveInto reserves an available name under dstDir with an empty
// placeholder, then renames src over it. When rename is not possible
// (e.g. across devices) the content is copied into the placeholder and
// src is removed.
func (d *Datastore) moveInto(src, dstUser, dstDir, name string) (string, error) {
	if name == "" {
		name = filepath.Base(src)
	}
	valid, err := ValidName(name)
	if err != nil {
		return "", err
	}
	if _, err := d.ensureRoot(dstUser); err != nil {
		return "", err
	}
	dirFull, err := d.Path(dstUser, dstDir)
	if err != nil {
		return "", err
	}
	if err := d.makeDirs(dirFull); err != nil {
		return "", err
	}

	placeholder, dst, err := d.createAvailable(dstUser, filepath.Join(dstDir, valid))
	if err != nil {
		return "", err
	}
	if err := placeholder.Close(); err != nil {
		_ = d.fs.Remove(dst)
		return "", err
	}

	if err := d.fs.Rename(src, dst); err == nil {
		if err := d.fs.Chmod(dst, d.fileMode); err != nil {
			return "", err
		}
		return dst, nil
	}

	in, err := d.fs.Open(src)
	if err != nil {
		_ = d.fs.Remove(dst)
		return "", err
	}
	defer func() { _ = in.Close() }()

	out, err := d.fs.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, d.fileMode)
	if err != nil {
		_ = d.fs.Remove(dst)
		return "", err
	}
	if err := d.fill(out, dst, in); err != nil {
		return "", err
	}
	if err := d.fs.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove moved source %s: %w", src, err)
	}
	return dst, nil
}
