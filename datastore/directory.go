package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nuln/userstore"
)

// Exists reports whether p is a regular file in the root of username.
// Paths outside the root are logged and reported as missing.
func (d *Datastore) Exists(username, p string) bool {
	full, err := d.Path(username, p)
	if err != nil {
		d.logInvalid(username, p, err)
		return false
	}
	info, err := d.fs.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether p is a directory in the root of username.
// Paths outside the root are logged and reported as missing.
func (d *Datastore) DirExists(username, p string) bool {
	full, err := d.Path(username, p)
	if err != nil {
		d.logInvalid(username, p, err)
		return false
	}
	info, err := d.fs.Stat(full)
	return err == nil && info.IsDir()
}

// CreateUserDir creates p and any missing parents with the configured
// directory mode. It fails with ErrExist if anything is already at p.
func (d *Datastore) CreateUserDir(username, p string) error {
	full, err := d.Path(username, p)
	if err != nil {
		return err
	}
	taken, err := d.lexists(full)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("directory %s: %w", p, userstore.ErrExist)
	}
	return d.makeDirs(full)
}

// makeDirs creates full and its missing parents, then chmods every level it
// created: the mode passed to mkdir is filtered by the umask.
func (d *Datastore) makeDirs(full string) error {
	var missing []string
	for dir := full; ; dir = filepath.Dir(dir) {
		info, err := d.fs.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s: %w", dir, userstore.ErrNotDir)
			}
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		missing = append(missing, dir)
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if err := d.fs.MkdirAll(full, d.dirMode); err != nil {
		return err
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if err := d.fs.Chmod(missing[i], d.dirMode); err != nil {
			return err
		}
	}
	return nil
}

// ListUserDir returns the names of the subdirectories and files of p.
// Symbolic links are classified by their target; dangling links are files.
func (d *Datastore) ListUserDir(username, p string) (dirs, files []string, err error) {
	if _, err := d.ensureRoot(username); err != nil {
		return nil, nil, err
	}
	full, err := d.Path(username, p)
	if err != nil {
		return nil, nil, err
	}
	info, err := d.fs.Stat(full)
	if err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("directory %s: %w", p, userstore.ErrNotFound)
	}

	f, err := d.fs.Open(full)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, nil, err
	}

	d.logger.Debug("listing user directory",
		zap.String("username", username),
		zap.String("path", p),
		zap.Int("entries", len(infos)),
	)

	dirs, files = []string{}, []string{}
	for _, info := range infos {
		isDir := info.IsDir()
		if info.Mode()&os.ModeSymlink != 0 {
			if target, err := d.fs.Stat(filepath.Join(full, info.Name())); err == nil {
				isDir = target.IsDir()
			}
		}
		if isDir {
			dirs = append(dirs, info.Name())
		} else {
			files = append(files, info.Name())
		}
	}
	return dirs, files, nil
}

// CreatedTime returns the creation (inode change) time of p.
func (d *Datastore) CreatedTime(username, p string) (time.Time, error) {
	full, err := d.Path(username, p)
	if err != nil {
		return time.Time{}, err
	}
	info, err := d.fs.Stat(full)
	if err != nil {
		return time.Time{}, err
	}
	return createdTime(info), nil
}
