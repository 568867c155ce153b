package datastore

import (
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/afero"
)

// Size returns the size of the file at p, or for a directory the summed
// size of every regular file below it. Entries that cannot be stat'ed,
// such as dangling links, are skipped, as are links resolving outside the
// user root.
func (d *Datastore) Size(username, p string) (int64, error) {
	full, err := d.Path(username, p)
	if err != nil {
		return 0, err
	}
	info, err := d.fs.Stat(full)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	root, _ := d.UserRoot(username)
	if _, ok := d.fs.(*afero.OsFs); ok {
		return d.osDirSize(root, full)
	}
	return d.dirSize(root, full)
}

// osDirSize walks the OS filesystem concurrently. Links are not descended
// into; a link to a file counts with its target's size.
func (d *Datastore) osDirSize(root, dir string) (int64, error) {
	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, dir, func(p string, de fs.DirEntry, err error) error {
		if err != nil || de.IsDir() {
			return nil
		}
		if de.Type()&fs.ModeSymlink != 0 && !d.linkInside(root, p) {
			return nil
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return nil
		}
		total.Add(info.Size())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total.Load(), nil
}

func (d *Datastore) dirSize(root, dir string) (int64, error) {
	var total int64
	err := afero.Walk(d.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 && !d.linkInside(root, p) {
			return nil
		}
		target, err := d.fs.Stat(p)
		if err != nil || target.IsDir() {
			return nil
		}
		total += target.Size()
		return nil
	})
	return total, err
}

// linkInside reports whether the link at p resolves inside root.
func (d *Datastore) linkInside(root, p string) bool {
	if d.realPath == nil {
		return true
	}
	return d.checkLinks(root, p) == nil
}
