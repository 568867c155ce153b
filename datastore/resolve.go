package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nuln/userstore"
)

// UserRoot returns the absolute root directory of username.
func (d *Datastore) UserRoot(username string) (string, error) {
	if username == "" || username == "." || username == ".." ||
		strings.ContainsAny(username, `/\`) || strings.ContainsRune(username, 0) {
		return "", fmt.Errorf("%w: invalid username %q", userstore.ErrInvalidPath, username)
	}
	return filepath.Join(d.base, username), nil
}

// Path resolves p inside the root of username. Relative paths are joined
// with the root; absolute paths are accepted only when already inside it.
// Anything that would leave the root fails with ErrInvalidPath.
func (d *Datastore) Path(username, p string) (string, error) {
	root, err := d.UserRoot(username)
	if err != nil {
		return "", err
	}

	var full string
	if filepath.IsAbs(p) {
		full = filepath.Clean(p)
	} else {
		full = filepath.Join(root, p)
	}
	if !within(root, full) {
		return "", fmt.Errorf("%w: %q", userstore.ErrInvalidPath, p)
	}

	if d.realPath != nil {
		if err := d.checkLinks(root, full); err != nil {
			return "", fmt.Errorf("%w: %q", err, p)
		}
	}
	return full, nil
}

// RelPath returns p relative to the root of username.
func (d *Datastore) RelPath(username, p string) (string, error) {
	full, err := d.Path(username, p)
	if err != nil {
		return "", err
	}
	root, _ := d.UserRoot(username)
	return filepath.Rel(root, full)
}

// checkLinks resolves the longest existing prefix of full and verifies it
// still lies inside the real root.
func (d *Datastore) checkLinks(root, full string) error {
	realRoot, err := d.realPath(root)
	if err != nil {
		// Root not created yet: nothing below it can be a link.
		return nil
	}

	existing, rest := full, ""
	for {
		real, err := d.realPath(existing)
		if err == nil {
			if !within(realRoot, filepath.Join(real, rest)) {
				return userstore.ErrInvalidPath
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
		if existing == root {
			return nil
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = filepath.Dir(existing)
	}
}

// ensureRoot creates the root of username if it does not exist yet.
func (d *Datastore) ensureRoot(username string) (string, error) {
	root, err := d.UserRoot(username)
	if err != nil {
		return "", err
	}
	if err := d.makeDirs(root); err != nil {
		return "", err
	}
	return root, nil
}

func (d *Datastore) logInvalid(username, p string, err error) {
	d.logger.Warn("invalid path for user",
		zap.String("username", username),
		zap.String("path", p),
		zap.Error(err),
	)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
