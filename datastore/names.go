package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/nuln/userstore"
)

// ValidName turns name into a filesystem-safe single path segment:
// whitespace is trimmed, spaces become underscores, and anything other than
// letters, digits, '_', '-' and '.' is dropped. The result never contains a
// separator and is never "", "." or "..".
func ValidName(name string) (string, error) {
	s := strings.TrimSpace(norm.NFC.String(name))
	s = strings.ReplaceAll(s, " ", "_")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}

	valid := b.String()
	if valid == "" || valid == "." || valid == ".." {
		return "", fmt.Errorf("%w: could not derive a valid name from %q", userstore.ErrInvalidPath, name)
	}
	return valid, nil
}

// AvailableName returns p if nothing exists there in the root of username,
// otherwise the first free sibling of the form <stem>_<n><ext>.
func (d *Datastore) AvailableName(username, p string) (string, error) {
	dir, file := filepath.Split(p)
	stem, ext := splitExt(file)

	candidate := p
	for n := 1; ; n++ {
		full, err := d.Path(username, candidate)
		if err != nil {
			return "", err
		}
		taken, err := d.lexists(full)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = filepath.Join(dir, stem+"_"+strconv.Itoa(n)+ext)
	}
}

// lexists reports whether anything, including a dangling link, exists at full.
func (d *Datastore) lexists(full string) (bool, error) {
	_, err := d.lstat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (d *Datastore) lstat(full string) (os.FileInfo, error) {
	if lst, ok := d.fs.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(full)
		return info, err
	}
	return d.fs.Stat(full)
}

// splitExt splits a base name into stem and extension. A name made of a
// leading dot and no other dot has no extension.
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == "" || ext == name || strings.Trim(name[:len(name)-len(ext)], ".") == "" {
		return name, ""
	}
	return name[:len(name)-len(ext)], ext
}
