package catalog

import (
	"net/url"
	"strings"

	"github.com/nuln/userstore"
)

// Locate returns the filesystem path of p's gateway data store replica.
func Locate(p *userstore.DataProduct) (string, error) {
	if p == nil {
		return "", userstore.ErrNoReplica
	}
	for _, r := range p.Replicas {
		if r.Category != userstore.GatewayDataStore || r.FilePath == "" {
			continue
		}
		if path := replicaPath(r.FilePath); path != "" {
			return path, nil
		}
	}
	return "", userstore.ErrNoReplica
}

// replicaPath extracts the path from "file://host:/abs/path". The path is
// taken verbatim after the authority, so names holding '%', '?' or '#'
// survive.
func replicaPath(uri string) string {
	if rest, ok := strings.CutPrefix(uri, "file://"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return rest[i:]
		}
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return u.Path
}
