package storage

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nuln/userstore"
)

// ListDir describes the directories and files directly inside p. Files are
// given their product URI; files without one are registered on the fly.
// The staging directory at the top of the root is flagged hidden. Dangling
// links and links leaving the root are skipped.
func (s *Storage) ListDir(ctx context.Context, actor userstore.Actor, p string) (dirs, files []userstore.Entry, err error) {
	username := actor.Username
	dirNames, fileNames, err := s.ds.ListUserDir(username, p)
	if err != nil {
		return nil, nil, err
	}
	rel, err := s.ds.RelPath(username, p)
	if err != nil {
		return nil, nil, err
	}
	if rel == "." {
		rel = ""
	}

	dirs = make([]userstore.Entry, 0, len(dirNames))
	for _, name := range dirNames {
		e, ok, err := s.entry(username, rel, name)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		e.Hidden = e.Path == userstore.StagingDir
		dirs = append(dirs, e)
	}

	files = make([]userstore.Entry, 0, len(fileNames))
	for _, name := range fileNames {
		e, ok, err := s.entry(username, rel, name)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		full, err := s.ds.Path(username, e.Path)
		if err != nil {
			return nil, nil, err
		}
		e.DataProductURI, err = s.bridge.EnsureRegistered(ctx, actor, full)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, e)
	}
	return dirs, files, nil
}

func (s *Storage) entry(username, dir, name string) (userstore.Entry, bool, error) {
	p := filepath.Join(dir, name)
	created, err := s.ds.CreatedTime(username, p)
	if err == nil {
		var size int64
		if size, err = s.ds.Size(username, p); err == nil {
			return userstore.Entry{
				Name:        name,
				Path:        p,
				CreatedTime: created,
				Size:        size,
			}, true, nil
		}
	}
	if errors.Is(err, userstore.ErrNotFound) || errors.Is(err, userstore.ErrInvalidPath) {
		s.logger.Warn("skipping unreadable entry",
			zap.String("username", username),
			zap.String("path", p),
			zap.Error(err),
		)
		return userstore.Entry{}, false, nil
	}
	return userstore.Entry{}, false, err
}
