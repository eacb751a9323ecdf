package cof_ann

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// ArtifactSource makes a model artifact directory available locally.
type ArtifactSource interface {
	// Fetch returns a local directory containing the manifest and arrays.
	Fetch(ctx context.Context) (string, error)
	// WatchDir is the local directory to watch for changes, or "".
	WatchDir() string
	Describe() string
}

// LocalSource serves artifacts straight from a directory.
type LocalSource struct {
	Dir string
}

func (s LocalSource) Fetch(ctx context.Context) (string, error) {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCodeModelArtifactLoadFailed, "model directory %s", s.Dir)
	}
	if !info.IsDir() {
		return "", errors.Newf(errors.ErrCodeModelArtifactLoadFailed, "model path %s is not a directory", s.Dir)
	}
	return s.Dir, nil
}

func (s LocalSource) WatchDir() string { return s.Dir }

func (s LocalSource) Describe() string { return "local:" + s.Dir }

// ObjectStore is the remote storage a RemoteSource downloads from.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key, dst string) error
}

// RemoteSource mirrors every object under Prefix into CacheDir. Manifest
// defaults to model.yaml.
type RemoteSource struct {
	Store    ObjectStore
	Prefix   string
	CacheDir string
	Manifest string
}

func (s RemoteSource) Fetch(ctx context.Context) (string, error) {
	prefix := strings.TrimSuffix(s.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	keys, err := s.Store.List(ctx, prefix)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCodeModelArtifactLoadFailed, "list %s", s.Describe())
	}
	manifestName := s.Manifest
	if manifestName == "" {
		manifestName = ManifestFile
	}
	manifestKey := prefix + manifestName
	found := false
	for _, key := range keys {
		if key == manifestKey {
			found = true
			break
		}
	}
	if !found {
		return "", errors.Wrap(errors.Newf(errors.ErrCodeModelArtifactNotFound, "%s not found", manifestKey),
			errors.ErrCodeModelArtifactLoadFailed, "fetch "+s.Describe())
	}
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		dst := filepath.Join(s.CacheDir, filepath.FromSlash(path.Clean(rel)))
		if !strings.HasPrefix(dst, filepath.Clean(s.CacheDir)+string(filepath.Separator)) {
			return "", errors.Newf(errors.ErrCodeModelArtifactLoadFailed, "object key %q escapes the cache directory", key)
		}
		if err := s.Store.Download(ctx, key, dst); err != nil {
			return "", errors.Wrapf(err, errors.ErrCodeModelArtifactLoadFailed, "download %s", key)
		}
	}
	return s.CacheDir, nil
}

// WatchDir is empty: remote artifacts are refreshed by reload, not fsnotify.
func (s RemoteSource) WatchDir() string { return "" }

func (s RemoteSource) Describe() string { return "remote:" + s.Prefix }
