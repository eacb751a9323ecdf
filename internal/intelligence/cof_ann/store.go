package cof_ann

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// LoadHook observes every artifact load attempt.
type LoadHook func(d time.Duration, err error)

// StoreOption configures an ArtifactStore.
type StoreOption func(*ArtifactStore)

// WithReloadPerRequest makes every Bundle call re-read the artifact.
func WithReloadPerRequest(on bool) StoreOption {
	return func(s *ArtifactStore) { s.reloadPerRequest = on }
}

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) StoreOption {
	return func(s *ArtifactStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithManifest sets the manifest file name inside the artifact directory.
func WithManifest(name string) StoreOption {
	return func(s *ArtifactStore) { s.manifest = name }
}

// WithLoadHook registers a callback run after each load.
func WithLoadHook(h LoadHook) StoreOption {
	return func(s *ArtifactStore) { s.onLoad = h }
}

// ArtifactStore caches the loaded bundle and coalesces concurrent loads.
type ArtifactStore struct {
	source           ArtifactSource
	manifest         string
	logger           logging.Logger
	reloadPerRequest bool
	onLoad           LoadHook

	mu      sync.RWMutex
	current *Bundle
	// gen counts invalidations; a load only caches its bundle when no
	// invalidation happened while it was reading the files.
	gen   uint64
	group singleflight.Group

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
}

// NewArtifactStore returns a store over src. Nothing is loaded until the first
// Bundle call.
func NewArtifactStore(src ArtifactSource, opts ...StoreOption) *ArtifactStore {
	s := &ArtifactStore{source: src, logger: logging.NewNopLogger()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Bundle returns the cached bundle, loading it when absent or when the store
// reloads per request.
func (s *ArtifactStore) Bundle(ctx context.Context) (*Bundle, error) {
	if !s.reloadPerRequest {
		s.mu.RLock()
		b := s.current
		s.mu.RUnlock()
		if b != nil {
			return b, nil
		}
	}
	ch := s.group.DoChan("bundle", func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "waiting for model load")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil
	}
}

func (s *ArtifactStore) load(ctx context.Context) (*Bundle, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	start := time.Now()
	b, err := s.fetchAndLoad(ctx)
	elapsed := time.Since(start)
	if s.onLoad != nil {
		s.onLoad(elapsed, err)
	}
	if err != nil {
		s.logger.Error("model load failed",
			logging.String("source", s.source.Describe()),
			logging.Err(err))
		return nil, err
	}
	s.mu.Lock()
	stale := s.gen != gen
	if !stale {
		s.current = b
	}
	s.mu.Unlock()
	if stale {
		s.logger.Info("model changed during load; not caching",
			logging.String("source", s.source.Describe()),
			logging.String("version", b.Manifest.Version))
		return b, nil
	}
	s.logger.Info("model loaded",
		logging.String("source", s.source.Describe()),
		logging.String("name", b.Manifest.Name),
		logging.String("version", b.Manifest.Version),
		logging.Int("input_width", b.InputWidth()),
		logging.Duration("elapsed", elapsed))
	return b, nil
}

func (s *ArtifactStore) fetchAndLoad(ctx context.Context) (*Bundle, error) {
	dir, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return LoadBundleManifest(ctx, dir, s.manifest)
}

// Current returns the cached bundle without loading.
func (s *ArtifactStore) Current() *Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Invalidate drops the cached bundle; the next Bundle call reloads. A load
// already in flight still answers its callers but is not cached.
func (s *ArtifactStore) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.gen++
	s.mu.Unlock()
	s.group.Forget("bundle")
}

// Reload loads the artifact now and replaces the cache on success. On
// failure the previous bundle stays in place.
func (s *ArtifactStore) Reload(ctx context.Context) (*Bundle, error) {
	v, err, _ := s.group.Do("bundle", func() (interface{}, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Watch invalidates the cache whenever the source directory changes. It
// returns immediately; watching stops when ctx is done or Close is called.
func (s *ArtifactStore) Watch(ctx context.Context) error {
	dir := s.source.WatchDir()
	if dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "create model watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return errors.Wrapf(err, errors.ErrCodeModelArtifactLoadFailed, "watch %s", dir)
	}
	s.watchMu.Lock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.watcher = w
	s.watchMu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				w.Close()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				s.logger.Info("model artifact changed",
					logging.String("file", ev.Name),
					logging.String("op", ev.Op.String()))
				s.Invalidate()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("model watcher error", logging.Err(err))
			}
		}
	}()
	return nil
}

// Close stops the watcher, if any.
func (s *ArtifactStore) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
