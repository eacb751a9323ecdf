// Package bootstrap builds the predictor from configuration: metrics, model
// store, descriptor extractor, optional cache, history and event sinks, and
// the HTTP handler tree. Both cmd entry points go through it.
package bootstrap

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/config"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/conformer"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/descriptor"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/database/postgres"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/database/redis"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/storage/minio"
	"github.com/turtacn/COF-H2-Predictor/internal/intelligence/cof_ann"
	"github.com/turtacn/COF-H2-Predictor/internal/interfaces/http/handlers"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// eventSource is the source_service header of published events.
const eventSource = "cofh2-predictor"

// App is a fully wired predictor.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	Store     *cof_ann.ArtifactStore
	Extractor descriptor.Extractor
	Service   prediction.Service
	Screener  *prediction.Screener
	Checkers  []handlers.HealthChecker

	descriptorCache *prediction.CachedExtractor
	closers         []func() error
}

// Options selects optional parts. The CLI's one-shot commands skip the
// external sinks.
type Options struct {
	// Offline skips Redis, Postgres and Kafka even when enabled.
	Offline bool
	// Watch starts the model directory watcher when the config asks for it.
	Watch bool
}

// New wires an App. The model is loaded eagerly so that the descriptor
// columns can follow the manifest, but a missing model is only logged: the
// process keeps running and /readyz reports it.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts Options) (app *App, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	app = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	if err = app.initMetrics(); err != nil {
		return nil, err
	}
	if err = app.initModel(ctx, opts.Watch); err != nil {
		return nil, err
	}
	calc, err := app.newCalculator()
	if err != nil {
		return nil, err
	}
	app.Extractor = calc

	deps := prediction.Deps{
		Model:   app.Store,
		Metrics: app.Metrics,
		Logger:  logger.Named("prediction"),
		Seed:    cfg.Descriptor.Seed,
		Unit:    cfg.Model.Unit,
	}
	if !opts.Offline {
		if err = app.initCache(); err != nil {
			return nil, err
		}
		var repo *repositories.PostgresPredictionRepo
		if repo, err = app.initHistory(); err != nil {
			return nil, err
		}
		if repo != nil {
			deps.History = repo
			deps.Recorders = append(deps.Recorders, repo)
		}
		var events history.Recorder
		if events, err = app.initEvents(); err != nil {
			return nil, err
		}
		if events != nil {
			deps.Recorders = append(deps.Recorders, events)
		}
	}
	deps.Extractor = app.Extractor

	if app.Service, err = prediction.NewService(deps); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.Service.Close)
	if err = app.initScreener(); err != nil {
		return nil, err
	}
	app.Checkers = append([]handlers.HealthChecker{
		handlers.CheckFunc{Component: "model", Fn: app.Service.Ready},
	}, app.Checkers...)
	return app, nil
}

// screenerDrainTimeout bounds the wait for running batches on Close.
const screenerDrainTimeout = 30 * time.Second

func (a *App) initScreener() error {
	sc := a.Config.Screening
	s, err := prediction.NewScreener(a.Service, prediction.ScreenOptions{
		MaxItems:       sc.MaxItems,
		MaxConcurrency: sc.MaxConcurrency,
		ItemTimeout:    sc.ItemTimeout,
		BatchTimeout:   sc.BatchTimeout,
		MaxPending:     sc.MaxPending,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Screener = s
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), screenerDrainTimeout)
		defer cancel()
		return s.Close(ctx)
	})
	return nil
}

func (a *App) initMetrics() error {
	if !a.Config.Metrics.Enabled {
		a.Collector = prometheus.NewNoopCollector()
		a.Metrics = prometheus.NewNoopAppMetrics()
		return nil
	}
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            a.Config.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Collector = c
	a.Metrics = prometheus.NewAppMetrics(c)
	return nil
}

func (a *App) initModel(ctx context.Context, watch bool) error {
	mc := a.Config.Model
	var src cof_ann.ArtifactSource
	switch mc.Source {
	case "minio":
		client, err := minio.NewMinIOClient(&minio.MinIOConfig{
			Endpoint:        a.Config.MinIO.Endpoint,
			AccessKeyID:     a.Config.MinIO.AccessKey,
			SecretAccessKey: a.Config.MinIO.SecretKey,
			UseSSL:          a.Config.MinIO.UseSSL,
			Region:          a.Config.MinIO.Region,
			Bucket:          a.Config.MinIO.Bucket,
		}, a.Logger.Named("minio"))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		cacheDir := mc.Dir
		if cacheDir == "" {
			cacheDir = filepath.Join(os.TempDir(), "cofh2-model")
		}
		src = cof_ann.RemoteSource{
			Store:    minio.NewArtifactRepository(client, a.Logger.Named("minio")),
			Prefix:   mc.RemotePrefix,
			CacheDir: cacheDir,
			Manifest: mc.Manifest,
		}
	default:
		src = cof_ann.LocalSource{Dir: mc.Dir}
	}

	a.Store = cof_ann.NewArtifactStore(src,
		cof_ann.WithManifest(mc.Manifest),
		cof_ann.WithReloadPerRequest(mc.ReloadPerRequest),
		cof_ann.WithLogger(a.Logger.Named("model")),
		cof_ann.WithLoadHook(func(d time.Duration, err error) {
			prometheus.RecordModelLoad(a.Metrics, d, err)
		}),
	)
	a.closers = append(a.closers, a.Store.Close)

	if _, err := a.Store.Bundle(ctx); err != nil {
		a.Logger.Warn("model not available at startup; predictions fail until it is", logging.Err(err))
	}
	if watch && mc.Watch && !mc.ReloadPerRequest {
		if err := a.Store.Watch(ctx); err != nil {
			a.Logger.Warn("model watcher not started", logging.Err(err))
		}
	}
	return nil
}

// newCalculator selects the fingerprint columns: the loaded manifest's
// feature list when it has one, else the configured profile.
func (a *App) newCalculator() (*descriptor.Calculator, error) {
	dc := a.Config.Descriptor
	profile, err := descriptor.ResolveProfile(dc.ColumnsProfile, dc.ColumnsFile)
	if err != nil {
		return nil, err
	}
	if b := a.Store.Current(); b != nil && len(b.Manifest.FeatureColumns) > 0 {
		fromManifest, err := descriptor.ProfileFromColumns(b.Manifest.Name, b.Manifest.FeatureColumns,
			descriptor.FingerprintSpec{Radius: dc.Radius, NBits: dc.NBits})
		if err != nil {
			return nil, err
		}
		profile = fromManifest
	}
	return descriptor.NewCalculator(descriptor.Config{
		Radius:  dc.Radius,
		NBits:   dc.NBits,
		Profile: profile,
		Conformer: conformer.Options{
			Seed:               dc.Seed,
			MaxAttempts:        dc.MaxAttempts,
			EmbedIterations:    dc.EmbedIterations,
			OptimizeIterations: dc.OptimizeIterations,
		},
		Timeout: dc.Timeout,
	}, a.Logger)
}

func (a *App) initCache() error {
	rc := a.Config.Redis
	if !rc.Enabled {
		return nil
	}
	client, err := redis.NewClient(&redis.RedisConfig{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}, a.Logger.Named("redis"))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)
	a.Checkers = append(a.Checkers, handlers.CheckFunc{Component: "redis", Fn: client.Ping})

	cache := redis.NewRedisCache(client, a.Logger.Named("redis"),
		redis.WithPrefix(rc.KeyPrefix), redis.WithDefaultTTL(rc.DefaultTTL))
	cached := prediction.NewCachedExtractor(a.Extractor, cache, a.Config.Descriptor.Seed, rc.DefaultTTL,
		a.Logger.Named("descriptor_cache"), a.Metrics)
	if !cached.Active() {
		a.Logger.Warn("descriptor cache disabled: conformers use a random seed (set descriptor.seed)")
	}
	a.Extractor = cached
	a.descriptorCache = cached
	return nil
}

// PurgeDescriptorCache empties the Redis descriptor cache. It fails when the
// app runs without Redis.
func (a *App) PurgeDescriptorCache(ctx context.Context) (int64, error) {
	if a.descriptorCache == nil {
		return 0, errors.New(errors.CodeInvalidParam, "descriptor cache is not configured (redis.enabled is false)")
	}
	return a.descriptorCache.Purge(ctx)
}

func (a *App) initHistory() (*repositories.PostgresPredictionRepo, error) {
	dc := a.Config.Database
	if !dc.Enabled {
		return nil, nil
	}
	conn, err := postgres.NewConnection(postgres.ConfigFrom(dc), a.Logger.Named("postgres"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)
	a.Checkers = append(a.Checkers, handlers.CheckFunc{Component: "postgres", Fn: conn.HealthCheck})
	return repositories.NewPostgresPredictionRepo(conn, a.Logger.Named("history")), nil
}

func (a *App) initEvents() (history.Recorder, error) {
	kc := a.Config.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(kc), a.Logger.Named("kafka"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, producer.Close)
	return kafka.NewPredictionEventRecorder(producer, kc.Topic, eventSource), nil
}

// Handler builds the HTTP handler tree for this App.
func (a *App) Handler(version string) (http.Handler, error) {
	return newHandler(a, version)
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}

//Personal.AI order the ending
