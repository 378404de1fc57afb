package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/catalog-importer/internal/cfg"
	v1Http "github.com/DRSN-tech/catalog-importer/internal/delivery/v1/http"
	"github.com/DRSN-tech/catalog-importer/internal/infrastructure/fetcher"
	"github.com/DRSN-tech/catalog-importer/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/catalog-importer/internal/infrastructure/minio"
	"github.com/DRSN-tech/catalog-importer/internal/infrastructure/session"
	"github.com/DRSN-tech/catalog-importer/internal/infrastructure/shopify"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/scope"
	s3Repo "github.com/DRSN-tech/catalog-importer/internal/repository/minio"
	"github.com/DRSN-tech/catalog-importer/internal/repository/pgdb"
	"github.com/DRSN-tech/catalog-importer/internal/repository/redis"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/closer"
	"github.com/DRSN-tech/catalog-importer/pkg/clients"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/DRSN-tech/catalog-importer/pkg/postgres"
	"github.com/DRSN-tech/catalog-importer/pkg/taskq"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const shutdownTimeout = 15 * time.Second

// App — собранное приложение: HTTP-сервер, очередь подготовки и фоновые воркеры.
type App struct {
	cfg         *config.Config
	logger      logger.Logger
	closer      *closer.Closer
	server      *v1Http.Server
	shutdownCtx context.Context
	stopBg      context.CancelFunc
}

// NewApp подключается к внешним системам и собирает зависимости.
// При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (_ *App, err error) {
	bgCtx, stopBg := context.WithCancel(context.Background())
	a := &App{
		cfg:         cfg,
		logger:      log,
		closer:      closer.NewCloser(5 * time.Second),
		shutdownCtx: bgCtx,
		stopBg:      stopBg,
	}
	defer func() {
		if err != nil {
			stopBg()
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = a.closer.Close(ctx)
		}
	}()

	db, err := initPGDB(log, cfg)
	if err != nil {
		return nil, err
	}
	a.closer.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	txManager := tr.NewManager(db.Pool)

	templateRepo := pgdb.NewTemplateRepo(db.Pool)
	runRepo := pgdb.NewRunRepo(db.Pool)
	stagedRepo := pgdb.NewStagedPartRepo(db.Pool)
	diffRepo := pgdb.NewDiffRepo(db.Pool)
	catalogRepo := pgdb.NewCatalogRepo(db.Pool)
	supplierRepo := pgdb.NewSupplierRepo(db.Pool)
	productRepo := pgdb.NewProductRepo(db.Pool)
	versionRepo := pgdb.NewVersionRepo(db.Pool)
	sourceRepo := pgdb.NewSourceRepo(db.Pool)
	logRepo := pgdb.NewImportLogRepo(db.Pool)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool)

	var encoder usecase.EventEncoder
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(log, cfg.Kafka)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if err := producer.EnsureTopic(10 * time.Second); err != nil {
			log.Warnf("failed to ensure kafka topic %s: %v", cfg.Kafka.Topic, err)
		}
		a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })

		worker := kafka.NewOutboxWorker(outboxRepo, log, producer, db.Dsn)
		worker.Start(bgCtx)
		a.closer.Add("outbox worker", func(context.Context) error {
			worker.Stop()
			return nil
		})
		encoder = kafka.AuditEncoder{}
	} else {
		log.Infof("kafka delivery disabled, audit stays in import_logs")
	}

	sessions, err := a.initSessions(cfg, log)
	if err != nil {
		return nil, err
	}

	snapshots, err := a.initSnapshots(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Shopify.ShopDomain == "" || cfg.Shopify.AccessToken == "" {
		log.Warnf("shopify is not configured, publish will fail for every item")
	}
	target := shopify.NewClient(cfg.Shopify, log)

	queue := taskq.New(cfg.Worker.Workers, cfg.Worker.QueueSize, log)
	a.closer.Add("prepare queue", queue.Stop)

	registry := scope.NewRegistry(cfg.Scope.AllowedHosts)
	audit := usecase.NewAuditUC(txManager, logRepo, outboxRepo, encoder, log)
	writer := usecase.NewVersionWriter(txManager, supplierRepo, productRepo, versionRepo, sourceRepo, log)

	prepare := usecase.NewPrepareExecutor(
		txManager, templateRepo, runRepo, stagedRepo, diffRepo, catalogRepo,
		writer, fetcher.NewFetcher(cfg.Crawler, log), sessions, registry, snapshots, audit, log,
		usecase.ExecutorCfg{DiscoveryConcurrency: cfg.Crawler.DiscoveryConcurrency},
	)
	launcher := usecase.NewLauncherUC(txManager, templateRepo, runRepo, diffRepo, prepare, queue, registry, sessions, snapshots, audit, log)
	review := usecase.NewReviewUC(txManager, runRepo, diffRepo, audit, log)
	publish := usecase.NewPublishUC(txManager, templateRepo, runRepo, diffRepo, writer, target, audit, log, cfg.Publish.BatchSize)

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(launcher, prepare, review, publish)
	a.server = v1Http.NewServer(r, cfg.Http, log)

	return a, nil
}

// initSessions собирает менеджер сессий. Без LOGIN_SERVICE_URL шаблоны с авторизацией не запускаются.
func (a *App) initSessions(cfg *config.Config, log logger.Logger) (*usecase.SessionManager, error) {
	client := session.NewLoginClient(cfg.Session)
	if client == nil {
		log.Infof("login service is not configured")
		return usecase.NewSessionManager(nil, nil, cfg.Session.TTL, log), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisClient, err := clients.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("redis", redisClient.Close)

	return usecase.NewSessionManager(client, redis.NewSessionRepo(redisClient, log), cfg.Session.TTL, log), nil
}

// initSnapshots подключает хранилище снимков страниц, если оно включено.
func (a *App) initSnapshots(cfg *config.Config, log logger.Logger) (usecase.SnapshotStore, error) {
	if !cfg.Minio.Enabled || !cfg.Crawler.SnapshotPages {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	minioClient, err := clients.NewMinIOClient(ctx, cfg.Minio)
	if err != nil {
		log.Errorf(err, "failed to initialize minio client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	snapshots := minioInfra.NewSnapshotInfrastructure(s3Repo.NewObjectRepo(minioClient, cfg.Minio), log, a.shutdownCtx)
	a.closer.Add("snapshot cleanup", snapshots.WaitForCleanup)
	return snapshots, nil
}

// Run запускает HTTP-сервер и ждёт сигнала завершения или ошибки сервера.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Run()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		if appErr != nil {
			a.logger.Errorf(appErr, "HTTP server fatal error")
		}
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Stop(ctx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	// очередь и фоновые очистки должны успеть завершиться до отмены shutdownCtx
	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "shutdown error")
		if appErr == nil {
			appErr = err
		}
	}
	a.stopBg()

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
