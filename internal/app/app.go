package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/inventory-backend/internal/cfg"
	v1Grpc "github.com/DRSN-tech/inventory-backend/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/inventory-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/inventory-backend/internal/infrastructure/auth"
	"github.com/DRSN-tech/inventory-backend/internal/infrastructure/export"
	"github.com/DRSN-tech/inventory-backend/internal/infrastructure/images"
	"github.com/DRSN-tech/inventory-backend/internal/infrastructure/kafka"
	fsRepo "github.com/DRSN-tech/inventory-backend/internal/repository/fs"
	s3Repo "github.com/DRSN-tech/inventory-backend/internal/repository/minio"
	"github.com/DRSN-tech/inventory-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/inventory-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/inventory-backend/internal/repository/redis"
	redisConv "github.com/DRSN-tech/inventory-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/clients"
	"github.com/DRSN-tech/inventory-backend/pkg/closer"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/DRSN-tech/inventory-backend/pkg/postgres"
	"github.com/DRSN-tech/inventory-backend/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/robfig/cron/v3"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
	forcedTimeout   = 5 * time.Second
)

// App держит собранные зависимости и управляет их жизненным циклом.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	// отменяется при остановке, прерывает фоновые задачи
	ctx    context.Context
	cancel context.CancelFunc

	httpSrv      *v1Http.Server
	grpcSrv      *v1Grpc.GRPCServer
	scheduler    *cron.Cron
	outboxWorker *kafka.OutboxWorker // nil, если Kafka выключена
}

// NewApp подключается к внешним сервисам и собирает граф зависимостей.
// При ошибке уже открытые ресурсы закрываются.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(forcedTimeout),
		ctx:    ctx,
		cancel: cancel,
	}

	if err := a.build(); err != nil {
		cancel()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		if cerr := a.closer.Close(closeCtx); cerr != nil {
			log.Warnf("partial shutdown after failed init: %v", cerr)
		}

		return nil, err
	}

	return a, nil
}

func (a *App) build() error {
	cfg, log := a.cfg, a.logger

	db, err := initPGDB(log, cfg)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddFunc("postgres", db.Close)

	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.NewProductConverterImpl())
	categoryRepo := pgdb.NewCategoryRepo(db.Pool)
	userRepo := pgdb.NewUserRepo(db.Pool, pgdbConv.NewUserConverterImpl())

	imageRepo, err := a.initImageRepo()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	imagesInfra := images.NewImagesInfrastructure(imageRepo, cfg.Images, log, a.ctx)

	// интерфейсы остаются nil без значения, если сервис выключен
	var cacheRepo usecase.CacheRepository
	if cfg.Redis.Enabled {
		redisClient := clients.NewRedisClient(cfg.Redis)
		a.closer.Add("redis", redisClient.Close)

		pingCtx, pingCancel := context.WithTimeout(context.Background(), startupTimeout)
		defer pingCancel()
		if err := redisClient.Ping(pingCtx); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}

		cacheRepo = redis.NewCacheRepo(redisClient, redisConv.NewProductConverterImpl(), cfg.Redis, log)
		log.Infof("redis cache enabled at %s", cfg.Redis.Addr)
	}

	encoder := kafka.NewProtoEncoder()
	var outboxRepo usecase.OutboxRepository
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(log, cfg.Kafka)
		a.closer.Add("kafka producer", producer.Close)

		if err := producer.EnsureTopic(startupTimeout); err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}

		repo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.NewOutboxEventConverterImpl())
		outboxRepo = repo
		a.outboxWorker = kafka.NewOutboxWorker(repo, log, producer, cfg.Kafka.OutboxBatchSize, postgres.DSN(cfg.Db))
		log.Infof("kafka events enabled, topic %s", cfg.Kafka.Topic)
	}

	productUC := usecase.NewProductUC(
		productRepo,
		categoryRepo,
		tr.NewManager(db.Pool),
		imagesInfra,
		cacheRepo,
		outboxRepo,
		encoder,
		log,
	)
	authUC := usecase.NewAuthUC(userRepo, auth.NewBcryptHasher(cfg.Auth.BcryptCost), auth.NewJWTManager(cfg.Auth), log)
	statsUC := usecase.NewStatsUC(productRepo, cfg.Stats.ExpiryWarningDays, log)
	exportUC := usecase.NewExportUC(productRepo, export.NewExporter())
	healthUC := usecase.NewHealthUC(db, imagesInfra)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer seedCancel()
	if err := authUC.EnsureAdmin(seedCtx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	// фоновая очистка изображений должна завершиться до закрытия хранилищ
	a.closer.Add("image cleanup", imagesInfra.WaitForCleanup)

	if a.outboxWorker != nil {
		a.closer.Add("outbox worker", a.outboxWorker.Stop)
	}

	a.grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, log)

	a.scheduler, err = a.newScheduler(productUC, statsUC, healthUC)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("scheduler", a.stopScheduler)
	a.closer.Add("grpc server", a.grpcSrv.Stop)

	router := v1Http.NewRouter(chi.NewRouter(), cfg, log)
	handler := router.Init(&v1Http.Usecases{
		Product: productUC,
		Auth:    authUC,
		Stats:   statsUC,
		Export:  exportUC,
		Health:  healthUC,
	})
	a.httpSrv = v1Http.NewServer(handler, cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	// первая проверка, чтобы gRPC health не ждал расписания
	probeCtx, probeCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer probeCancel()
	a.grpcSrv.SetServing(healthUC.Check(probeCtx).Healthy)

	return nil
}

func (a *App) initImageRepo() (usecase.ImageRepository, error) {
	switch a.cfg.Images.Storage {
	case config.ImageStorageMinio:
		minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		a.logger.Infof("image storage: minio bucket %s", a.cfg.Minio.BucketName)
		return s3Repo.NewImageRepo(minioClient, a.cfg.Minio), nil
	default:
		repo, err := fsRepo.NewImageRepo(a.cfg.Images.UploadDir)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		a.logger.Infof("image storage: directory %s", a.cfg.Images.UploadDir)
		return repo, nil
	}
}

// Run запускает серверы и фоновые задачи, блокируется до сигнала или фатальной ошибки сервера.
func (a *App) Run() error {
	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()

	httpErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
		}
	}()

	if a.outboxWorker != nil {
		a.outboxWorker.Start(a.ctx)
	}
	a.scheduler.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-httpErrCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case sig := <-shutdown:
		a.logger.Infof("received %s, stopping gracefully...", sig)
	}

	a.shutdown()

	return appErr
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
	}
	// прерываем фоновые задачи, которые не успели завершиться
	a.cancel()

	a.logger.Infof("Application shutdown complete")
}

// stopScheduler перестаёт планировать задачи и ждёт уже запущенные.
func (a *App) stopScheduler(ctx context.Context) error {
	select {
	case <-a.scheduler.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func initPGDB(log logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		log.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(log); err != nil {
		db.Close()
		log.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		db.Close()
		log.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
