package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"attachment-manager-api/config"
	"attachment-manager-api/internal/application/ports"
	"attachment-manager-api/internal/application/services"
	"attachment-manager-api/internal/infrastructure/db/postgres"
	attachmentRepo "attachment-manager-api/internal/infrastructure/db/postgres/attachment"
	"attachment-manager-api/internal/infrastructure/gate"
	"attachment-manager-api/internal/infrastructure/identifier"
	"attachment-manager-api/internal/infrastructure/jwt"
	"attachment-manager-api/internal/infrastructure/metrics"
	"attachment-manager-api/internal/infrastructure/mq"
	"attachment-manager-api/internal/infrastructure/storage/local"
	"attachment-manager-api/internal/infrastructure/storage/s3"
	"attachment-manager-api/internal/interface/api/rest"
	"attachment-manager-api/internal/interface/api/rest/middleware"
	"attachment-manager-api/pkg/rmqconsumer"
)

type App struct {
	logger     *zap.Logger
	cfg        config.Config
	db         *pgxpool.Pool
	disks      map[string]ports.Disk
	httpSrv    *http.Server
	router     *gin.Engine
	mCounter   *prometheus.CounterVec
	mq         ports.RabbitMQ
	mqConsumer ports.RMQConsumer
	sweeper    *services.Sweeper
}

func NewApp(ctx context.Context) (*App, error) {
	// logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// config
	if err = godotenv.Load(".env"); err != nil {
		logger.Fatal("error loading .env file", zap.Error(err))
	}
	cfg := config.Load()

	// metrics
	mCounter := metrics.NewCounter()

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogGin(logger, mCounter))

	// httpServer
	httpSrv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	// db
	dbDsn, err := cfg.DBDSN()
	if err != nil {
		logger.Fatal("DB config error", zap.Error(err))
	}
	dbPool, err := postgres.New(ctx, logger, dbDsn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// storage disks: local is always present, s3 joins when configured
	localDisk, err := local.New(logger, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init local storage", zap.Error(err))
	}
	disks := map[string]ports.Disk{"local": localDisk}
	if cfg.S3.Endpoint != "" {
		s3Disk, err := s3.New(ctx, logger, cfg.S3)
		if err != nil {
			logger.Fatal("failed to connect to S3", zap.Error(err))
		}
		disks["s3"] = s3Disk
	}
	if _, ok := disks[cfg.Storage.DefaultDisk]; !ok {
		logger.Fatal("default disk is not configured", zap.String("disk", cfg.Storage.DefaultDisk))
	}

	// rabbitMQ: lifecycle events are best effort, skipped when unconfigured
	var rbMQ ports.RabbitMQ
	var rmqConsumerW ports.RMQConsumer
	rabbitDsn, err := cfg.AMQPDSN()
	if err != nil {
		logger.Info("rabbitmq disabled", zap.Error(err))
	} else {
		mqPub := mq.New(cfg.MQ, logger)
		if err = mqPub.Connect(ctx, rabbitDsn); err != nil {
			logger.Fatal("failed to connect to rabbitMQ", zap.Error(err))
		}
		if err = mqPub.Init(); err != nil {
			logger.Fatal("failed init rabbitMQ", zap.Error(err))
		}
		rbMQ = mqPub

		consumer := rmqconsumer.New(cfg.MQ, logger, mqPub.GetConn())
		if err = consumer.Connect(rabbitDsn); err != nil {
			logger.Fatal("failed to connect rabbitMQ consumer", zap.Error(err))
		}
		if err = consumer.Init(); err != nil {
			logger.Fatal("failed to init rabbitMQ consumer", zap.Error(err))
		}
		rmqConsumerW = consumer
	}

	return &App{
		logger:     logger,
		cfg:        cfg,
		db:         dbPool,
		disks:      disks,
		httpSrv:    httpSrv,
		router:     r,
		mCounter:   mCounter,
		mq:         rbMQ,
		mqConsumer: rmqConsumerW,
	}, nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.mq != nil && a.mq.GetConn() != nil {
		a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer stop()

	// "errgroup" instead of "WaitGroup" because:
	// - allows return an error from gorutine
	// - group errors from multiple gorutines into one
	// - wg.Add(1), wg.Done() - automatically under the hood, so never catch deadlock if you forget something ;-)
	// - allows orchestration of parallel processes through the context.Context(gracefull shut down)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.cfg.App.Host+":"+a.cfg.App.Port))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	if a.mq != nil {
		g.Go(func() error {
			a.mq.PublisherWorker(ctx)
			return nil
		})
	}

	if a.mqConsumer != nil {
		g.Go(func() error {
			a.mqConsumer.DeliveryWorker(ctx)
			return nil
		})
	}

	if a.sweeper != nil {
		g.Go(func() error {
			a.sweeper.Worker(ctx)
			return nil
		})
	}

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
			return err
		}
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) InitControllers() {
	// repos
	repo := attachmentRepo.NewRepository(a.db)

	// access gate: predicates default to allow; deployments plug their own
	// checks here (token scopes, signed cookies, ip allow-lists)
	accessGate := gate.New()

	// services
	jwtService := jwt.New(a.cfg.App.JWTSecret)
	attachmentService := services.NewAttachmentService(
		a.disks,
		a.cfg.Storage.DefaultDisk,
		repo,
		identifier.New(),
		accessGate,
		a.mq,
		a.mCounter,
		a.cfg.Attachments,
	)
	a.sweeper = services.NewSweeper(attachmentService, a.logger, a.cfg.Attachments)

	// controllers
	rest.NewAttachmentController(a.router, attachmentService, a.logger, jwtService, a.cfg.Storage.MaxUploadBytes)

	// ops
	a.router.GET(rest.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

func (a *App) Logger() *zap.Logger { return a.logger }
