package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagesafe/pagesafe-backend/api/routes"
	"github.com/pagesafe/pagesafe-backend/internal/events"
	"github.com/pagesafe/pagesafe-backend/internal/ingest"
	"github.com/pagesafe/pagesafe-backend/internal/ocr"
	"github.com/pagesafe/pagesafe-backend/internal/pii"
	"github.com/pagesafe/pagesafe-backend/internal/redaction"
	"github.com/pagesafe/pagesafe-backend/internal/uploads"
	"github.com/pagesafe/pagesafe-backend/pkg/config"
	"github.com/pagesafe/pagesafe-backend/pkg/db"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
	"github.com/pagesafe/pagesafe-backend/pkg/metrics"
	"github.com/pagesafe/pagesafe-backend/pkg/migrate"
	pkgpubsub "github.com/pagesafe/pagesafe-backend/pkg/pubsub"
	pkgredis "github.com/pagesafe/pagesafe-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = pkgredis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	var lifecycle *events.Publisher
	if cfg.PubSub.Enabled() {
		pubsubClient, psErr := pkgpubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if psErr != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", psErr)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		lifecycle = events.NewPublisher(pubsubClient.LifecyclePublisher(), logg)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	localizer := ocr.NewLocalizer(cfg.OCR)
	classifier, err := pii.NewGLiNERClient(cfg.NER)
	if err != nil {
		logg.Error(context.Background(), "failed to create pii classifier", err)
		os.Exit(1)
	}

	engine, err := redaction.NewEngine(localizer, classifier, logg, pipelineMetrics, cfg.Redaction)
	if err != nil {
		logg.Error(context.Background(), "failed to create redaction engine", err)
		os.Exit(1)
	}

	repo := uploads.NewRepository(dbClient.DB())

	runner, err := redaction.NewRunner(dbClient, repo, engine, lifecycle, logg, pipelineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create redaction runner", err)
		os.Exit(1)
	}

	decoder, err := ingest.NewPDFDecoder(cfg.Ingest)
	if err != nil {
		logg.Error(context.Background(), "failed to create pdf decoder", err)
		os.Exit(1)
	}

	ingestService, err := ingest.NewService(dbClient, repo, decoder, lifecycle, logg, pipelineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	dispatcher, err := ingest.NewDispatcher(ingestService, cfg.Ingest.Workers, cfg.Ingest.QueueSize, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest dispatcher", err)
		os.Exit(1)
	}

	uploadsService, err := uploads.NewService(repo, dispatcher, logg, cfg.Ingest.MaxUploadBytes)
	if err != nil {
		logg.Error(context.Background(), "failed to create uploads service", err)
		os.Exit(1)
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	dispatcher.Start(workerCtx)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, uploadsService, runner, engine),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	cancelWorkers()
	dispatcher.Wait()
}
