package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagesafe/pagesafe-backend/api/controllers"
	"github.com/pagesafe/pagesafe-backend/api/middleware"
	"github.com/pagesafe/pagesafe-backend/internal/redaction"
	"github.com/pagesafe/pagesafe-backend/internal/uploads"
	"github.com/pagesafe/pagesafe-backend/pkg/config"
	"github.com/pagesafe/pagesafe-backend/pkg/db"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
	pkgredis "github.com/pagesafe/pagesafe-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *pkgredis.Client,
	uploadsService *uploads.Service,
	redactionRunner *redaction.Runner,
	redactionEngine *redaction.Engine,
) http.Handler {
	var redisP pkgredis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", controllers.SubmitUpload(uploadsService, logg, cfg.Ingest.MaxUploadBytes))
			r.Get("/{uploadID}", controllers.GetUploadStatus(uploadsService, logg))
			r.Post("/{uploadID}/redact", controllers.RedactUpload(redactionRunner, logg))
		})

		r.Post("/redact", controllers.RedactImage(redactionEngine, logg, cfg.Ingest.MaxUploadBytes))
	})

	return r
}
