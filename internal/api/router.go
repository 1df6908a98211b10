package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/DimiKog/Encryption-Messenger/internal/api/middleware"
	"github.com/DimiKog/Encryption-Messenger/internal/handlers"
	"github.com/DimiKog/Encryption-Messenger/internal/store"
)

// NewRouter creates and configures the HTTP router.
// redisStore may be nil; rate limiting is skipped without it.
func NewRouter(logger zerolog.Logger, s store.Store, redisStore *store.RedisStore, rlCfg middleware.RateLimiterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(16 * 1024)) // ciphertext cap plus JSON overhead
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (only when Redis is available)
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger, rlCfg)
		r.Use(limiter.Middleware)
	}

	// CORS - allow all origins; the relay is deliberately unauthenticated
	// and clients poll from anywhere.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(s, redisStore)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	// Directory: public-key registry, upsert by address
	r.Get("/public-keys", h.ListPublicKeys)
	r.Post("/public-keys", h.PublishPublicKey)

	// Relay: append-only ciphertext store
	r.Get("/messages", h.ListMessages)
	r.Post("/messages", h.PostMessage)

	return r
}
