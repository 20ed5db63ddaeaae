package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/anugrahsoft/chatstream/internal/api/middleware"
	"github.com/anugrahsoft/chatstream/internal/auth"
	"github.com/anugrahsoft/chatstream/internal/chat"
	"github.com/anugrahsoft/chatstream/internal/config"
	"github.com/anugrahsoft/chatstream/internal/handlers"
	"github.com/anugrahsoft/chatstream/internal/store"
)

// NewRouter creates and configures the HTTP router. redisStore may be nil in
// development; rate limiting is then disabled and sessions live in memory.
func NewRouter(cfg *config.Config, logger zerolog.Logger, dataStore store.DataStore, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var sessionStore auth.SessionStore = auth.NewMemorySessions()
	if redisStore != nil {
		sessionStore = redisStore
	}
	sessions := auth.NewManager(sessionStore, dataStore, !cfg.IsDevelopment())

	// A nil *RedisStore must not end up inside the PresenceCache interface,
	// where it would dodge the tracker's nil check.
	var presenceCache chat.PresenceCache
	if redisStore != nil {
		presenceCache = redisStore
	}

	streamer := chat.NewStreamer(dataStore, cfg.PollInterval, logger)
	tracker := chat.NewStoreTracker(dataStore, presenceCache, logger)
	h := handlers.NewHandler(dataStore, redisStore, sessions, streamer, tracker, logger)

	authmw := middleware.NewAuthMiddleware(sessions)
	limiter := middleware.NewRateLimiter(redisStore, cfg.PostsPerMinute, cfg.RateLimitWhitelist, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/health", h.Health)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	// Authenticated routes. Page, stream and post handlers are registered
	// once and shared by both addressing families; the conversation resolver
	// tells them apart by route parameter.
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireUser)
		r.Use(middleware.Presence(tracker))

		r.Get("/", h.Home)
		r.Post("/update-last-seen", h.UpdateLastSeen)

		r.Get("/room/{slug}", h.ConversationPage)
		r.Get("/room/{slug}/sse", h.StreamConversation)
		r.With(limiter.LimitPosts).Post("/room/{slug}/post", h.PostMessage)

		r.Get("/dm/{handle}", h.ConversationPage)
		r.Get("/dm/{handle}/sse", h.StreamConversation)
		r.With(limiter.LimitPosts).Post("/dm/{handle}/post", h.PostMessage)
	})

	return r
}
