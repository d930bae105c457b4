package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tyrowin/nexus-chat/internal/store"
)

// NewRouter builds the application router: the WebSocket endpoint, the test
// page and a read-only JSON view of the chat state.
func NewRouter(cfg *Config, hub *Hub, st *store.Store, logger *slog.Logger) http.Handler {
	logger = logger.With("component", "http")
	origins := newOriginPolicy(cfg.AllowedOrigins, logger)
	h := newHandlers(cfg, hub, st, origins, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.banner)
	r.Get("/health", h.health)
	r.HandleFunc("/ws", h.webSocket)
	r.Get("/test", h.testPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/users", h.listUsers)
		r.Get("/messages", h.listMessages)
		r.Get("/messages/{id}", h.getMessage)
		r.Get("/rooms", h.listRooms)
		r.Get("/rooms/{id}/users", h.roomUsers)
	})

	return r
}
