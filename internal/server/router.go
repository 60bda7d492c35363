package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/placesearch/internal/api/handlers"
	"github.com/cloo-solutions/placesearch/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", handlers.Health)

	r.Get("/search", cfg.SearchHandler.Search)
	r.Post("/search/feedback", cfg.SearchHandler.SearchFeedback)

	return r
}
