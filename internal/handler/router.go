package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/civicconnect/civicconnect-ai/internal/config"
	"github.com/civicconnect/civicconnect-ai/internal/handler/chat"
	"github.com/civicconnect/civicconnect-ai/internal/handler/static"
	"github.com/civicconnect/civicconnect-ai/internal/middleware"
	chatService "github.com/civicconnect/civicconnect-ai/internal/service/chat"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.ServerConfig, logger zerolog.Logger, sessions *chatService.Service, decoder chat.ImageDecoder) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	chat.New(sessions, decoder, cfg.MaxUploadBytes).RegisterRoutes(r)

	if cfg.Debug {
		r.Mount("/debug", chimw.Profiler())
	}

	static.New(cfg.StaticDir).RegisterRoutes(r)

	return r
}
