package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/orchestrall/patientflow/internal/http/handlers"
	httpmiddleware "github.com/orchestrall/patientflow/internal/http/middleware"
	"github.com/orchestrall/patientflow/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	ChannelWebhooks *handlers.ChannelWebhookHandler
	MetricsHandler  http.Handler
	HealthCheck     http.HandlerFunc
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.HealthCheck != nil {
		r.Get("/health", cfg.HealthCheck)
	} else {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}

	if cfg.ChannelWebhooks != nil {
		r.Post("/webhooks/channel/messages", cfg.ChannelWebhooks.HandleInboundMessage)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
