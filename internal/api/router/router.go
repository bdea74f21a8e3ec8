package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leadbridge-au/leadbridge/internal/http/handlers"
	httpmiddleware "github.com/leadbridge-au/leadbridge/internal/http/middleware"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	LeadHandler        *handlers.LeadHandler
	TwilioWebhooks     *handlers.TwilioWebhookHandler
	HealthHandler      *handlers.HealthHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.HealthHandler.Check)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/newlead", cfg.LeadHandler.SubmitLead)

	// Twilio fetches notification TwiML with GET or POST depending on the
	// call's configured method.
	r.Route("/twilio", func(tw chi.Router) {
		tw.Get("/notification", cfg.TwilioWebhooks.HandleNotification)
		tw.Post("/notification", cfg.TwilioWebhooks.HandleNotification)
		tw.Post("/tradie-response", cfg.TwilioWebhooks.HandleTradieResponse)
		tw.Post("/status", cfg.TwilioWebhooks.HandleStatus)
		tw.Post("/call-complete", cfg.TwilioWebhooks.HandleCallComplete)
	})

	return r
}
