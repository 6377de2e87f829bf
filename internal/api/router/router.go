// Package router assembles the HTTP surface: provider webhooks, legacy
// aliases, internal endpoints, and operational routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/relaydesk/telephony/internal/http/handlers"
	httpmiddleware "github.com/relaydesk/telephony/internal/http/middleware"
	"github.com/relaydesk/telephony/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	CallStatus       *handlers.CallStatusHandler
	SmsStatus        *handlers.SmsStatusHandler
	SmsReply         *handlers.SmsReplyHandler
	InternalDispatch *handlers.InternalDispatchHandler
	LegacyProxy      *handlers.LegacyProxy

	// InternalSecret gates /internal routes. Empty disables them.
	InternalSecret string

	// WebhookRate/WebhookBurst bound per-IP webhook throughput. Zero rate
	// disables limiting.
	WebhookRate  float64
	WebhookBurst int

	MetricsHandler http.Handler
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

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Provider webhooks.
	r.Group(func(webhooks chi.Router) {
		if cfg.WebhookRate > 0 {
			webhooks.Use(httpmiddleware.RateLimit(cfg.WebhookRate, cfg.WebhookBurst, cfg.Logger))
		}
		webhooks.Route("/webhooks/twilio", func(r chi.Router) {
			if cfg.CallStatus != nil {
				r.Post("/call-status", cfg.CallStatus.Handle)
			}
			if cfg.SmsStatus != nil {
				r.Post("/sms-status", cfg.SmsStatus.Handle)
			}
			if cfg.SmsReply != nil {
				r.Post("/sms-reply", cfg.SmsReply.Handle)
			}
		})

		// Deprecated webhook URLs still configured on old provider numbers.
		if cfg.LegacyProxy != nil {
			webhooks.Post("/twilio/voice-status", cfg.LegacyProxy.Forward("/webhooks/twilio/call-status"))
			webhooks.Post("/twilio/sms-status", cfg.LegacyProxy.Forward("/webhooks/twilio/sms-status"))
			webhooks.Post("/twilio/incoming-sms", cfg.LegacyProxy.Forward("/webhooks/twilio/sms-reply"))
		}
	})

	// Internal webhook-to-webhook endpoints.
	if cfg.InternalDispatch != nil {
		r.Group(func(internal chi.Router) {
			internal.Use(httpmiddleware.InternalAuth(cfg.InternalSecret))
			internal.Post("/internal/outreach/dispatch", cfg.InternalDispatch.Handle)
		})
	}

	return r
}
