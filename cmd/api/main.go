package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/relaydesk/telephony/internal/api/router"
	appconfig "github.com/relaydesk/telephony/internal/config"
	"github.com/relaydesk/telephony/internal/consent"
	"github.com/relaydesk/telephony/internal/http/handlers"
	"github.com/relaydesk/telephony/internal/observability/metrics"
	"github.com/relaydesk/telephony/internal/outreach"
	"github.com/relaydesk/telephony/internal/telephony"
	"github.com/relaydesk/telephony/internal/twilio"
	"github.com/relaydesk/telephony/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telephony service",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	} else {
		logger.Info("redis not configured, consent lookups go straight to postgres")
	}

	telemetry := metrics.NewTelephonyMetrics(nil)

	callStore := telephony.NewStore(pool)
	outreachStore := outreach.NewStore(pool)
	consentStore := consent.NewCache(consent.NewLedger(pool), redisClient, logger)

	twilioClient := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, logger)

	whatsappSender := outreach.NewTwilioSender(outreach.SenderConfig{
		Channel:             outreach.ChannelWhatsApp,
		Client:              twilioClient,
		Store:               outreachStore,
		From:                cfg.TwilioWhatsAppFrom,
		MessagingServiceSid: cfg.TwilioMessagingServiceSID,
		ContentSid:          cfg.TwilioContentSID,
		BookingURL:          cfg.BookingURL,
		Logger:              logger,
		Metrics:             telemetry,
	})
	smsSender := outreach.NewTwilioSender(outreach.SenderConfig{
		Channel:             outreach.ChannelSMS,
		Client:              twilioClient,
		Store:               outreachStore,
		From:                cfg.TwilioSMSFrom,
		MessagingServiceSid: cfg.TwilioMessagingServiceSID,
		BookingURL:          cfg.BookingURL,
		Logger:              logger,
		Metrics:             telemetry,
	})

	dispatcher := outreach.NewDispatcher(outreach.DispatcherConfig{
		Primary:  whatsappSender,
		Fallback: smsSender,
		Consent:  consentStore,
		Logger:   logger,
		Metrics:  telemetry,
	})

	// Legacy aliases replay against this service itself unless an explicit
	// public base URL is configured.
	legacyUpstream := cfg.PublicBaseURL
	if legacyUpstream == "" {
		legacyUpstream = "http://127.0.0.1:" + cfg.Port
	}

	r := router.New(&router.Config{
		Logger: logger,
		CallStatus: handlers.NewCallStatusHandler(handlers.CallStatusConfig{
			Store:      callStore,
			Dispatcher: dispatcher,
			AuthToken:  cfg.TwilioAuthToken,
			Logger:     logger,
			Metrics:    telemetry,
		}),
		SmsStatus: handlers.NewSmsStatusHandler(handlers.SmsStatusConfig{
			Store:     callStore,
			AuthToken: cfg.TwilioAuthToken,
			Logger:    logger,
			Metrics:   telemetry,
		}),
		SmsReply: handlers.NewSmsReplyHandler(handlers.SmsReplyConfig{
			Consent:   consentStore,
			AuthToken: cfg.TwilioAuthToken,
			Logger:    logger,
			Metrics:   telemetry,
		}),
		InternalDispatch: handlers.NewInternalDispatchHandler(dispatcher, logger),
		LegacyProxy:      handlers.NewLegacyProxy(legacyUpstream, logger),
		InternalSecret:   cfg.InternalWebhookSecret,
		WebhookRate:      cfg.WebhookRate,
		WebhookBurst:     cfg.WebhookBurst,
		MetricsHandler:   promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
