package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadbridge-au/leadbridge/cmd/mainconfig"
	"github.com/leadbridge-au/leadbridge/internal/api/router"
	"github.com/leadbridge-au/leadbridge/internal/callevents"
	appconfig "github.com/leadbridge-au/leadbridge/internal/config"
	"github.com/leadbridge-au/leadbridge/internal/http/handlers"
	"github.com/leadbridge-au/leadbridge/internal/leads"
	"github.com/leadbridge-au/leadbridge/internal/notify"
	"github.com/leadbridge-au/leadbridge/internal/observability/metrics"
	"github.com/leadbridge-au/leadbridge/internal/voice"
	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadbridge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.PublicBaseURL == "" {
		logger.Warn("PUBLIC_BASE_URL is not set; provider webhook URLs will be unreachable")
	}

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	leadStore := leads.NewDynamoStore(dynamoClient, cfg.LeadsTable, logger)
	eventStore := callevents.NewDynamoStore(dynamoClient, cfg.CallEventsTable, logger)

	twilioClient, err := voice.NewTwilioClient(voice.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to configure voice provider", "error", err)
		os.Exit(1)
	}

	var alerter notify.Alerter
	if cfg.AlertsEnabled {
		if a := notify.NewSESAlerter(sesv2.NewFromConfig(awsCfg), cfg.AlertsFromEmail, cfg.AlertsToEmail, logger); a != nil {
			alerter = a
		} else {
			logger.Warn("ops alerts enabled but from/to addresses missing; alerts disabled")
		}
	}

	registry := prometheus.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(registry)

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Leads:           leadStore,
		Events:          eventStore,
		Caller:          twilioClient,
		Alerter:         alerter,
		CallbackBaseURL: cfg.PublicBaseURL,
		CallTimeout:     cfg.CallTimeout,
		Metrics:         relayMetrics,
		Logger:          logger,
	})

	leadHandler := handlers.NewLeadHandler(dispatcher, logger)
	webhookHandler := handlers.NewTwilioWebhookHandler(handlers.TwilioWebhookConfig{
		TwiML:     twilioClient,
		Leads:     leadStore,
		Events:    eventStore,
		AuthToken: cfg.TwilioAuthToken,
		Logger:    logger,
		Metrics:   relayMetrics,
	})
	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.VoiceProvider)

	r := router.New(&router.Config{
		Logger:             logger,
		LeadHandler:        leadHandler,
		TwilioWebhooks:     webhookHandler,
		HealthHandler:      healthHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
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
	fmt.Println("Server exited gracefully")
}
