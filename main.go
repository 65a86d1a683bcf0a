package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	accountsrepo "coldwatch/internal/accounts/infrastructure/postgres"
	accountshttp "coldwatch/internal/accounts/interfaces/http"
	"coldwatch/internal/auth"
	"coldwatch/internal/chatbot"
	"coldwatch/internal/config"
	"coldwatch/internal/device"
	"coldwatch/internal/log"
	"coldwatch/internal/mqttingest"
	"coldwatch/internal/notify"
	"coldwatch/internal/observability/metrics"
	"coldwatch/internal/sensors/catalog"
	sensorsrepo "coldwatch/internal/sensors/infrastructure/postgres"
	sensorshttp "coldwatch/internal/sensors/interfaces/http"
	telemetryapp "coldwatch/internal/telemetry/application"
	telemetryrepo "coldwatch/internal/telemetry/infrastructure/postgres"
	telemetryhttp "coldwatch/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	logger := log.GetInstance()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}

	metrics.Init(db)

	userRepo := accountsrepo.NewUserRepository(db)
	sensorRepo := sensorsrepo.NewSensorRepository(db)
	measurementRepo := telemetryrepo.NewMeasurementRepository(db)

	deviceCatalog, err := catalog.Load(cfg.DeviceCatalogPath)
	if err != nil {
		logger.Fatal("device catalog error", zap.Error(err))
	}

	var channel notify.Channel
	if cfg.WhatsAppAPIURL != "" {
		whatsapp, err := notify.NewWhatsAppChannel(cfg.WhatsAppAPIURL, cfg.WhatsAppInstanceID, cfg.WhatsAppToken)
		if err != nil {
			logger.Fatal("whatsapp channel error", zap.Error(err))
		}
		channel = whatsapp
	} else {
		logger.Warn("WHATSAPP_API_URL not set, chat notifications disabled")
		channel = notify.NopChannel{}
	}

	charts, err := notify.NewChartClient(cfg.ChartAPIURL)
	if err != nil {
		logger.Fatal("chart client error", zap.Error(err))
	}

	ingestService, err := telemetryapp.NewIngestService(sensorRepo, userRepo, measurementRepo, channel, logger,
		telemetryapp.WithCooldown(cfg.AlertCooldown),
	)
	if err != nil {
		logger.Fatal("ingest service error", zap.Error(err))
	}

	responder, err := chatbot.NewResponder(userRepo, sensorRepo, measurementRepo, channel, charts, logger)
	if err != nil {
		logger.Fatal("responder error", zap.Error(err))
	}
	webhookHandler, err := chatbot.NewWebhookHandler(responder, logger)
	if err != nil {
		logger.Fatal("webhook handler error", zap.Error(err))
	}

	accountHandler, err := accountshttp.NewHandler(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL, logger)
	if err != nil {
		logger.Fatal("account handler error", zap.Error(err))
	}
	sensorHandler, err := sensorshttp.NewHandler(sensorRepo, deviceCatalog, logger)
	if err != nil {
		logger.Fatal("sensor handler error", zap.Error(err))
	}
	telemetryHandler, err := telemetryhttp.NewHandler(ingestService, sensorRepo, measurementRepo, logger)
	if err != nil {
		logger.Fatal("telemetry handler error", zap.Error(err))
	}

	heartbeatStore := device.NewSnapshotStore()
	deviceHandler, err := device.NewHandler(heartbeatStore, logger)
	if err != nil {
		logger.Fatal("device handler error", zap.Error(err))
	}

	if cfg.MQTTBroker != "" {
		subscriber, err := mqttingest.NewSubscriber(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, ingestService, logger)
		if err != nil {
			logger.Fatal("mqtt ingest error", zap.Error(err))
		}
		defer subscriber.Close()
		if err := subscriber.Start(context.Background()); err != nil {
			logger.Fatal("mqtt subscribe error", zap.Error(err))
		}
	}

	policy := auth.NewDefaultPolicy([]string{
		"/healthz",
		"/metrics",
		"/api/data",
		"/api/webhook/whatsapp",
		"/api/auth/register",
		"/api/auth/login",
		"/api/device/heartbeat",
	}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/data", telemetryHandler)
	mux.Handle("/api/latest", telemetryHandler)
	mux.Handle("/api/history", telemetryHandler)
	mux.Handle("/api/history/", telemetryHandler)
	mux.Handle("/api/webhook/whatsapp", webhookHandler)
	mux.Handle("/api/auth/register", accountHandler)
	mux.Handle("/api/auth/login", accountHandler)
	mux.Handle("/api/auth/profile", accountHandler)
	mux.Handle("/api/sensors/config", sensorHandler)
	mux.Handle("/api/sensors/ids", sensorHandler)
	mux.Handle("/api/sensors/", sensorHandler)
	mux.Handle("/api/device/status", deviceHandler)
	mux.Handle("/api/device/heartbeat", deviceHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("coldwatch listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.Duration("alert_cooldown", cfg.AlertCooldown),
	)
	logger.Fatal("http server stopped", zap.Error(server.ListenAndServe()))
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
