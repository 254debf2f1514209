package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/internal/core/services"
	httphandlers "github.com/vopenia-io/meet/internal/handlers/http"
	"github.com/vopenia-io/meet/internal/infrastructure/monitoring"
	"github.com/vopenia-io/meet/internal/infrastructure/reliability"
	repositories "github.com/vopenia-io/meet/internal/infrastructure/repositories"
	"github.com/vopenia-io/meet/internal/infrastructure/rtc"
	"github.com/vopenia-io/meet/pkg/circuitbreaker"
	"github.com/vopenia-io/meet/pkg/config"
	"github.com/vopenia-io/meet/pkg/logger"
	"github.com/vopenia-io/meet/pkg/tracing"
)

func main() {
	configPaths := []string{
		os.Getenv("MEET_CONFIG"),
		"configs/config.yaml",
		"/etc/meet/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error
	for _, path := range configPaths {
		if path == "" {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err = config.Load(path)
		break
	}
	if cfg == nil && err == nil {
		// no file found: defaults plus environment
		cfg, err = config.Load("")
	}

	zapLogger := logger.New(levelOrInfo(cfg), formatOrJSON(cfg))
	defer func() { _ = zapLogger.Sync() }()
	log := zapLogger.Sugar()

	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	store := repoFactory.CreateKeyStore()
	roomRepo := repoFactory.CreateRoomRepository()
	recordingRepo := repoFactory.CreateRecordingRepository()

	collector := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)

	breakerCfg := circuitbreaker.Config{
		FailureThreshold:    cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold:    cfg.CircuitBreaker.SuccessThreshold,
		Timeout:             cfg.CircuitBreaker.Timeout,
		MaxRequestsHalfOpen: cfg.CircuitBreaker.MaxRequestsHalfOpen,
	}
	rtcCfg := rtc.Config{
		URL:       cfg.LiveKit.URL,
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
	}
	roomClient := reliability.NewRoomSessionClientWrapper(
		rtc.NewRoomSessionClient(rtcCfg), breakerCfg, log, collector.BreakerStateChanged,
	)
	sipClient := reliability.NewSIPClientWrapper(
		rtc.NewSIPClient(rtcCfg), breakerCfg, log, collector.BreakerStateChanged,
	)

	sessions, err := services.NewSessionConfigGenerator(services.SessionConfig{
		URL:       cfg.LiveKit.URL,
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
		TokenTTL:  cfg.LiveKit.TokenTTL,
	})
	if err != nil {
		log.Fatalw("failed to create session config generator", "error", err)
	}

	notifier := services.NewNotifier(roomClient, cfg.LiveKit.RequestTimeout, collector, log)
	lobbyService := services.NewLobbyService(store, sessions, notifier, services.LobbyConfig{
		KeyPrefix:        cfg.Lobby.KeyPrefix,
		WaitingTimeout:   cfg.Lobby.WaitingTimeout,
		AcceptedTimeout:  cfg.Lobby.AcceptedTimeout,
		DeniedTimeout:    cfg.Lobby.DeniedTimeout,
		NotificationType: cfg.Lobby.NotificationType,
	}, collector, log)
	telephonyService := services.NewTelephonyService(sipClient, log)
	recordingEvents := services.NewRecordingEventsService(recordingRepo, notifier, log)
	webhookService := services.NewWebhookService(
		services.WebhookConfig{
			APIKeys:          map[string]string{cfg.LiveKit.APIKey: cfg.LiveKit.APISecret},
			TelephonyEnabled: cfg.Telephony.Enabled,
		},
		lobbyService,
		telephonyService,
		recordingEvents,
		roomRepo,
		recordingRepo,
		collector,
		log,
	)
	var recordingService ports.RecordingService
	if cfg.Recording.Enabled {
		storage := cfg.Recording.Storage
		egressClient := reliability.NewEgressClientWrapper(
			rtc.NewEgressClient(rtcCfg, rtc.EgressOutput{
				Folder:         cfg.Recording.OutputFolder,
				Bucket:         storage.Bucket,
				Region:         storage.Region,
				Endpoint:       storage.Endpoint,
				AccessKey:      storage.AccessKey,
				Secret:         storage.Secret,
				ForcePathStyle: storage.ForcePathStyle,
			}),
			breakerCfg, log, collector.BreakerStateChanged,
		)
		recordingService = services.NewRecordingService(recordingRepo, egressClient, log)
	}
	roomService := services.NewRoomService(roomRepo)
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	health := monitoring.NewHealthChecker()
	health.AddKeyStoreCheck(store, 2*time.Second)
	health.AddRepositoryCheck(repoFactory.HealthCheck, 2*time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := httphandlers.RouterDeps{
		Config:     cfg,
		Rooms:      roomService,
		Lobby:      lobbyService,
		Webhooks:   webhookService,
		Recordings: recordingService,
		Auth:       authService,
		Health:     health,
		Logger:     zapLogger,
	}
	if cfg.Monitoring.PrometheusEnabled {
		deps.Gatherer = prometheus.DefaultGatherer
		log.Info("Prometheus metrics enabled")
	}
	router := httphandlers.NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting meet server",
			"address", cfg.Server.Address,
			"redis", repoFactory.UsesRedis(),
			"telephony", cfg.Telephony.Enabled,
			"recording", cfg.Recording.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error flushing traces", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}

	log.Info("meet server stopped")
}

func levelOrInfo(cfg *config.Config) string {
	if cfg == nil {
		return "info"
	}
	return cfg.Logging.Level
}

func formatOrJSON(cfg *config.Config) string {
	if cfg == nil {
		return "json"
	}
	return cfg.Logging.Format
}
