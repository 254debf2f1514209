package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/internal/core/services"
	"github.com/vopenia-io/meet/internal/infrastructure/middleware"
	"github.com/vopenia-io/meet/internal/infrastructure/monitoring"
	"github.com/vopenia-io/meet/pkg/config"
	"github.com/vopenia-io/meet/pkg/logger"
)

type RouterDeps struct {
	Config   *config.Config
	Rooms    ports.RoomService
	Lobby    ports.LobbyService
	Webhooks ports.WebhookService
	// Recordings may be nil when recording is disabled.
	Recordings ports.RecordingService
	Auth       services.AuthService
	Health     *monitoring.HealthChecker
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	sugar := deps.Logger.Sugar()

	contextLogger := logger.NewContextLogger(deps.Logger)

	router := gin.New()
	if err := router.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		sugar.Warnw("invalid trusted proxies, trusting none",
			"proxies", deps.Config.Server.TrustedProxies,
			"error", err,
		)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		middleware.RecoveryMiddleware(sugar),
		middleware.RequestLoggerMiddleware(contextLogger),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(contextLogger),
	)

	health := NewHealthHandler(deps.Health)
	router.GET("/health", health.Live)
	router.GET("/ready", health.Ready)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	rooms := NewRoomHandler(deps.Rooms)
	cookie := NewParticipantCookie(deps.Config.Lobby.CookieName, deps.Config.Lobby.CookieSecret)
	lobby := NewLobbyHandler(rooms, deps.Lobby, cookie, sugar)
	webhooks := NewWebhookHandler(deps.Webhooks)
	recordings := NewRecordingHandler(rooms, deps.Recordings, deps.Config.Recording.Enabled)

	requireAuth := middleware.AuthMiddleware(deps.Auth)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.Auth)

	api := router.Group("/api/v1")
	{
		api.POST("/rooms/webhooks-livekit", webhooks.Receive)

		api.POST("/rooms", requireAuth, rooms.CreateRoom)
		api.GET("/rooms/:id", optionalAuth, rooms.GetRoom)
		api.POST("/rooms/:id/request-entry",
			middleware.NewHTTPRateLimitMiddleware(deps.Config),
			optionalAuth,
			lobby.RequestEntry,
		)
		api.POST("/rooms/:id/enter", requireAuth, lobby.Enter)
		api.GET("/rooms/:id/waiting-participants", requireAuth, lobby.WaitingParticipants)
		api.POST("/rooms/:id/start-recording", requireAuth, recordings.StartRecording)
		api.POST("/rooms/:id/stop-recording", requireAuth, recordings.StopRecording)
	}

	return router
}
