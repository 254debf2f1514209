package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/webhook"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	apperrors "github.com/vopenia-io/meet/pkg/errors"
	"github.com/vopenia-io/meet/pkg/tracing"
)

type WebhookConfig struct {
	// APIKeys maps media server api keys to their secrets.
	APIKeys          map[string]string
	TelephonyEnabled bool
}

type webhookHandler func(ctx context.Context, event *livekit.WebhookEvent) error

type webhookService struct {
	cfg             WebhookConfig
	keys            auth.KeyProvider
	lobby           ports.LobbyService
	telephony       ports.TelephonyService
	recordingEvents ports.RecordingEventsService
	rooms           ports.RoomRepository
	recordings      ports.RecordingRepository
	metrics         ports.MetricsRecorder
	logger          *zap.SugaredLogger

	handlers  map[domain.WebhookEventType]webhookHandler
	unmarshal protojson.UnmarshalOptions
}

func NewWebhookService(
	cfg WebhookConfig,
	lobby ports.LobbyService,
	telephony ports.TelephonyService,
	recordingEvents ports.RecordingEventsService,
	rooms ports.RoomRepository,
	recordings ports.RecordingRepository,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.WebhookService {
	s := &webhookService{
		cfg:             cfg,
		keys:            auth.NewFileBasedKeyProviderFromMap(cfg.APIKeys),
		lobby:           lobby,
		telephony:       telephony,
		recordingEvents: recordingEvents,
		rooms:           rooms,
		recordings:      recordings,
		metrics:         metricsOrNop(metrics),
		logger:          logger,
		unmarshal:       protojson.UnmarshalOptions{DiscardUnknown: true},
	}
	s.handlers = map[domain.WebhookEventType]webhookHandler{
		domain.EventRoomStarted:  s.handleRoomStarted,
		domain.EventRoomFinished: s.handleRoomFinished,
		domain.EventEgressEnded:  s.handleEgressEnded,
	}
	return s
}

func (s *webhookService) Receive(ctx context.Context, authHeader string, body []byte) error {
	if authHeader == "" {
		return apperrors.NewAuthenticationError("Authorization header missing")
	}

	if err := s.verify(ctx, authHeader, body); err != nil {
		s.logger.Warnw("rejected webhook", "error", err)
		return apperrors.NewInvalidPayloadError("Invalid webhook payload", err)
	}

	var event livekit.WebhookEvent
	if err := s.unmarshal.Unmarshal(body, &event); err != nil {
		return apperrors.NewInvalidPayloadError("Invalid webhook payload", err)
	}

	eventType, ok := domain.ParseWebhookEventType(event.GetEvent())
	if !ok {
		s.metrics.WebhookEvent("unsupported", nil)
		return apperrors.NewUnsupportedEventTypeError(event.GetEvent())
	}

	handler, ok := s.handlers[eventType]
	if !ok {
		s.metrics.WebhookEvent(string(eventType), nil)
		return nil
	}

	ctx, span := tracing.TraceWebhookEvent(ctx, string(eventType))
	defer span.End()

	err := handler(ctx, &event)
	s.metrics.WebhookEvent(string(eventType), err)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Errorw("webhook handler failed",
			"event", eventType,
			"error", err,
		)
	}
	return err
}

// verify checks the delivery token against the configured api keys and the
// body checksum it carries.
func (s *webhookService) verify(ctx context.Context, authHeader string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))

	if _, err := webhook.Receive(req, s.keys); err != nil {
		return fmt.Errorf("invalid webhook token: %w", err)
	}
	return nil
}

func (s *webhookService) parseRoomID(event *livekit.WebhookEvent, action string) (uuid.UUID, error) {
	name := event.GetRoom().GetName()
	roomID, err := uuid.Parse(name)
	if err != nil {
		s.logger.Warnw("ignoring room event: room name is not a valid UUID",
			"room_name", name,
			"event", event.GetEvent(),
		)
		return uuid.Nil, apperrors.NewActionFailedError(fmt.Sprintf("Failed to process room %s event", action), err)
	}
	return roomID, nil
}

func (s *webhookService) handleRoomStarted(ctx context.Context, event *livekit.WebhookEvent) error {
	roomID, err := s.parseRoomID(event, "started")
	if err != nil {
		return err
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return apperrors.NewActionFailedError(fmt.Sprintf("Room with ID %s does not exist", roomID), err)
		}
		return apperrors.NewActionFailedError(fmt.Sprintf("Failed to load room %s", roomID), err)
	}

	if !s.cfg.TelephonyEnabled {
		return nil
	}
	if err := s.telephony.CreateDispatchRule(ctx, room); err != nil {
		return apperrors.NewActionFailedError(fmt.Sprintf("Failed to create telephony dispatch rule for room %s", roomID), err)
	}
	return nil
}

func (s *webhookService) handleRoomFinished(ctx context.Context, event *livekit.WebhookEvent) error {
	roomID, err := s.parseRoomID(event, "finished")
	if err != nil {
		return err
	}

	if s.cfg.TelephonyEnabled {
		if _, err := s.telephony.DeleteDispatchRule(ctx, roomID); err != nil {
			return apperrors.NewActionFailedError(fmt.Sprintf("Failed to delete telephony dispatch rule for room %s", roomID), err)
		}
	}

	if err := s.lobby.ClearRoomCache(ctx, roomID); err != nil {
		return apperrors.NewActionFailedError(fmt.Sprintf("Failed to clear room cache for room %s", roomID), err)
	}
	return nil
}

func (s *webhookService) handleEgressEnded(ctx context.Context, event *livekit.WebhookEvent) error {
	egress := event.GetEgressInfo()
	workerID := egress.GetEgressId()
	tracing.AddSpanAttributes(ctx, tracing.WorkerIDKey.String(workerID))

	recording, err := s.recordings.GetByWorkerID(ctx, workerID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordingNotFound) {
			return apperrors.NewActionFailedError(fmt.Sprintf("Recording with worker ID %s does not exist", workerID), err)
		}
		return apperrors.NewActionFailedError(fmt.Sprintf("Failed to load recording with worker ID %s", workerID), err)
	}

	if egress.GetStatus() != livekit.EgressStatus_EGRESS_LIMIT_REACHED || recording.Status != domain.RecordingActive {
		return nil
	}

	if err := s.recordingEvents.HandleLimitReached(ctx, recording); err != nil {
		return apperrors.NewActionFailedError(fmt.Sprintf("Failed to process limit reached event for recording %s", recording.ID), err)
	}
	return nil
}
