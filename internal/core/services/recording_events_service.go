package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

var limitReachedNotifications = map[domain.RecordingMode]string{
	domain.ModeScreenRecording: "screenRecordingLimitReached",
	domain.ModeTranscript:      "transcriptionLimitReached",
}

type recordingEventsService struct {
	recordings ports.RecordingRepository
	notifier   ports.Notifier
	logger     *zap.SugaredLogger
}

func NewRecordingEventsService(recordings ports.RecordingRepository, notifier ports.Notifier, logger *zap.SugaredLogger) ports.RecordingEventsService {
	return &recordingEventsService{
		recordings: recordings,
		notifier:   notifier,
		logger:     logger,
	}
}

// HandleLimitReached stops the recording and tells the room. A failed
// notification is reported but the stop is kept.
func (s *recordingEventsService) HandleLimitReached(ctx context.Context, recording *domain.Recording) error {
	recording.Status = domain.RecordingStopped
	recording.UpdatedAt = time.Now()
	if err := s.recordings.Update(ctx, recording); err != nil {
		return fmt.Errorf("%w: failed to stop recording %s: %w", domain.ErrRecordingEvents, recording.ID, err)
	}

	notificationType, ok := limitReachedNotifications[recording.Mode]
	if !ok {
		return nil
	}

	roomName := recording.RoomID.String()
	payload := map[string]string{"type": notificationType}
	if err := s.notifier.Notify(ctx, roomName, payload, domain.NotifyStrict); err != nil {
		s.logger.Errorw("failed to notify participants about recording limit reached",
			"room_id", recording.RoomID,
			"recording_id", recording.ID,
			"mode", recording.Mode,
			"error", err,
		)
		return fmt.Errorf("%w: failed to notify participants in room '%s' about recording limit reached (recording_id=%s): %w",
			domain.ErrRecordingEvents, recording.RoomID, recording.ID, err)
	}
	return nil
}
