package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

type recordingService struct {
	recordings ports.RecordingRepository
	egress     ports.EgressClient
	logger     *zap.SugaredLogger
}

// NewRecordingService drives room recordings through the media server egress
// API and keeps their status in the recording repository.
func NewRecordingService(recordings ports.RecordingRepository, egress ports.EgressClient, logger *zap.SugaredLogger) ports.RecordingService {
	return &recordingService{
		recordings: recordings,
		egress:     egress,
		logger:     logger,
	}
}

func (s *recordingService) StartRecording(ctx context.Context, room *domain.Room, mode domain.RecordingMode) (*domain.Recording, error) {
	existing, err := s.recordings.ListByRoomID(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room recordings: %w", err)
	}
	for _, recording := range existing {
		if recording.InProgress() {
			return nil, domain.ErrRecordingInProgress
		}
	}

	recording := &domain.Recording{
		ID:        uuid.New(),
		RoomID:    room.ID,
		Mode:      mode,
		Status:    domain.RecordingInitiated,
		UpdatedAt: time.Now(),
	}
	if err := s.recordings.Create(ctx, recording); err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	egressID, err := s.egress.StartRoomComposite(ctx, room.ID.String(), recording.ID.String(), mode == domain.ModeTranscript)
	if err != nil {
		s.logger.Errorw("failed to start recording",
			"room_id", room.ID,
			"recording_id", recording.ID,
			"mode", mode,
			"error", err,
		)
		s.setStatus(ctx, recording, domain.RecordingFailedToStart)
		return nil, fmt.Errorf("%w: room %s: %w", domain.ErrRecordingStart, room.ID, err)
	}

	recording.WorkerID = egressID
	recording.Status = domain.RecordingActive
	recording.UpdatedAt = time.Now()
	if err := s.recordings.Update(ctx, recording); err != nil {
		return nil, fmt.Errorf("failed to activate recording %s: %w", recording.ID, err)
	}

	s.logger.Infow("recording started",
		"room_id", room.ID,
		"recording_id", recording.ID,
		"worker_id", egressID,
		"mode", mode,
	)
	return recording, nil
}

// StopRecording stops the active recording of the room. An initiated
// recording has no worker yet and cannot be stopped.
func (s *recordingService) StopRecording(ctx context.Context, room *domain.Room) (*domain.Recording, error) {
	existing, err := s.recordings.ListByRoomID(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room recordings: %w", err)
	}

	var recording *domain.Recording
	for _, candidate := range existing {
		if candidate.Status == domain.RecordingActive {
			recording = candidate
			break
		}
	}
	if recording == nil {
		return nil, domain.ErrNoActiveRecording
	}

	status, err := s.egress.StopEgress(ctx, recording.WorkerID)
	if err != nil {
		s.logger.Errorw("failed to stop recording",
			"room_id", room.ID,
			"recording_id", recording.ID,
			"worker_id", recording.WorkerID,
			"error", err,
		)
		s.setStatus(ctx, recording, domain.RecordingFailedToStop)
		return nil, fmt.Errorf("%w: room %s: %w", domain.ErrRecordingStop, room.ID, err)
	}

	recording.Status = status
	recording.UpdatedAt = time.Now()
	if err := s.recordings.Update(ctx, recording); err != nil {
		return nil, fmt.Errorf("failed to update recording %s: %w", recording.ID, err)
	}
	if status == domain.RecordingFailedToStop {
		return nil, fmt.Errorf("%w: room %s: worker %s kept running", domain.ErrRecordingStop, room.ID, recording.WorkerID)
	}

	s.logger.Infow("recording stopped",
		"room_id", room.ID,
		"recording_id", recording.ID,
		"status", status,
	)
	return recording, nil
}

// setStatus records a failure status; the caller already reports the
// original error.
func (s *recordingService) setStatus(ctx context.Context, recording *domain.Recording, status domain.RecordingStatus) {
	recording.Status = status
	recording.UpdatedAt = time.Now()
	if err := s.recordings.Update(ctx, recording); err != nil {
		s.logger.Warnw("failed to persist recording status",
			"recording_id", recording.ID,
			"status", status,
			"error", err,
		)
	}
}
