package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/tracing"
	"github.com/vopenia-io/meet/pkg/utils"
)

type LobbyConfig struct {
	KeyPrefix        string
	WaitingTimeout   time.Duration
	AcceptedTimeout  time.Duration
	DeniedTimeout    time.Duration
	NotificationType string
}

type lobbyService struct {
	store    ports.KeyStore
	sessions ports.SessionConfigGenerator
	notifier ports.Notifier
	metrics  ports.MetricsRecorder
	cfg      LobbyConfig
	logger   *zap.SugaredLogger
}

// NewLobbyService builds the waiting-room state machine. All state lives in
// store; the service itself holds none and takes no locks, so concurrent
// writers for the same participant resolve last-write-wins.
func NewLobbyService(
	store ports.KeyStore,
	sessions ports.SessionConfigGenerator,
	notifier ports.Notifier,
	cfg LobbyConfig,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.LobbyService {
	return &lobbyService{
		store:    store,
		sessions: sessions,
		notifier: notifier,
		metrics:  metricsOrNop(metrics),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *lobbyService) cacheKey(roomID uuid.UUID, participantID string) string {
	return fmt.Sprintf("%s_%s_%s", s.cfg.KeyPrefix, roomID, participantID)
}

func (s *lobbyService) roomPrefix(roomID uuid.UUID) string {
	return s.cacheKey(roomID, "")
}

func (s *lobbyService) RequestEntry(
	ctx context.Context,
	room *domain.Room,
	principal domain.Principal,
	participantID, username string,
) (*domain.Participant, *domain.LiveSessionConfig, error) {
	if participantID == "" {
		participantID = utils.GenerateParticipantID()
	}

	ctx, span := tracing.TraceLobbyOperation(ctx, "request_entry", room.ID.String(), participantID)
	defer span.End()

	participant, err := s.getParticipant(ctx, room.ID, participantID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, nil, err
	}

	if CanBypassLobby(room, principal.IsAuthenticated()) {
		if participant == nil {
			participant = &domain.Participant{
				ID:       participantID,
				Username: username,
				Status:   domain.StatusAccepted,
				Color:    utils.GenerateColor(participantID),
			}
		} else {
			// returned only; the stored entry is left to expire on its own
			participant.Status = domain.StatusAccepted
		}

		session, err := s.sessions.Generate(room.ID.String(), principal, username, participant.Color)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate session config: %w", err)
		}
		s.metrics.LobbyEntry(OutcomeBypass)
		return participant, session, nil
	}

	var session *domain.LiveSessionConfig
	switch {
	case participant == nil:
		participant, err = s.Enter(ctx, room.ID, participantID, username)
		if err != nil {
			return nil, nil, err
		}
		s.metrics.LobbyEntry(OutcomeWaiting)

	case participant.Status == domain.StatusWaiting:
		if err := s.RefreshWaitingStatus(ctx, room.ID, participantID); err != nil {
			return nil, nil, err
		}
		s.metrics.LobbyEntry(OutcomeWaiting)

	case participant.Status == domain.StatusAccepted:
		session, err = s.sessions.Generate(room.ID.String(), principal, username, participant.Color)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate session config: %w", err)
		}
		s.metrics.LobbyEntry(OutcomeAccepted)

	case participant.Status == domain.StatusDenied:
		s.metrics.LobbyEntry(OutcomeDenied)
	}

	return participant, session, nil
}

func (s *lobbyService) Enter(ctx context.Context, roomID uuid.UUID, participantID, username string) (*domain.Participant, error) {
	participant := &domain.Participant{
		ID:       participantID,
		Username: username,
		Status:   domain.StatusWaiting,
		Color:    utils.GenerateColor(participantID),
	}

	// the room may not be live yet; a waiting entry is recorded either way
	if err := s.NotifyParticipants(ctx, roomID, domain.NotifyBestEffort); err != nil {
		s.logger.Warnw("lobby notification failed",
			"room_id", roomID,
			"participant_id", participantID,
			"error", err,
		)
	}

	data, err := domain.EncodeParticipant(participant)
	if err != nil {
		return nil, fmt.Errorf("failed to encode participant: %w", err)
	}
	if err := s.store.Set(ctx, s.cacheKey(roomID, participantID), data, s.cfg.WaitingTimeout); err != nil {
		return nil, fmt.Errorf("failed to store waiting participant: %w", err)
	}

	s.logger.Infow("participant entered lobby",
		"room_id", roomID,
		"participant_id", participantID,
	)
	return participant, nil
}

// RefreshWaitingStatus keeps a polling participant in the queue. An entry
// that already expired is not recreated.
func (s *lobbyService) RefreshWaitingStatus(ctx context.Context, roomID uuid.UUID, participantID string) error {
	if _, err := s.store.Touch(ctx, s.cacheKey(roomID, participantID), s.cfg.WaitingTimeout); err != nil {
		return fmt.Errorf("failed to refresh waiting status: %w", err)
	}
	return nil
}

func (s *lobbyService) ListWaitingParticipants(ctx context.Context, roomID uuid.UUID) ([]*domain.Participant, error) {
	ctx, span := tracing.TraceLobbyOperation(ctx, "list_waiting", roomID.String(), "")
	defer span.End()

	keys, err := s.store.ScanPrefix(ctx, s.roomPrefix(roomID))
	if err != nil {
		return nil, fmt.Errorf("failed to list lobby entries: %w", err)
	}

	waiting := []*domain.Participant{}
	if len(keys) == 0 {
		return waiting, nil
	}

	values, err := s.store.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load lobby entries: %w", err)
	}

	for key, data := range values {
		participant, err := domain.DecodeParticipant(data)
		if err != nil {
			s.purgeCorrupted(ctx, key, err)
			continue
		}
		if participant.Status == domain.StatusWaiting {
			waiting = append(waiting, participant)
		}
	}

	return waiting, nil
}

func (s *lobbyService) HandleParticipantEntry(ctx context.Context, roomID uuid.UUID, participantID string, allow bool) error {
	ctx, span := tracing.TraceLobbyOperation(ctx, "handle_entry", roomID.String(), participantID)
	defer span.End()

	status, ttl := domain.StatusDenied, s.cfg.DeniedTimeout
	if allow {
		status, ttl = domain.StatusAccepted, s.cfg.AcceptedTimeout
	}

	key := s.cacheKey(roomID, participantID)
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		s.logger.Errorw("participant not found",
			"room_id", roomID,
			"participant_id", participantID,
		)
		return domain.ErrParticipantNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load participant: %w", err)
	}

	participant, err := domain.DecodeParticipant(data)
	if err != nil {
		s.purgeCorrupted(ctx, key, err)
		return &domain.ParsingError{Key: key, Cause: err}
	}

	participant.Status = status
	encoded, err := domain.EncodeParticipant(participant)
	if err != nil {
		return fmt.Errorf("failed to encode participant: %w", err)
	}
	if err := s.store.Set(ctx, key, encoded, ttl); err != nil {
		return fmt.Errorf("failed to store participant decision: %w", err)
	}

	s.metrics.EntryDecision(allow)
	s.logger.Infow("lobby entry decided",
		"room_id", roomID,
		"participant_id", participantID,
		"status", status,
	)
	return nil
}

func (s *lobbyService) ClearRoomCache(ctx context.Context, roomID uuid.UUID) error {
	ctx, span := tracing.TraceLobbyOperation(ctx, "clear_room_cache", roomID.String(), "")
	defer span.End()

	keys, err := s.store.ScanPrefix(ctx, s.roomPrefix(roomID))
	if err != nil {
		return fmt.Errorf("failed to list lobby entries: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.store.DeleteMany(ctx, keys); err != nil {
		return fmt.Errorf("failed to clear lobby entries: %w", err)
	}

	s.logger.Infow("lobby cleared", "room_id", roomID, "entries", len(keys))
	return nil
}

func (s *lobbyService) NotifyParticipants(ctx context.Context, roomID uuid.UUID, mode domain.NotifyMode) error {
	payload := map[string]string{"type": s.cfg.NotificationType}
	return s.notifier.Notify(ctx, roomID.String(), payload, mode)
}

// getParticipant loads one entry. Absent and undecodable entries both read
// as nil; the latter are deleted on the way.
func (s *lobbyService) getParticipant(ctx context.Context, roomID uuid.UUID, participantID string) (*domain.Participant, error) {
	key := s.cacheKey(roomID, participantID)
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}

	participant, err := domain.DecodeParticipant(data)
	if err != nil {
		s.purgeCorrupted(ctx, key, err)
		return nil, nil
	}
	return participant, nil
}

func (s *lobbyService) purgeCorrupted(ctx context.Context, key string, cause error) {
	s.metrics.CorruptedEntryPurged()
	s.logger.Errorw("corrupted participant data found and removed",
		"key", key,
		"error", cause,
	)
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warnw("failed to remove corrupted participant data",
			"key", key,
			"error", err,
		)
	}
}
