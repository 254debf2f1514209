package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/vopenia-io/meet/internal/core/domain"
)

type LobbyService interface {
	RequestEntry(ctx context.Context, room *domain.Room, principal domain.Principal, participantID, username string) (*domain.Participant, *domain.LiveSessionConfig, error)
	Enter(ctx context.Context, roomID uuid.UUID, participantID, username string) (*domain.Participant, error)
	RefreshWaitingStatus(ctx context.Context, roomID uuid.UUID, participantID string) error
	ListWaitingParticipants(ctx context.Context, roomID uuid.UUID) ([]*domain.Participant, error)
	HandleParticipantEntry(ctx context.Context, roomID uuid.UUID, participantID string, allow bool) error
	ClearRoomCache(ctx context.Context, roomID uuid.UUID) error
	NotifyParticipants(ctx context.Context, roomID uuid.UUID, mode domain.NotifyMode) error
}

type SessionConfigGenerator interface {
	Generate(roomName string, principal domain.Principal, username, color string) (*domain.LiveSessionConfig, error)
}

type Notifier interface {
	Notify(ctx context.Context, roomName string, payload any, mode domain.NotifyMode) error
}

type TelephonyService interface {
	CreateDispatchRule(ctx context.Context, room *domain.Room) error
	DeleteDispatchRule(ctx context.Context, roomID uuid.UUID) (bool, error)
}

type RecordingEventsService interface {
	HandleLimitReached(ctx context.Context, recording *domain.Recording) error
}

// RecordingService starts and stops the single in-progress recording of a room.
type RecordingService interface {
	StartRecording(ctx context.Context, room *domain.Room, mode domain.RecordingMode) (*domain.Recording, error)
	StopRecording(ctx context.Context, room *domain.Room) (*domain.Recording, error)
}

type WebhookService interface {
	Receive(ctx context.Context, authHeader string, body []byte) error
}

// RoomSessionClient is the slice of the RTC control API used to reach a live session.
type RoomSessionClient interface {
	RoomExists(ctx context.Context, roomName string) (bool, error)
	SendReliableData(ctx context.Context, roomName string, payload []byte) error
}

// SIPClient is the slice of the RTC control API that manages SIP dispatch rules.
type SIPClient interface {
	CreateDispatchRule(ctx context.Context, name, roomName, pin string) error
	ListDispatchRules(ctx context.Context) ([]domain.DispatchRule, error)
	DeleteDispatchRule(ctx context.Context, ruleID string) error
}

// EgressClient is the slice of the RTC control API that records rooms.
type EgressClient interface {
	// StartRoomComposite returns the egress id of the new recording. fileName
	// has no extension; audioOnly selects the audio container.
	StartRoomComposite(ctx context.Context, roomName, fileName string, audioOnly bool) (string, error)
	// StopEgress reports the recording status the stop request led to.
	StopEgress(ctx context.Context, egressID string) (domain.RecordingStatus, error)
}

// MetricsRecorder receives lobby and webhook outcomes for export.
type MetricsRecorder interface {
	LobbyEntry(outcome string)
	EntryDecision(allowed bool)
	Notification(mode domain.NotifyMode, err error)
	WebhookEvent(event string, err error)
	CorruptedEntryPurged()
}

type RoomService interface {
	CreateRoom(ctx context.Context, owner domain.Principal, name string, accessLevel domain.RoomAccessLevel) (*domain.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*domain.Room, error)
}
