package domain

import (
	"time"

	"github.com/google/uuid"
)

type RecordingStatus string

const (
	RecordingInitiated             RecordingStatus = "initiated"
	RecordingActive                RecordingStatus = "active"
	RecordingStopped               RecordingStatus = "stopped"
	RecordingSaved                 RecordingStatus = "saved"
	RecordingAborted               RecordingStatus = "aborted"
	RecordingFailedToStart         RecordingStatus = "failed_to_start"
	RecordingFailedToStop          RecordingStatus = "failed_to_stop"
	RecordingNotificationSucceeded RecordingStatus = "notification_succeeded"
)

type RecordingMode string

const (
	ModeScreenRecording RecordingMode = "screen_recording"
	ModeTranscript      RecordingMode = "transcript"
)

// ParseRecordingMode accepts the modes a client may request.
func ParseRecordingMode(raw string) (RecordingMode, bool) {
	switch mode := RecordingMode(raw); mode {
	case ModeScreenRecording, ModeTranscript:
		return mode, true
	default:
		return "", false
	}
}

type Recording struct {
	ID        uuid.UUID       `json:"id"`
	RoomID    uuid.UUID       `json:"room_id"`
	WorkerID  string          `json:"worker_id"`
	Mode      RecordingMode   `json:"mode"`
	Status    RecordingStatus `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InProgress reports whether the recording still holds its room's single
// recording slot.
func (r *Recording) InProgress() bool {
	return r.Status == RecordingInitiated || r.Status == RecordingActive
}
