package domain

import "errors"

var (
	ErrKeyNotFound         = errors.New("key not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRecordingNotFound   = errors.New("recording not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantParsing  = errors.New("invalid participant data")
	ErrNotification        = errors.New("failed to notify room participants")
	ErrTelephony           = errors.New("telephony operation failed")
	ErrRecordingEvents     = errors.New("recording event handling failed")
	ErrRecordingDisabled   = errors.New("recording is disabled")
	ErrRecordingInProgress = errors.New("a recording is already in progress for this room")
	ErrNoActiveRecording   = errors.New("no active recording found for this room")
	ErrRecordingStart      = errors.New("recording failed to start")
	ErrRecordingStop       = errors.New("recording failed to stop")
)

// NotificationError reports a realtime push that could not be delivered.
type NotificationError struct {
	Room  string
	Cause error
}

func (e *NotificationError) Error() string {
	return "failed to notify participants of room " + e.Room + ": " + e.Cause.Error()
}

func (e *NotificationError) Unwrap() []error {
	return []error{ErrNotification, e.Cause}
}

// ParsingError reports a stored participant value that could not be decoded.
type ParsingError struct {
	Key   string
	Cause error
}

func (e *ParsingError) Error() string {
	return "invalid participant data at " + e.Key + ": " + e.Cause.Error()
}

func (e *ParsingError) Unwrap() []error {
	return []error{ErrParticipantParsing, e.Cause}
}
