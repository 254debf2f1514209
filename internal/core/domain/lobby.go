package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type ParticipantStatus string

const (
	StatusUnknown  ParticipantStatus = "unknown"
	StatusWaiting  ParticipantStatus = "waiting"
	StatusAccepted ParticipantStatus = "accepted"
	StatusDenied   ParticipantStatus = "denied"
)

func (s ParticipantStatus) Valid() bool {
	switch s {
	case StatusUnknown, StatusWaiting, StatusAccepted, StatusDenied:
		return true
	}
	return false
}

// Participant is a lobby entry. It only ever lives in the keyed store.
type Participant struct {
	ID       string            `json:"id"`
	Username string            `json:"username"`
	Status   ParticipantStatus `json:"status"`
	Color    string            `json:"color"`
}

// LiveSessionConfig carries what a client needs to join the live room.
type LiveSessionConfig struct {
	URL   string `json:"url"`
	Room  string `json:"room"`
	Token string `json:"token"`
}

// EncodeParticipant serializes a participant for the keyed store.
func EncodeParticipant(p *Participant) ([]byte, error) {
	return json.Marshal(p)
}

// DecodeParticipant parses a stored participant. A missing status decodes as
// unknown; missing identity fields or an unrecognised status are rejected.
func DecodeParticipant(data []byte) (*Participant, error) {
	var raw struct {
		ID       *string `json:"id"`
		Username *string `json:"username"`
		Status   *string `json:"status"`
		Color    *string `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode participant: %w", err)
	}
	if raw.ID == nil || raw.Username == nil || raw.Color == nil {
		return nil, errors.New("participant is missing required fields")
	}

	status := StatusUnknown
	if raw.Status != nil {
		status = ParticipantStatus(*raw.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("unknown participant status %q", *raw.Status)
		}
	}

	return &Participant{
		ID:       *raw.ID,
		Username: *raw.Username,
		Status:   status,
		Color:    *raw.Color,
	}, nil
}
