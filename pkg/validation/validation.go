package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxUsernameLength = 100
	MaxRoomNameLength = 500
)

var (
	// ParticipantIDRegex matches ids minted by the lobby (uuid4 hex) and
	// tolerates dashed uuids from older clients.
	ParticipantIDRegex = regexp.MustCompile(`^[a-fA-F0-9-]{32,36}$`)
)

// ValidateUsername validates a display name supplied by a lobby participant.
// Display names are free text; only emptiness and length are enforced.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if !utf8.ValidString(username) {
		return fmt.Errorf("username contains invalid characters")
	}
	return ValidateStringLength(username, 1, MaxUsernameLength, "username")
}

// ValidateParticipantID validates a participant id read back from a client cookie.
func ValidateParticipantID(id string) error {
	if id == "" {
		return fmt.Errorf("participant ID is required")
	}
	if !ParticipantIDRegex.MatchString(id) {
		return fmt.Errorf("invalid participant ID format")
	}
	return nil
}

func ValidateRoomID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid room ID: %w", err)
	}
	return parsed, nil
}

func ValidateRoomName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("room name is required")
	}
	return ValidateStringLength(name, 1, MaxRoomNameLength, "room name")
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
