package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"plain name", "Alice", false},
		{"with spaces", "Jean Dupont", false},
		{"unicode", "Zoë Ñúñez", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), true},
		{"invalid utf8", "bad\xffname", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
		})
	}
}

func TestValidateParticipantID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"hex", "0123456789abcdef0123456789abcdef", false},
		{"dashed uuid", "01234567-89ab-cdef-0123-456789abcdef", false},
		{"empty", "", true},
		{"too short", "abc", true},
		{"injection", "abc_room_lobby_*_0123456789abcdef0123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParticipantID(tt.id)
			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
		})
	}
}

func TestValidateRoomID(t *testing.T) {
	id, err := ValidateRoomID("2b0b9c4e-6a4f-4c47-9a2e-8a2d8b0f3f10")
	assert.NoError(t, err)
	assert.Equal(t, "2b0b9c4e-6a4f-4c47-9a2e-8a2d8b0f3f10", id.String())

	_, err = ValidateRoomID("not-a-uuid")
	assert.Error(t, err)
}

func TestValidateRoomName(t *testing.T) {
	assert.NoError(t, ValidateRoomName("Weekly sync"))
	assert.Error(t, ValidateRoomName(" "))
	assert.Error(t, ValidateRoomName(strings.Repeat("x", MaxRoomNameLength+1)))
}

func TestValidateStringLength(t *testing.T) {
	assert.NoError(t, ValidateStringLength("héllo", 1, 5, "field"))
	assert.Error(t, ValidateStringLength("", 1, 5, "field"))
	assert.Error(t, ValidateStringLength("toolong", 1, 5, "field"))
}

func TestValidateNonEmptyString(t *testing.T) {
	assert.NoError(t, ValidateNonEmptyString("x", "field"))
	assert.EqualError(t, ValidateNonEmptyString("  ", "field"), "field is required")
}
