package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateParticipantID mints an opaque lobby participant id (uuid4 as hex).
func GenerateParticipantID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateIdentity mints a live-session identity for anonymous callers.
func GenerateIdentity() string {
	return uuid.NewString()
}

// GeneratePinCode derives a numeric telephony pin from random uuid bytes.
func GeneratePinCode(digits int) string {
	id := uuid.New()
	var b strings.Builder
	for i := 0; i < digits; i++ {
		b.WriteByte('0' + id[i%len(id)]%10)
	}
	return b.String()
}
