package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/pkg/utils"
)

const testAPISecret = "test-secret-test-secret-test-secret"

func newTestGenerator(t *testing.T) *sessionConfigGenerator {
	t.Helper()
	gen, err := NewSessionConfigGenerator(SessionConfig{
		URL:       "wss://livekit.test",
		APIKey:    "test-key",
		APISecret: testAPISecret,
		TokenTTL:  time.Hour,
	})
	require.NoError(t, err)
	return gen.(*sessionConfigGenerator)
}

// sessionTokenClaims is the wire layout the media server expects.
type sessionTokenClaims struct {
	Name     string           `json:"name"`
	Metadata string           `json:"metadata"`
	Video    *auth.VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

func parseSessionToken(t *testing.T, token string) *sessionTokenClaims {
	t.Helper()
	claims := &sessionTokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(testAPISecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	return claims
}

func TestNewSessionConfigGenerator_RequiresCredentials(t *testing.T) {
	_, err := NewSessionConfigGenerator(SessionConfig{URL: "wss://x", APIKey: "key"})
	assert.Error(t, err)
}

func TestGenerate_AuthenticatedPrincipal(t *testing.T) {
	gen := newTestGenerator(t)
	principal := domain.Principal{ID: "user-42", Username: "alice"}

	cfg, err := gen.Generate("room-1", principal, "", "hsl(10, 60%, 40%)")
	require.NoError(t, err)
	assert.Equal(t, "wss://livekit.test", cfg.URL)
	assert.Equal(t, "room-1", cfg.Room)

	claims := parseSessionToken(t, cfg.Token)
	assert.Equal(t, "test-key", claims.Issuer)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "alice", claims.Name)
	require.NotNil(t, claims.Video)
	assert.Equal(t, "room-1", claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)
	assert.True(t, claims.Video.RoomAdmin)
	assert.ElementsMatch(t, []string{"camera", "microphone", "screen_share", "screen_share_audio"}, claims.Video.CanPublishSources)
	require.NotNil(t, claims.Video.CanUpdateOwnMetadata)
	assert.True(t, *claims.Video.CanUpdateOwnMetadata)

	var metadata map[string]string
	require.NoError(t, json.Unmarshal([]byte(claims.Metadata), &metadata))
	assert.Equal(t, "hsl(10, 60%, 40%)", metadata["color"])
}

func TestGenerate_NamePrecedence(t *testing.T) {
	gen := newTestGenerator(t)

	cases := []struct {
		name      string
		principal domain.Principal
		username  string
		expected  string
	}{
		{"explicit username wins", domain.Principal{ID: "u", Username: "alice"}, "Al", "Al"},
		{"principal username", domain.Principal{ID: "u", Username: "alice"}, "", "alice"},
		{"anonymous fallback", domain.Principal{}, "", DefaultParticipantName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := gen.Generate("room", tc.principal, tc.username, "c")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, parseSessionToken(t, cfg.Token).Name)
		})
	}
}

func TestGenerate_AnonymousGetsFreshIdentityAndColor(t *testing.T) {
	gen := newTestGenerator(t)

	first, err := gen.Generate("room", domain.Principal{}, "Bob", "")
	require.NoError(t, err)
	second, err := gen.Generate("room", domain.Principal{}, "Bob", "")
	require.NoError(t, err)

	a := parseSessionToken(t, first.Token)
	b := parseSessionToken(t, second.Token)
	assert.NotEmpty(t, a.Subject)
	assert.NotEqual(t, a.Subject, b.Subject)

	var metadata map[string]string
	require.NoError(t, json.Unmarshal([]byte(a.Metadata), &metadata))
	assert.Equal(t, utils.GenerateColor(a.Subject), metadata["color"])
}

func TestGenerate_TokenLifetime(t *testing.T) {
	gen := newTestGenerator(t)
	before := time.Now().Add(-time.Second)

	cfg, err := gen.Generate("room", domain.Principal{ID: "u"}, "", "c")
	require.NoError(t, err)

	claims := parseSessionToken(t, cfg.Token)
	require.NotNil(t, claims.NotBefore)
	require.NotNil(t, claims.ExpiresAt)
	assert.False(t, claims.NotBefore.Before(before.Truncate(time.Second)))
	assert.InDelta(t, time.Hour.Seconds(), claims.ExpiresAt.Sub(claims.NotBefore.Time).Seconds(), 1)
}

func TestGenerate_ReadableByMediaServer(t *testing.T) {
	gen := newTestGenerator(t)

	cfg, err := gen.Generate("room-9", domain.Principal{ID: "user-7"}, "Zoe", "c")
	require.NoError(t, err)

	verifier, err := auth.ParseAPIToken(cfg.Token)
	require.NoError(t, err)
	assert.Equal(t, "test-key", verifier.APIKey())
	assert.Equal(t, "user-7", verifier.Identity())
}
