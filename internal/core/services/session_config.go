package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/utils"
)

const DefaultParticipantName = "Anonymous"

// Track sources a lobby-admitted participant may publish.
var publishSources = []string{"camera", "microphone", "screen_share", "screen_share_audio"}

type SessionConfig struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

type sessionConfigGenerator struct {
	cfg SessionConfig
}

func NewSessionConfigGenerator(cfg SessionConfig) (ports.SessionConfigGenerator, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("media server api key and secret are required")
	}
	return &sessionConfigGenerator{cfg: cfg}, nil
}

func (g *sessionConfigGenerator) Generate(roomName string, principal domain.Principal, username, color string) (*domain.LiveSessionConfig, error) {
	identity := string(principal.ID)
	if !principal.IsAuthenticated() {
		identity = utils.GenerateIdentity()
	}

	if color == "" {
		color = utils.GenerateColor(identity)
	}

	name := username
	if name == "" {
		name = principal.Username
	}
	if name == "" {
		name = DefaultParticipantName
	}

	metadata, err := json.Marshal(map[string]string{"color": color})
	if err != nil {
		return nil, fmt.Errorf("encode participant metadata: %w", err)
	}

	grant := &auth.VideoGrant{
		Room:              roomName,
		RoomJoin:          true,
		RoomAdmin:         true,
		CanPublishSources: publishSources,
	}
	grant.SetCanUpdateOwnMetadata(true)

	token, err := auth.NewAccessToken(g.cfg.APIKey, g.cfg.APISecret).
		SetIdentity(identity).
		SetName(name).
		SetMetadata(string(metadata)).
		SetVideoGrant(grant).
		SetValidFor(g.cfg.TokenTTL).
		ToJWT()
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &domain.LiveSessionConfig{
		URL:   g.cfg.URL,
		Room:  roomName,
		Token: token,
	}, nil
}
