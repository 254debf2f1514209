package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"

	"github.com/vopenia-io/meet/pkg/validation"
)

// ParticipantCookie carries the lobby participant id between polls. The value
// is signed when a secret is configured and stored raw otherwise.
type ParticipantCookie struct {
	name  string
	codec *securecookie.SecureCookie
}

func NewParticipantCookie(name, secret string) *ParticipantCookie {
	pc := &ParticipantCookie{name: name}
	if secret != "" {
		pc.codec = securecookie.New([]byte(secret), nil)
	}
	return pc
}

// Read returns the participant id, or "" when the cookie is absent or invalid.
func (pc *ParticipantCookie) Read(c *gin.Context) string {
	raw, err := c.Cookie(pc.name)
	if err != nil || raw == "" {
		return ""
	}

	id := raw
	if pc.codec != nil {
		if err := pc.codec.Decode(pc.name, raw, &id); err != nil {
			return ""
		}
	}
	if validation.ValidateParticipantID(id) != nil {
		return ""
	}
	return id
}

// Write sets a session cookie holding id.
func (pc *ParticipantCookie) Write(c *gin.Context, id string) error {
	value := id
	if pc.codec != nil {
		encoded, err := pc.codec.Encode(pc.name, id)
		if err != nil {
			return err
		}
		value = encoded
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(pc.name, value, 0, "/", "", true, true)
	return nil
}
