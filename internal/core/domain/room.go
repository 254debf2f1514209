package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomAccessLevel string

const (
	AccessPublic     RoomAccessLevel = "public"
	AccessTrusted    RoomAccessLevel = "trusted"
	AccessRestricted RoomAccessLevel = "restricted"
)

func (l RoomAccessLevel) Valid() bool {
	switch l {
	case AccessPublic, AccessTrusted, AccessRestricted:
		return true
	}
	return false
}

type Room struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	AccessLevel    RoomAccessLevel `json:"access_level"`
	OwnerID        UserID          `json:"owner_id"`
	Administrators []UserID        `json:"administrators,omitempty"`
	PinCode        string          `json:"pin_code,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (r *Room) IsPublic() bool {
	return r.AccessLevel == AccessPublic
}

// HasPrivileges reports whether the user may administer the room lobby.
func (r *Room) HasPrivileges(userID UserID) bool {
	if userID == "" {
		return false
	}
	if r.OwnerID == userID {
		return true
	}
	for _, admin := range r.Administrators {
		if admin == userID {
			return true
		}
	}
	return false
}
