package services

import "github.com/vopenia-io/meet/internal/core/domain"

// CanBypassLobby reports whether a caller may join without waiting. It must be
// evaluated on every entry request since a room's access level can change
// while participants wait.
func CanBypassLobby(room *domain.Room, isAuthenticated bool) bool {
	switch room.AccessLevel {
	case domain.AccessPublic:
		return true
	case domain.AccessTrusted:
		return isAuthenticated
	default:
		return false
	}
}
