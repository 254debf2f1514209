package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/utils"
)

const pinCodeLength = 10

type roomService struct {
	roomRepo ports.RoomRepository
}

func NewRoomService(roomRepo ports.RoomRepository) ports.RoomService {
	return &roomService{roomRepo: roomRepo}
}

func (s *roomService) CreateRoom(ctx context.Context, owner domain.Principal, name string, accessLevel domain.RoomAccessLevel) (*domain.Room, error) {
	if accessLevel == "" {
		accessLevel = domain.AccessPublic
	}
	if !accessLevel.Valid() {
		return nil, fmt.Errorf("invalid access level %q", accessLevel)
	}

	room := &domain.Room{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slugify(name),
		AccessLevel: accessLevel,
		OwnerID:     owner.ID,
		PinCode:     utils.GeneratePinCode(pinCodeLength),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	return s.roomRepo.GetByID(ctx, id)
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
