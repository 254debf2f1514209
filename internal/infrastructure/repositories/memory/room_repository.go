package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

type MemoryRoomRepository struct {
	rooms map[uuid.UUID]domain.Room
	mu    sync.RWMutex
}

func NewMemoryRoomRepository() ports.RoomRepository {
	return &MemoryRoomRepository{
		rooms: make(map[uuid.UUID]domain.Room),
	}
}

func (r *MemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return fmt.Errorf("room already exists: %s", room.ID)
	}

	r.rooms[room.ID] = copyRoom(room)
	return nil
}

func (r *MemoryRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	out := copyRoom(&room)
	return &out, nil
}

func (r *MemoryRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; !exists {
		return domain.ErrRoomNotFound
	}

	r.rooms[room.ID] = copyRoom(room)
	return nil
}

// callers mutate what they get back; keep the stored value isolated
func copyRoom(room *domain.Room) domain.Room {
	out := *room
	out.Administrators = append([]domain.UserID(nil), room.Administrators...)
	return out
}
