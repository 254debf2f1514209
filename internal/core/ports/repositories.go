package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vopenia-io/meet/internal/core/domain"
)

// KeyStore is a shared TTL key-value store. Values are opaque bytes; Get
// returns domain.ErrKeyNotFound for missing or expired keys.
type KeyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Touch extends the TTL of an existing key. It reports false when the key
	// is absent and never recreates it.
	Touch(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
	// GetMany returns the values of the keys that still exist.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	Ping(ctx context.Context) error
}

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
}

type RecordingRepository interface {
	Create(ctx context.Context, recording *domain.Recording) error
	GetByWorkerID(ctx context.Context, workerID string) (*domain.Recording, error)
	ListByRoomID(ctx context.Context, roomID uuid.UUID) ([]*domain.Recording, error)
	Update(ctx context.Context, recording *domain.Recording) error
}
