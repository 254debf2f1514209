package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

const roomKeyPrefix = "meet:room:"

type RedisRoomRepository struct {
	client *redis.Client
}

func NewRedisRoomRepository(client *redis.Client) ports.RoomRepository {
	return &RedisRoomRepository{client: client}
}

func roomKey(id uuid.UUID) string {
	return roomKeyPrefix + id.String()
}

func (r *RedisRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	created, err := r.client.SetNX(ctx, roomKey(room.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set room in Redis: %w", err)
	}
	if !created {
		return fmt.Errorf("room already exists: %s", room.ID)
	}
	return nil
}

func (r *RedisRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	data, err := r.client.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room from Redis: %w", err)
	}

	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

func (r *RedisRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	updated, err := r.client.SetXX(ctx, roomKey(room.ID), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to update room in Redis: %w", err)
	}
	if !updated {
		return domain.ErrRoomNotFound
	}
	return nil
}
