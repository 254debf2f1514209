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

const (
	recordingKeyPrefix  = "meet:recording:"
	recordingWorkerHash = "meet:recording:by_worker"
	// kept outside recordingKeyPrefix so prefix scans only see recordings
	recordingRoomPrefix = "meet:recording_room:"
)

type RedisRecordingRepository struct {
	client *redis.Client
}

func NewRedisRecordingRepository(client *redis.Client) ports.RecordingRepository {
	return &RedisRecordingRepository{client: client}
}

func recordingKey(id uuid.UUID) string {
	return recordingKeyPrefix + id.String()
}

func recordingRoomKey(roomID uuid.UUID) string {
	return recordingRoomPrefix + roomID.String()
}

func (r *RedisRecordingRepository) Create(ctx context.Context, recording *domain.Recording) error {
	data, err := json.Marshal(recording)
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}

	created, err := r.client.SetNX(ctx, recordingKey(recording.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set recording in Redis: %w", err)
	}
	if !created {
		return fmt.Errorf("recording already exists: %s", recording.ID)
	}

	if err := r.client.SAdd(ctx, recordingRoomKey(recording.RoomID), recording.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index recording room: %w", err)
	}

	if recording.WorkerID != "" {
		if err := r.client.HSet(ctx, recordingWorkerHash, recording.WorkerID, recording.ID.String()).Err(); err != nil {
			return fmt.Errorf("failed to index recording worker: %w", err)
		}
	}
	return nil
}

func (r *RedisRecordingRepository) get(ctx context.Context, id uuid.UUID) (*domain.Recording, error) {
	data, err := r.client.Get(ctx, recordingKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording from Redis: %w", err)
	}

	var recording domain.Recording
	if err := json.Unmarshal(data, &recording); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recording: %w", err)
	}
	return &recording, nil
}

func (r *RedisRecordingRepository) GetByWorkerID(ctx context.Context, workerID string) (*domain.Recording, error) {
	rawID, err := r.client.HGet(ctx, recordingWorkerHash, workerID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up recording worker: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt recording index for worker %s: %w", workerID, err)
	}
	return r.get(ctx, id)
}

func (r *RedisRecordingRepository) ListByRoomID(ctx context.Context, roomID uuid.UUID) ([]*domain.Recording, error) {
	members, err := r.client.SMembers(ctx, recordingRoomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room recordings: %w", err)
	}

	recordings := make([]*domain.Recording, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			return nil, fmt.Errorf("corrupt recording index for room %s: %w", roomID, err)
		}
		recording, err := r.get(ctx, id)
		if errors.Is(err, domain.ErrRecordingNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, recording)
	}
	return recordings, nil
}

func (r *RedisRecordingRepository) Update(ctx context.Context, recording *domain.Recording) error {
	previous, err := r.get(ctx, recording.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(recording)
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordingKey(recording.ID), data, 0)
		if previous.WorkerID != "" && previous.WorkerID != recording.WorkerID {
			pipe.HDel(ctx, recordingWorkerHash, previous.WorkerID)
		}
		if recording.WorkerID != "" {
			pipe.HSet(ctx, recordingWorkerHash, recording.WorkerID, recording.ID.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update recording in Redis: %w", err)
	}
	return nil
}
