package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vopenia-io/meet/internal/core/domain"
)

func TestMemoryRoomRepository(t *testing.T) {
	repo := NewMemoryRoomRepository()
	ctx := context.Background()

	room := &domain.Room{
		ID:             uuid.New(),
		Name:           "Standup",
		AccessLevel:    domain.AccessRestricted,
		OwnerID:        "owner",
		Administrators: []domain.UserID{"admin"},
	}
	require.NoError(t, repo.Create(ctx, room))
	assert.Error(t, repo.Create(ctx, room))

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Name)

	got.Administrators[0] = "mutated"
	again, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("admin"), again.Administrators[0])

	room.AccessLevel = domain.AccessPublic
	require.NoError(t, repo.Update(ctx, room))
	got, err = repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublic())

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &domain.Room{ID: uuid.New()}), domain.ErrRoomNotFound)
}

func TestMemoryRecordingRepository(t *testing.T) {
	repo := NewMemoryRecordingRepository()
	ctx := context.Background()

	recording := &domain.Recording{
		ID:       uuid.New(),
		RoomID:   uuid.New(),
		WorkerID: "EG_123",
		Mode:     domain.ModeTranscript,
		Status:   domain.RecordingActive,
	}
	require.NoError(t, repo.Create(ctx, recording))

	got, err := repo.GetByWorkerID(ctx, "EG_123")
	require.NoError(t, err)
	assert.Equal(t, recording.ID, got.ID)

	got.Status = domain.RecordingStopped
	got.WorkerID = "EG_456"
	require.NoError(t, repo.Update(ctx, got))

	_, err = repo.GetByWorkerID(ctx, "EG_123")
	assert.ErrorIs(t, err, domain.ErrRecordingNotFound)

	moved, err := repo.GetByWorkerID(ctx, "EG_456")
	require.NoError(t, err)
	assert.Equal(t, domain.RecordingStopped, moved.Status)
}

func TestMemoryRecordingRepository_ListByRoomID(t *testing.T) {
	repo := NewMemoryRecordingRepository()
	ctx := context.Background()
	roomID := uuid.New()

	require.NoError(t, repo.Create(ctx, &domain.Recording{ID: uuid.New(), RoomID: roomID, Status: domain.RecordingStopped}))
	require.NoError(t, repo.Create(ctx, &domain.Recording{ID: uuid.New(), RoomID: roomID, Status: domain.RecordingActive}))
	require.NoError(t, repo.Create(ctx, &domain.Recording{ID: uuid.New(), RoomID: uuid.New(), Status: domain.RecordingActive}))

	recordings, err := repo.ListByRoomID(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, recordings, 2)
	for _, recording := range recordings {
		assert.Equal(t, roomID, recording.RoomID)
	}

	recordings, err = repo.ListByRoomID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, recordings)
}
