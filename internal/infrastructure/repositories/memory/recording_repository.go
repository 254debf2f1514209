package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

type MemoryRecordingRepository struct {
	recordings map[uuid.UUID]domain.Recording
	byWorker   map[string]uuid.UUID
	mu         sync.RWMutex
}

func NewMemoryRecordingRepository() ports.RecordingRepository {
	return &MemoryRecordingRepository{
		recordings: make(map[uuid.UUID]domain.Recording),
		byWorker:   make(map[string]uuid.UUID),
	}
}

func (r *MemoryRecordingRepository) Create(ctx context.Context, recording *domain.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.recordings[recording.ID]; exists {
		return fmt.Errorf("recording already exists: %s", recording.ID)
	}

	r.recordings[recording.ID] = *recording
	if recording.WorkerID != "" {
		r.byWorker[recording.WorkerID] = recording.ID
	}
	return nil
}

func (r *MemoryRecordingRepository) GetByWorkerID(ctx context.Context, workerID string) (*domain.Recording, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byWorker[workerID]
	if !exists {
		return nil, domain.ErrRecordingNotFound
	}
	recording, exists := r.recordings[id]
	if !exists {
		return nil, domain.ErrRecordingNotFound
	}
	return &recording, nil
}

func (r *MemoryRecordingRepository) ListByRoomID(ctx context.Context, roomID uuid.UUID) ([]*domain.Recording, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var recordings []*domain.Recording
	for _, recording := range r.recordings {
		if recording.RoomID == roomID {
			recording := recording
			recordings = append(recordings, &recording)
		}
	}
	return recordings, nil
}

func (r *MemoryRecordingRepository) Update(ctx context.Context, recording *domain.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, exists := r.recordings[recording.ID]
	if !exists {
		return domain.ErrRecordingNotFound
	}

	if previous.WorkerID != recording.WorkerID {
		delete(r.byWorker, previous.WorkerID)
	}
	r.recordings[recording.ID] = *recording
	if recording.WorkerID != "" {
		r.byWorker[recording.WorkerID] = recording.ID
	}
	return nil
}
