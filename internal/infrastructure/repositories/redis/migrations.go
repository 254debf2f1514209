package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/domain"
)

const (
	schemaVersionKey     = "meet:schema:version"
	currentSchemaVersion = 2
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, client *redis.Client) error
}

// Migrate runs all pending migrations. Lobby keys are ephemeral and never
// migrated; only the room and recording collaborator data is versioned.
func Migrate(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Debugw("schema is up to date", "current_version", currentVersion)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running migration",
				"version", migration.Version,
				"description", migration.Description,
			)
		}
		if err := migration.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := setSchemaVersion(ctx, client, migration.Version); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func setSchemaVersion(ctx context.Context, client *redis.Client, version int) error {
	return client.Set(ctx, schemaVersionKey, version, 0).Err()
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "index recordings by worker id",
			Up:          rebuildRecordingWorkerIndex,
		},
		{
			Version:     2,
			Description: "index recordings by room",
			Up:          rebuildRecordingRoomIndex,
		},
	}
}

// rebuildRecordingWorkerIndex backfills the worker hash from stored recordings.
func rebuildRecordingWorkerIndex(ctx context.Context, client *redis.Client) error {
	return forEachRecording(ctx, client, func(recording *domain.Recording) error {
		if recording.WorkerID == "" {
			return nil
		}
		return client.HSet(ctx, recordingWorkerHash, recording.WorkerID, recording.ID.String()).Err()
	})
}

func rebuildRecordingRoomIndex(ctx context.Context, client *redis.Client) error {
	return forEachRecording(ctx, client, func(recording *domain.Recording) error {
		return client.SAdd(ctx, recordingRoomKey(recording.RoomID), recording.ID.String()).Err()
	})
}

// forEachRecording visits every decodable stored recording.
func forEachRecording(ctx context.Context, client *redis.Client, fn func(recording *domain.Recording) error) error {
	iter := client.Scan(ctx, 0, escapeGlob(recordingKeyPrefix)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if key == recordingWorkerHash {
			continue
		}
		data, err := client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}

		var recording domain.Recording
		if err := json.Unmarshal(data, &recording); err != nil {
			continue
		}
		if err := fn(&recording); err != nil {
			return err
		}
	}
	return iter.Err()
}
