package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/internal/infrastructure/repositories/memory"
	redisrepo "github.com/vopenia-io/meet/internal/infrastructure/repositories/redis"
	"github.com/vopenia-io/meet/pkg/config"
	"github.com/vopenia-io/meet/pkg/retry"
)

// RepositoryFactory creates the keyed store and collaborator repositories,
// falling back to process memory when Redis is disabled or unreachable.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	memoryStore *memory.MemoryKeyStore
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(redisrepo.ClientOptions{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Connect: retry.Config{
				MaxAttempts:  cfg.Redis.ConnectAttempts,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     5 * time.Second,
				Multiplier:   2.0,
				Jitter:       true,
			},
		}, logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		// lobby state is then local to this instance
		logger.Warn("using memory repositories; lobby state is not shared between instances")
	}

	return factory, nil
}

// UsesRedis reports whether the factory is backed by Redis.
func (f *RepositoryFactory) UsesRedis() bool {
	return f.useRedis && f.redisClient != nil
}

// CreateKeyStore returns the shared lobby store. The memory store is created
// once so every caller observes the same entries.
func (f *RepositoryFactory) CreateKeyStore() ports.KeyStore {
	if f.UsesRedis() {
		return redisrepo.NewRedisKeyStore(f.redisClient)
	}
	if f.memoryStore == nil {
		f.memoryStore = memory.NewMemoryKeyStore()
	}
	return f.memoryStore
}

func (f *RepositoryFactory) CreateRoomRepository() ports.RoomRepository {
	if f.UsesRedis() {
		return redisrepo.NewRedisRoomRepository(f.redisClient)
	}
	return memory.NewMemoryRoomRepository()
}

func (f *RepositoryFactory) CreateRecordingRepository() ports.RecordingRepository {
	if f.UsesRedis() {
		return redisrepo.NewRedisRecordingRepository(f.redisClient)
	}
	return memory.NewMemoryRecordingRepository()
}

// Close releases the Redis connection or stops the memory store janitor.
func (f *RepositoryFactory) Close() error {
	if f.memoryStore != nil {
		f.memoryStore.Stop()
	}
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.UsesRedis() {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
