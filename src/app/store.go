// Package app wires configuration into stores and services. It is shared by
// the HTTP server and the adminctl CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/khabaroff/storefront-admin/src/config"
	"github.com/khabaroff/storefront-admin/src/database"
	"github.com/khabaroff/storefront-admin/src/logging"
	"github.com/khabaroff/storefront-admin/src/repositories"
	"github.com/khabaroff/storefront-admin/src/repositories/memory"
	mongorepo "github.com/khabaroff/storefront-admin/src/repositories/mongo"
	"github.com/khabaroff/storefront-admin/src/repositories/postgres"
	"github.com/khabaroff/storefront-admin/src/services"
	"github.com/redis/go-redis/v9"
)

// Store is an opened credential store
type Store struct {
	Driver string
	Repo   repositories.AdminRepository
	Health func(ctx context.Context) error
	close  func()
}

// Close releases the store's connections
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStore connects to the credential store selected by cfg.StoreDriver
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	logger := logging.NewLogger("store")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Info().Str("driver", cfg.StoreDriver).Msg("database connected")
		return &Store{
			Driver: cfg.StoreDriver,
			Repo:   postgres.NewAdminRepository(db.GetPool()),
			Health: db.Health,
			close:  db.Close,
		}, nil

	case config.StoreDriverMongo:
		m, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo: %w", err)
		}
		repo, err := mongorepo.NewAdminRepository(ctx, m.Database())
		if err != nil {
			m.Close()
			return nil, err
		}
		logger.Info().
			Str("driver", cfg.StoreDriver).
			Str("database", cfg.MongoDatabase).
			Msg("database connected")
		return &Store{
			Driver: cfg.StoreDriver,
			Repo:   repo,
			Health: m.Health,
			close:  m.Close,
		}, nil

	case config.StoreDriverMemory:
		logger.Warn().Msg("using in-memory credential store; accounts are lost on restart")
		return &Store{
			Driver: cfg.StoreDriver,
			Repo:   memory.NewAdminRepository(),
			Health: func(context.Context) error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Revocations is the optional session denylist
type Revocations struct {
	List   services.RevocationList
	Health func(ctx context.Context) error
	client *redis.Client
	memory *services.MemoryRevocationList
}

// Close releases the Redis client or stops the in-memory sweeper
func (r *Revocations) Close() {
	if r.client != nil {
		_ = r.client.Close()
	}
	if r.memory != nil {
		r.memory.Stop()
	}
}

// OpenRevocations connects to Redis when revocation is enabled. Without
// REDIS_URL revocations are kept in process memory. When disabled the
// returned List is nil and logout only clears the cookie.
func OpenRevocations(ctx context.Context, cfg *config.Config) (*Revocations, error) {
	if !cfg.RevocationEnabled {
		return &Revocations{}, nil
	}
	if cfg.RedisURL == "" {
		list := services.NewMemoryRevocationList(10 * time.Minute)
		list.Start(context.Background())
		logger := logging.NewLogger("sessions")
		logger.Warn().Msg("session revocation enabled (in-memory, single instance only)")
		return &Revocations{List: list, memory: list}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger("sessions")
	logger.Info().Msg("session revocation enabled (redis)")

	return &Revocations{
		List:   services.NewRedisRevocationList(client),
		Health: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		client: client,
	}, nil
}
