package main

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/config"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/memory"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/postgres"
	redisstore "github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/redis"
)

// stores are the backends selected by STORE_BACKEND. Accounts always live next to the
// documents, so a restart cannot keep profiles and reservations while losing their accounts.
type stores struct {
	documents     ports.DocumentStore
	accounts      ports.AccountRepository
	verifications ports.EmailVerificationStore
	checks        map[string]ports.Pinger
	db            *sql.DB
}

func openStores(ctx context.Context, cfg *config.Config, redisClient goredis.UniversalClient, log zerolog.Logger) (*stores, error) {
	s := &stores{checks: make(map[string]ports.Pinger)}
	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		s.db = db
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		pgStore := postgres.NewDocumentStore(db)
		s.checks["database"] = pgStore
		s.documents = pgStore
		s.accounts = postgres.NewAccountRepository(db)
		s.verifications = postgres.NewEmailVerificationRepository(db)
	case config.StoreRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("STORE_BACKEND=redis requires a reachable REDIS_URL")
		}
		s.documents = redisstore.NewDocumentStore(redisClient)
		s.accounts = redisstore.NewAccountRepository(redisClient, "")
		s.verifications = redisstore.NewEmailVerificationStore(redisClient, "")
	default:
		log.Warn().Msg("using in-memory store; accounts and data do not survive a restart")
		s.documents = memory.NewAtomicStore()
		s.accounts = memory.NewAccountRepository()
		s.verifications = memory.NewEmailVerificationStore()
	}
	return s, nil
}

func (s *stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}
