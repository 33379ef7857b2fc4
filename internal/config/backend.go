package config

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/cardduel/internal/cache"
	"github.com/jason-s-yu/cardduel/internal/database"
	"github.com/jason-s-yu/cardduel/internal/store"
	"github.com/sirupsen/logrus"
)

// OpenGateway connects the configured storage backend and wraps it in the
// retry policy. The returned closer releases the backend's connections.
func (c Config) OpenGateway(ctx context.Context, logger logrus.FieldLogger) (store.Gateway, func(), error) {
	var (
		gw     store.Gateway
		closer = func() {}
	)

	switch c.StoreBackend {
	case BackendMemory:
		gw = store.NewMemory()

	case BackendSQLite:
		db, err := store.OpenSQLite(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		gw = db
		closer = func() { _ = db.Close() }

	case BackendPostgres:
		pool, err := database.ConnectDB(ctx, c.Postgres())
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		gw = database.NewKV(pool)
		closer = pool.Close

	case BackendRedis:
		rdb, err := cache.ConnectRedis(ctx, c.RedisAddr, c.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		gw = cache.NewKV(rdb, "cardduel:")
		closer = func() { _ = rdb.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	logger.WithField("backend", c.StoreBackend).Info("storage gateway ready")
	return store.NewRetrying(gw, c.RetryOptions(), logger), closer, nil
}
