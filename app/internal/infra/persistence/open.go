package persistence

import (
	"context"
	"fmt"

	"example.com/commercex-cart/app/internal/config"
	domcart "example.com/commercex-cart/app/internal/domain/cart"
	"example.com/commercex-cart/app/internal/infra/persistence/mysql"
	"example.com/commercex-cart/app/internal/infra/persistence/postgres"
	"example.com/commercex-cart/app/internal/infra/persistence/redis"
	"example.com/commercex-cart/app/internal/infra/persistence/sqlite"
)

// Open connects the backend selected by cfg.Driver and makes sure the
// schema exists.
func Open(ctx context.Context, cfg config.StoreConfig) (domcart.Repository, error) {
	var (
		repo domcart.Repository
		err  error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		repo, err = sqlite.Open(ctx, cfg.SQLite.Path)
	case config.DriverMySQL:
		repo, err = mysql.Open(ctx, cfg.MySQL.DSN)
	case config.DriverPostgres:
		repo, err = postgres.Open(ctx, cfg.Postgres.DSN)
	case config.DriverRedis:
		repo, err = redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Key)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}
