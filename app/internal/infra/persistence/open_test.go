package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"example.com/commercex-cart/app/internal/config"
)

func TestOpen_SQLite(t *testing.T) {
	repo, err := Open(context.Background(), config.StoreConfig{
		Driver: config.DriverSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "cart.db")},
	})
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(context.Background()))
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	repo, err := Open(context.Background(), config.StoreConfig{
		Driver: config.DriverRedis,
		Redis:  config.RedisConfig{Addr: mr.Addr(), Key: "cart"},
	})
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
}

func TestOpen_RedisUnreachable_ReturnsNilRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	repo, err := Open(context.Background(), config.StoreConfig{
		Driver: config.DriverRedis,
		Redis:  config.RedisConfig{Addr: addr, Key: "cart"},
	})
	require.Error(t, err)
	require.Nil(t, repo)
}

func TestOpen_SQLiteBadPath_ReturnsNilRepository(t *testing.T) {
	repo, err := Open(context.Background(), config.StoreConfig{
		Driver: config.DriverSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "missing", "dir", "cart.db")},
	})
	require.Error(t, err)
	require.Nil(t, repo)
}
