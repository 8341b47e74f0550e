//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/geominder/core/internal/infrastructure/config"
	"github.com/geominder/core/internal/infrastructure/database"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

func TestSQLStore_Postgres(t *testing.T) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("geominder"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { testcontainers.TerminateContainer(ctr) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := database.New(config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Name:            "geominder",
		User:            "postgres",
		Password:        "postgres",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Migrate(database.MigrateUp)
	require.NoError(t, err)

	runStoreContract(t, func(t *testing.T) ports.ReminderStore {
		store := NewSQLStore(db, logger.NewNop())
		require.NoError(t, store.DeleteAll(ctx))
		return store
	})
}
