package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geominder/core/internal/infrastructure/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_UpAndDown(t *testing.T) {
	db := newTestDB(t)

	version, _, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	applied, err := db.Migrate(MigrateUp)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = db.Migrate(MigrateUp)
	require.NoError(t, err)
	assert.False(t, applied, "second run has nothing to do")

	version, dirty, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var count int
	require.NoError(t, db.DB.Get(&count, "SELECT COUNT(*) FROM reminders"))
	assert.Zero(t, count)

	var last int64
	require.NoError(t, db.DB.Get(&last, "SELECT last_position FROM reminder_positions WHERE id = 1"))
	assert.Zero(t, last, "position counter starts empty")

	applied, err = db.Migrate(MigrateDown)
	require.NoError(t, err)
	assert.True(t, applied)

	err = db.DB.Get(&count, "SELECT COUNT(*) FROM reminders")
	assert.Error(t, err)
}

func TestMigrate_UnknownDirection(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Migrate("sideways")
	assert.Error(t, err)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Migrate(MigrateUp)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTransaction(context.Background(), func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO reminders (id, position) VALUES ('a', 1)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.DB.Get(&count, "SELECT COUNT(*) FROM reminders"))
	assert.Zero(t, count)
}

func TestOpen_RejectsNonSQLDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.DriverRedis}}

	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)

	assert.NoError(t, db.HealthCheck())
	assert.Equal(t, DriverSQLite, db.GetConnectionInfo()["driver"])
}
