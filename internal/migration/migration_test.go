package migration

import (
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	src, err := newSource()
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	up, name, err := src.ReadUp(version)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	_ = up.Close()
	assert.Equal(t, "create_usage_events", name)
	assert.Contains(t, string(body), "ux_usage_events_idempotency")

	next, err := src.Next(version)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next)
	_, name, err = src.ReadDown(next)
	require.NoError(t, err)
	assert.Equal(t, "create_subscriptions", name)
}

func TestApplyAutoMigratesNonPostgres(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migration?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Apply(conn, "sqlite"))
	assert.True(t, conn.Migrator().HasTable("usage_events"))
	assert.True(t, conn.Migrator().HasTable("subscriptions"))
	assert.True(t, conn.Migrator().HasIndex("subscriptions", "ux_subscriptions_user"))

	require.NoError(t, Apply(conn, "sqlite"), "applying twice is a no-op")
}

func TestApplyRequiresConnection(t *testing.T) {
	assert.Error(t, Apply(nil, "sqlite"))
	assert.Error(t, RunMigrations(nil))
}
