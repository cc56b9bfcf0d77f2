package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"garagebook/internal/config"
	"garagebook/internal/models"
	"garagebook/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:           "0",
		Env:            "test",
		JWTSecret:      "test-secret-that-is-long-enough-for-hs256",
		StoreBackend:   config.StoreMemory,
		SessionBackend: config.SessionMemory,
		SessionDir:     t.TempDir(),
		SeedMockData:   true,
	}
}

func TestInitRuntime_MemorySeeded(t *testing.T) {
	ctx := context.Background()
	rt, err := InitRuntime(ctx, testConfig(t), Options{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.DB)
	assert.Nil(t, rt.Redis)
	assert.IsType(t, &session.MemoryStore{}, rt.Sessions)

	vehicles, err := rt.Garage.Vehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, vehicles, 3)

	id := rt.Identity()
	require.NoError(t, id.Restore(ctx))
	require.NoError(t, id.Login(ctx, "john@example.com", "password123"))
	assert.Equal(t, "johndoe", id.CurrentUser().Username)
}

func TestInitRuntime_ActivityNotificationsFlag(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.FeatureFlags = "activity_notifications=on"

	rt, err := InitRuntime(ctx, cfg, Options{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	defer rt.Close()

	// Mike likes Sarah's Civic.
	v, err := rt.Garage.LikeVehicle(ctx, "2", "3")
	require.NoError(t, err)
	require.True(t, v.LikedBy("3"))

	list, err := rt.Garage.Notifications(ctx, "2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationLike, list[0].Kind)
	assert.Equal(t, "mikejohnson", list[0].ActorUsername)
	assert.Equal(t, "liked your 2023 Honda Civic Type R", list[0].Message)
}

func TestInitRuntime_DefaultHookIsQuiet(t *testing.T) {
	ctx := context.Background()
	rt, err := InitRuntime(ctx, testConfig(t), Options{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Garage.LikeVehicle(ctx, "2", "3")
	require.NoError(t, err)
	require.NoError(t, rt.Garage.FollowUser(ctx, "3", "1"))

	list, err := rt.Garage.Notifications(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInitRuntime_SQLiteAndFileSession(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.StoreBackend = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "garage.db")
	cfg.SessionBackend = config.SessionFile

	rt, err := InitRuntime(ctx, cfg, Options{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.DB)
	fs, ok := rt.Sessions.(*session.FileStore)
	require.True(t, ok)
	assert.Equal(t, cfg.SessionDir, filepath.Dir(fs.Path()))

	mine, err := rt.Garage.VehiclesByUser(ctx, "2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Civic Type R", mine[0].Model)
}

func TestInitRuntime_RedisSession(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	cfg := testConfig(t)
	cfg.RedisURL = mr.Addr()
	cfg.SessionBackend = config.SessionRedis
	cfg.SeedMockData = false

	rt, err := InitRuntime(ctx, cfg, Options{SessionNamespace: "cli"})
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Redis)
	assert.IsType(t, &session.RedisStore{}, rt.Sessions)
	assert.True(t, rt.Notifier.Enabled())

	vehicles, err := rt.Garage.Vehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, vehicles)
}

func TestInitRuntime_RedisSessionWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionBackend = config.SessionRedis
	cfg.RedisURL = ""

	_, err := InitRuntime(context.Background(), cfg, Options{})
	assert.ErrorContains(t, err, "Redis is unavailable")
}
