package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/ec0249-assessment/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "EVENTS_ENABLED", "EVENTS_PUBLISHER", "SHUTDOWN_TIMEOUT", "CASDOOR_ENABLED", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, PublisherGoChannel, cfg.Events.Publisher)
	assert.Equal(t, "assessment_commands", cfg.Events.CommandTopic)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 10, Burst: 20}, cfg.RateLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("STORAGE_TTL", "720h")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorageRedis, cfg.StorageDriver)
	assert.Equal(t, 720*time.Hour, cfg.StorageTTL)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.GetKafkaBrokers())
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 0.5, Burst: 3}, cfg.RateLimit)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CATALOG_PATH", "")
	require.NoError(t, os.WriteFile(".env", []byte("CATALOG_PATH=/etc/ec0249/catalog.json\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/etc/ec0249/catalog.json", cfg.CatalogPath)
}

func TestCreateEventBus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	disabled := EventConfig{Enabled: false}
	bus, err := disabled.CreateEventBus(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.MockEventPublisher{}, bus.Publisher)
	assert.Nil(t, bus.Subscriber)

	inProcess := EventConfig{Enabled: true, Publisher: PublisherGoChannel, NotificationTopic: "notifications"}
	bus, err = inProcess.CreateEventBus(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.WatermillEventPublisher{}, bus.Publisher)
	assert.NotNil(t, bus.Subscriber)
	assert.NoError(t, bus.Subscriber.Close())
	assert.NoError(t, bus.Publisher.Close())

	unknown := EventConfig{Enabled: true, Publisher: "carrier-pigeon"}
	bus, err = unknown.CreateEventBus(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.MockEventPublisher{}, bus.Publisher)
}
