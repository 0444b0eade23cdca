package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "0.08", cfg.Pricing.CommissionRate.String())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 500*time.Millisecond, cfg.WMS.RetryDelay)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("WMS_MAX_ATTEMPTS", "3")
	t.Setenv("PLATFORM_COMMISSION_RATE", "0.15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.WMS.MaxAttempts)
	assert.Equal(t, "0.15", cfg.Pricing.CommissionRate.String())
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapesPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/x?sslmode=disable", c.DSN())
}
