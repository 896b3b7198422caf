package config

import (
	"testing"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "CACHE_TTL", "USE_KAFKA", "JWT_TTL", "MINIO_ENDPOINT", "LOGIN_RPS", "BASE_URL"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.UseKafka)
	assert.False(t, cfg.UseMinio())
	assert.Equal(t, 5.0, cfg.LoginRPS)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
}

func TestLoadConfig_DevRoleWithoutAppEnvEnforces(t *testing.T) {
	t.Setenv("ROLE", "dev")
	t.Setenv("APP_ENV", "")

	cfg := LoadConfig()

	assert.Equal(t, "production", cfg.AppEnv)
	assert.False(t, accessDomain.NewAuthorizationPolicy(cfg.Role, cfg.AppEnv).Bypass())

	t.Setenv("APP_ENV", "development")
	cfg = LoadConfig()
	assert.True(t, accessDomain.NewAuthorizationPolicy(cfg.Role, cfg.AppEnv).Bypass())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "MongoDB")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("USE_KAFKA", "true")
	t.Setenv("OUTBOX_PERIOD", "250ms")
	t.Setenv("OUTBOX_LIMIT", "50")
	t.Setenv("BASE_URL", "https://api.example.com/")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("LOGIN_BURST", "oops")

	cfg := LoadConfig()

	assert.Equal(t, DriverMongo, cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.UseKafka)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPeriod)
	assert.Equal(t, 50, cfg.OutboxLimit)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.True(t, cfg.UseMinio())
	assert.Equal(t, 10, cfg.LoginBurst, "invalid values fall back")
}
