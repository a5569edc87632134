package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_STORAGE", "memory")

	cfg := Load()
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.AccessTTL)
	assert.Equal(t, 3*time.Second, cfg.LookupTimeout)
	assert.False(t, cfg.RevokeOnPasswordChange)
	assert.False(t, cfg.RevokeOnDeactivate)
	assert.False(t, cfg.EnforcePermissions)
	assert.Empty(t, cfg.DBHost)
}

func TestLoadAuthOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_STORAGE", "MySQL")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "inventory")
	t.Setenv("ACCESS_TOKEN_TTL", "90m")
	t.Setenv("AUTH_REVOKE_ON_PASSWORD_CHANGE", "yes")
	t.Setenv("AUTH_REVOKE_ON_DEACTIVATE", "1")
	t.Setenv("AUTH_ENFORCE_PERMISSIONS", "TRUE")
	t.Setenv("RABBITMQ_URL", "amqp://mq")
	t.Setenv("AUTH_ADMIN_EMAIL", "root@example.com")
	t.Setenv("AUTH_ADMIN_PASSWORD", "Rootpass1")

	cfg := Load()
	assert.Equal(t, StorageMySQL, cfg.Storage)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, 90*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.RevokeOnPasswordChange)
	assert.True(t, cfg.RevokeOnDeactivate)
	assert.True(t, cfg.EnforcePermissions)
	assert.Equal(t, "amqp://mq", cfg.AMQPURL)
	assert.Equal(t, "root@example.com", cfg.AdminEmail)
	assert.Equal(t, "Rootpass1", cfg.AdminPassword)
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_INT", "ten")
	t.Setenv("X_DUR", "soon")

	assert.True(t, envBool("X_BOOL", true))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, time.Minute, envDur("X_DUR", time.Minute))
}

func TestRateLimitNormalize(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 50*time.Second, rl.TTL)
}

func TestCacheMethodsUpperCased(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,")
	cc := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cc.Methods)
}
