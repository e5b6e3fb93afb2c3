package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SECRET_KEY", "testsecret123456789012345678901234")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, http://localhost:3000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "HS256", cfg.JWT.Algorithm)
	require.Equal(t, 30*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, int64(DefaultUploadMaxBytes), cfg.Upload.MaxBytes)
	require.Equal(t, StoreMemory, cfg.Store.Driver)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 5, cfg.MongoDB.ConnectAttempts)
	require.Equal(t, time.Second, cfg.MongoDB.ConnectBackoff)
	require.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoadConfig_JWTSecretFallback(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("JWT_SECRET", "fallback-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "fallback-secret", cfg.JWT.Secret)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":  {"SECRET_KEY": "", "JWT_SECRET": "", "STORE_DRIVER": "memory"},
		"bad algorithm":   {"SECRET_KEY": "s", "ALGORITHM": "RS256", "STORE_DRIVER": "memory"},
		"unknown driver":  {"SECRET_KEY": "s", "STORE_DRIVER": "sqlite"},
		"mongo needs uri": {"SECRET_KEY": "s", "STORE_DRIVER": "mongo", "MONGODB_URI": ""},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestRedisAddrEmptyWhenUnset(t *testing.T) {
	require.Equal(t, "", RedisConfig{Port: "6379"}.Addr())
}
