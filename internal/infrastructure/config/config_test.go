package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/todo.db")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.ValidateJWT()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/todo.db")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "file:/tmp/todo.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.Database.GetDSN())
	assert.Equal(t, "todolists-api", cfg.JWT.Issuer)
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: DriverPostgres, Host: "localhost", Name: "todolists"},
			JWT:      JWTConfig{Secret: "s", ExpiresIn: time.Hour},
			Security: SecurityConfig{RateLimitRequests: 10, RateLimitWindow: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "unsupported database driver"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Driver = DriverSQLite }, wantErr: "database path"},
		{name: "missing postgres host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "database host"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server port"},
		{name: "no jwt settings", mutate: func(c *Config) { c.JWT = JWTConfig{} }},
		{name: "zero rate window", mutate: func(c *Config) { c.Security.RateLimitWindow = 0 }, wantErr: "rate limit window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJWT(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{Secret: "s", ExpiresIn: time.Hour}}
	assert.NoError(t, cfg.ValidateJWT())

	cfg.JWT.ExpiresIn = 0
	err := cfg.ValidateJWT()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT expiry")

	cfg.JWT.Secret = ""
	err = cfg.ValidateJWT()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}
