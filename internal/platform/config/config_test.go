package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hexKey = "0101010101010101010101010101010101010101010101010101010101010101"

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(env(map[string]string{"FHE_BACKEND": "Test"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, "test", cfg.FHE.Backend)
	assert.Equal(t, 5*time.Second, cfg.FHE.RelayerTimeout)
	assert.Equal(t, "memory", cfg.Wallet.SessionStore)
	assert.Equal(t, "titlechain.audit", cfg.Kafka.AuditTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, RateLimit{Store: "memory", Connect: 10, Sensitive: 30, Write: 50, Read: 100}, cfg.RateLimit)
}

func TestLoadParsesValues(t *testing.T) {
	cfg, err := Load(env(map[string]string{
		"FHE_RELAYER_TIMEOUT": "250ms",
		"FHE_ALLOW_INSECURE":  "true",
		"KAFKA_BROKERS":       "a:9092, b:9092,",
		"REDIS_POOL_SIZE":     "20",
		"APP_ENV":             "Production",
		"TRUSTED_PROXIES":     "10.0.0.0/8, 192.0.2.1",
	}))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.FHE.RelayerTimeout)
	assert.True(t, cfg.FHE.AllowInsecure)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.True(t, cfg.Server.Production())
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.Server.TrustedProxies)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(env(map[string]string{
		"FHE_RELAYER_TIMEOUT": "soon",
		"REDIS_POOL_SIZE":     "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FHE_RELAYER_TIMEOUT")
	assert.Contains(t, err.Error(), "REDIS_POOL_SIZE")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load(env(map[string]string{"FHE_BACKEND": "test", "FHE_TEST_SECRET_KEY": hexKey}))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "development test backend", mutate: func(*Config) {}},
		{name: "missing backend", mutate: func(c *Config) { c.FHE.Backend = "" }, wantErr: "FHE_BACKEND is required"},
		{name: "unknown backend", mutate: func(c *Config) { c.FHE.Backend = "mock" }, wantErr: "unknown FHE_BACKEND"},
		{name: "insecure in production", mutate: func(c *Config) {
			c.Server.Env = "production"
			c.FHE.ProofSeed = hexKey
			c.Wallet.JWTSigningKey = strings.Repeat("k", 32)
		}, wantErr: "FHE_ALLOW_INSECURE"},
		{name: "insecure opt-in in production", mutate: func(c *Config) {
			c.Server.Env = "production"
			c.FHE.AllowInsecure = true
			c.FHE.ProofSeed = hexKey
			c.Wallet.JWTSigningKey = strings.Repeat("k", 32)
		}},
		{name: "production needs proof seed", mutate: func(c *Config) {
			c.Server.Env = "production"
			c.FHE.AllowInsecure = true
			c.Wallet.JWTSigningKey = strings.Repeat("k", 32)
		}, wantErr: "FHE_PROOF_SEED"},
		{name: "production needs jwt key", mutate: func(c *Config) {
			c.Server.Env = "production"
			c.FHE.AllowInsecure = true
			c.FHE.ProofSeed = hexKey
		}, wantErr: "JWT_SIGNING_KEY"},
		{name: "bad test key", mutate: func(c *Config) { c.FHE.TestSecretKey = "abcd" }, wantErr: "FHE_TEST_SECRET_KEY"},
		{name: "relayer without url", mutate: func(c *Config) { c.FHE.Backend = "relayer" }, wantErr: "FHE_RELAYER_URL"},
		{name: "redis sessions without url", mutate: func(c *Config) { c.Wallet.SessionStore = "redis" }, wantErr: "REDIS_URL"},
		{name: "kafka audit without brokers", mutate: func(c *Config) { c.Audit.Sink = "kafka" }, wantErr: "KAFKA_BROKERS"},
		{name: "postgres audit without database", mutate: func(c *Config) { c.Audit.Sink = "postgres" }, wantErr: "DATABASE_URL"},
		{name: "redis rate limits without url", mutate: func(c *Config) { c.RateLimit.Store = "redis" }, wantErr: "RATELIMIT_STORE=redis"},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/40"} }, wantErr: "TRUSTED_PROXIES"},
		{name: "unknown rate limit store", mutate: func(c *Config) { c.RateLimit.Store = "disk" }, wantErr: "unknown RATELIMIT_STORE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
