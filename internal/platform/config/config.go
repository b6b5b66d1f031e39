package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"titlechain/pkg/platform/middleware/metadata"
)

const devJWTSigningKey = "dev-secret-key-change-in-production"

// Config is the full service configuration, one struct per concern.
type Config struct {
	Server    Server
	FHE       FHE
	Wallet    Wallet
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	Audit     Audit
	RateLimit RateLimit
	LogLevel  string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MetricsAddr     string
	Env             string
	ShutdownTimeout time.Duration
	// TrustedProxies are CIDRs or IPs allowed to set X-Forwarded-For.
	TrustedProxies  []string
}

// Production reports whether APP_ENV is production.
func (s Server) Production() bool {
	return s.Env == "production"
}

// FHE selects and configures the encryption backend and proof keys.
type FHE struct {
	Backend           string
	AllowInsecure     bool
	TestSecretKey     string
	TestEvaluationKey string
	ProofSeed         string
	RelayerURL        string
	RelayerTimeout    time.Duration
	RelayerToken      string
	BreakerFailures   int
	BreakerCooldown   time.Duration
}

// Wallet configures session tokens and storage.
type Wallet struct {
	JWTSigningKey string
	SessionTTL    time.Duration
	SessionStore  string
}

// Database configures the PostgreSQL ledger store. Empty URL selects memory stores.
type Database struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig configures the Redis client used for wallet sessions.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit topic.
type Kafka struct {
	Brokers           []string
	AuditTopic        string
	Partitions        int32
	ReplicationFactor int16
}

// Audit selects the audit sink: memory, kafka or postgres (outbox).
type Audit struct {
	Sink          string
	RelayInterval time.Duration
}

// RateLimit configures per-class request limits per minute. Store is memory or redis.
type RateLimit struct {
	Disabled  bool
	Store     string
	Connect   int
	Sensitive int
	Write     int
	Read      int
}

// FromEnv builds the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load builds the configuration from getenv so tests can supply a fixed environment.
func Load(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Server: Server{
			Addr:            p.str("TITLECHAIN_ADDR", ":8080"),
			MetricsAddr:     p.str("METRICS_ADDR", ":9090"),
			Env:             strings.ToLower(p.str("APP_ENV", "development")),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedProxies:  splitList(getenv("TRUSTED_PROXIES")),
		},
		FHE: FHE{
			Backend:           strings.ToLower(strings.TrimSpace(getenv("FHE_BACKEND"))),
			AllowInsecure:     p.boolean("FHE_ALLOW_INSECURE", false),
			TestSecretKey:     getenv("FHE_TEST_SECRET_KEY"),
			TestEvaluationKey: getenv("FHE_TEST_EVALUATION_KEY"),
			ProofSeed:         getenv("FHE_PROOF_SEED"),
			RelayerURL:        getenv("FHE_RELAYER_URL"),
			RelayerTimeout:    p.duration("FHE_RELAYER_TIMEOUT", 5*time.Second),
			RelayerToken:      getenv("FHE_RELAYER_DECRYPT_TOKEN"),
			BreakerFailures:   p.integer("FHE_RELAYER_BREAKER_FAILURES", 5),
			BreakerCooldown:   p.duration("FHE_RELAYER_BREAKER_COOLDOWN", 10*time.Second),
		},
		Wallet: Wallet{
			JWTSigningKey: p.str("JWT_SIGNING_KEY", devJWTSigningKey),
			SessionTTL:    p.duration("SESSION_TTL", 24*time.Hour),
			SessionStore:  strings.ToLower(p.str("SESSION_STORE", "memory")),
		},
		Database: Database{
			URL:          getenv("DATABASE_URL"),
			MaxOpenConns: p.integer("DATABASE_MAX_OPEN_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          getenv("REDIS_URL"),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:           splitList(getenv("KAFKA_BROKERS")),
			AuditTopic:        p.str("KAFKA_AUDIT_TOPIC", "titlechain.audit"),
			Partitions:        int32(p.integer("KAFKA_AUDIT_PARTITIONS", 1)),
			ReplicationFactor: int16(p.integer("KAFKA_AUDIT_REPLICATION", 1)),
		},
		Audit: Audit{
			Sink:          strings.ToLower(p.str("AUDIT_SINK", "memory")),
			RelayInterval: p.duration("AUDIT_RELAY_INTERVAL", time.Second),
		},
		RateLimit: RateLimit{
			Disabled:  p.boolean("RATELIMIT_DISABLED", false),
			Store:     strings.ToLower(p.str("RATELIMIT_STORE", "memory")),
			Connect:   p.integer("RATELIMIT_CONNECT_PER_MINUTE", 10),
			Sensitive: p.integer("RATELIMIT_DECRYPT_PER_MINUTE", 30),
			Write:     p.integer("RATELIMIT_WRITE_PER_MINUTE", 50),
			Read:      p.integer("RATELIMIT_READ_PER_MINUTE", 100),
		},
		LogLevel: p.str("LOG_LEVEL", "info"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on configurations the service must not start with.
func (c Config) Validate() error {
	var errs []error
	prod := c.Server.Production()

	if _, err := metadata.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}

	switch c.FHE.Backend {
	case "test":
		if prod && !c.FHE.AllowInsecure {
			errs = append(errs, errors.New("FHE_BACKEND=test is insecure; set FHE_ALLOW_INSECURE=true to use it in production"))
		}
		if c.FHE.TestSecretKey == "" && c.FHE.TestEvaluationKey == "" {
			errs = append(errs, errors.New("FHE_BACKEND=test needs FHE_TEST_SECRET_KEY or FHE_TEST_EVALUATION_KEY"))
		}
		errs = append(errs, checkHexKey("FHE_TEST_SECRET_KEY", c.FHE.TestSecretKey))
		errs = append(errs, checkHexKey("FHE_TEST_EVALUATION_KEY", c.FHE.TestEvaluationKey))
	case "relayer":
		if c.FHE.RelayerURL == "" {
			errs = append(errs, errors.New("FHE_BACKEND=relayer needs FHE_RELAYER_URL"))
		}
	case "":
		errs = append(errs, errors.New("FHE_BACKEND is required (test or relayer)"))
	default:
		errs = append(errs, fmt.Errorf("unknown FHE_BACKEND %q (want test or relayer)", c.FHE.Backend))
	}

	if prod && c.FHE.ProofSeed == "" {
		errs = append(errs, errors.New("FHE_PROOF_SEED is required in production"))
	}
	errs = append(errs, checkHexKey("FHE_PROOF_SEED", c.FHE.ProofSeed))

	if prod && (c.Wallet.JWTSigningKey == devJWTSigningKey || len(c.Wallet.JWTSigningKey) < 32) {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set to at least 32 characters in production"))
	}
	switch c.Wallet.SessionStore {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("SESSION_STORE=redis needs REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q (want memory or redis)", c.Wallet.SessionStore))
	}

	switch c.Audit.Sink {
	case "memory":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("AUDIT_SINK=kafka needs KAFKA_BROKERS"))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("AUDIT_SINK=postgres needs DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUDIT_SINK %q (want memory, kafka or postgres)", c.Audit.Sink))
	}

	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("RATELIMIT_STORE=redis needs REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RATELIMIT_STORE %q (want memory or redis)", c.RateLimit.Store))
	}

	return errors.Join(errs...)
}

func checkHexKey(name, value string) error {
	if value == "" {
		return nil
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return fmt.Errorf("%s: invalid hex: %w", name, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("%s: got %d bytes, want 32", name, len(b))
	}
	return nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
