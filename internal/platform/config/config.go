package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends understood by the server.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config aggregates every runtime setting of the passport server.
type Config struct {
	Server   Server
	Storage  Storage
	Kafka    Kafka
	Workflow Workflow
	Log      Log
}

// Server holds the HTTP listener and actor token settings.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	ShutdownTimeout time.Duration
}

type Storage struct {
	Backend     string
	PostgresDSN string
	Postgres    PostgresConfig
	Redis       RedisConfig
}

type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the shared record store connection.
type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka is optional: with no brokers, transitions are only logged.
type Kafka struct {
	Brokers           []string
	ClientID          string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

type Workflow struct {
	SuggestedMaxLoves     int
	SuggestedMaxHates     int
	SuggestedMaxStrengths int
	SuggestedMaxNeeds     int
	CASAttempts           int
	StoreTimeout          time.Duration
	LockTimeout           time.Duration
	LoadConcurrency       int
}

type Log struct {
	Level  string
	Format string
}

// FromEnv reads configuration from PASSPORT_* environment variables.
func FromEnv() (Config, error) {
	r := envReader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("PASSPORT_ADDR", ":8080"),
			JWTSigningKey:   r.str("PASSPORT_JWT_SIGNING_KEY", ""),
			JWTIssuer:       r.str("PASSPORT_JWT_ISSUER", "passport"),
			JWTAudience:     r.str("PASSPORT_JWT_AUDIENCE", "passport-api"),
			ShutdownTimeout: r.duration("PASSPORT_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Storage: Storage{
			Backend:     strings.ToLower(r.str("PASSPORT_STORE", BackendMemory)),
			PostgresDSN: r.str("PASSPORT_POSTGRES_DSN", ""),
			Postgres: PostgresConfig{
				MaxOpenConns:    r.integer("PASSPORT_POSTGRES_MAX_OPEN_CONNS", 20),
				MaxIdleConns:    r.integer("PASSPORT_POSTGRES_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime: r.duration("PASSPORT_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
			},
			Redis: RedisConfig{
				URL:          r.str("PASSPORT_REDIS_URL", ""),
				KeyPrefix:    r.str("PASSPORT_REDIS_PREFIX", "passport"),
				PoolSize:     r.integer("PASSPORT_REDIS_POOL_SIZE", 10),
				MinIdleConns: r.integer("PASSPORT_REDIS_MIN_IDLE_CONNS", 2),
				DialTimeout:  r.duration("PASSPORT_REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  r.duration("PASSPORT_REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: r.duration("PASSPORT_REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
		},
		Kafka: Kafka{
			Brokers:           r.list("PASSPORT_KAFKA_BROKERS"),
			ClientID:          r.str("PASSPORT_KAFKA_CLIENT_ID", "passport"),
			Topic:             r.str("PASSPORT_KAFKA_TOPIC", "passport.transitions"),
			Partitions:        int32(r.integer("PASSPORT_KAFKA_PARTITIONS", 3)),
			ReplicationFactor: int16(r.integer("PASSPORT_KAFKA_REPLICATION_FACTOR", 1)),
		},
		Workflow: Workflow{
			SuggestedMaxLoves:     r.integer("PASSPORT_SUGGESTED_MAX_LOVES", 5),
			SuggestedMaxHates:     r.integer("PASSPORT_SUGGESTED_MAX_HATES", 4),
			SuggestedMaxStrengths: r.integer("PASSPORT_SUGGESTED_MAX_STRENGTHS", 5),
			SuggestedMaxNeeds:     r.integer("PASSPORT_SUGGESTED_MAX_NEEDS", 4),
			CASAttempts:           r.integer("PASSPORT_CAS_ATTEMPTS", 3),
			StoreTimeout:          r.duration("PASSPORT_STORE_TIMEOUT", 2*time.Second),
			LockTimeout:           r.duration("PASSPORT_LOCK_TIMEOUT", 5*time.Second),
			LoadConcurrency:       r.integer("PASSPORT_LOAD_CONCURRENCY", 8),
		},
		Log: Log{
			Level:  strings.ToLower(r.str("PASSPORT_LOG_LEVEL", "info")),
			Format: strings.ToLower(r.str("PASSPORT_LOG_FORMAT", "json")),
		},
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if c.Server.JWTSigningKey == "" {
		return fmt.Errorf("PASSPORT_JWT_SIGNING_KEY is required")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("PASSPORT_POSTGRES_DSN is required for the postgres store")
		}
	case BackendRedis:
		if c.Storage.Redis.URL == "" {
			return fmt.Errorf("PASSPORT_REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Storage.Backend)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("PASSPORT_KAFKA_TOPIC is required when brokers are set")
	}
	return nil
}

// envReader keeps the first parse failure so FromEnv can report it once.
type envReader struct {
	err error
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return n
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return d
}

func (r *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *envReader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
