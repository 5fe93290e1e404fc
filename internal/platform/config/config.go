package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the process needs at startup. It is built once
// in main and passed by value into constructors; nothing reads the
// environment after boot.
type Config struct {
	// HTTP ops surface
	Addr string

	// Discord gateway / notifier
	DiscordToken   string
	DiscordGuildID string
	DiscordTimeout time.Duration

	// Postgres ledger
	DatabaseURL string

	// Optional Redis cache in front of the ledger
	Redis RedisConfig

	// Arweave-style content gateway
	GatewayURL       string
	WalletPath       string
	RewardMultiplier float64
	GatewayTimeout   time.Duration

	// Artifact generator collaborator
	GeneratorCommand   string
	AssetDir           string
	OutputDir          string
	MetadataConfigPath string

	// Issuance worker pool
	Workers       int
	QueueCapacity int

	// Operator surface
	AdminJWTSigningKey string
	RelaySecretHash    string

	// Kafka audit sink (optional)
	KafkaBrokers []string
	AuditTopic   string
}

// RedisConfig mirrors the knobs the redis client accepts. An empty URL means
// Redis is not configured and the ledger runs straight against Postgres.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr: getenv("MINTGATE_ADDR", ":8080"),

		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),
		DiscordTimeout: getduration("DISCORD_TIMEOUT", 10*time.Second),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getduration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		GatewayURL:       getenv("ARWEAVE_GATEWAY", "https://arweave.net"),
		WalletPath:       os.Getenv("ARWEAVE_KEYFILE"),
		RewardMultiplier: getfloat("ARWEAVE_REWARD_MULTIPLIER", 1.5),
		GatewayTimeout:   getduration("ARWEAVE_TIMEOUT", 30*time.Second),

		GeneratorCommand:   os.Getenv("GENERATOR_CMD"),
		AssetDir:           getenv("ASSET_DIR", "./assets"),
		OutputDir:          getenv("OUTPUT_DIR", "./generated"),
		MetadataConfigPath: getenv("NFT_CONFIG", "./assets/config.json"),

		Workers:       getint("ISSUANCE_WORKERS", 4),
		QueueCapacity: getint("ISSUANCE_QUEUE_CAPACITY", 64),

		AdminJWTSigningKey: os.Getenv("ADMIN_JWT_SIGNING_KEY"),
		RelaySecretHash:    os.Getenv("RELAY_SECRET_HASH"),

		KafkaBrokers: getlist("KAFKA_BROKERS"),
		AuditTopic:   getenv("AUDIT_TOPIC", "mintgate.audit"),
	}
}

// Validate rejects configurations the pipeline cannot run with. Optional
// integrations (Redis, Kafka, the relay intake) are allowed to be absent.
func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.WalletPath == "" {
		return fmt.Errorf("ARWEAVE_KEYFILE is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("ISSUANCE_WORKERS must be at least 1")
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("ISSUANCE_QUEUE_CAPACITY must be at least 1")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getlist(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
