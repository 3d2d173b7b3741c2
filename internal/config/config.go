package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quiz-tracker/internal/quiz"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Cache modes. An empty mode means redis when a Redis address is configured
// and none otherwise.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Addr string `yaml:"addr"`

	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		URL    string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache           string `yaml:"cache"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`

	BatchPolicy        string   `yaml:"batch_policy"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	RandomDefaultLimit int      `yaml:"random_default_limit"`
}

func Default() *Config {
	cfg := &Config{
		Addr:               ":3000",
		BatchPolicy:        string(quiz.SkipInvalid),
		CORSAllowedOrigins: []string{"*"},
		RandomDefaultLimit: 20,
	}
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = "database.sqlite"
	cfg.CacheTTLSeconds = 300
	return cfg
}

// Load builds the configuration from defaults, the optional YAML file at path,
// a .env file in the working directory and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("ADDR", c.Addr)
	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.Path = getEnv("DATABASE_PATH", c.Database.Path)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Cache = getEnv("CACHE", c.Cache)
	c.CacheTTLSeconds = getEnvAsInt("CACHE_TTL_SECONDS", c.CacheTTLSeconds)
	c.BatchPolicy = getEnv("BATCH_POLICY", c.BatchPolicy)
	c.RandomDefaultLimit = getEnvAsInt("RANDOM_DEFAULT_LIMIT", c.RandomDefaultLimit)

	if origins, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		c.CORSAllowedOrigins = splitList(origins)
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.CacheMode() {
	case CacheNone:
	case CacheMemory:
		if c.CacheTTLSeconds <= 0 {
			return errors.New("memory cache needs a positive CACHE_TTL_SECONDS")
		}
	case CacheRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache mode %q", c.Cache)
	}

	if _, err := quiz.ParseBatchPolicy(c.BatchPolicy); err != nil {
		return err
	}
	if c.RandomDefaultLimit <= 0 {
		return fmt.Errorf("random default limit must be positive, got %d", c.RandomDefaultLimit)
	}
	return nil
}

func (c *Config) Policy() quiz.BatchPolicy {
	policy, err := quiz.ParseBatchPolicy(c.BatchPolicy)
	if err != nil {
		return quiz.SkipInvalid
	}
	return policy
}

// CacheMode resolves the configured cache mode. Without an explicit mode only a
// Redis shared by every process is used, since an in-process cache cannot see
// writes made by quiz-cli against the same database.
func (c *Config) CacheMode() string {
	mode := strings.ToLower(strings.TrimSpace(c.Cache))
	if mode != "" {
		return mode
	}
	if c.Redis.Addr != "" {
		return CacheRedis
	}
	return CacheNone
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
