package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	GRPCAddr  string `yaml:"grpc_addr"`
	LogLevel  string `yaml:"log_level"`
	Tracing   bool   `yaml:"tracing"`
	StoreName string `yaml:"store_name"`

	Inventory  InventoryConfig  `yaml:"inventory"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Orders     OrdersConfig     `yaml:"orders"`
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	MySQL      MySQLConfig      `yaml:"mysql"`
	AMQP       AMQPConfig       `yaml:"amqp"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Contact    ContactConfig    `yaml:"contact"`
}

type InventoryConfig struct {
	Backend     string `yaml:"backend"`
	CatalogFile string `yaml:"catalog_file"`
	Seed        bool   `yaml:"seed"`
}

type TranscriptConfig struct {
	Backend string `yaml:"backend"`
}

type OrdersConfig struct {
	Backend          string        `yaml:"backend"`
	SimulatedLatency time.Duration `yaml:"simulated_latency"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type MySQLConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type AMQPConfig struct {
	URL string `yaml:"url"`
}

type GeminiConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
}

type ContactConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:  ":8080",
		GRPCAddr:  ":50051",
		LogLevel:  "info",
		StoreName: "NumoStock",
		Inventory: InventoryConfig{Backend: BackendMemory, Seed: true},
		Transcript: TranscriptConfig{
			Backend: BackendMemory,
		},
		Orders: OrdersConfig{
			Backend:          BackendMemory,
			SimulatedLatency: 1500 * time.Millisecond,
		},
		Redis:   RedisConfig{Addr: "localhost:6379", PoolSize: 100},
		MySQL:   MySQLConfig{MaxOpenConns: 50},
		Gemini:  GeminiConfig{Model: "gemini-2.5-flash", Temperature: 0.7},
		Contact: ContactConfig{Workers: 2, QueueSize: 100},
	}
}

// Load applies defaults, then the YAML file named by CONFIG_FILE (if any),
// then environment overrides, and validates the result.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		c.GRPCAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TRACING"); v != "" {
		c.Tracing = parseBool(v)
	}
	if v := os.Getenv("INVENTORY_BACKEND"); v != "" {
		c.Inventory.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CATALOG_FILE"); v != "" {
		c.Inventory.CatalogFile = v
	}
	if v := os.Getenv("TRANSCRIPT_BACKEND"); v != "" {
		c.Transcript.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ORDER_BACKEND"); v != "" {
		c.Orders.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		c.MySQL.DSN = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.AMQP.URL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	} else if v := os.Getenv("API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("CONTACT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONTACT_WORKERS: %w", err)
		}
		c.Contact.Workers = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Inventory.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("inventory backend redis requires redis.addr")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("inventory backend postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown inventory backend %q", c.Inventory.Backend)
	}

	switch c.Transcript.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown transcript backend %q", c.Transcript.Backend)
	}

	switch c.Orders.Backend {
	case BackendMemory:
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("order backend mysql requires MYSQL_DSN")
		}
	default:
		return fmt.Errorf("unknown order backend %q", c.Orders.Backend)
	}

	if c.Contact.Workers < 1 {
		return fmt.Errorf("contact.workers must be at least 1")
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
