package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Env string

const (
	Dev        Env = "development"
	Test       Env = "test"
	Preview    Env = "preview"
	Production Env = "production"
)

type Config struct {
	AppName string
	ENV     Env
	AppPort int

	LogLevel string

	Toolchain ToolchainConfig

	// Postgres (optional; enabled only when DBHost + DBName are set).
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int
	DBName     string

	// SQLite (optional): a local file path or a libsql:// remote DSN.
	SQLite SQLiteConfig

	// Redis (optional; enabled only when RedisHost is set).
	RedisUser     string
	RedisPassword string
	RedisHost     string
	RedisPort     int
	RedisScheme   string

	RabbitMQ RabbitMQConfig
	Inngest  InngestConfig
	Worker   WorkerConfig
}

type ToolchainConfig struct {
	// Dir holds glslangValidator and spirv-remap. Empty means
	// <project root>/build/glslang/StandAlone, then PATH.
	Dir            string
	Quiet          bool
	MaxOutputBytes int
}

type SQLiteConfig struct {
	DSN   string
	Token string
}

type RabbitMQConfig struct {
	URL             string
	Exchange        string
	Queue           string
	RoutingKey      string
	Prefetch        int
	DeclareTopology bool
}

type InngestConfig struct {
	AppID      string
	SigningKey string
	Dev        string
	ServeHost  string
	ServePath  string
}

type WorkerConfig struct {
	DedupeTTL time.Duration
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_name", "glslang-runner")
	v.SetDefault("app_env", string(Dev))
	v.SetDefault("app_port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("toolchain.dir", "")
	v.SetDefault("toolchain.quiet", false)
	v.SetDefault("toolchain.max_output_bytes", 1<<20)

	v.SetDefault("db_port", 5432)
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_scheme", "redis")

	v.SetDefault("rabbitmq.exchange", "events")
	v.SetDefault("rabbitmq.queue", "toolchain.run.requested.v1")
	v.SetDefault("rabbitmq.routing_key", "toolchain.run.requested.v1")
	v.SetDefault("rabbitmq.prefetch", 1)
	v.SetDefault("rabbitmq.declare_topology", true)

	v.SetDefault("inngest.serve_path", "/api/inngest")

	v.SetDefault("worker.dedupe_ttl", 10*time.Minute)

	return v
}

func NewConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppName: v.GetString("app_name"),
		ENV:     Env(strings.ToLower(strings.TrimSpace(v.GetString("app_env")))),
		AppPort: v.GetInt("app_port"),

		LogLevel: v.GetString("log_level"),

		Toolchain: ToolchainConfig{
			Dir:            strings.TrimSpace(v.GetString("toolchain.dir")),
			Quiet:          v.GetBool("toolchain.quiet"),
			MaxOutputBytes: v.GetInt("toolchain.max_output_bytes"),
		},

		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBHost:     v.GetString("db_host"),
		DBPort:     v.GetInt("db_port"),
		DBName:     v.GetString("db_name"),

		SQLite: SQLiteConfig{
			DSN:   strings.TrimSpace(v.GetString("sqlite.dsn")),
			Token: strings.TrimSpace(v.GetString("sqlite.token")),
		},

		RedisUser:     v.GetString("redis_user"),
		RedisPassword: v.GetString("redis_password"),
		RedisHost:     v.GetString("redis_host"),
		RedisPort:     v.GetInt("redis_port"),
		RedisScheme:   v.GetString("redis_scheme"),

		RabbitMQ: RabbitMQConfig{
			URL:             strings.TrimSpace(v.GetString("rabbitmq.url")),
			Exchange:        v.GetString("rabbitmq.exchange"),
			Queue:           v.GetString("rabbitmq.queue"),
			RoutingKey:      v.GetString("rabbitmq.routing_key"),
			Prefetch:        v.GetInt("rabbitmq.prefetch"),
			DeclareTopology: v.GetBool("rabbitmq.declare_topology"),
		},

		Inngest: InngestConfig{
			AppID:      v.GetString("inngest.app_id"),
			SigningKey: v.GetString("inngest.signing_key"),
			Dev:        v.GetString("inngest.dev"),
			ServeHost:  v.GetString("inngest.serve_host"),
			ServePath:  v.GetString("inngest.serve_path"),
		},

		Worker: WorkerConfig{
			DedupeTTL: v.GetDuration("worker.dedupe_ttl"),
		},
	}

	switch cfg.ENV {
	case Dev, Test, Preview, Production:
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q", cfg.ENV)
	}
	if cfg.AppPort <= 0 || cfg.AppPort > 65535 {
		return nil, fmt.Errorf("invalid APP_PORT %d", cfg.AppPort)
	}
	if cfg.DBPort <= 0 || cfg.DBPort > 65535 {
		return nil, fmt.Errorf("invalid DB_PORT %d", cfg.DBPort)
	}
	if cfg.RedisPort <= 0 || cfg.RedisPort > 65535 {
		return nil, fmt.Errorf("invalid REDIS_PORT %d", cfg.RedisPort)
	}
	if cfg.Toolchain.MaxOutputBytes < 0 {
		return nil, fmt.Errorf("invalid TOOLCHAIN_MAX_OUTPUT_BYTES %d", cfg.Toolchain.MaxOutputBytes)
	}

	return cfg, nil
}
