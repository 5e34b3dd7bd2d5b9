package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Log         LogConfig         `mapstructure:"log"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Seed        SeedConfig        `mapstructure:"seed"`
	UpdateCheck UpdateCheckConfig `mapstructure:"update_check"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// Static bearer tokens. Admin keys resolve to administrator callers.
	APIKeys         []string      `mapstructure:"api_keys"`
	AdminKeys       []string      `mapstructure:"admin_keys"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Enabled  bool          `mapstructure:"enabled"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type ProvidersConfig struct {
	Timeout   time.Duration   `mapstructure:"timeout"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Replicate ReplicateConfig `mapstructure:"replicate"`
}

type OpenAIConfig struct {
	Referer string `mapstructure:"referer"`
	Title   string `mapstructure:"title"`
}

type ReplicateConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type SeedConfig struct {
	File string `mapstructure:"file"`
}

type UpdateCheckConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Repo    string `mapstructure:"repo"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("./internal/config")
	}

	setDefaults(v)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names kept for existing deployments.
	_ = v.BindEnv("providers.openai.referer", "PROVIDERS_OPENAI_REFERER", "LOCAL_REFER_URL")
	_ = v.BindEnv("providers.openai.title", "PROVIDERS_OPENAI_TITLE", "LOCAL_TITLE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	resolveSecrets(v, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("server.admin_keys", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "registry.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "model-registry")
	v.SetDefault("providers.timeout", 15*time.Second)
	v.SetDefault("providers.openai.referer", "https://dialoqbase.n4ze3m.com/")
	v.SetDefault("providers.openai.title", "Dialoqbase")
	v.SetDefault("providers.replicate.base_url", "https://api.replicate.com/v1/models/")
	v.SetDefault("seed.file", "")
	v.SetDefault("update_check.enabled", false)
	v.SetDefault("update_check.repo", "nulzo/model-registry")
}

// resolveSecrets replaces "ENV:NAME" values with the named variable.
func resolveSecrets(v *viper.Viper, cfg *Config) {
	cfg.Auth.JWTSecret = resolve(v, cfg.Auth.JWTSecret)
	cfg.Database.DSN = resolve(v, cfg.Database.DSN)
	cfg.Redis.Password = resolve(v, cfg.Redis.Password)
	for i, k := range cfg.Server.APIKeys {
		cfg.Server.APIKeys[i] = resolve(v, k)
	}
	for i, k := range cfg.Server.AdminKeys {
		cfg.Server.AdminKeys[i] = resolve(v, k)
	}
}

func resolve(v *viper.Viper, value string) string {
	if !strings.HasPrefix(value, "ENV:") {
		return value
	}
	envVar := strings.TrimPrefix(value, "ENV:")
	// Check process environment first (explicit override)
	val := os.Getenv(envVar)
	if val == "" {
		// Then check viper (which might have it from other sources)
		val = v.GetString(envVar)
	}
	return val
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}
