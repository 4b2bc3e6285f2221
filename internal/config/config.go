package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port              int      `yaml:"port"`
	Host              string   `yaml:"host"`
	AccessSecret      string   `yaml:"access_secret"`
	GinMode           string   `yaml:"gin_mode"`
	TLSCertFile       string   `yaml:"tls_cert_file"`
	TLSKeyFile        string   `yaml:"tls_key_file"`
	DatabaseURL       string   `yaml:"database_url"`
	RedisAddr         string   `yaml:"redis_addr"`
	StateFile         string   `yaml:"state_file"`
	LogLevel          string   `yaml:"log_level"`
	LogFormat         string   `yaml:"log_format"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	WSMaxMessageBytes int64    `yaml:"ws_max_message_bytes"`

	TokenExpiry     time.Duration `yaml:"token_expiry"`
	RoleCacheTTL    time.Duration `yaml:"role_cache_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func Default() Config {
	return Config{
		Port:              8000,
		GinMode:           "release",
		LogLevel:          "info",
		LogFormat:         "text",
		AllowedOrigins:    []string{"*"},
		WSMaxMessageBytes: 1 << 20,
		TokenExpiry:       24 * time.Hour,
		RoleCacheTTL:      5 * time.Minute,
		ShutdownTimeout:   10 * time.Second,
	}
}

// LoadConfigFromEnv applies defaults, then the YAML file named by CONFIG_FILE
// (if any), then individual environment variables.
func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Default()

	if path := env.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT")
	}

	if raw := env.Getenv("HOST"); raw != "" {
		cfg.Host = raw
	}

	if raw := env.Getenv("ACCESS_SECRET_KEY"); raw != "" {
		cfg.AccessSecret = raw
	}
	if cfg.AccessSecret == "" {
		return Config{}, fmt.Errorf("ACCESS_SECRET_KEY is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}
	if raw := env.Getenv("TLS_CERT_FILE"); raw != "" {
		cfg.TLSCertFile = raw
	}
	if raw := env.Getenv("TLS_KEY_FILE"); raw != "" {
		cfg.TLSKeyFile = raw
	}
	if raw := env.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := env.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := env.Getenv("STATE_FILE"); raw != "" {
		cfg.StateFile = raw
	}
	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := env.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := env.Getenv("ALLOWED_ORIGINS"); raw != "" {
		cfg.AllowedOrigins = splitList(raw)
	}

	if raw := env.Getenv("WS_MAX_MESSAGE_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid WS_MAX_MESSAGE_BYTES")
		}
		cfg.WSMaxMessageBytes = n
	}

	var err error
	if cfg.TokenExpiry, err = secondsFromEnv(env, "TOKEN_EXPIRY_SECONDS", cfg.TokenExpiry); err != nil {
		return Config{}, err
	}
	if cfg.RoleCacheTTL, err = secondsFromEnv(env, "ROLE_CACHE_TTL_SECONDS", cfg.RoleCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = secondsFromEnv(env, "SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func secondsFromEnv(env Env, key string, fallback time.Duration) (time.Duration, error) {
	raw := env.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return time.Duration(seconds) * time.Second, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
