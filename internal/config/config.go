package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	SQL           SQLConfig
	AI            AIConfig
	Chat          ChatConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type SQLConfig struct {
	ReadOnly         bool
	MaxResultRows    int
	SchemaSampleRows int
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRounds   int
	Timeout     time.Duration
}

type ChatConfig struct {
	SessionTTL time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DBCHAT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DBCHAT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	steps := []func() error{
		func() error { return applyString(lookup, "DBCHAT_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "DBCHAT_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "DBCHAT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "DBCHAT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "DBCHAT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "DBCHAT_DATABASE_URL", &cfg.Database.URL) },
		func() error { return applyString(lookup, "DBCHAT_DATABASE_SCHEMA", &cfg.Database.Schema) },
		func() error { return applyInt(lookup, "DBCHAT_DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "DBCHAT_DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "DBCHAT_DATABASE_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "DBCHAT_DATABASE_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
		},
		func() error { return applyBool(lookup, "DBCHAT_SQL_READ_ONLY", &cfg.SQL.ReadOnly) },
		func() error { return applyInt(lookup, "DBCHAT_SQL_MAX_RESULT_ROWS", &cfg.SQL.MaxResultRows) },
		func() error { return applyInt(lookup, "DBCHAT_SCHEMA_SAMPLE_ROWS", &cfg.SQL.SchemaSampleRows) },
		func() error { return applyString(lookup, "DBCHAT_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "DBCHAT_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "DBCHAT_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "DBCHAT_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "DBCHAT_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyInt(lookup, "DBCHAT_AI_MAX_TOKENS", &cfg.AI.MaxTokens) },
		func() error { return applyInt(lookup, "DBCHAT_AGENT_MAX_ROUNDS", &cfg.AI.MaxRounds) },
		func() error { return applyDuration(lookup, "DBCHAT_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyDuration(lookup, "DBCHAT_SESSION_TTL", &cfg.Chat.SessionTTL) },
		func() error { return applyBool(lookup, "DBCHAT_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "DBCHAT_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "DBCHAT_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "DBCHAT_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	// Unprefixed names used by the usual .env files for this kind of app.
	if cfg.Database.URL == "" {
		if err := applyString(lookup, "DATABASE_URL", &cfg.Database.URL); err != nil {
			return Config{}, err
		}
	}
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if cfg.AI.APIKey == "" {
		fallbackKey := "ANTHROPIC_API_KEY"
		if cfg.AI.Provider == ProviderOpenAI {
			fallbackKey = "OPENAI_API_KEY"
		}
		if err := applyString(lookup, fallbackKey, &cfg.AI.APIKey); err != nil {
			return Config{}, err
		}
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.AI.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("invalid DBCHAT_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	if cfg.SQL.MaxResultRows <= 0 {
		return Config{}, fmt.Errorf("invalid DBCHAT_SQL_MAX_RESULT_ROWS: must be > 0")
	}
	if cfg.SQL.SchemaSampleRows < 0 {
		return Config{}, fmt.Errorf("invalid DBCHAT_SCHEMA_SAMPLE_ROWS: must be >= 0")
	}
	if cfg.AI.MaxRounds <= 0 {
		return Config{}, fmt.Errorf("invalid DBCHAT_AGENT_MAX_ROUNDS: must be > 0")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "dbchat-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Schema:          "public",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		SQL: SQLConfig{
			ReadOnly:         true,
			MaxResultRows:    50,
			SchemaSampleRows: 3,
		},
		AI: AIConfig{
			Provider:    ProviderAnthropic,
			Temperature: 0,
			MaxTokens:   2048,
			MaxRounds:   8,
			Timeout:     2 * time.Minute,
		},
		Chat: ChatConfig{
			SessionTTL: 2 * time.Hour,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Chat.SessionTTL = 5 * time.Minute
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.Auth.Required = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
