package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Instagram InstagramConfig `mapstructure:"instagram"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Addr           string  `mapstructure:"addr"`
	JWTSecret      string  `mapstructure:"jwt_secret"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
	AllowedOrigins string  `mapstructure:"allowed_origins"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type DatabaseConfig struct {
	URL         string `mapstructure:"url"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

// AIConfig selects the classifier backend: openai, anthropic or keyword.
type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
	BaseURL     string  `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	BaseURL   string `mapstructure:"base_url"`
}

type InstagramConfig struct {
	GraphBaseURL string  `mapstructure:"graph_base_url"`
	APIVersion   string  `mapstructure:"api_version"`
	AppSecret    string  `mapstructure:"app_secret"`
	VerifyToken  string  `mapstructure:"verify_token"`
	SendRate     float64 `mapstructure:"send_rate"`
	SendBurst    int     `mapstructure:"send_burst"`
	FetchLimit   int     `mapstructure:"fetch_limit"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type PipelineConfig struct {
	ContextWindow       time.Duration `mapstructure:"context_window"`
	ContextMaxTurns     int           `mapstructure:"context_max_turns"`
	DefaultMonthlyLimit int           `mapstructure:"default_monthly_limit"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderKeyword   = "keyword"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("admin.username", "root")
	v.SetDefault("admin.password", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.base_url", "")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("anthropic.max_tokens", 500)
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("instagram.graph_base_url", "https://graph.facebook.com")
	v.SetDefault("instagram.api_version", "v21.0")
	v.SetDefault("instagram.app_secret", "")
	v.SetDefault("instagram.verify_token", "")
	v.SetDefault("instagram.send_rate", 1.0)
	v.SetDefault("instagram.send_burst", 5)
	v.SetDefault("instagram.fetch_limit", 25)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel_prefix", "viloai:events")
	v.SetDefault("log.mode", "production")
	v.SetDefault("pipeline.context_window", 10*time.Minute)
	v.SetDefault("pipeline.context_max_turns", 5)
	v.SetDefault("pipeline.default_monthly_limit", 100)
}

// Load reads .env, then the optional YAML file at path (config.yaml in the
// working directory when path is empty), then the environment. Nested keys map
// to upper-case env names with "_" for ".", e.g. DATABASE_URL.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Short names kept from the old .env files.
	_ = v.BindEnv("server.jwt_secret", "SERVER_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("instagram.app_secret", "INSTAGRAM_APP_SECRET", "META_APP_SECRET")
	_ = v.BindEnv("log.mode", "LOG_MODE", "APP_ENV")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that would stop the service from starting.
func (c *Config) Validate() error {
	if c.Server.JWTSecret == "" {
		return errors.New("server.jwt_secret (JWT_SECRET) is required")
	}
	if c.Database.URL == "" && !c.Database.UseInMemory {
		return errors.New("database.url (DATABASE_URL) is required unless database.use_in_memory is set")
	}
	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("openai.api_key (OPENAI_API_KEY) is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return errors.New("anthropic.api_key (ANTHROPIC_API_KEY) is required for the anthropic provider")
		}
	case ProviderKeyword:
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	if c.Pipeline.DefaultMonthlyLimit < 0 {
		return errors.New("pipeline.default_monthly_limit must not be negative")
	}
	return nil
}
