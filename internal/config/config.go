package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Mode string

const (
	ModePolling Mode = "polling"
	ModeWebhook Mode = "webhook"
)

type SessionStore string

const (
	StoreMemory SessionStore = "memory"
	StoreSQLite SessionStore = "sqlite"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// Update delivery
	Mode              Mode   `env:"MODE" envDefault:"polling"`
	WebhookListenAddr string `env:"WEBHOOK_LISTEN_ADDR" envDefault:":8080"`
	WebhookPath       string `env:"WEBHOOK_PATH" envDefault:"/webhook"`
	WebhookURL        string `env:"WEBHOOK_URL"`
	WebhookSecret     string `env:"WEBHOOK_SECRET"`

	// LLM settings
	LLMProvider       LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIMaxTokens   int           `env:"OPENAI_MAX_TOKENS" envDefault:"600"`
	OpenAITemperature float32       `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	YandexOAuthToken  string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string        `env:"YANDEX_FOLDER_ID"`

	// Conversation
	Locale          string `env:"LOCALE" envDefault:"en"`
	ExtendedProfile bool   `env:"EXTENDED_PROFILE" envDefault:"false"`

	// Sessions
	SessionStore  SessionStore  `env:"SESSION_STORE" envDefault:"memory"`
	SessionDBPath string        `env:"SESSION_DB_PATH" envDefault:"data/sessions.db"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@every 1h"`

	// Advice throttling
	AdviceRatePerMinute float64 `env:"ADVICE_RATE_PER_MINUTE" envDefault:"6"`
	AdviceRateBurst     int     `env:"ADVICE_RATE_BURST" envDefault:"3"`

	// Storage
	AdviceLogPath  string `env:"ADVICE_LOG_PATH" envDefault:"logs/advice.jsonl"`
	ReportSchedule string `env:"ADVICE_REPORT_SCHEDULE" envDefault:"0 21 * * *"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// off disables optional features whose variables have defaults.
const off = "off"

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Mode = Mode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	c.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(c.LLMProvider))))
	c.SessionStore = SessionStore(strings.ToLower(strings.TrimSpace(string(c.SessionStore))))
	c.Locale = strings.ToLower(strings.TrimSpace(c.Locale))
	if strings.EqualFold(c.AdviceLogPath, off) {
		c.AdviceLogPath = ""
	}
	if strings.EqualFold(c.ReportSchedule, off) {
		c.ReportSchedule = ""
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModePolling:
	case ModeWebhook:
		if !strings.HasPrefix(c.WebhookPath, "/") {
			errs = append(errs, fmt.Errorf("WEBHOOK_PATH must start with '/': %q", c.WebhookPath))
		}
		if c.WebhookListenAddr == "" {
			errs = append(errs, errors.New("WEBHOOK_LISTEN_ADDR is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MODE %q", c.Mode))
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	switch c.SessionStore {
	case StoreMemory:
	case StoreSQLite:
		if c.SessionDBPath == "" {
			errs = append(errs, errors.New("SESSION_DB_PATH is required for sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.OpenAIMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.OpenAIMaxTokens))
	}
	if c.AdviceRatePerMinute < 0 || c.AdviceRateBurst < 0 {
		errs = append(errs, errors.New("advice rate settings must not be negative"))
	}
	return errors.Join(errs...)
}
