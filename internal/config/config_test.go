package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ModePolling, cfg.Mode)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.Equal(t, 600, cfg.OpenAIMaxTokens)
	assert.InDelta(t, 0.7, cfg.OpenAITemperature, 0.0001)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "en", cfg.Locale)
	assert.False(t, cfg.ExtendedProfile)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "@every 1h", cfg.SweepSchedule)
	assert.Equal(t, "/webhook", cfg.WebhookPath)
	assert.Equal(t, "logs/advice.jsonl", cfg.AdviceLogPath)
	assert.Equal(t, "0 21 * * *", cfg.ReportSchedule)
}

func TestNew_MissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))
	_, err := New()
	assert.Error(t, err)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("MODE", "Webhook")
	t.Setenv("LLM_PROVIDER", "YANDEX")
	t.Setenv("SESSION_STORE", "sqlite")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("EXTENDED_PROFILE", "true")
	t.Setenv("ADVICE_LOG_PATH", "OFF")
	t.Setenv("ADVICE_REPORT_SCHEDULE", "off")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, ModeWebhook, cfg.Mode)
	assert.Equal(t, ProviderYandex, cfg.LLMProvider)
	assert.Equal(t, StoreSQLite, cfg.SessionStore)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.ExtendedProfile)
	assert.Empty(t, cfg.AdviceLogPath)
	assert.Empty(t, cfg.ReportSchedule)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			TelegramBotToken:  "t",
			Mode:              ModePolling,
			LLMProvider:       ProviderOpenAI,
			SessionStore:      StoreMemory,
			SessionTTL:        time.Hour,
			OpenAIMaxTokens:   100,
			WebhookPath:       "/webhook",
			WebhookListenAddr: ":8080",
		}
	}

	cases := map[string]func(c *Config){
		"bad mode":       func(c *Config) { c.Mode = "push" },
		"bad provider":   func(c *Config) { c.LLMProvider = "claude" },
		"bad store":      func(c *Config) { c.SessionStore = "redis" },
		"zero ttl":       func(c *Config) { c.SessionTTL = 0 },
		"relative path":  func(c *Config) { c.Mode = ModeWebhook; c.WebhookPath = "hook" },
		"no db path":     func(c *Config) { c.SessionStore = StoreSQLite },
		"negative burst": func(c *Config) { c.AdviceRateBurst = -1 },
	}

	base := valid()
	require.NoError(t, base.Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
