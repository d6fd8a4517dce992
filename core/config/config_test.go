package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validYAML = `
telegram:
  token: "123456:abc"
  admin_id: 1
stickers:
  packs: ["Memes", "Cats"]
  owner_id: 777
  bot_username: "mybot"
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{"Memes", "Cats"}, cfg.Stickers.Packs)
	assert.Equal(t, int64(777), cfg.Stickers.OwnerID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999999:env")
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "999999:env", cfg.Telegram.Token)
}

func TestNormalizeRejections(t *testing.T) {
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "123456:abc"},
			Stickers: StickersConfig{
				Packs:       []string{"Memes"},
				OwnerID:     777,
				BotUsername: "mybot",
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "token is required"},
		{"bad run mode", func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" }, "invalid telegram.run_mode"},
		{"webhook without url", func(c *Config) { c.Telegram.RunMode = RunModeWebhook }, "webhook.url is required"},
		{"no packs", func(c *Config) { c.Stickers.Packs = []string{"", "  "} }, "at least one pack"},
		{"no owner", func(c *Config) { c.Stickers.OwnerID = 0 }, "owner_id is required"},
		{"no bot username", func(c *Config) { c.Stickers.BotUsername = "" }, "bot_username is required"},
		{"crf out of range", func(c *Config) { c.Encoder.CRFLadder = []int{30, 90} }, "crf_ladder"},
		{"bad exclude update", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline"} }, "exclude_updates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Normalize(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "123456:abc", RunMode: "Polling"},
		Stickers: StickersConfig{Packs: []string{"Memes"}, OwnerID: 1, BotUsername: "mybot"},
	}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestStickersConfigPolicies(t *testing.T) {
	s := StickersConfig{
		AllowedChats:    []int64{-100},
		DirectSendChats: []int64{-200},
	}
	assert.True(t, s.ChatAllowed(-100))
	assert.False(t, s.ChatAllowed(-300))
	assert.True(t, StickersConfig{}.ChatAllowed(-300))

	assert.True(t, s.DirectSendAllowed(-200))
	assert.False(t, s.DirectSendAllowed(-100))

	assert.Equal(t, 5*time.Minute, StickersConfig{}.SessionTimeout())
	assert.Equal(t, 30*time.Second, StickersConfig{SessionTimeoutSeconds: 30}.SessionTimeout())
}

func TestEncoderConfigDefaults(t *testing.T) {
	var e EncoderConfig
	assert.Equal(t, 60*time.Second, e.Timeout())
	assert.Equal(t, 256*1024, e.SizeBudget())
	assert.Equal(t, 3*time.Second, e.MaxDuration())
	assert.Equal(t, []int{30, 40, 50, 63}, e.Ladder())

	e = EncoderConfig{TimeoutSeconds: 10, SizeBudgetBytes: 1024, MaxDurationMS: 1500, CRFLadder: []int{20}}
	assert.Equal(t, 10*time.Second, e.Timeout())
	assert.Equal(t, 1024, e.SizeBudget())
	assert.Equal(t, 1500*time.Millisecond, e.MaxDuration())
	assert.Equal(t, []int{20}, e.Ladder())
}
