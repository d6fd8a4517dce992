package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// StickersConfig describes the pack catalog and session policy.
type StickersConfig struct {
	// Packs is the ordered set of sticker pack titles offered to users.
	Packs []string `yaml:"packs" envconfig:"STICKER_PACKS"`
	// OwnerID is the Telegram user that owns every configured pack.
	OwnerID int64 `yaml:"owner_id" envconfig:"STICKER_PACK_OWNER_USER_ID"`
	// BotUsername is used to derive canonical sticker set names.
	BotUsername string `yaml:"bot_username" envconfig:"TELEGRAM_BOT_USERNAME"`
	// AllowedChats restricts the bot to these chat ids; empty allows all chats.
	AllowedChats []int64 `yaml:"allowed_chats" envconfig:"ALLOWED_CHAT_IDS"`
	// DirectSendChats lists chats where a bare media message starts a request
	// without the reply-to /sticker command.
	DirectSendChats []int64 `yaml:"direct_send_chats" envconfig:"DIRECT_SEND_CHAT_IDS"`
	// SessionTimeoutSeconds expires idle requests; 0 -> default (5 minutes).
	SessionTimeoutSeconds int `yaml:"session_timeout_seconds" envconfig:"SESSION_TIMEOUT_SECONDS"`
}

// ChatAllowed reports whether the bot may react to updates from the chat.
// An empty allow-list admits every chat.
func (s StickersConfig) ChatAllowed(chatID int64) bool {
	if len(s.AllowedChats) == 0 {
		return true
	}
	for _, id := range s.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// DirectSendAllowed reports whether a bare media message in the chat starts
// a sticker request without the reply-to /sticker command.
func (s StickersConfig) DirectSendAllowed(chatID int64) bool {
	for _, id := range s.DirectSendChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// SessionTimeout returns the idle expiry as a duration.
func (s StickersConfig) SessionTimeout() time.Duration {
	if s.SessionTimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.SessionTimeoutSeconds) * time.Second
}

// EncoderConfig tunes the external media tool invocation.
type EncoderConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	FFprobePath string `yaml:"ffprobe_path" envconfig:"FFPROBE_PATH"`
	// TimeoutSeconds bounds a single tool invocation; 0 -> default (60s).
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"ENCODER_TIMEOUT_SECONDS"`
	// SizeBudgetBytes caps encoded animated payloads; 0 -> default (256 KiB).
	SizeBudgetBytes int `yaml:"size_budget_bytes" envconfig:"ENCODER_SIZE_BUDGET_BYTES"`
	// MaxDurationMS clamps animation playback length; 0 -> default (3000ms).
	MaxDurationMS int `yaml:"max_duration_ms" envconfig:"ENCODER_MAX_DURATION_MS"`
	// CRFLadder lists quality steps for the compression retry loop.
	CRFLadder []int `yaml:"crf_ladder" envconfig:"ENCODER_CRF_LADDER"`
}

// Timeout returns the bounded tool invocation duration.
func (e EncoderConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// SizeBudget returns the encoded payload ceiling in bytes.
func (e EncoderConfig) SizeBudget() int {
	if e.SizeBudgetBytes <= 0 {
		return 256 * 1024
	}
	return e.SizeBudgetBytes
}

// MaxDuration returns the animation duration ceiling.
func (e EncoderConfig) MaxDuration() time.Duration {
	if e.MaxDurationMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(e.MaxDurationMS) * time.Millisecond
}

// Ladder returns the CRF quality steps for the retry loop.
func (e EncoderConfig) Ladder() []int {
	if len(e.CRFLadder) == 0 {
		return []int{30, 40, 50, 63}
	}
	return e.CRFLadder
}

// Config aggregates the full bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Stickers  StickersConfig  `yaml:"stickers"`
	Encoder   EncoderConfig   `yaml:"encoder"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	packs := cfg.Stickers.Packs[:0]
	for _, p := range cfg.Stickers.Packs {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			packs = append(packs, trimmed)
		}
	}
	cfg.Stickers.Packs = packs
	if len(cfg.Stickers.Packs) == 0 {
		return fmt.Errorf("stickers.packs requires at least one pack title")
	}
	if cfg.Stickers.OwnerID <= 0 {
		return fmt.Errorf("stickers.owner_id is required")
	}
	if strings.TrimSpace(cfg.Stickers.BotUsername) == "" {
		return fmt.Errorf("stickers.bot_username is required")
	}
	if cfg.Stickers.SessionTimeoutSeconds < 0 {
		return fmt.Errorf("stickers.session_timeout_seconds must be >= 0")
	}

	for _, crf := range cfg.Encoder.CRFLadder {
		if crf < 0 || crf > 63 {
			return fmt.Errorf("encoder.crf_ladder values must be within 0..63, got %d", crf)
		}
	}

	return nil
}
