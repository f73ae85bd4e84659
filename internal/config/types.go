package config

// Config is the whole bot configuration. JSON is canonical; YAML configs are
// accepted by coercion (see yaml.go). Durations are Go duration strings.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Quotes   QuotesConfig   `json:"quotes"`
	Storage  StorageConfig  `json:"storage"`
	Daily    DailyConfig    `json:"daily,omitempty"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	// Token is the bot token. Prefer TokenFile or the QUOTEBOT_TELEGRAM_TOKEN
	// env var so the token stays out of the config file.
	Token     string `json:"token,omitempty"`
	TokenFile string `json:"token_file,omitempty"`

	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`

	// PollTimeout is the long-poll timeout, e.g. "10s".
	PollTimeout string `json:"poll_timeout,omitempty"`

	// RatePerChat / Burst throttle commands per chat. 0 disables.
	RatePerChat float64 `json:"rate_per_chat,omitempty"`
	Burst       int     `json:"burst,omitempty"`
}

// QuotesConfig tunes the serving core.
//
// BufferSize is the batch size fetched per store round-trip. Bigger batches
// mean fewer store queries but a staler in-memory sample.
type QuotesConfig struct {
	BufferSize int `json:"buffer_size,omitempty"` // default 15

	// RefillTimeout bounds the store round-trip inside a refill, e.g. "5s".
	RefillTimeout string `json:"refill_timeout,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "sqlite" (default) or "file"
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type DailyConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "0 9 * * *"
	Timezone string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}
