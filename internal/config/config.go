package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// StorageConfig is the subset needed by tools that only touch the store.
type StorageConfig struct {
	StoragePath string `env:"STORAGE_PATH" envDefault:"data/store"`
}

type Config struct {
	StorageConfig

	DiscordToken   string   `env:"DISCORD_TOKEN,required,notEmpty"`
	DeveloperID    string   `env:"DEVELOPER_ID"`
	Prefixes       []string `env:"COMMAND_PREFIXES" envSeparator:"," envDefault:"!"`
	GuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlash      bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`

	EmbedColorHex     string        `env:"EMBED_COLOR" envDefault:"0xb01e66"`
	IdleTimeout       time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"300s"`
	TypingDelay       time.Duration `env:"RELAY_TYPING_DELAY" envDefault:"2s"`
	MaxAttachmentSize string        `env:"MAX_ATTACHMENT_SIZE" envDefault:"25MB"`

	MetricsAddr string `env:"METRICS_ADDR"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
	LocaleFile  string `env:"LOCALE_FILE"`

	// Derived from the string fields above.
	EmbedColor         int
	MaxAttachmentBytes uint64
}

// loadDotEnv reads .env once; a missing file is not an error.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}
}

// Load reads the environment (after .env) into a Config.
func Load() (*Config, error) {
	loadDotEnv()
	return Parse(env.Options{})
}

// Parse reads a Config with the given options. Tests pass Environment to
// avoid touching the process environment.
func Parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	color, err := parseColor(cfg.EmbedColorHex)
	if err != nil {
		return nil, fmt.Errorf("config: EMBED_COLOR %q: %w", cfg.EmbedColorHex, err)
	}
	cfg.EmbedColor = color

	size, err := humanize.ParseBytes(cfg.MaxAttachmentSize)
	if err != nil {
		return nil, fmt.Errorf("config: MAX_ATTACHMENT_SIZE %q: %w", cfg.MaxAttachmentSize, err)
	}
	cfg.MaxAttachmentBytes = size

	cfg.Prefixes = clean(cfg.Prefixes)
	cfg.GuildBlacklist = clean(cfg.GuildBlacklist)

	if cfg.IdleTimeout <= 0 {
		return nil, fmt.Errorf("config: SESSION_IDLE_TIMEOUT must be positive")
	}
	if cfg.TypingDelay < 0 {
		return nil, fmt.Errorf("config: RELAY_TYPING_DELAY must not be negative")
	}
	return &cfg, nil
}

// New loads the config and exits the process when it is invalid.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

// LoadStorage reads only the storage settings; DISCORD_TOKEN is not needed.
func LoadStorage() (*StorageConfig, error) {
	loadDotEnv()
	cfg, err := env.ParseAs[StorageConfig]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsDeveloper reports whether userID is the configured developer.
func IsDeveloper(cfg *Config, userID string) bool {
	return cfg != nil && cfg.DeveloperID != "" && cfg.DeveloperID == userID
}

// IsGuildBlacklisted reports whether the bot should ignore guildID.
func (c *Config) IsGuildBlacklisted(guildID string) bool {
	for _, id := range c.GuildBlacklist {
		if id == guildID {
			return true
		}
	}
	return false
}

// parseColor accepts 0xRRGGBB, #RRGGBB, RRGGBB or a decimal value.
func parseColor(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "#") {
		raw = "0x" + raw[1:]
	}
	v, err := strconv.ParseInt(raw, 0, 32)
	if err != nil {
		v, err = strconv.ParseInt(raw, 16, 32)
	}
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func clean(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
