//nolint:lll // struct tags can't be split
package agora

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
)

const (
	EnvvarSetEnvPrefix = "AGORA_ENV_PREFIX"
	DefaultEnvPrefix   = "AGORA"

	DefaultStorageDir         = "data"
	DefaultStoragePrettyPrint = false
	DefaultFlushInterval      = time.Minute

	DefaultLogLevel          = slog.LevelInfo
	DefaultDiscordLogLevel   = slog.LevelWarn
	DefaultDiscordgoLogLevel = slog.LevelWarn
	DefaultAPILogLevel       = slog.LevelInfo

	DefaultShutdownTimeout      = 30 * time.Second
	DefaultAPIListen            = "127.0.0.1:5002"
	DefaultDiscordGatewayIntent = discordgo.IntentsAllWithoutPrivileged |
		discordgo.IntentsGuildMembers | discordgo.IntentsMessageContent

	// BeReal campaign defaults, overridable per guild through the
	// feature's namespace.
	DefaultBeRealTriggersPerDay   = 2
	DefaultBeRealWindowStart      = "19:30"
	DefaultBeRealWindowEnd        = "23:00"
	DefaultBeRealCollectionWindow = 5 * time.Minute

	DefaultLanguage = "en"
)

var structValidator = validator.New()

func init() {
	structValidator.SetTagName("binding")
}

// Config is the process-wide configuration, loaded by cmd/ via viper.
type Config struct {
	// StorageDir is the directory holding one JSON document per guild
	StorageDir string `yaml:"storage_dir" mapstructure:"storage_dir" json:"storage_dir" binding:"required"`

	// StoragePrettyPrint indents guild documents on disk. Cosmetic;
	// useful when hand-editing files.
	StoragePrettyPrint bool `yaml:"storage_pretty_print" mapstructure:"storage_pretty_print" json:"storage_pretty_print"`

	// FlushInterval is how often dirty guild documents are written to
	// disk. A final flush also runs on shutdown.
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval" json:"flush_interval" binding:"gt=0"`

	// ShutdownTimeout is the time allowed for a graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	BeReal *BeRealConfig `yaml:"be_real" mapstructure:"be_real" json:"be_real"`

	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`
}

// DiscordConfig configures the gateway connection.
type DiscordConfig struct {
	Token string `yaml:"token" mapstructure:"token" json:"-" binding:"required"`

	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id"`

	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// DiscordgoLogLevel sets the log level of the discordgo library
	// itself, bridged into slog.
	DiscordgoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`
}

// BeRealConfig holds process-level defaults for the BeReal campaign.
// Guilds override these through the feature's namespace keys
// ("amount", "time", "start.h"/"start.m", "end.h"/"end.m").
type BeRealConfig struct {
	// TriggersPerDay is the number of random campaign triggers
	// generated each day
	TriggersPerDay int `yaml:"triggers_per_day" mapstructure:"triggers_per_day" json:"triggers_per_day" binding:"gte=1"`

	// WindowStart/WindowEnd bound the time of day ("HH:MM") triggers
	// are drawn from
	WindowStart string `yaml:"window_start" mapstructure:"window_start" json:"window_start" binding:"required"`
	WindowEnd   string `yaml:"window_end" mapstructure:"window_end" json:"window_end" binding:"required"`

	// CollectionWindow is how long a campaign accepts submissions
	// before settling
	CollectionWindow time.Duration `yaml:"collection_window" mapstructure:"collection_window" json:"collection_window" binding:"gt=0"`
}

// APIConfig configures the admin HTTP API.
type APIConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	Listen string `yaml:"listen" mapstructure:"listen" json:"listen"`

	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

func DefaultConfig() *Config {
	logLevel := &slog.LevelVar{}
	logLevel.Set(DefaultLogLevel)
	discordLogLevel := &slog.LevelVar{}
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel := &slog.LevelVar{}
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	apiLogLevel := &slog.LevelVar{}
	apiLogLevel.Set(DefaultAPILogLevel)

	return &Config{
		StorageDir:         DefaultStorageDir,
		StoragePrettyPrint: DefaultStoragePrettyPrint,
		FlushInterval:      DefaultFlushInterval,
		ShutdownTimeout:    DefaultShutdownTimeout,
		LogLevel:           logLevel,
		Discord: &DiscordConfig{
			GatewayIntents:    DefaultDiscordGatewayIntent,
			LogLevel:          discordLogLevel,
			DiscordgoLogLevel: discordgoLogLevel,
		},
		BeReal: &BeRealConfig{
			TriggersPerDay:   DefaultBeRealTriggersPerDay,
			WindowStart:      DefaultBeRealWindowStart,
			WindowEnd:        DefaultBeRealWindowEnd,
			CollectionWindow: DefaultBeRealCollectionWindow,
		},
		API: &APIConfig{
			Enabled:  true,
			Listen:   DefaultAPIListen,
			LogLevel: apiLogLevel,
		},
	}
}

// LogValue implements slog.LogValuer via the JSON encoding, which
// excludes the Discord token.
func (c Config) LogValue() slog.Value {
	data, err := json.Marshal(c)
	if err != nil {
		return slog.StringValue(fmt.Sprintf("error: %v", err))
	}
	return slog.StringValue(string(data))
}

// Validate checks the config, including that the campaign window
// bounds parse and are ordered.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return err
	}
	start, err := parseTimeOfDay(c.BeReal.WindowStart)
	if err != nil {
		return fmt.Errorf("invalid be_real.window_start: %w", err)
	}
	end, err := parseTimeOfDay(c.BeReal.WindowEnd)
	if err != nil {
		return fmt.Errorf("invalid be_real.window_end: %w", err)
	}
	if start >= end {
		return fmt.Errorf(
			"be_real.window_start %q must be before window_end %q",
			c.BeReal.WindowStart,
			c.BeReal.WindowEnd,
		)
	}
	return nil
}

// parseTimeOfDay parses "HH:MM" into seconds of day.
func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}
