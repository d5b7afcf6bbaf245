package agora

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// Discord owns the gateway session: connection lifecycle, event
// handler registration, and the bridge from discordgo's logging into
// slog. Event payloads are routed to per-guild Bots by Agora.
type Discord struct {
	config  *DiscordConfig
	logger  *slog.Logger
	session *discordgo.Session

	connected          atomic.Bool
	metricConnects     atomic.Int64
	metricDisconnects  atomic.Int64
	removeHandlerFuncs []func()
}

func newDiscord(ctx context.Context, cfg *DiscordConfig, handler slog.Handler) (*Discord, error) {
	logger := slog.New(handler).With(loggerNameKey, "discord")
	d := &Discord{
		config:             cfg,
		logger:             logger,
		removeHandlerFuncs: []func(){},
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	session.Identify.Intents = cfg.GatewayIntents
	session.StateEnabled = false
	if cfg.DiscordgoLogLevel != nil {
		session.LogLevel = discordgoLogLevel(cfg.DiscordgoLogLevel.Level())
	}
	discordgo.Logger = discordgoLoggerFunc(ctx, handler)
	d.session = session

	d.addHandler(
		func(_ *discordgo.Session, _ *discordgo.Connect) {
			d.connected.Store(true)
			d.metricConnects.Add(1)
			d.logger.Info("gateway connected")
		},
	)
	d.addHandler(
		func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			d.connected.Store(false)
			d.metricDisconnects.Add(1)
			d.logger.Warn("gateway disconnected")
		},
	)
	return d, nil
}

// discordgoLogLevel maps a slog level onto discordgo's int levels.
func discordgoLogLevel(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return discordgo.LogError
	case level >= slog.LevelWarn:
		return discordgo.LogWarning
	case level >= slog.LevelInfo:
		return discordgo.LogInformational
	default:
		return discordgo.LogDebug
	}
}

func (d *Discord) addHandler(handler any) {
	d.removeHandlerFuncs = append(
		d.removeHandlerFuncs,
		d.session.AddHandler(handler),
	)
}

func (d *Discord) Session() DiscordSessionHandler {
	return d.session
}

func (d *Discord) Connected() bool {
	return d.connected.Load()
}

// Open connects to the gateway. Handlers must be registered first.
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening gateway connection: %w", err)
	}
	return nil
}

// Close removes handlers and closes the gateway connection.
func (d *Discord) Close() error {
	for _, remove := range d.removeHandlerFuncs {
		remove()
	}
	d.removeHandlerFuncs = nil
	if err := d.session.Close(); err != nil {
		d.logger.Error("error closing gateway connection", tint.Err(err))
		return err
	}
	return nil
}

// parseGuildID converts a Discord snowflake string to the int64 the
// store keys guilds by.
func parseGuildID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid guild ID %q: %w", s, err)
	}
	return id, nil
}
