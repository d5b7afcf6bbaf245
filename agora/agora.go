package agora

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// Compile-time/ldflags build metadata.
//
//goland:noinspection GoUnusedGlobalVariable
var (
	// Version can be set at build time via:
	// -ldflags "-X github.com/c4vxl/Agora/agora.Version=$(git describe --tags)"
	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

// Agora is the top-level application: one gateway connection, one
// document store and one scheduler shared across guilds, and one Bot
// per guild the connection is a member of.
type Agora struct {
	config     *Config
	logger     *slog.Logger
	logHandler slog.Handler

	store     *Store
	scheduler *Scheduler
	discord   *Discord
	notifier  Notifier
	api       *API
	builders  []FeatureBuilder

	mu   sync.RWMutex
	bots map[int64]*Bot

	// prevents concurrent runs
	runMu     sync.Mutex
	startedAt time.Time
}

func New(cfg *Config) (*Agora, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	handler := newLogHandler(cfg.LogLevel)
	logger := slog.New(handler).With(loggerNameKey, "agora")
	slog.SetDefault(slog.New(handler))

	a := &Agora{
		config:     cfg,
		logger:     logger,
		logHandler: handler,
		builders:   DefaultFeatureBuilders(),
		bots:       map[int64]*Bot{},
	}
	a.store = NewStore(cfg, logger)
	a.scheduler = NewScheduler(logger)

	return a, nil
}

// Bot returns the Bot for a guild, or nil if the guild isn't active.
func (a *Agora) Bot(guildID int64) *Bot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bots[guildID]
}

// GuildCount returns the number of active guilds.
func (a *Agora) GuildCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.bots)
}

// Store exposes the document store, for the admin API.
func (a *Agora) Store() *Store {
	return a.store
}

// Run connects to the gateway and blocks until ctx is canceled, then
// shuts down gracefully: gateway first (no new events), then guild
// features, then the scheduler, then a final flush.
func (a *Agora) Run(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	a.startedAt = time.Now()

	discord, err := newDiscord(ctx, a.config.Discord, a.logHandler)
	if err != nil {
		return err
	}
	a.discord = discord
	a.notifier = newDiscordNotifier(discord.Session(), a.logger)

	discord.addHandler(a.handleGuildCreate)
	discord.addHandler(a.handleGuildDelete)
	discord.addHandler(a.handleMessageCreate)
	discord.addHandler(a.handleInteractionCreate)
	discord.addHandler(a.handleMemberAdd)

	a.logger.Info(
		"starting",
		slog.String("version", Version),
		slog.Any("config", a.config),
	)

	if a.config.API != nil && a.config.API.Enabled {
		a.api = newAPI(a, a.config.API)
		go func() {
			if apiErr := a.api.Serve(ctx); apiErr != nil {
				a.logger.Error("admin api error", tint.Err(apiErr))
			}
		}()
	}

	if err := discord.Open(); err != nil {
		a.scheduler.Stop()
		return err
	}

	// periodic write-back of dirty guild documents
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		ticker := time.NewTicker(a.config.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if flushErr := a.store.FlushAll(); flushErr != nil {
					a.logger.Error("periodic flush failed", tint.Err(flushErr))
				}
			}
		}
	}()

	<-ctx.Done()
	a.logger.Warn("shutting down")
	<-flushDone

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		a.config.ShutdownTimeout,
	)
	defer cancel()
	return a.shutdown(shutdownCtx)
}

func (a *Agora) shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		if err := a.discord.Close(); err != nil {
			a.logger.Error("error closing discord", tint.Err(err))
		}

		a.mu.Lock()
		for _, bot := range a.bots {
			bot.Close()
		}
		a.bots = map[int64]*Bot{}
		a.mu.Unlock()

		a.scheduler.Stop()

		// final write-back before exit
		done <- a.store.FlushAll()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("final flush failed: %w", err)
		}
		a.logger.Info("shutdown complete")
		return nil
	}
}

//
// Gateway event routing
//

func (a *Agora) handleGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	guildID, err := parseGuildID(g.ID)
	if err != nil {
		a.logger.Error("ignoring guild create", tint.Err(err))
		return
	}

	a.mu.Lock()
	if _, exists := a.bots[guildID]; exists {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	bot, err := newBot(
		guildID,
		a.config,
		a.discord.Session(),
		a.store,
		a.scheduler,
		a.notifier,
		slog.New(a.logHandler),
		a.builders,
	)
	if err != nil {
		a.logger.Error(
			"error building guild bot",
			slog.Int64("guild_id", guildID),
			tint.Err(err),
		)
		return
	}
	if err := bot.PushCommands(); err != nil {
		a.logger.Error(
			"error pushing guild commands",
			slog.Int64("guild_id", guildID),
			tint.Err(err),
		)
	}

	a.mu.Lock()
	if _, exists := a.bots[guildID]; exists {
		// lost the race to a duplicate guild create
		a.mu.Unlock()
		bot.Close()
		return
	}
	a.bots[guildID] = bot
	a.mu.Unlock()
	a.logger.Info("guild active", slog.Int64("guild_id", guildID))
}

func (a *Agora) handleGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	// unavailable means an outage, not a removal
	if g.Unavailable {
		return
	}
	guildID, err := parseGuildID(g.ID)
	if err != nil {
		a.logger.Error("ignoring guild delete", tint.Err(err))
		return
	}

	a.mu.Lock()
	bot := a.bots[guildID]
	delete(a.bots, guildID)
	a.mu.Unlock()
	if bot != nil {
		bot.Close()
	}
	if err := a.store.Delete(guildID); err != nil {
		a.logger.Error(
			"error deleting guild data",
			slog.Int64("guild_id", guildID),
			tint.Err(err),
		)
	}
	a.logger.Info("guild removed", slog.Int64("guild_id", guildID))
}

func (a *Agora) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" {
		return
	}
	guildID, err := parseGuildID(m.GuildID)
	if err != nil {
		return
	}
	if bot := a.Bot(guildID); bot != nil {
		bot.HandleMessage(m)
	}
}

func (a *Agora) handleInteractionCreate(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.GuildID == "" {
		return
	}
	guildID, err := parseGuildID(i.GuildID)
	if err != nil {
		return
	}
	if bot := a.Bot(guildID); bot != nil {
		bot.HandleInteraction(i)
	}
}

func (a *Agora) handleMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	guildID, err := parseGuildID(m.GuildID)
	if err != nil {
		return
	}
	if bot := a.Bot(guildID); bot != nil {
		bot.HandleMemberAdd(m)
	}
}
