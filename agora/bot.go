package agora

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const languageNamespace = "language"

// DiscordSessionHandler is the slice of the discordgo session the
// per-guild layer needs: command registration and message/DM sends.
// *discordgo.Session satisfies it; tests substitute a stub.
type DiscordSessionHandler interface {
	ApplicationCommandCreate(
		appID string,
		guildID string,
		cmd *discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) (*discordgo.ApplicationCommand, error)
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	UserChannelCreate(
		recipientID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error
}

// SlashCommandHandler handles one slash command interaction.
type SlashCommandHandler func(s DiscordSessionHandler, i *discordgo.InteractionCreate)

// ComponentHandler handles one button/component interaction, keyed by
// custom ID.
type ComponentHandler func(s DiscordSessionHandler, i *discordgo.InteractionCreate)

// MessageHandler observes guild messages (already filtered to this
// bot's guild).
type MessageHandler func(m *discordgo.MessageCreate)

// MemberAddHandler observes members joining this bot's guild.
type MemberAddHandler func(m *discordgo.GuildMemberAdd)

type registeredCommand struct {
	def     *discordgo.ApplicationCommand
	handler SlashCommandHandler
}

// Bot is one guild's feature container: its data handler, its command
// and component registries, and its feature instances. Nothing here
// is shared across guilds - each Bot is built on guild join and torn
// down on guild leave, and registries are injected into features by
// reference rather than living in process-wide maps.
type Bot struct {
	guildID   int64
	config    *Config
	session   DiscordSessionHandler
	data      *DataHandler
	scheduler *Scheduler
	notifier  Notifier
	logger    *slog.Logger

	mu                sync.RWMutex
	commands          map[string]*registeredCommand
	components        map[string]ComponentHandler
	messageHandlers   []MessageHandler
	memberAddHandlers []MemberAddHandler
	features          []Feature
}

func newBot(
	guildID int64,
	cfg *Config,
	session DiscordSessionHandler,
	store *Store,
	scheduler *Scheduler,
	notifier Notifier,
	logger *slog.Logger,
	builders []FeatureBuilder,
) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		guildID:    guildID,
		config:     cfg,
		session:    session,
		scheduler:  scheduler,
		notifier:   notifier,
		logger:     logger.With(loggerNameKey, "bot", "guild_id", guildID),
		commands:   map[string]*registeredCommand{},
		components: map[string]ComponentHandler{},
	}
	b.data = NewDataHandler(guildID, store, logger)

	seen := map[string]bool{}
	for _, builder := range builders {
		if seen[builder.Name] {
			// duplicate names would silently share a namespace;
			// that's a programmer error, caught here
			panic(fmt.Sprintf("duplicate feature name %q", builder.Name))
		}
		seen[builder.Name] = true

		feature := builder.Build(b)
		if feature.Name() != builder.Name {
			panic(
				fmt.Sprintf(
					"feature %q registered under name %q",
					feature.Name(),
					builder.Name,
				),
			)
		}
		if err := feature.Register(); err != nil {
			b.Close()
			return nil, fmt.Errorf("error registering feature %q: %w", builder.Name, err)
		}
		b.features = append(b.features, feature)
	}
	b.logger.Info("bot initialized", slog.Int("features", len(b.features)))
	return b, nil
}

func (b *Bot) GuildID() int64 {
	return b.guildID
}

func (b *Bot) guildIDString() string {
	return strconv.FormatInt(b.guildID, 10)
}

func (b *Bot) Data() *DataHandler {
	return b.data
}

// HasFeature reports whether a feature with the given name is
// registered on this guild.
func (b *Bot) HasFeature(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, feature := range b.features {
		if feature.Name() == name {
			return true
		}
	}
	return false
}

// Language resolves this guild's locale from its document, falling
// back to the default.
func (b *Bot) Language() *Language {
	name := b.data.StringOr(languageNamespace, "lang", DefaultLanguage)
	return LanguageByName(name, b.logger)
}

// RegisterSlashCommand records a slash command definition and its
// handler. Definitions are pushed to Discord in one batch by
// PushCommands.
func (b *Bot) RegisterSlashCommand(
	def *discordgo.ApplicationCommand,
	handler SlashCommandHandler,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.commands[def.Name]; exists {
		return fmt.Errorf("slash command %q already registered", def.Name)
	}
	b.commands[def.Name] = &registeredCommand{def: def, handler: handler}
	return nil
}

// RegisterComponent records a button/component handler for a custom ID.
func (b *Bot) RegisterComponent(customID string, handler ComponentHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.components[customID]; exists {
		return fmt.Errorf("component %q already registered", customID)
	}
	b.components[customID] = handler
	return nil
}

func (b *Bot) RegisterMessageHandler(handler MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messageHandlers = append(b.messageHandlers, handler)
}

func (b *Bot) RegisterMemberAddHandler(handler MemberAddHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memberAddHandlers = append(b.memberAddHandlers, handler)
}

// PushCommands registers all recorded slash commands with Discord,
// scoped to this guild.
func (b *Bot) PushCommands() error {
	b.mu.RLock()
	defs := make([]*discordgo.ApplicationCommand, 0, len(b.commands))
	for _, cmd := range b.commands {
		defs = append(defs, cmd.def)
	}
	b.mu.RUnlock()

	for _, def := range defs {
		if _, err := b.session.ApplicationCommandCreate(
			b.config.Discord.ApplicationID,
			b.guildIDString(),
			def,
		); err != nil {
			return fmt.Errorf("error registering command %q: %w", def.Name, err)
		}
	}
	return nil
}

// HandleInteraction routes a slash command or component interaction
// to its registered handler. Unknown commands/components are logged
// and dropped.
func (b *Bot) HandleInteraction(i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		b.mu.RLock()
		cmd := b.commands[name]
		b.mu.RUnlock()
		if cmd == nil {
			b.logger.Warn("no handler for command", slog.String("command", name))
			return
		}
		cmd.handler(b.session, i)
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		b.mu.RLock()
		handler := b.components[customID]
		b.mu.RUnlock()
		if handler == nil {
			b.logger.Warn("no handler for component", slog.String("custom_id", customID))
			return
		}
		handler(b.session, i)
	default:
		b.logger.Debug("unhandled interaction type", slog.Int("type", int(i.Type)))
	}
}

// HandleMessage fans a guild message out to registered handlers.
func (b *Bot) HandleMessage(m *discordgo.MessageCreate) {
	b.mu.RLock()
	handlers := make([]MessageHandler, len(b.messageHandlers))
	copy(handlers, b.messageHandlers)
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(m)
	}
}

// HandleMemberAdd fans a member-join event out to registered handlers.
func (b *Bot) HandleMemberAdd(m *discordgo.GuildMemberAdd) {
	b.mu.RLock()
	handlers := make([]MemberAddHandler, len(b.memberAddHandlers))
	copy(handlers, b.memberAddHandlers)
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(m)
	}
}

// Dispatch sends notification intents produced by feature state
// transitions. One recipient's failure never blocks the rest.
func (b *Bot) Dispatch(ctx context.Context, notifications []Notification) {
	for _, n := range notifications {
		if err := b.notifier.Send(ctx, n); err != nil {
			b.logger.Warn(
				"notification failed",
				slog.String("kind", n.Kind.String()),
				slog.String("user_id", n.UserID),
				slog.String("channel_id", n.ChannelID),
				tint.Err(err),
			)
		}
	}
}

// Close tears the guild's features down in reverse registration order.
func (b *Bot) Close() {
	for i := len(b.features) - 1; i >= 0; i-- {
		b.features[i].Close()
	}
}
