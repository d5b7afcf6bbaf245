package agora

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Embed colors, matching the original bot's palette.
const (
	colorPrimary = 0x5865F2
	colorSuccess = 0x57F287
	colorDanger  = 0xED4245
)

type NotificationKind int

const (
	// NotifyChannel posts an embed to a guild channel
	NotifyChannel NotificationKind = iota
	// NotifyDM sends an embed to a user's DM channel
	NotifyDM
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyChannel:
		return "channel"
	case NotifyDM:
		return "dm"
	default:
		return fmt.Sprintf("NotificationKind(%d)", int(k))
	}
}

// NotificationButton describes one button attached to a notification.
type NotificationButton struct {
	CustomID string
	Label    string
	Style    discordgo.ButtonStyle
}

// Notification is an intent to send one message. Feature state
// transitions return these instead of performing sends themselves, so
// the transitions stay testable without a live session; the Bot's
// Dispatch hands them to a Notifier.
type Notification struct {
	Kind        NotificationKind
	ChannelID   string
	UserID      string
	Title       string
	Description string
	Footer      string
	Color       int
	Buttons     []NotificationButton
}

// Notifier performs the actual delivery of notification intents.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// discordNotifier delivers notifications over a Discord session. DM
// fan-out is rate limited so a large participant list doesn't burn
// through the REST budget in one burst.
type discordNotifier struct {
	session   DiscordSessionHandler
	dmLimiter *rate.Limiter
	logger    *slog.Logger
}

func newDiscordNotifier(session DiscordSessionHandler, logger *slog.Logger) *discordNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &discordNotifier{
		session:   session,
		dmLimiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 5),
		logger:    logger.With(loggerNameKey, "notifier"),
	}
}

func (d *discordNotifier) Send(ctx context.Context, n Notification) error {
	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       n.Title,
				Description: n.Description,
				Color:       n.Color,
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
	if n.Footer != "" {
		msg.Embeds[0].Footer = &discordgo.MessageEmbedFooter{Text: n.Footer}
	}
	if len(n.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, btn := range n.Buttons {
			row.Components = append(
				row.Components, discordgo.Button{
					CustomID: btn.CustomID,
					Label:    btn.Label,
					Style:    btn.Style,
				},
			)
		}
		msg.Components = []discordgo.MessageComponent{row}
	}

	channelID := n.ChannelID
	if n.Kind == NotifyDM {
		if err := d.dmLimiter.Wait(ctx); err != nil {
			return err
		}
		dmChannel, err := d.session.UserChannelCreate(n.UserID)
		if err != nil {
			return fmt.Errorf("error opening DM channel for %s: %w", n.UserID, err)
		}
		channelID = dmChannel.ID
	}

	if _, err := d.session.ChannelMessageSendComplex(channelID, msg); err != nil {
		return fmt.Errorf("error sending notification to %s: %w", channelID, err)
	}
	return nil
}
