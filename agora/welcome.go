package agora

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const welcomeFeatureName = "welcome"

// WelcomeFeature greets new members in a configured channel. Enabled
// flag, channel and message template live in its namespace; the
// template substitutes {user} with a mention.
type WelcomeFeature struct {
	bot *Bot
}

func newWelcomeFeature(b *Bot) *WelcomeFeature {
	return &WelcomeFeature{bot: b}
}

func (f *WelcomeFeature) Name() string {
	return welcomeFeatureName
}

func (f *WelcomeFeature) Register() error {
	f.bot.RegisterMemberAddHandler(f.handleMemberAdd)
	return nil
}

func (f *WelcomeFeature) Close() {}

func (f *WelcomeFeature) Enabled() bool {
	return f.bot.data.BoolOr(welcomeFeatureName, "enabled", false)
}

// Greeting builds the welcome notification for a new member, or
// reports false when the feature is disabled or has no channel.
func (f *WelcomeFeature) Greeting(userID string) (Notification, bool) {
	if !f.Enabled() {
		return Notification{}, false
	}
	channelID, ok := f.bot.data.String(welcomeFeatureName, "channel")
	if !ok || channelID == "" {
		return Notification{}, false
	}

	lang := f.bot.Language()
	mention := "<@" + userID + ">"
	message := f.bot.data.StringOr(welcomeFeatureName, "message", "")
	if message == "" {
		message = lang.Translate("feature.welcome.default_message", mention)
	} else {
		message = strings.ReplaceAll(message, "{user}", mention)
	}

	return Notification{
		Kind:        NotifyChannel,
		ChannelID:   channelID,
		Title:       lang.Translate("feature.welcome.title"),
		Description: message,
		Color:       colorSuccess,
	}, true
}

func (f *WelcomeFeature) handleMemberAdd(m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	notification, ok := f.Greeting(m.User.ID)
	if !ok {
		return
	}
	go f.bot.Dispatch(context.Background(), []Notification{notification})
}
