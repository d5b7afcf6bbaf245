package agora

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const pingFeatureName = "ping"

// PingFeature answers /ping and keeps a per-guild counter of how
// often it's been poked.
type PingFeature struct {
	bot *Bot
}

func newPingFeature(b *Bot) *PingFeature {
	return &PingFeature{bot: b}
}

func (f *PingFeature) Name() string {
	return pingFeatureName
}

func (f *PingFeature) Register() error {
	def := &discordgo.ApplicationCommand{
		Name:        pingFeatureName,
		Description: f.bot.Language().Translate("feature.ping.command.desc"),
	}
	return f.bot.RegisterSlashCommand(def, f.handleCommand)
}

func (f *PingFeature) Close() {}

// Count returns the number of pings recorded for this guild.
func (f *PingFeature) Count() int64 {
	return f.bot.data.IntOr(pingFeatureName, "count", 0)
}

func (f *PingFeature) handleCommand(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
) {
	count := f.Count() + 1
	f.bot.data.Set(pingFeatureName, "count", IntValue(count))

	err := respondEphemeralEmbed(
		s, i, colorPrimary, "",
		f.bot.Language().Translate(
			"feature.ping.response",
			strconv.FormatInt(count, 10),
		),
	)
	if err != nil {
		f.bot.logger.Warn("error responding to ping", tint.Err(err))
	}
}
