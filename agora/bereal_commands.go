package agora

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

func (f *BeRealFeature) registerCommands() error {
	lang := f.bot.Language()
	def := &discordgo.ApplicationCommand{
		Name:        beRealFeatureName,
		Description: lang.Translate("feature.be-real.command.desc"),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "join",
				Description: lang.Translate("feature.be-real.command.join.desc"),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "quit",
				Description: lang.Translate("feature.be-real.command.quit.desc"),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "start",
				Description: lang.Translate("feature.be-real.command.start.desc"),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "end",
				Description: lang.Translate("feature.be-real.command.end.desc"),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reload",
				Description: lang.Translate("feature.be-real.command.reload.desc"),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "leaderboard",
				Description: lang.Translate("feature.be-real.command.leaderboard.desc"),
			},
		},
	}
	return f.bot.RegisterSlashCommand(def, f.handleCommand)
}

func (f *BeRealFeature) handleCommand(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
) {
	lang := f.bot.Language()
	userID := interactionUserID(i)

	if !f.Enabled() {
		f.respond(
			s, i, colorDanger, "",
			lang.Translate("feature.be-real.command.error.disabled"),
		)
		return
	}

	switch subcommandName(i) {
	case "join":
		f.commandJoin(s, i, userID)
	case "quit":
		f.Leave(userID)
		f.respond(
			s, i, colorSuccess, "",
			lang.Translate("feature.be-real.command.quit.success"),
		)
	case "start":
		f.commandStart(s, i)
	case "end":
		notifications, ended := f.EndCollecting()
		if !ended {
			f.respond(
				s, i, colorDanger, "",
				lang.Translate("feature.be-real.command.end.error.not_collecting"),
			)
			return
		}
		go f.bot.Dispatch(context.Background(), notifications)
		f.respond(
			s, i, colorSuccess, "",
			lang.Translate(
				"feature.be-real.command.end.success",
				strconv.Itoa(len(f.Participants())),
			),
		)
	case "reload":
		times := f.Reload()
		display := make([]string, 0, len(times))
		for _, instant := range times {
			display = append(display, "- "+instant.Format("15:04"))
		}
		f.respond(
			s, i, colorSuccess, "",
			lang.Translate(
				"feature.be-real.command.reload.success",
				strings.Join(display, "\n"),
			),
		)
	case "leaderboard":
		f.respondLeaderboard(s, i, userID)
	}
}

func (f *BeRealFeature) commandJoin(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	userID string,
) {
	lang := f.bot.Language()
	if !f.Join(userID) {
		f.respond(
			s, i, colorDanger, "",
			lang.Translate("feature.be-real.command.join.error.already"),
		)
		return
	}
	f.respond(
		s, i, colorSuccess, "",
		lang.Translate("feature.be-real.command.join.success"),
	)
}

func (f *BeRealFeature) commandStart(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
) {
	lang := f.bot.Language()
	if _, ok := f.Channel(); !ok {
		f.respond(
			s, i, colorDanger, "",
			lang.Translate("feature.be-real.command.start.error.no_channel"),
		)
		return
	}
	notifications, started := f.StartCollecting()
	if started {
		go f.bot.Dispatch(context.Background(), notifications)
	}
	f.respond(
		s, i, colorSuccess, "",
		lang.Translate(
			"feature.be-real.command.start.success",
			strconv.Itoa(len(f.Participants())),
		),
	)
}

func (f *BeRealFeature) respondLeaderboard(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	userID string,
) {
	lang := f.bot.Language()
	entries := f.Leaderboard()

	var sb strings.Builder
	ownRank := 0
	for rank, entry := range entries {
		sb.WriteString(
			lang.Translate(
				"feature.be-real.notification.leaderboard.line",
				strconv.Itoa(rank+1),
				entry.UserID,
				strconv.FormatInt(entry.Streak, 10),
			),
		)
		sb.WriteString("\n")
		if entry.UserID == userID {
			ownRank = rank + 1
		}
	}
	description := sb.String()
	if ownRank > 0 {
		description += fmt.Sprintf("\nYou are #%d.", ownRank)
	}
	f.respond(
		s, i, colorPrimary,
		lang.Translate("feature.be-real.notification.leaderboard.title"),
		description,
	)
}

func (f *BeRealFeature) registerButtons() error {
	if err := f.bot.RegisterComponent(
		beRealFeatureName+"_btn_join",
		func(s DiscordSessionHandler, i *discordgo.InteractionCreate) {
			f.commandJoin(s, i, interactionUserID(i))
		},
	); err != nil {
		return err
	}
	if err := f.bot.RegisterComponent(
		beRealFeatureName+"_btn_leave",
		func(s DiscordSessionHandler, i *discordgo.InteractionCreate) {
			f.Leave(interactionUserID(i))
			f.respond(
				s, i, colorSuccess, "",
				f.bot.Language().Translate("feature.be-real.command.quit.success"),
			)
		},
	); err != nil {
		return err
	}
	return f.bot.RegisterComponent(
		beRealFeatureName+"_btn_leaderboard",
		func(s DiscordSessionHandler, i *discordgo.InteractionCreate) {
			f.respondLeaderboard(s, i, interactionUserID(i))
		},
	)
}

// handleMessage watches the announcement channel for submissions
// while a round is open.
func (f *BeRealFeature) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !f.Enabled() || !f.IsCollecting() {
		return
	}
	channelID, ok := f.Channel()
	if !ok || m.ChannelID != channelID {
		return
	}
	if !messageHasImage(m.Message) {
		return
	}

	streak, ok := f.Submit(m.Author.ID)
	if !ok {
		return
	}

	lang := f.bot.Language()
	go f.bot.Dispatch(
		context.Background(), []Notification{
			{
				Kind:   NotifyDM,
				UserID: m.Author.ID,
				Title:  lang.Translate("feature.be-real.notification.success.title"),
				Description: lang.Translate(
					"feature.be-real.notification.success.desc",
					strconv.FormatInt(streak+1, 10),
				),
				Color: colorSuccess,
			},
		},
	)
}

func (f *BeRealFeature) respond(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	color int,
	title string,
	description string,
) {
	if err := respondEphemeralEmbed(s, i, color, title, description); err != nil {
		f.logger.Warn("error responding to interaction", tint.Err(err))
	}
}
