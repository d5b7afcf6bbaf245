package agora

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// interactionUserID extracts the acting user's ID from a guild or DM
// interaction.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// respondEphemeralEmbed replies to an interaction with a single embed
// only the acting user can see.
func respondEphemeralEmbed(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
	color int,
	title string,
	description string,
) error {
	return s.InteractionRespond(
		i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Flags: discordgo.MessageFlagsEphemeral,
				Embeds: []*discordgo.MessageEmbed{
					{
						Title:       title,
						Description: description,
						Color:       color,
					},
				},
			},
		},
	)
}

// messageHasImage reports whether a message carries a picture, either
// as a direct attachment or inside an embed (phones commonly deliver
// images as embed image/thumbnail).
func messageHasImage(m *discordgo.Message) bool {
	for _, attachment := range m.Attachments {
		if strings.HasPrefix(attachment.ContentType, "image/") {
			return true
		}
		if attachment.Width > 0 && attachment.Height > 0 {
			return true
		}
	}
	for _, embed := range m.Embeds {
		if embed.Image != nil || embed.Thumbnail != nil {
			return true
		}
	}
	return false
}

// subcommandName returns the invoked subcommand, or "".
func subcommandName(i *discordgo.InteractionCreate) string {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return ""
	}
	if options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Name
	}
	return ""
}
