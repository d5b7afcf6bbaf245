package agora

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingCountsAndResponds(t *testing.T) {
	t.Parallel()
	bot, _ := newTestBot(t)
	f := newPingFeature(bot)
	session := &stubSession{}

	assert.Equal(t, int64(0), f.Count())

	interaction := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
		},
	}
	f.handleCommand(session, interaction)
	f.handleCommand(session, interaction)

	assert.Equal(t, int64(2), f.Count())

	resp := session.lastResponse()
	require.NotNil(t, resp)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "Pong! (2 pings so far)", resp.Data.Embeds[0].Description)
	assert.Equal(
		t,
		discordgo.MessageFlagsEphemeral,
		resp.Data.Flags&discordgo.MessageFlagsEphemeral,
	)
}
