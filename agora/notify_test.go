package agora

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordNotifierChannelSend(t *testing.T) {
	t.Parallel()
	session := &stubSession{}
	notifier := newDiscordNotifier(session, testLogger(t))

	err := notifier.Send(
		context.Background(), Notification{
			Kind:        NotifyChannel,
			ChannelID:   "chan-1",
			Title:       "title",
			Description: "desc",
			Footer:      "foot",
			Color:       colorPrimary,
			Buttons: []NotificationButton{
				{CustomID: "btn-1", Label: "Click", Style: discordgo.PrimaryButton},
			},
		},
	)
	require.NoError(t, err)

	require.Len(t, session.sends, 1)
	send := session.sends[0]
	assert.Equal(t, "chan-1", send.channelID)
	require.Len(t, send.msg.Embeds, 1)
	assert.Equal(t, "title", send.msg.Embeds[0].Title)
	assert.Equal(t, "foot", send.msg.Embeds[0].Footer.Text)
	require.Len(t, send.msg.Components, 1)
	row, ok := send.msg.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 1)
}

func TestDiscordNotifierDMSend(t *testing.T) {
	t.Parallel()
	session := &stubSession{}
	notifier := newDiscordNotifier(session, testLogger(t))

	err := notifier.Send(
		context.Background(), Notification{
			Kind:        NotifyDM,
			UserID:      "U1",
			Description: "hi",
		},
	)
	require.NoError(t, err)

	require.Len(t, session.sends, 1)
	assert.Equal(t, "dm-U1", session.sends[0].channelID)
}

func TestNotificationKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "channel", NotifyChannel.String())
	assert.Equal(t, "dm", NotifyDM.String())
	assert.Equal(t, "NotificationKind(9)", NotificationKind(9).String())
}
