package agora

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSession satisfies DiscordSessionHandler without a gateway.
type stubSession struct {
	mu         sync.Mutex
	commands   []string
	responses  []*discordgo.InteractionResponse
	respondErr error
	sends      []stubSend
}

type stubSend struct {
	channelID string
	msg       *discordgo.MessageSend
}

func (s *stubSession) ApplicationCommandCreate(
	_ string,
	_ string,
	cmd *discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) (*discordgo.ApplicationCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd.Name)
	return cmd, nil
}

func (s *stubSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, stubSend{channelID: channelID, msg: data})
	return &discordgo.Message{}, nil
}

func (s *stubSession) UserChannelCreate(
	recipientID string,
	_ ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (s *stubSession) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return s.respondErr
}

func (s *stubSession) lastResponse() *discordgo.InteractionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return nil
	}
	return s.responses[len(s.responses)-1]
}

// staticFeature is a minimal Feature for registry tests.
type staticFeature struct {
	name        string
	registerErr error
}

func (f *staticFeature) Name() string    { return f.name }
func (f *staticFeature) Register() error { return f.registerErr }
func (f *staticFeature) Close()          {}

func newFullBot(t testing.TB, builders []FeatureBuilder) (*Bot, *stubSession, error) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorageDir = t.TempDir()
	logger := testLogger(t)

	store := NewStore(cfg, logger)
	scheduler := NewScheduler(logger)
	t.Cleanup(scheduler.Stop)

	session := &stubSession{}
	b, err := newBot(
		testGuildID,
		cfg,
		session,
		store,
		scheduler,
		&recordingNotifier{},
		logger,
		builders,
	)
	if b != nil {
		t.Cleanup(b.Close)
	}
	return b, session, err
}

func TestNewBotDefaultFeatures(t *testing.T) {
	t.Parallel()
	b, session, err := newFullBot(t, DefaultFeatureBuilders())
	require.NoError(t, err)

	for _, name := range []string{"be-real", "ping", "welcome", "settings"} {
		assert.Truef(t, b.HasFeature(name), "missing feature %q", name)
	}
	assert.False(t, b.HasFeature("nope"))

	require.NoError(t, b.PushCommands())
	assert.ElementsMatch(
		t,
		[]string{"be-real", "ping", "settings"},
		session.commands,
		"welcome registers no slash command",
	)
}

func TestNewBotDuplicateFeatureNamePanics(t *testing.T) {
	t.Parallel()
	builders := []FeatureBuilder{
		{Name: "dup", Build: func(*Bot) Feature { return &staticFeature{name: "dup"} }},
		{Name: "dup", Build: func(*Bot) Feature { return &staticFeature{name: "dup"} }},
	}
	assert.Panics(
		t, func() {
			_, _, _ = newFullBot(t, builders)
		},
	)
}

func TestNewBotNameMismatchPanics(t *testing.T) {
	t.Parallel()
	builders := []FeatureBuilder{
		{Name: "alpha", Build: func(*Bot) Feature { return &staticFeature{name: "beta"} }},
	}
	assert.Panics(
		t, func() {
			_, _, _ = newFullBot(t, builders)
		},
	)
}

func TestNewBotRegisterError(t *testing.T) {
	t.Parallel()
	builders := []FeatureBuilder{
		{
			Name: "broken",
			Build: func(*Bot) Feature {
				return &staticFeature{name: "broken", registerErr: errors.New("boom")}
			},
		},
	}
	b, _, err := newFullBot(t, builders)
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestRegisterSlashCommandDuplicate(t *testing.T) {
	t.Parallel()
	b, _ := newTestBot(t)

	def := &discordgo.ApplicationCommand{Name: "x"}
	require.NoError(t, b.RegisterSlashCommand(def, nil))
	assert.Error(t, b.RegisterSlashCommand(def, nil))
}

func TestRegisterComponentDuplicate(t *testing.T) {
	t.Parallel()
	b, _ := newTestBot(t)

	handler := func(DiscordSessionHandler, *discordgo.InteractionCreate) {}
	require.NoError(t, b.RegisterComponent("btn", handler))
	assert.Error(t, b.RegisterComponent("btn", handler))
}

func TestBotLanguage(t *testing.T) {
	t.Parallel()
	b, _ := newTestBot(t)

	assert.Equal(t, DefaultLanguage, b.Language().Name)

	b.data.Set(languageNamespace, "lang", StringValue("de"))
	assert.Equal(t, "de", b.Language().Name)

	b.data.Set(languageNamespace, "lang", StringValue("klingon"))
	assert.Equal(t, DefaultLanguage, b.Language().Name)
}

func TestHandleInteractionRouting(t *testing.T) {
	t.Parallel()
	b, _ := newTestBot(t)
	b.session = &stubSession{}

	var commandCalls, componentCalls int
	require.NoError(
		t,
		b.RegisterSlashCommand(
			&discordgo.ApplicationCommand{Name: "hello"},
			func(DiscordSessionHandler, *discordgo.InteractionCreate) {
				commandCalls++
			},
		),
	)
	require.NoError(
		t,
		b.RegisterComponent(
			"hello_btn",
			func(DiscordSessionHandler, *discordgo.InteractionCreate) {
				componentCalls++
			},
		),
	)

	b.HandleInteraction(
		&discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionApplicationCommand,
				Data: discordgo.ApplicationCommandInteractionData{Name: "hello"},
			},
		},
	)
	b.HandleInteraction(
		&discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionMessageComponent,
				Data: discordgo.MessageComponentInteractionData{CustomID: "hello_btn"},
			},
		},
	)
	// unknown names are logged and dropped, not a panic
	b.HandleInteraction(
		&discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionApplicationCommand,
				Data: discordgo.ApplicationCommandInteractionData{Name: "missing"},
			},
		},
	)

	assert.Equal(t, 1, commandCalls)
	assert.Equal(t, 1, componentCalls)
}

// failingNotifier errors on one notification kind and records the rest.
type failingNotifier struct {
	recordingNotifier
	failKind NotificationKind
}

func (f *failingNotifier) Send(ctx context.Context, n Notification) error {
	if n.Kind == f.failKind {
		return errors.New("send failed")
	}
	return f.recordingNotifier.Send(ctx, n)
}

func TestDispatchContinuesOnFailure(t *testing.T) {
	t.Parallel()
	b, _ := newTestBot(t)
	notifier := &failingNotifier{failKind: NotifyDM}
	b.notifier = notifier

	b.Dispatch(
		context.Background(), []Notification{
			{Kind: NotifyDM, UserID: "A"},
			{Kind: NotifyChannel, ChannelID: "C"},
		},
	)

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, NotifyChannel, sent[0].Kind)
}

func TestInteractionUserID(t *testing.T) {
	t.Parallel()

	guild := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: &discordgo.User{ID: "U1"}},
		},
	}
	assert.Equal(t, "U1", interactionUserID(guild))

	dm := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "U2"}},
	}
	assert.Equal(t, "U2", interactionUserID(dm))

	empty := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}
	assert.Equal(t, "", interactionUserID(empty))
}

func TestMessageHasImage(t *testing.T) {
	t.Parallel()

	assert.False(t, messageHasImage(&discordgo.Message{}))
	assert.True(
		t, messageHasImage(
			&discordgo.Message{
				Attachments: []*discordgo.MessageAttachment{
					{ContentType: "image/png"},
				},
			},
		),
	)
	// some clients omit the content type but report dimensions
	assert.True(
		t, messageHasImage(
			&discordgo.Message{
				Attachments: []*discordgo.MessageAttachment{
					{Width: 640, Height: 480},
				},
			},
		),
	)
	assert.True(
		t, messageHasImage(
			&discordgo.Message{
				Embeds: []*discordgo.MessageEmbed{
					{Image: &discordgo.MessageEmbedImage{URL: "https://x/y.png"}},
				},
			},
		),
	)
	assert.False(
		t, messageHasImage(
			&discordgo.Message{
				Attachments: []*discordgo.MessageAttachment{
					{ContentType: "video/mp4"},
				},
			},
		),
	)
}
