package agora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettings(t testing.TB) (*SettingsFeature, *Bot) {
	t.Helper()
	bot, _ := newTestBot(t)
	// settings operates on registered features only
	bot.features = append(bot.features, newPingFeature(bot))
	return newSettingsFeature(bot), bot
}

func TestSettingsEnable(t *testing.T) {
	t.Parallel()
	f, bot := newTestSettings(t)

	require.True(t, f.Enable(pingFeatureName, true))
	assert.True(t, bot.data.BoolOr(pingFeatureName, "enabled", false))

	require.True(t, f.Enable(pingFeatureName, false))
	assert.False(t, bot.data.BoolOr(pingFeatureName, "enabled", true))

	assert.False(t, f.Enable("nope", true), "unknown feature must be rejected")
	_, ok := bot.data.Get("nope", "enabled")
	assert.False(t, ok, "rejected enable must not write anything")
}

func TestSettingsSetRawAndReset(t *testing.T) {
	t.Parallel()
	f, bot := newTestSettings(t)

	require.True(t, f.SetRaw(pingFeatureName, "count", "7"))
	n, ok := bot.data.Int(pingFeatureName, "count")
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	assert.False(t, f.SetRaw("nope", "k", "v"))

	require.True(t, f.Reset(pingFeatureName))
	_, ok = bot.data.Get(pingFeatureName, "count")
	assert.False(t, ok)

	assert.False(t, f.Reset("nope"))
}

func TestParseScalar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Value
	}{
		{"true", BoolValue(true)},
		{"false", BoolValue(false)},
		{"42", IntValue(42)},
		{"-3", IntValue(-3)},
		{"2.5", FloatValue(2.5)},
		{"hello", StringValue("hello")},
		{"19:30", StringValue("19:30")},
		{"", StringValue("")},
	}
	for _, tt := range tests {
		got := parseScalar(tt.raw)
		assert.Truef(
			t, tt.want.Equal(got),
			"parseScalar(%q) = kind %v", tt.raw, got.Kind(),
		)
		assert.Equalf(t, tt.want.Kind(), got.Kind(), "parseScalar(%q)", tt.raw)
	}
}
