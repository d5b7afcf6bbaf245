package agora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Discord.Token = "token"
	require.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	assert.Error(t, cfg.Validate(), "missing token must fail validation")

	cfg = DefaultConfig()
	cfg.Discord.Token = "token"
	cfg.FlushInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Discord.Token = "token"
	cfg.BeReal.WindowStart = "25:99"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Discord.Token = "token"
	cfg.BeReal.WindowStart = "23:00"
	cfg.BeReal.WindowEnd = "19:30"
	assert.Error(t, cfg.Validate(), "inverted window must fail validation")
}

func TestConfigLogValueExcludesToken(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Discord.Token = "super-secret-token"

	logged := cfg.LogValue().String()
	assert.NotContains(t, logged, "super-secret-token")
	assert.Contains(t, logged, "storage_dir")
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	sec, err := parseTimeOfDay("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, sec)

	sec, err = parseTimeOfDay("19:30")
	require.NoError(t, err)
	assert.Equal(t, 19*3600+30*60, sec)

	sec, err = parseTimeOfDay("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23*3600+59*60, sec)

	_, err = parseTimeOfDay("not-a-time")
	assert.Error(t, err)
}
