package cmd

import (
	"log/slog"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelToStringHookFunc(t *testing.T) {
	hook := levelToStringHookFunc()

	out, err := hook(
		reflect.TypeOf(""),
		reflect.TypeOf(&slog.LevelVar{}),
		"debug",
	)
	require.NoError(t, err)
	lvl, ok := out.(*slog.LevelVar)
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl.Level())

	_, err = hook(
		reflect.TypeOf(""),
		reflect.TypeOf(&slog.LevelVar{}),
		"loudest",
	)
	assert.Error(t, err)

	// non-string sources pass through untouched
	out, err = hook(
		reflect.TypeOf(0),
		reflect.TypeOf(&slog.LevelVar{}),
		5,
	)
	require.NoError(t, err)
	assert.Equal(t, 5, out)
}
