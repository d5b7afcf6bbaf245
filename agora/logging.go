package agora

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const loggerNameKey = "logger"

// discordgo.LogError etc, mapped to slog levels
var discordGoLogLevels = map[int]slog.Level{
	0: slog.LevelError,
	1: slog.LevelWarn,
	2: slog.LevelInfo,
	3: slog.LevelDebug,
}

func newLogHandler(level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return tint.NewHandler(
		os.Stdout, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.RFC3339,
		},
	)
}

// discordgoLoggerFunc bridges discordgo's printf-style logger into a
// slog handler, stripping newlines from the formatted message.
func discordgoLoggerFunc(ctx context.Context, handler slog.Handler) func(
	msgL int,
	caller int,
	format string,
	args ...any,
) {
	log := slog.New(handler)
	return func(
		msgL int,
		_ int,
		format string,
		args ...any,
	) {
		level, ok := discordGoLogLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		log.LogAttrs(
			ctx,
			level,
			strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", ""),
		)
	}
}
