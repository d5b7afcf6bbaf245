package agora

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
)

const testGuildID int64 = 42

func testLogger(t testing.TB) *slog.Logger {
	t.Helper()
	if testing.Verbose() {
		return slog.New(newLogHandler(slog.LevelDebug))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t testing.TB) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorageDir = t.TempDir()
	return NewStore(cfg, testLogger(t))
}

// recordingNotifier captures dispatched notification intents.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// newTestBot builds a Bot with a real store and scheduler but no
// gateway session. Features are not registered; tests construct the
// features they exercise directly.
func newTestBot(t testing.TB) (*Bot, *recordingNotifier) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StorageDir = t.TempDir()
	logger := testLogger(t)

	store := NewStore(cfg, logger)
	scheduler := NewScheduler(logger)
	t.Cleanup(scheduler.Stop)

	notifier := &recordingNotifier{}
	b := &Bot{
		guildID:    testGuildID,
		config:     cfg,
		scheduler:  scheduler,
		notifier:   notifier,
		logger:     logger,
		commands:   map[string]*registeredCommand{},
		components: map[string]ComponentHandler{},
	}
	b.data = NewDataHandler(testGuildID, store, logger)
	return b, notifier
}
