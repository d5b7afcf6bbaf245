package agora

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const beRealFeatureName = "be-real"

// Document keys within the be-real namespace. enabled, participants,
// channel and streak are the persisted campaign state; amount, time
// and the window keys override the process-level defaults per guild.
const (
	beRealKeyEnabled      = "enabled"
	beRealKeyParticipants = "participants"
	beRealKeyChannel      = "channel"
	beRealKeyStreaks      = "streak"
	beRealKeyAmount       = "amount"
	beRealKeyTime         = "time"
	beRealKeyStartHour    = "start.h"
	beRealKeyStartMinute  = "start.m"
	beRealKeyEndHour      = "end.h"
	beRealKeyEndMinute    = "end.m"
)

// maxTriggersPerDay bounds the per-guild amount override. Guild config
// is admin-writable free text, so out-of-range values degrade to the
// process defaults instead of being trusted.
const maxTriggersPerDay = 24

// StreakEntry is one leaderboard row.
type StreakEntry struct {
	UserID string
	Streak int64
}

// BeRealFeature runs the daily photo game: at random instants within
// a configured evening window it opens a short collection round, and
// participants who post a picture in time keep their streak while
// everyone else's resets.
//
// Round lifecycle is idle -> collecting -> idle. The submitted set,
// the active flag and the pending trigger handles are process-local:
// a restart mid-round forgets who already submitted and the round
// itself, and the next daily generation starts fresh. Participants,
// streaks and configuration persist in the guild document.
type BeRealFeature struct {
	bot      *Bot
	logger   *slog.Logger
	defaults *BeRealConfig

	mu           sync.Mutex
	active       bool
	submitted    map[string]struct{}
	triggerTasks []*Task
	midnightTask *Task
	endTask      *Task

	// injectable for tests
	now     func() time.Time
	randInt func(n int) int
}

func newBeRealFeature(b *Bot) *BeRealFeature {
	return &BeRealFeature{
		bot:       b,
		logger:    b.logger.With(loggerNameKey, beRealFeatureName),
		defaults:  b.config.BeReal,
		submitted: map[string]struct{}{},
		now:       time.Now,
		randInt:   rand.Intn,
	}
}

func (f *BeRealFeature) Name() string {
	return beRealFeatureName
}

// Register wires commands, buttons and the submission listener, then
// generates today's trigger times and arms the midnight regeneration.
func (f *BeRealFeature) Register() error {
	if err := f.registerCommands(); err != nil {
		return err
	}
	if err := f.registerButtons(); err != nil {
		return err
	}
	f.bot.RegisterMessageHandler(f.handleMessage)

	f.Reload()
	f.scheduleMidnight()
	return nil
}

// Close cancels all pending scheduled work for this guild.
func (f *BeRealFeature) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.midnightTask.Cancel()
	f.endTask.Cancel()
	for _, task := range f.triggerTasks {
		task.Cancel()
	}
	f.triggerTasks = nil
}

//
// Persisted state accessors
//

func (f *BeRealFeature) Enabled() bool {
	return f.bot.data.BoolOr(beRealFeatureName, beRealKeyEnabled, false)
}

func (f *BeRealFeature) Participants() []string {
	return f.bot.data.StringSlice(beRealFeatureName, beRealKeyParticipants)
}

func (f *BeRealFeature) setParticipants(participants []string) {
	f.bot.data.Set(
		beRealFeatureName,
		beRealKeyParticipants,
		StringListValue(participants),
	)
}

// Channel returns the configured announcement channel ID.
func (f *BeRealFeature) Channel() (string, bool) {
	id, ok := f.bot.data.String(beRealFeatureName, beRealKeyChannel)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (f *BeRealFeature) Streaks() map[string]int64 {
	return f.bot.data.IntMap(beRealFeatureName, beRealKeyStreaks)
}

// collectionWindow returns how long a round stays open, in minutes. A
// zero or negative guild override falls back to the default.
func (f *BeRealFeature) collectionWindow() int64 {
	def := int64(f.defaults.CollectionWindow / time.Minute)
	minutes := f.bot.data.IntOr(beRealFeatureName, beRealKeyTime, def)
	if minutes <= 0 {
		return def
	}
	return minutes
}

// Join adds a participant. Joining twice is rejected so the caller
// can surface an "already a participant" response.
func (f *BeRealFeature) Join(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	participants := f.Participants()
	for _, id := range participants {
		if id == userID {
			return false
		}
	}
	f.setParticipants(append(participants, userID))
	return true
}

// Leave removes a participant. Leaving when not a participant is a
// silent no-op.
func (f *BeRealFeature) Leave(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	participants := f.Participants()
	for i, id := range participants {
		if id == userID {
			f.setParticipants(append(participants[:i], participants[i+1:]...))
			return
		}
	}
}

// IsCollecting reports whether a round is currently open.
func (f *BeRealFeature) IsCollecting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

//
// Daily trigger generation
//

// windowSeconds returns the guild's trigger window as seconds of day,
// falling back to the process defaults when unset or inverted.
func (f *BeRealFeature) windowSeconds() (int, int) {
	defStart, err := parseTimeOfDay(f.defaults.WindowStart)
	if err != nil {
		defStart = 19*3600 + 30*60
	}
	defEnd, err := parseTimeOfDay(f.defaults.WindowEnd)
	if err != nil {
		defEnd = 23 * 3600
	}

	data := f.bot.data
	start := defStart
	if h, ok := data.Int(beRealFeatureName, beRealKeyStartHour); ok {
		m := data.IntOr(beRealFeatureName, beRealKeyStartMinute, 0)
		start = int(h)*3600 + int(m)*60
	}
	end := defEnd
	if h, ok := data.Int(beRealFeatureName, beRealKeyEndHour); ok {
		m := data.IntOr(beRealFeatureName, beRealKeyEndMinute, 0)
		end = int(h)*3600 + int(m)*60
	}
	if start >= end {
		start, end = defStart, defEnd
	}
	return start, end
}

// GenerateTimes draws the day's random trigger instants: independent
// uniform draws within the window, sorted ascending. An out-of-range
// amount override falls back to the default.
func (f *BeRealFeature) GenerateTimes(date time.Time) []time.Time {
	start, end := f.windowSeconds()
	amount := f.bot.data.IntOr(
		beRealFeatureName,
		beRealKeyAmount,
		int64(f.defaults.TriggersPerDay),
	)
	if amount <= 0 || amount > maxTriggersPerDay {
		amount = int64(f.defaults.TriggersPerDay)
	}

	midnight := time.Date(
		date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location(),
	)
	times := make([]time.Time, 0, amount)
	for i := int64(0); i < amount; i++ {
		sec := start + f.randInt(end-start)
		times = append(times, midnight.Add(time.Duration(sec)*time.Second))
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

// Reload replaces today's schedule: pending unfired triggers are
// canceled before the new instants are armed, so a stale schedule can
// never start a duplicate round. Instants already in the past are
// skipped. Returns the generated times.
func (f *BeRealFeature) Reload() []time.Time {
	now := f.now()
	times := f.GenerateTimes(now)

	f.mu.Lock()
	for _, task := range f.triggerTasks {
		task.Cancel()
	}
	f.triggerTasks = nil

	scheduled := 0
	for _, instant := range times {
		if instant.Before(now) {
			continue
		}
		f.triggerTasks = append(
			f.triggerTasks,
			f.bot.scheduler.At(instant, f.trigger),
		)
		scheduled++
	}
	f.mu.Unlock()

	display := make([]string, 0, len(times))
	for _, instant := range times {
		display = append(display, instant.Format("15:04"))
	}
	f.logger.Info(
		"generated daily times",
		slog.String("times", strings.Join(display, ", ")),
		slog.Int("scheduled", scheduled),
	)
	return times
}

// scheduleMidnight arms the next regeneration at the upcoming local
// midnight, then re-arms itself.
func (f *BeRealFeature) scheduleMidnight() {
	now := f.now()
	next := time.Date(
		now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location(),
	).AddDate(0, 0, 1)

	f.mu.Lock()
	f.midnightTask = f.bot.scheduler.At(
		next, func() {
			f.Reload()
			f.scheduleMidnight()
		},
	)
	f.mu.Unlock()
}

// trigger is the scheduled entry point for a random instant.
func (f *BeRealFeature) trigger() {
	if !f.Enabled() {
		return
	}
	notifications, started := f.StartCollecting()
	if started {
		f.bot.Dispatch(context.Background(), notifications)
	}
}

//
// Round lifecycle
//

// StartCollecting opens a round. It's idempotent: overlapping
// triggers or a manual start during an open round change nothing. A
// guild without an announcement channel is treated as not configured
// and logged, not an error. On success the submitted set is cleared,
// the round deadline is armed, and the returned intents carry the
// channel announcement plus one DM per participant.
func (f *BeRealFeature) StartCollecting() ([]Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active {
		return nil, false
	}
	channelID, ok := f.Channel()
	if !ok {
		f.logger.Info("no announcement channel configured, skipping round")
		return nil, false
	}

	minutes := f.collectionWindow()
	participants := f.Participants()

	f.active = true
	f.submitted = map[string]struct{}{}
	f.endTask = f.bot.scheduler.After(
		time.Duration(minutes)*time.Minute, func() {
			notifications, ended := f.EndCollecting()
			if ended {
				f.bot.Dispatch(context.Background(), notifications)
			}
		},
	)

	lang := f.bot.Language()
	notifications := []Notification{
		{
			Kind:      NotifyChannel,
			ChannelID: channelID,
			Title:     lang.Translate("feature.be-real.notification.announce.title"),
			Description: lang.Translate(
				"feature.be-real.notification.announce.desc",
				strconv.FormatInt(minutes, 10),
				strconv.Itoa(len(participants)),
			),
			Color: colorDanger,
			Buttons: []NotificationButton{
				{
					CustomID: beRealFeatureName + "_btn_leave",
					Label:    "Leave",
					Style:    discordgo.DangerButton,
				},
				{
					CustomID: beRealFeatureName + "_btn_join",
					Label:    "Join",
					Style:    discordgo.SuccessButton,
				},
			},
		},
	}
	for _, userID := range participants {
		notifications = append(
			notifications, Notification{
				Kind:   NotifyDM,
				UserID: userID,
				Title:  lang.Translate("feature.be-real.notification.dm.title"),
				Description: lang.Translate(
					"feature.be-real.notification.dm.desc",
					fmt.Sprintf("<#%s>", channelID),
					strconv.FormatInt(minutes, 10),
				),
				Color: colorDanger,
			},
		)
	}

	f.logger.Info("round started", slog.Int("participants", len(participants)))
	return notifications, true
}

// Submit records a participant's submission for the open round. Valid
// only while collecting, only for participants, and only once per
// round - the first submission wins. Returns the user's stored streak
// (the value before this round settles) and whether the submission
// was recorded.
func (f *BeRealFeature) Submit(userID string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return 0, false
	}
	isParticipant := false
	for _, id := range f.Participants() {
		if id == userID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return 0, false
	}
	if _, already := f.submitted[userID]; already {
		return 0, false
	}
	f.submitted[userID] = struct{}{}
	return f.Streaks()[userID], true
}

// EndCollecting settles the round: everyone who submitted gains a
// streak point, everyone who didn't loses their streak entirely (key
// removed). Idempotent when no round is open. Returns the summary
// intent for the announcement channel.
func (f *BeRealFeature) EndCollecting() ([]Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.active {
		return nil, false
	}
	f.active = false

	participants := f.Participants()
	streaks := f.Streaks()
	failed := 0
	for _, userID := range participants {
		if _, ok := f.submitted[userID]; ok {
			streaks[userID]++
		} else {
			delete(streaks, userID)
			failed++
		}
	}
	succeeded := len(f.submitted)
	f.submitted = map[string]struct{}{}
	f.bot.data.Set(beRealFeatureName, beRealKeyStreaks, IntMapValue(streaks))

	var notifications []Notification
	if channelID, ok := f.Channel(); ok {
		lang := f.bot.Language()
		notifications = append(
			notifications, Notification{
				Kind:      NotifyChannel,
				ChannelID: channelID,
				Title:     lang.Translate("feature.be-real.notification.end.title"),
				Description: lang.Translate(
					"feature.be-real.notification.end.desc",
					strconv.Itoa(succeeded),
					strconv.Itoa(failed),
				),
				Color: colorPrimary,
				Buttons: []NotificationButton{
					{
						CustomID: beRealFeatureName + "_btn_leaderboard",
						Label:    "Leaderboard",
						Style:    discordgo.PrimaryButton,
					},
				},
			},
		)
	}

	f.logger.Info(
		"round settled",
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
	)
	return notifications, true
}

// Leaderboard returns streak holders ranked descending. Ties break by
// ascending user ID, which is stable across calls and restarts.
func (f *BeRealFeature) Leaderboard() []StreakEntry {
	streaks := f.Streaks()
	entries := make([]StreakEntry, 0, len(streaks))
	for userID, streak := range streaks {
		entries = append(entries, StreakEntry{UserID: userID, Streak: streak})
	}
	sort.Slice(
		entries, func(i, j int) bool {
			if entries[i].Streak != entries[j].Streak {
				return entries[i].Streak > entries[j].Streak
			}
			return entries[i].UserID < entries[j].UserID
		},
	)
	return entries
}
