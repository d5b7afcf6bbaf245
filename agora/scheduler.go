package agora

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is a handle to delayed work. Cancel prevents the work from
// running if it hasn't been dispatched yet; canceling a fired or
// already-canceled task is a no-op.
type Task struct {
	id uuid.UUID
	s  *Scheduler
}

func (t *Task) Cancel() {
	if t == nil || t.s == nil {
		return
	}
	t.s.cancel(t.id)
}

// Scheduler runs delayed work on a worker pool shared across all
// guilds, sized once at process start to the available parallelism.
// Timers fire into the pool rather than running work on the timer
// goroutine, so slow work items can't skew other guilds' schedules.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	stopped bool

	work chan func()
	done chan struct{}
	wg   sync.WaitGroup
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger: logger.With(loggerNameKey, "scheduler"),
		timers: map[uuid.UUID]*time.Timer{},
		work:   make(chan func(), 16),
		done:   make(chan struct{}),
	}
	workers := runtime.GOMAXPROCS(0)
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case fn := <-s.work:
			fn()
		}
	}
}

// After schedules fn to run once after d. A non-positive delay fires
// immediately.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	id := uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return &Task{}
	}
	s.timers[id] = time.AfterFunc(
		d, func() {
			s.fire(id, fn)
		},
	)
	return &Task{id: id, s: s}
}

// At schedules fn to run once at instant t.
func (s *Scheduler) At(t time.Time, fn func()) *Task {
	return s.After(time.Until(t), fn)
}

func (s *Scheduler) fire(id uuid.UUID, fn func()) {
	s.mu.Lock()
	_, pending := s.timers[id]
	if pending {
		delete(s.timers, id)
	}
	s.mu.Unlock()
	if !pending {
		// canceled between the timer firing and this running
		return
	}

	select {
	case s.work <- fn:
	case <-s.done:
	}
}

func (s *Scheduler) cancel(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of scheduled-but-unfired tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all pending timers and shuts the worker pool down,
// waiting for in-flight work to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	s.logger.Debug("scheduler stopped")
}
