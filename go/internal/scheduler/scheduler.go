package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TickInterval is the duration of one host tick (20 ticks per second).
const TickInterval = 50 * time.Millisecond

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Task is a repeating callback registered with a Scheduler.
type Task struct {
	id        uint64
	period    uint64
	next      uint64
	fn        func()
	cancelled atomic.Bool
	owner     *Scheduler
}

// Cancel stops the task. Cancelling a nil or already cancelled task is a no-op.
// A task cancelled while other callbacks of the same tick are running will not fire.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	if t.cancelled.Swap(true) {
		return
	}
	t.owner.remove(t.id)
}

// Cancelled reports whether Cancel has been called.
func (t *Task) Cancelled() bool {
	return t == nil || t.cancelled.Load()
}

// Scheduler is a single-threaded tick wheel. All task callbacks run serially,
// either on the goroutine driving Run or on whoever calls Tick.
type Scheduler struct {
	clock Clock

	mu     sync.Mutex
	tick   uint64
	nextID uint64
	tasks  map[uint64]*Task
}

// New creates a scheduler driven by the given clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock: clock,
		tasks: make(map[uint64]*Task),
	}
}

// Every registers fn to run every period ticks, starting on the next tick.
// A period of zero is treated as one.
func (s *Scheduler) Every(period uint64, fn func()) *Task {
	if period == 0 {
		period = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	task := &Task{
		id:     s.nextID,
		period: period,
		next:   s.tick + 1,
		fn:     fn,
		owner:  s,
	}
	s.tasks[task.id] = task
	return task
}

// CurrentTick returns the number of ticks processed so far.
func (s *Scheduler) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Pending returns the number of live tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tick advances the wheel by one tick and runs every task that is due, in
// registration order. The scheduler lock is not held while callbacks run.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	s.tick++
	var due []*Task
	for _, task := range s.tasks {
		if task.next <= s.tick {
			task.next = s.tick + task.period
			due = append(due, task)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })

	for _, task := range due {
		if task.Cancelled() {
			continue
		}
		task.fn()
	}
}

// Run drives the wheel from the clock until ctx is cancelled, then cancels
// every remaining task.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	log.Info().Dur("tick_interval", TickInterval).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.cancelAll()
			log.Info().Uint64("ticks", s.CurrentTick()).Msg("scheduler stopped")
			return
		case <-ticker.Chan():
			s.Tick()
		}
	}
}

func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

func (s *Scheduler) cancelAll() {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
		log.Debug().Uint64("task_id", task.id).Msg("cancelled task on shutdown")
	}
}
