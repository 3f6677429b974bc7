package sleep

import (
	"bytes"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/nightskip/go/internal/config"
	"github.com/mcdev12/nightskip/go/internal/scheduler"
	"github.com/rs/zerolog"
)

type fakeParticipant struct {
	id   uuid.UUID
	name string
	loc  Location
	bed  *Location
}

func newParticipant(name string) *fakeParticipant {
	return &fakeParticipant{
		id:   uuid.New(),
		name: name,
		loc:  Location{World: "world", X: 10, Y: 64, Z: -3},
	}
}

func (p *fakeParticipant) ID() uuid.UUID      { return p.id }
func (p *fakeParticipant) Name() string       { return p.name }
func (p *fakeParticipant) Location() Location { return p.loc }
func (p *fakeParticipant) BedSpawn() (Location, bool) {
	if p.bed == nil {
		return Location{}, false
	}
	return *p.bed, true
}

type particleCall struct {
	particle Particle
	at       Location
	count    int
}

type fakeWorld struct {
	name string
	env  Environment
	time int64
	// frozen worlds ignore SetTime, which keeps a run from ever reaching morning.
	frozen bool
	storm  bool
	// effectErr is returned by every particle and sound call.
	effectErr error
	particles []particleCall
	sounds    []Sound
}

func newWorld(name string, time int64) *fakeWorld {
	return &fakeWorld{name: name, env: EnvironmentNormal, time: time, storm: true}
}

func (w *fakeWorld) Name() string             { return w.name }
func (w *fakeWorld) Environment() Environment { return w.env }
func (w *fakeWorld) Time() int64              { return w.time }
func (w *fakeWorld) SetStorm(storm bool)      { w.storm = storm }

func (w *fakeWorld) SetTime(t int64) {
	if !w.frozen {
		w.time = t
	}
}

func (w *fakeWorld) SpawnParticle(p Particle, at Location, count int, _ Location, _ float64) error {
	w.particles = append(w.particles, particleCall{particle: p, at: at, count: count})
	return w.effectErr
}

func (w *fakeWorld) PlaySound(s Sound, _ Location, _, _ float64) error {
	w.sounds = append(w.sounds, s)
	return w.effectErr
}

type fakeHost struct {
	worlds []*fakeWorld
	online int
}

func (h *fakeHost) Worlds() []World {
	out := make([]World, 0, len(h.worlds))
	for _, w := range h.worlds {
		out = append(out, w)
	}
	return out
}

func (h *fakeHost) OnlineCount() int { return h.online }

type fakeMessenger struct {
	actionBars []string
	broadcasts []string
	sent       map[uuid.UUID][]string
}

func (m *fakeMessenger) ActionBar(text string) { m.actionBars = append(m.actionBars, text) }
func (m *fakeMessenger) Broadcast(text string) { m.broadcasts = append(m.broadcasts, text) }
func (m *fakeMessenger) Send(to Participant, text string) {
	if m.sent == nil {
		m.sent = make(map[uuid.UUID][]string)
	}
	m.sent[to.ID()] = append(m.sent[to.ID()], text)
}

type recordingObserver struct {
	results []SkipResult
}

func (o *recordingObserver) SkipCompleted(r SkipResult) { o.results = append(o.results, r) }

// recordingScheduler remembers every callback it hands to the wheel so tests
// can fire one directly, the way Tick does after its cancel check.
type recordingScheduler struct {
	*scheduler.Scheduler

	mu    sync.Mutex
	calls []scheduledCall
}

type scheduledCall struct {
	period uint64
	fn     func()
}

func (s *recordingScheduler) Every(period uint64, fn func()) *scheduler.Task {
	s.mu.Lock()
	s.calls = append(s.calls, scheduledCall{period: period, fn: fn})
	s.mu.Unlock()
	return s.Scheduler.Every(period, fn)
}

// callbacks returns the callbacks registered with the given period, oldest first.
func (s *recordingScheduler) callbacks(period uint64) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []func()
	for _, c := range s.calls {
		if c.period == period {
			out = append(out, c.fn)
		}
	}
	return out
}

type harness struct {
	coord     *Coordinator
	host      *fakeHost
	messenger *fakeMessenger
	sched     *recordingScheduler
	observer  *recordingObserver
	logs      *bytes.Buffer
}

func newHarness(t *testing.T, cfg config.Snapshot, online int, worlds ...*fakeWorld) *harness {
	t.Helper()
	h := &harness{
		host:      &fakeHost{worlds: worlds, online: online},
		messenger: &fakeMessenger{},
		sched:     &recordingScheduler{Scheduler: scheduler.New(clockwork.NewFakeClock())},
		observer:  &recordingObserver{},
		logs:      &bytes.Buffer{},
	}
	coord, err := NewCoordinator(cfg, h.host, h.messenger, h.sched,
		WithClock(clockwork.NewFakeClock()),
		WithLogger(zerolog.New(h.logs)),
		WithObserver(h.observer),
	)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	h.coord = coord
	t.Cleanup(coord.Shutdown)
	return h
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.sched.Tick()
	}
}

func fixedConfig(n int) config.Snapshot {
	cfg := config.Default()
	cfg.Mode = config.ModeFixed
	cfg.FixedSleepers = n
	return cfg
}
