package sleep

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/nightskip/go/internal/config"
	"github.com/mcdev12/nightskip/go/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrMissingCollaborator is returned by NewCoordinator when a required
// dependency is nil.
var ErrMissingCollaborator = errors.New("missing collaborator")

// Coordinator decides when the night is skipped. It owns the sleeper
// registry, the gate and every timer; at most one task per role is live.
type Coordinator struct {
	cfg       config.Snapshot
	msgs      config.Messages
	host      Host
	messenger Messenger
	sched     Scheduler
	clock     clockwork.Clock
	logger    zerolog.Logger
	observers []SkipObserver

	registry *Registry

	mu       sync.Mutex
	gate     *Gate
	progress scheduler.Slot
	skip     scheduler.Slot
	run      *skipRun

	// Effect identifiers in use. They start from config and fall back to the
	// defaults after the first failed lookup.
	particleType string
	soundType    string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithMessages(m config.Messages) Option {
	return func(c *Coordinator) { c.msgs = m }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithObserver registers an observer for completed skips.
func WithObserver(o SkipObserver) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewCoordinator wires a coordinator. Every collaborator is required.
func NewCoordinator(cfg config.Snapshot, host Host, messenger Messenger, sched Scheduler, opts ...Option) (*Coordinator, error) {
	switch {
	case host == nil:
		return nil, fmt.Errorf("%w: host", ErrMissingCollaborator)
	case messenger == nil:
		return nil, fmt.Errorf("%w: messenger", ErrMissingCollaborator)
	case sched == nil:
		return nil, fmt.Errorf("%w: scheduler", ErrMissingCollaborator)
	}

	c := &Coordinator{
		cfg:          cfg,
		msgs:         config.DefaultMessages(),
		host:         host,
		messenger:    messenger,
		sched:        sched,
		clock:        clockwork.NewRealClock(),
		logger:       log.Logger,
		registry:     NewRegistry(),
		gate:         newGate(cfg.RestrictEveryOtherNight),
		particleType: cfg.Effects.ParticleType,
		soundType:    cfg.Effects.SoundType,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Info().
		Str("mode", string(cfg.Mode)).
		Float64("percentage", cfg.Percentage).
		Int("fixed", cfg.FixedSleepers).
		Bool("restrict_every_other_night", cfg.RestrictEveryOtherNight).
		Msg("sleep coordinator initialized")
	return c, nil
}

// Start arms the gate reset checker.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armGateReset()
}

// Shutdown stops every timer and forgets all sleepers.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopProgress()
	c.stopSkip()
	c.gate.checker.Stop()
	c.registry.Clear()
	c.logger.Info().Msg("sleep coordinator shut down")
}

// CanSkip reports whether the gate currently permits a skip.
func (c *Coordinator) CanSkip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gate.CanSkip()
}

// HandleBedEnter is called when p tries to sleep. It returns false, and tells
// p why, when the gate vetoes the entry.
func (c *Coordinator) HandleBedEnter(p Participant) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gate.CanSkip() {
		if msg, ok := c.msgs.RenderPrefixed(config.MsgNightSkipBlocked, nil); ok {
			c.messenger.Send(p, msg)
		}
		c.logger.Debug().Str("player", p.Name()).Msg("bed entry blocked by gate")
		return false
	}
	c.addSleeper(p)
	return true
}

// HandleBedLeave is called when p leaves a bed.
func (c *Coordinator) HandleBedLeave(p Participant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeSleeper(p.ID(), p.Name())
}

// HandleQuit is called when a participant disconnects.
func (c *Coordinator) HandleQuit(id uuid.UUID) {
	if !c.registry.Contains(id) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeSleeper(id, id.String())
}

// every puts a new periodic task into slot, cancelling the one it held. fn
// runs under c.mu and only while its own task is still the one in slot, so a
// superseded firing that already passed the scheduler's cancel check is a
// no-op. Callers hold c.mu.
func (c *Coordinator) every(slot *scheduler.Slot, period uint64, fn func()) {
	var task *scheduler.Task
	task = c.sched.Every(period, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if slot.Holds(task) {
			fn()
		}
	})
	slot.Replace(task)
}

func (c *Coordinator) addSleeper(p Participant) int {
	n := c.registry.Add(p)
	c.logger.Info().Str("player", p.Name()).Int("total", n).Msg("player added to sleeping")

	if c.cfg.ActionBarEnabled {
		c.startProgress()
	}
	c.trySkipNight()
	return n
}

func (c *Coordinator) removeSleeper(id uuid.UUID, name string) int {
	n := c.registry.Remove(id)
	c.logger.Info().Str("player", name).Int("total", n).Msg("player removed from sleeping")

	if n == 0 {
		c.stopProgress()
		c.stopSkip()
		return n
	}
	c.trySkipNight()
	return n
}

// trySkipNight starts a skip when the gate allows it, some qualifying world
// is at night and enough participants are asleep.
func (c *Coordinator) trySkipNight() {
	if !c.gate.CanSkip() {
		return
	}
	if !c.isNight() {
		c.logger.Debug().Msg("cannot skip: not night time")
		return
	}

	online := c.host.OnlineCount()
	needed := RequiredSleepers(online, c.cfg)
	current := c.registry.Len()
	c.logger.Debug().Int("current", current).Int("needed", needed).Msg("checking skip")

	if current >= needed {
		c.startSkip(needed, online)
	}
}

func (c *Coordinator) isNight() bool {
	for _, w := range qualifyingWorlds(c.host) {
		if w.Time() > NightThreshold {
			return true
		}
	}
	return false
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	Sleeping   int         `json:"sleeping"`
	Required   int         `json:"required"`
	Online     int         `json:"online"`
	Restricted bool        `json:"restricted"`
	Gate       GateState   `json:"gate"`
	CanSkip    bool        `json:"canSkip"`
	Driver     DriverState `json:"driver"`
	DriverTick int         `json:"driverTick"`
	Sleepers   []string    `json:"sleepers"`
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	online := c.host.OnlineCount()
	s := Status{
		Sleeping:   c.registry.Len(),
		Required:   RequiredSleepers(online, c.cfg),
		Online:     online,
		Restricted: c.gate.restricted,
		Gate:       c.gate.State(),
		CanSkip:    c.gate.CanSkip(),
		Driver:     DriverIdle,
		Sleepers:   []string{},
	}
	if c.skip.Active() && c.run != nil {
		s.Driver = DriverRunning
		s.DriverTick = c.run.tick
	}
	for _, p := range c.registry.Snapshot() {
		s.Sleepers = append(s.Sleepers, p.Name())
	}
	return s
}
