package world

import (
	"sync"

	"github.com/mcdev12/nightskip/go/internal/sleep"
)

// EffectObserver receives the particles and sounds played in a world.
type EffectObserver interface {
	Particle(world string, p sleep.Particle, at sleep.Location, count int)
	Sound(world string, s sleep.Sound, at sleep.Location, volume, pitch float64)
}

// World is a simulated world with its own day/night clock.
type World struct {
	name string
	env  sleep.Environment

	mu       sync.RWMutex
	time     int64
	storm    bool
	observer EffectObserver
}

// NewWorld creates a world at the given time of day.
func NewWorld(name string, env sleep.Environment, time int64) *World {
	return &World{name: name, env: env, time: normalize(time)}
}

func (w *World) Name() string                   { return w.name }
func (w *World) Environment() sleep.Environment { return w.env }

func (w *World) Time() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.time
}

// SetTime sets the time of day, wrapped into [0, DayLength).
func (w *World) SetTime(t int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.time = normalize(t)
}

// State is a point-in-time view of a world.
type State struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Time        int64  `json:"time"`
	Storm       bool   `json:"storm"`
}

func (w *World) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return State{
		Name:        w.name,
		Environment: w.env.String(),
		Time:        w.time,
		Storm:       w.storm,
	}
}

func (w *World) SetStorm(storm bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.storm = storm
}

func (w *World) SpawnParticle(p sleep.Particle, at sleep.Location, count int, _ sleep.Location, _ float64) error {
	if o := w.effectObserver(); o != nil {
		o.Particle(w.name, p, at, count)
	}
	return nil
}

func (w *World) PlaySound(s sleep.Sound, at sleep.Location, volume, pitch float64) error {
	if o := w.effectObserver(); o != nil {
		o.Sound(w.name, s, at, volume, pitch)
	}
	return nil
}

// advance moves the clock forward one host tick. Only normal worlds cycle.
func (w *World) advance() {
	if w.env != sleep.EnvironmentNormal {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.time = normalize(w.time + 1)
}

func (w *World) setObserver(o EffectObserver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observer = o
}

func (w *World) effectObserver() EffectObserver {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.observer
}

func normalize(t int64) int64 {
	t %= sleep.DayLength
	if t < 0 {
		t += sleep.DayLength
	}
	return t
}
