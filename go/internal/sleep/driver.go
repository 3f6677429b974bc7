package sleep

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/nightskip/go/internal/config"
)

// DriverState says whether a skip run is in progress.
type DriverState int

const (
	DriverIdle DriverState = iota
	DriverRunning
)

func (s DriverState) String() string {
	if s == DriverRunning {
		return "running"
	}
	return "idle"
}

func (s DriverState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DriverState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "running":
		*s = DriverRunning
	case "idle":
		*s = DriverIdle
	default:
		return fmt.Errorf("unknown driver state %q", text)
	}
	return nil
}

// World clock constants, in world-time ticks.
const (
	DayLength      = 24000
	NightThreshold = 12000
	MorningEnd     = 1000
	MorningStart   = 23000
	TargetTime     = 0
)

// Skip run tunables.
const (
	MaxTicks      = 100
	TimeIncrement = 120
	SoundInterval = 30
)

var (
	particleSpread = Location{X: 0.5, Y: 0.5, Z: 0.5}
	particleSpeed  = 0.05
)

// SkipResult describes a finished skip run.
type SkipResult struct {
	RunID       uuid.UUID    `json:"runId"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt time.Time    `json:"completedAt"`
	Ticks       int          `json:"ticks"`
	Forced      bool         `json:"forced"`
	Required    int          `json:"required"`
	Online      int          `json:"online"`
	Sleepers    []SleeperRef `json:"sleepers"`
}

// SleeperRef identifies a participant in a SkipResult.
type SleeperRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type skipRun struct {
	id        uuid.UUID
	tick      int
	startedAt time.Time
	required  int
	online    int
}

// startSkip begins a new run, replacing any run already in progress. The gate
// is locked before the first tick can fire.
func (c *Coordinator) startSkip(required, online int) {
	if c.gate.lock() {
		c.logger.Info().Msg("night skip started, gate locked")
		if !c.gate.checker.Active() {
			c.armGateReset()
		}
	}

	c.run = &skipRun{
		id:        uuid.New(),
		startedAt: c.clock.Now(),
		required:  required,
		online:    online,
	}
	c.every(&c.skip, 1, c.skipTick)

	c.logger.Info().
		Str("run_id", c.run.id.String()).
		Int("sleeping", c.registry.Len()).
		Int("required", required).
		Msg("starting time skip")
}

// stopSkip cancels the current run, if any.
func (c *Coordinator) stopSkip() {
	if c.skip.Stop() && c.run != nil {
		c.logger.Info().
			Str("run_id", c.run.id.String()).
			Int("ticks", c.run.tick).
			Msg("time skip stopped")
	}
	c.run = nil
}

func (c *Coordinator) skipTick() {
	run := c.run
	if run == nil {
		return
	}

	worlds := qualifyingWorlds(c.host)
	sleepers := c.registry.Snapshot()

	for _, w := range worlds {
		next := w.Time() + TimeIncrement
		if next >= DayLength {
			next %= DayLength
		}
		w.SetTime(next)

		for _, p := range sleepers {
			c.playEffects(w, p, run.tick)
		}

		if now := w.Time(); now < MorningEnd || now > MorningStart {
			w.SetTime(TargetTime)
			w.SetStorm(false)
			c.completeSkip(run, run.tick+1, false)
			return
		}
	}

	run.tick++
	if run.tick >= MaxTicks {
		for _, w := range worlds {
			w.SetTime(TargetTime)
			w.SetStorm(false)
		}
		c.logger.Warn().
			Str("run_id", run.id.String()).
			Int("ticks", run.tick).
			Msg("time skip hit tick cap, forcing morning")
		c.completeSkip(run, run.tick, true)
	}
}

// playEffects emits ambient feedback for one sleeper. Unknown identifiers are
// logged once and replaced by the defaults for every later tick and run.
func (c *Coordinator) playEffects(w World, p Participant, tick int) {
	anchor, ok := p.BedSpawn()
	if !ok {
		anchor = p.Location()
	}
	fx := c.cfg.Effects

	if fx.ParticlesEnabled {
		particle, err := ParseParticle(c.particleType)
		if err != nil {
			c.logger.Warn().
				Str("particle_type", c.particleType).
				Str("fallback", string(DefaultParticle)).
				Msg("invalid particle type, using fallback")
			c.particleType = string(DefaultParticle)
			particle = DefaultParticle
		}
		if err := w.SpawnParticle(particle, anchor.Add(0, 1.0, 0), fx.ParticleCount, particleSpread, particleSpeed); err != nil {
			c.logEffectError(w, p, err)
		}
	}

	if fx.SoundEnabled && tick%SoundInterval == 0 {
		sound, err := ParseSound(c.soundType)
		if err != nil {
			c.logger.Warn().
				Str("sound_type", c.soundType).
				Str("fallback", string(DefaultSound)).
				Msg("invalid sound type, using fallback")
			c.soundType = string(DefaultSound)
			sound = DefaultSound
		}
		if err := w.PlaySound(sound, anchor, fx.SoundVolume, fx.SoundPitch); err != nil {
			c.logEffectError(w, p, err)
		}
	}
}

func (c *Coordinator) logEffectError(w World, p Participant, err error) {
	c.logger.Warn().
		Err(err).
		Str("world", w.Name()).
		Str("player", p.Name()).
		Msg("failed to play time skip effect")
}

// completeSkip finishes run after the given number of firings. Observers are
// told last, once the registry is empty and the gate checker is re-armed.
func (c *Coordinator) completeSkip(run *skipRun, ticks int, forced bool) {
	if c.cfg.AnnounceEnabled {
		if msg, ok := c.msgs.RenderPrefixed(config.MsgNightSkipped, nil); ok {
			c.messenger.Broadcast(msg)
		}
	}

	sleepers := c.registry.Snapshot()
	result := SkipResult{
		RunID:       run.id,
		StartedAt:   run.startedAt,
		CompletedAt: c.clock.Now(),
		Ticks:       ticks,
		Forced:      forced,
		Required:    run.required,
		Online:      run.online,
		Sleepers:    make([]SleeperRef, 0, len(sleepers)),
	}
	for _, p := range sleepers {
		result.Sleepers = append(result.Sleepers, SleeperRef{ID: p.ID(), Name: p.Name()})
	}

	c.registry.Clear()
	c.stopSkip()
	c.stopProgress()
	c.armGateReset()

	c.logger.Info().
		Str("run_id", result.RunID.String()).
		Int("ticks", result.Ticks).
		Bool("forced", forced).
		Int("sleepers", len(result.Sleepers)).
		Msg("night skipped")

	for _, o := range c.observers {
		o.SkipCompleted(result)
	}
}
