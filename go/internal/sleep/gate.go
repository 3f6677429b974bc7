package sleep

import (
	"fmt"

	"github.com/mcdev12/nightskip/go/internal/scheduler"
)

// GateState says whether a night skip is currently permitted.
type GateState int

const (
	GatePermitted GateState = iota
	GateLocked
)

func (s GateState) String() string {
	if s == GateLocked {
		return "locked"
	}
	return "permitted"
}

func (s GateState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *GateState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "locked":
		*s = GateLocked
	case "permitted":
		*s = GatePermitted
	default:
		return fmt.Errorf("unknown gate state %q", text)
	}
	return nil
}

const (
	// GateCheckInterval is how often, in host ticks, the reset checker polls world time.
	GateCheckInterval = 200
	// ResetWindowStart and ResetWindowEnd bound (exclusively) the world time at
	// which a locked gate opens again.
	ResetWindowStart = 13000
	ResetWindowEnd   = 14000
)

// Gate is the once-per-cycle restriction. When the restriction is disabled it
// is always permitted and its state never changes.
type Gate struct {
	restricted bool
	state      GateState
	checker    scheduler.Slot
}

func newGate(restricted bool) *Gate {
	return &Gate{restricted: restricted, state: GatePermitted}
}

// CanSkip reports whether a skip may start.
func (g *Gate) CanSkip() bool {
	return !g.restricted || g.state == GatePermitted
}

func (g *Gate) State() GateState {
	return g.state
}

// lock moves PERMITTED to LOCKED. It reports whether the state changed.
func (g *Gate) lock() bool {
	if !g.restricted || g.state == GateLocked {
		return false
	}
	g.state = GateLocked
	return true
}

// observe feeds one checker poll into the gate. It returns reset=true when the
// poll landed in the reset window with no skip running, which also means the
// checker is done for this cycle.
func (g *Gate) observe(times []int64, skipActive bool) (reset bool, opened bool) {
	if skipActive {
		return false, false
	}
	for _, t := range times {
		if t > ResetWindowStart && t < ResetWindowEnd {
			opened = g.state == GateLocked
			g.state = GatePermitted
			return true, opened
		}
	}
	return false, false
}

// armGateReset (re)starts the reset checker. It does nothing when the
// restriction is disabled.
func (c *Coordinator) armGateReset() {
	if !c.gate.restricted {
		return
	}
	c.every(&c.gate.checker, GateCheckInterval, c.checkGateReset)
	c.logger.Debug().Msg("gate reset checker armed")
}

func (c *Coordinator) checkGateReset() {
	var times []int64
	for _, w := range qualifyingWorlds(c.host) {
		times = append(times, w.Time())
	}

	reset, opened := c.gate.observe(times, c.skip.Active())
	if !reset {
		return
	}
	c.gate.checker.Stop()
	if opened {
		c.logger.Info().Ints64("world_times", times).Msg("night reset: skipping permitted again")
	}
}
