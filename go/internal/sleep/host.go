package sleep

import (
	"github.com/google/uuid"
	"github.com/mcdev12/nightskip/go/internal/scheduler"
)

// Environment is the kind of a world. Only EnvironmentNormal has a day/night cycle.
type Environment int

const (
	EnvironmentNormal Environment = iota
	EnvironmentNether
	EnvironmentEnd
)

func (e Environment) String() string {
	switch e {
	case EnvironmentNormal:
		return "normal"
	case EnvironmentNether:
		return "nether"
	case EnvironmentEnd:
		return "the_end"
	default:
		return "unknown"
	}
}

// Location is a point in a named world.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Add returns the location offset by the given deltas.
func (l Location) Add(dx, dy, dz float64) Location {
	return Location{World: l.World, X: l.X + dx, Y: l.Y + dy, Z: l.Z + dz}
}

// Participant is anyone who can enter or leave a bed.
type Participant interface {
	ID() uuid.UUID
	Name() string
	Location() Location
	// BedSpawn returns the participant's bed respawn point, if one is set.
	BedSpawn() (Location, bool)
}

// World exposes the time and effect controls of a single world.
type World interface {
	Name() string
	Environment() Environment
	Time() int64
	SetTime(t int64)
	SetStorm(storm bool)
	SpawnParticle(p Particle, at Location, count int, spread Location, speed float64) error
	PlaySound(s Sound, at Location, volume, pitch float64) error
}

// Host enumerates worlds and online participants.
type Host interface {
	Worlds() []World
	OnlineCount() int
}

// Messenger delivers rendered text to observers.
type Messenger interface {
	ActionBar(text string)
	Broadcast(text string)
	Send(to Participant, text string)
}

// Scheduler runs callbacks on the host tick.
type Scheduler interface {
	Every(period uint64, fn func()) *scheduler.Task
}

// SkipObserver is told about every completed skip. Implementations must not
// block; they run on the scheduler goroutine.
type SkipObserver interface {
	SkipCompleted(result SkipResult)
}

// qualifyingWorlds filters worlds down to those with a day/night cycle.
func qualifyingWorlds(h Host) []World {
	var out []World
	for _, w := range h.Worlds() {
		if w.Environment() == EnvironmentNormal {
			out = append(out, w)
		}
	}
	return out
}
