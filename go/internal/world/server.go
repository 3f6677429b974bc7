package world

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/nightskip/go/internal/scheduler"
	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/rs/zerolog/log"
)

// Player is an online participant.
type Player struct {
	id   uuid.UUID
	name string

	mu  sync.RWMutex
	loc sleep.Location
	bed *sleep.Location
}

func (p *Player) ID() uuid.UUID { return p.id }
func (p *Player) Name() string  { return p.name }

func (p *Player) Location() sleep.Location {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loc
}

func (p *Player) BedSpawn() (sleep.Location, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.bed == nil {
		return sleep.Location{}, false
	}
	return *p.bed, true
}

// MoveTo updates the player's location.
func (p *Player) MoveTo(loc sleep.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loc = loc
}

// SetBedSpawn sets or, with nil, clears the bed respawn point.
func (p *Player) SetBedSpawn(loc *sleep.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if loc == nil {
		p.bed = nil
		return
	}
	bed := *loc
	p.bed = &bed
}

// Server holds the worlds and online players. It implements sleep.Host.
type Server struct {
	mu       sync.RWMutex
	worlds   []*World
	players  map[uuid.UUID]*Player
	observer EffectObserver
}

// NewServer creates a server with the given worlds.
func NewServer(worlds ...*World) *Server {
	return &Server{
		worlds:  worlds,
		players: make(map[uuid.UUID]*Player),
	}
}

// DefaultWorlds returns the usual overworld, nether and end trio.
func DefaultWorlds(startTime int64) []*World {
	return []*World{
		NewWorld("world", sleep.EnvironmentNormal, startTime),
		NewWorld("world_nether", sleep.EnvironmentNether, 18000),
		NewWorld("world_the_end", sleep.EnvironmentEnd, 6000),
	}
}

// SetEffectObserver routes every world's effects to o.
func (s *Server) SetEffectObserver(o EffectObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
	for _, w := range s.worlds {
		w.setObserver(o)
	}
}

// Worlds returns every world as a sleep.World.
func (s *Server) Worlds() []sleep.World {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sleep.World, 0, len(s.worlds))
	for _, w := range s.worlds {
		out = append(out, w)
	}
	return out
}

// States returns a snapshot of every world, in registration order.
func (s *Server) States() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]State, 0, len(s.worlds))
	for _, w := range s.worlds {
		out = append(out, w.State())
	}
	return out
}

// World looks a world up by name.
func (s *Server) World(name string) (*World, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.worlds {
		if w.name == name {
			return w, true
		}
	}
	return nil, false
}

func (s *Server) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Join brings a player online, or returns the existing player with that ID.
func (s *Server) Join(id uuid.UUID, name string, loc sleep.Location) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[id]; ok {
		return p
	}
	p := &Player{id: id, name: name, loc: loc}
	s.players[id] = p
	log.Info().Str("player", name).Str("player_id", id.String()).Int("online", len(s.players)).Msg("player joined")
	return p
}

// Quit takes a player offline. It reports whether the player was online.
func (s *Server) Quit(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return false
	}
	delete(s.players, id)
	log.Info().Str("player", p.name).Str("player_id", id.String()).Int("online", len(s.players)).Msg("player quit")
	return true
}

func (s *Server) Player(id uuid.UUID) (*Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	return p, ok
}

// Players returns the online players ordered by name.
func (s *Server) Players() []*Player {
	s.mu.RLock()
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Advance moves every world's clock forward one tick.
func (s *Server) Advance() {
	s.mu.RLock()
	worlds := append([]*World(nil), s.worlds...)
	s.mu.RUnlock()

	for _, w := range worlds {
		w.advance()
	}
}

// Attach runs the day/night cycle on sched, one world tick per host tick.
func (s *Server) Attach(sched sleep.Scheduler) *scheduler.Task {
	return sched.Every(1, s.Advance)
}
