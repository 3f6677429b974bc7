package events

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/mcdev12/nightskip/go/internal/world"
	"github.com/rs/zerolog/log"
)

// BedHandler receives bed and disconnect events.
type BedHandler interface {
	HandleBedEnter(p sleep.Participant) bool
	HandleBedLeave(p sleep.Participant)
	HandleQuit(id uuid.UUID)
}

// Router applies host events to the world server and the bed handler.
type Router struct {
	server *world.Server
	beds   BedHandler
}

func NewRouter(server *world.Server, beds BedHandler) *Router {
	return &Router{server: server, beds: beds}
}

// Route applies one decoded event.
func (r *Router) Route(env Envelope, playerID uuid.UUID) error {
	switch env.EventType {
	case EventPlayerJoined:
		var p PlayerJoinedPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		if p.Location.World == "" {
			p.Location.World = p.World
		}
		player := r.server.Join(playerID, p.Name, p.Location)
		if p.BedSpawn != nil {
			player.SetBedSpawn(p.BedSpawn)
		}
		return nil

	case EventPlayerQuit:
		r.server.Quit(playerID)
		r.beds.HandleQuit(playerID)
		return nil

	case EventPlayerMoved:
		var p PlayerMovedPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		player, err := r.player(playerID)
		if err != nil {
			return err
		}
		if p.Location.World == "" {
			p.Location.World = p.World
		}
		player.MoveTo(p.Location)
		return nil

	case EventBedSpawnSet:
		var p BedSpawnSetPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}
		player, err := r.player(playerID)
		if err != nil {
			return err
		}
		player.SetBedSpawn(p.Location)
		return nil

	case EventBedEnter:
		player, err := r.player(playerID)
		if err != nil {
			return err
		}
		if !r.beds.HandleBedEnter(player) {
			log.Info().Str("player", player.Name()).Msg("bed entry vetoed")
		}
		return nil

	case EventBedLeave:
		player, err := r.player(playerID)
		if err != nil {
			return err
		}
		r.beds.HandleBedLeave(player)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventType, env.EventType)
	}
}

func (r *Router) player(id uuid.UUID) (*world.Player, error) {
	p, ok := r.server.Player(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	return p, nil
}
