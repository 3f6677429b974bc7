package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/nightskip/go/internal/sleep"
)

// Inbound host event types.
const (
	EventPlayerJoined = "PlayerJoined"
	EventPlayerQuit   = "PlayerQuit"
	EventPlayerMoved  = "PlayerMoved"
	EventBedSpawnSet  = "BedSpawnSet"
	EventBedEnter     = "BedEnter"
	EventBedLeave     = "BedLeave"
)

// EventNightSkipped is the outbound event type for a completed skip.
const EventNightSkipped = "NightSkipped"

var (
	ErrMalformedEvent   = errors.New("malformed event")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrUnknownPlayer    = errors.New("unknown player")
)

// Envelope wraps every event on the stream.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	PlayerID  string          `json:"playerId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	Name     string          `json:"name"`
	World    string          `json:"world"`
	Location sleep.Location  `json:"location"`
	BedSpawn *sleep.Location `json:"bedSpawn,omitempty"`
}

// PlayerMovedPayload is the payload for a PlayerMoved event
type PlayerMovedPayload struct {
	World    string         `json:"world"`
	Location sleep.Location `json:"location"`
}

// BedSpawnSetPayload is the payload for a BedSpawnSet event. A null location
// clears the spawn point.
type BedSpawnSetPayload struct {
	Location *sleep.Location `json:"location"`
}

func decodeEnvelope(data []byte) (Envelope, uuid.UUID, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: unmarshal envelope: %v", ErrMalformedEvent, err)
	}
	if env.EventType == "" {
		return env, uuid.Nil, fmt.Errorf("%w: missing eventType", ErrMalformedEvent)
	}
	id, err := uuid.Parse(env.PlayerID)
	if err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: parse player ID: %v", ErrMalformedEvent, err)
	}
	return env, id, nil
}

func decodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrMalformedEvent, env.EventType)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: unmarshal %s payload: %v", ErrMalformedEvent, env.EventType, err)
	}
	return nil
}

// NewEnvelope builds an envelope around payload.
func NewEnvelope(eventType string, playerID uuid.UUID, at time.Time, payload any) (Envelope, error) {
	env := Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: at.UTC(),
	}
	if playerID != uuid.Nil {
		env.PlayerID = playerID.String()
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return env, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		env.Payload = data
	}
	return env, nil
}
