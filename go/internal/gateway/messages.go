package gateway

import (
	"github.com/mcdev12/nightskip/go/internal/sleep"
)

// MessageType is the kind of frame pushed to websocket clients.
type MessageType string

const (
	MessageActionBar MessageType = "action_bar"
	MessageChat      MessageType = "chat"
	MessageBroadcast MessageType = "broadcast"
	MessageParticle  MessageType = "particle"
	MessageSound     MessageType = "sound"
)

// Message is a single server to client frame.
type Message struct {
	Type     MessageType     `json:"type"`
	Text     string          `json:"text,omitempty"`
	World    string          `json:"world,omitempty"`
	Name     string          `json:"name,omitempty"`
	Location *sleep.Location `json:"location,omitempty"`
	Count    int             `json:"count,omitempty"`
	Volume   float64         `json:"volume,omitempty"`
	Pitch    float64         `json:"pitch,omitempty"`
}

// Messenger turns coordinator output into websocket frames. It implements
// sleep.Messenger and world.EffectObserver.
type Messenger struct {
	cm *ConnectionManager
}

func NewMessenger(cm *ConnectionManager) *Messenger {
	return &Messenger{cm: cm}
}

func (m *Messenger) ActionBar(text string) {
	m.cm.Broadcast(&Message{Type: MessageActionBar, Text: text})
}

func (m *Messenger) Broadcast(text string) {
	m.cm.Broadcast(&Message{Type: MessageBroadcast, Text: text})
}

func (m *Messenger) Send(to sleep.Participant, text string) {
	m.cm.SendToPlayer(to.ID(), &Message{Type: MessageChat, Text: text})
}

func (m *Messenger) Particle(world string, p sleep.Particle, at sleep.Location, count int) {
	m.cm.Broadcast(&Message{
		Type:     MessageParticle,
		World:    world,
		Name:     string(p),
		Location: &at,
		Count:    count,
	})
}

func (m *Messenger) Sound(world string, s sleep.Sound, at sleep.Location, volume, pitch float64) {
	m.cm.Broadcast(&Message{
		Type:     MessageSound,
		World:    world,
		Name:     string(s),
		Location: &at,
		Volume:   volume,
		Pitch:    pitch,
	})
}
