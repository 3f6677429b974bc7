package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans coordinator output out to websocket observers.
type ConnectionManager struct {
	connections map[*Connection]struct{}
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan outbound
}

// Connection is one websocket client, optionally bound to a player.
type Connection struct {
	ID       string
	PlayerID uuid.UUID // uuid.Nil for spectators
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type outbound struct {
	player  uuid.UUID // uuid.Nil means every connection
	message *Message
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan outbound, 1000),
	}
}

// Start delivers queued messages until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			log.Info().Msg("connection manager shutting down")
			return
		case out := <-cm.broadcastCh:
			cm.deliver(out)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket bound to playerID.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", playerID.String()).
		Msg("websocket connection established")
	return nil
}

func (cm *ConnectionManager) register(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn] = struct{}{}

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregister(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.connections[conn]; !ok {
		return
	}
	delete(cm.connections, conn)
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("player_id", conn.PlayerID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregister(c)
	}
}

// Broadcast queues msg for every connection.
func (cm *ConnectionManager) Broadcast(msg *Message) {
	cm.enqueue(outbound{message: msg})
}

// SendToPlayer queues msg for the connections bound to playerID.
func (cm *ConnectionManager) SendToPlayer(playerID uuid.UUID, msg *Message) {
	if playerID == uuid.Nil {
		return
	}
	cm.enqueue(outbound{player: playerID, message: msg})
}

func (cm *ConnectionManager) enqueue(out outbound) {
	select {
	case cm.broadcastCh <- out:
	default:
		log.Warn().Str("type", string(out.message.Type)).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) deliver(out outbound) {
	cm.mu.RLock()
	var targets []*Connection
	for conn := range cm.connections {
		if out.player != uuid.Nil && conn.PlayerID != out.player {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(out.message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, closing connection")
			cm.unregister(conn)
			conn.Conn.Close()
		}
	}
}

// ConnectionStats summarises the open connections.
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	Players          int `json:"players"`
	Spectators       int `json:"spectators"`
}

func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{TotalConnections: len(cm.connections)}
	players := make(map[uuid.UUID]struct{})
	for conn := range cm.connections {
		if conn.PlayerID == uuid.Nil {
			stats.Spectators++
			continue
		}
		players[conn.PlayerID] = struct{}{}
	}
	stats.Players = len(players)
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only services control frames; clients have nothing to say.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
