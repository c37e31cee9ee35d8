package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"owatch/internal/metrics"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypePointsUpdate      = "points_update"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// PointsUpdate notifies a profile that its balance moved
type PointsUpdate struct {
	ProfileID string `json:"profile_id"`
	Amount    int64  `json:"amount"`
	Source    string `json:"source"`
}

// Hub maintains the set of active clients and routes messages. Leaderboard
// updates go to everyone; point updates go only to the affected profile's
// connections.
type Hub struct {
	// Connected clients by profile ID
	byProfile map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound broadcasts
	broadcast chan *envelope

	mu sync.RWMutex

	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// envelope pairs a message with an optional profile target
type envelope struct {
	profileID string
	message   *Message
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		byProfile:  make(map[string]map[*Client]bool),
		allClients: make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *envelope, 256),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info().Msg("websocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info().Msg("websocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			if _, ok := h.byProfile[client.profileID]; !ok {
				h.byProfile[client.profileID] = make(map[*Client]bool)
			}
			h.byProfile[client.profileID][client] = true
			h.mu.Unlock()
			metrics.WebsocketClients.Inc()
			h.logger.Debug().Str("profile_id", client.profileID).Msg("websocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				if clients, ok := h.byProfile[client.profileID]; ok {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.byProfile, client.profileID)
					}
				}
				close(client.send)
				metrics.WebsocketClients.Dec()
			}
			h.mu.Unlock()
			h.logger.Debug().Str("profile_id", client.profileID).Msg("websocket client unregistered")

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// deliver sends a message to its targets
func (h *Hub) deliver(env *envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(env.message)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal websocket message")
		return
	}

	if env.profileID != "" {
		for client := range h.byProfile[env.profileID] {
			select {
			case client.send <- data:
			default:
				h.logger.Warn().Str("profile_id", client.profileID).Msg("client buffer full, skipping")
			}
		}
		return
	}

	for client := range h.allClients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn().Str("profile_id", client.profileID).Msg("client buffer full, skipping")
		}
	}
}

// BroadcastLeaderboard sends a leaderboard snapshot to every client
func (h *Hub) BroadcastLeaderboard(entries interface{}) {
	h.enqueue(&envelope{
		message: &Message{
			Type:      MessageTypeLeaderboardUpdate,
			Data:      entries,
			Timestamp: time.Now(),
		},
	})
}

// NotifyPoints tells one profile's connections that its balance moved
func (h *Hub) NotifyPoints(profileID string, amount int64, source string) {
	h.enqueue(&envelope{
		profileID: profileID,
		message: &Message{
			Type: MessageTypePointsUpdate,
			Data: PointsUpdate{
				ProfileID: profileID,
				Amount:    amount,
				Source:    source,
			},
			Timestamp: time.Now(),
		},
	})
}

func (h *Hub) enqueue(env *envelope) {
	select {
	case h.broadcast <- env:
	default:
		h.logger.Warn().Msg("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
