package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event types pushed to subscribers. Lobby events carry the full decoded
// lobby snapshot so clients never have to diff; lobby.closed is the
// explicit "gone" sentinel.
const (
	EventLobbyUpdated = "lobby.updated"
	EventLobbyClosed  = "lobby.closed"
	EventLobbyStarted = "lobby.started"
	EventRoomHistory  = "room.history"
	EventRoomMessage  = "room.message"
	EventRoomStatus   = "room.status"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single subscriber connection. It's essentially a
// channel that the SSE handler will drain.
type Client chan []byte

// LobbyTopic names the event stream for one lobby.
func LobbyTopic(lobbyID uint) string {
	return fmt.Sprintf("lobby:%d", lobbyID)
}

// RoomTopic names the event stream for one room.
func RoomTopic(roomID uint) string {
	return fmt.Sprintf("room:%d", roomID)
}

// Hub fans events out to all subscribers of a topic. It is a stateless
// dispatcher: it holds no lobby or room data, only live subscriber channels.
type Hub struct {
	topics map[string]map[Client]bool
	mu     sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[Client]bool),
	}
}

// Subscribe adds a new client to a topic.
func (h *Hub) Subscribe(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[Client]bool)
	}
	h.topics[topic][client] = true
}

// Unsubscribe removes a client from a topic and closes its channel. This is
// the cancel side of the subscription contract: the owning handler must call
// it on teardown so no callback fires after the subscriber is gone.
func (h *Hub) Unsubscribe(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.topics[topic]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.topics, topic)
			}
		}
	}
}

// Broadcast sends an event to all clients subscribed to a topic.
func (h *Hub) Broadcast(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.topics[topic]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Str("type", event.Type).Msg("failed to marshal event")
		return
	}

	for client := range clients {
		// Non-blocking send so a slow client never stalls the hub. A client
		// that falls behind misses events; the SSE replay on reconnect
		// brings it back up to date.
		select {
		case client <- messageBytes:
		default:
		}
	}
}
