package websocket

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	OwnerID() uuid.UUID
	Send(data []byte) error
	Close() error
}

// Hub fans ledger events out to the connections of each owner.
// It is safe for concurrent use.
type Hub struct {
	// owners maps owner ID to a map of client ID to client
	owners map[uuid.UUID]map[string]ClientInterface
	mu     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		owners: make(map[uuid.UUID]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its owner
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ownerID := client.OwnerID()
	if h.owners[ownerID] == nil {
		h.owners[ownerID] = make(map[string]ClientInterface)
	}
	h.owners[ownerID][client.ID()] = client

	log.Debug().
		Stringer("owner_id", ownerID).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(client)
}

func (h *Hub) unregisterLocked(client ClientInterface) {
	ownerID := client.OwnerID()
	clients, ok := h.owners[ownerID]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}

	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.owners, ownerID)
	}

	log.Debug().
		Stringer("owner_id", ownerID).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// Broadcast sends an event to all clients of an owner. Send never blocks, so a
// client whose buffer is full is dropped instead of stalling the publisher.
func (h *Hub) Broadcast(ownerID uuid.UUID, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Stringer("owner_id", ownerID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients := make([]ClientInterface, 0, len(h.owners[ownerID]))
	for _, client := range h.owners[ownerID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	var stale []ClientInterface
	for _, client := range clients {
		if err := client.Send(data); err != nil {
			log.Warn().
				Err(err).
				Stringer("owner_id", ownerID).
				Str("client_id", client.ID()).
				Msg("Dropping slow or closed WebSocket client")
			stale = append(stale, client)
		}
	}

	if len(stale) > 0 {
		h.mu.Lock()
		for _, client := range stale {
			h.unregisterLocked(client)
		}
		h.mu.Unlock()
		for _, client := range stale {
			_ = client.Close()
		}
	}

	log.Debug().
		Stringer("owner_id", ownerID).
		Str("event_type", event.Type).
		Int("client_count", len(clients)-len(stale)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients connected for an owner
func (h *Hub) ClientCount(ownerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID])
}

// TotalClientCount returns the total number of connected clients
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.owners {
		total += len(clients)
	}
	return total
}

// Shutdown closes every connection. Used during graceful server shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var all []ClientInterface
	for _, clients := range h.owners {
		for _, client := range clients {
			all = append(all, client)
		}
	}
	h.owners = make(map[uuid.UUID]map[string]ClientInterface)
	h.mu.Unlock()

	for _, client := range all {
		_ = client.Close()
	}
	log.Info().Int("client_count", len(all)).Msg("WebSocket hub shut down")
}
