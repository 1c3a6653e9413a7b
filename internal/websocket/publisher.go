package websocket

import "github.com/google/uuid"

// EventPublisher defines the interface for publishing ledger events
type EventPublisher interface {
	// Publish sends an event to every subscriber of the owner's ledger
	Publish(ownerID uuid.UUID, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the owner's clients
func (h *Hub) Publish(ownerID uuid.UUID, event Event) {
	h.Broadcast(ownerID, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(ownerID uuid.UUID, event Event) {}

// MultiPublisher fans an event out to several publishers
type MultiPublisher []EventPublisher

// Publish forwards the event to every publisher in order
func (m MultiPublisher) Publish(ownerID uuid.UUID, event Event) {
	for _, p := range m {
		p.Publish(ownerID, event)
	}
}
