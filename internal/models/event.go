package models

import "time"

type EventType string

const (
	EventCreated       EventType = "created"
	EventRenamed       EventType = "renamed"
	EventStatusChanged EventType = "status_changed"
	EventHardDeleted   EventType = "hard_deleted"
)

// TodoEvent is the Kafka payload published after a successful mutation.
type TodoEvent struct {
	Type       EventType `json:"type"`
	TodoID     string    `json:"todo_id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name,omitempty"`
	Status     Status    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
