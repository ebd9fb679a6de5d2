package models

import "time"

// Status is the lifecycle state of a todo.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

// AllStatuses lists every persistable status.
var AllStatuses = []Status{StatusActive, StatusCompleted, StatusArchived, StatusDeleted}

// VisibleStatuses are the statuses returned by owner-scoped listings.
var VisibleStatuses = []Status{StatusActive, StatusCompleted, StatusArchived}

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Todo represents a todo item.
type Todo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	OwnerID   string    `json:"ownerId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TodoPatch carries the fields of an update. Nil fields are left untouched.
type TodoPatch struct {
	Name   *string
	Status *Status
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Name == nil && p.Status == nil
}
