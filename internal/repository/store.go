// Package repository persists users and todos.
package repository

import (
	"context"
	"time"

	"todolist/internal/models"
)

// TodoStore persists todo records. Lookups of unknown ids return
// apperrors.ErrTodoNotFound; a missing owner returns apperrors.ErrUnknownOwner.
type TodoStore interface {
	Create(ctx context.Context, todo *models.Todo) error
	Get(ctx context.Context, id string) (models.Todo, error)
	ListByOwner(ctx context.Context, ownerID string, statuses []models.Status) ([]models.Todo, error)
	Update(ctx context.Context, id string, patch models.TodoPatch, at time.Time) (models.Todo, error)
	Delete(ctx context.Context, id string) (models.Todo, error)
}

// UserStore persists accounts. A duplicate username returns
// apperrors.ErrUsernameTaken; an unknown username returns a not-found error.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (models.User, error)
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ TodoStore = (*PostgresTodoStore)(nil)
	_ TodoStore = (*MemoryTodoStore)(nil)
	_ UserStore = (*PostgresUserStore)(nil)
	_ UserStore = (*MemoryUserStore)(nil)
)
