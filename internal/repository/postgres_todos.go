package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"todolist/internal/apperrors"
	"todolist/internal/models"
	"todolist/pkg/logger"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const todoColumns = `id, name, status, owner_id, updated_at`

// PostgresTodoStore implements TodoStore on the todos table.
type PostgresTodoStore struct {
	db *sql.DB
}

func NewPostgresTodoStore(db *sql.DB) *PostgresTodoStore {
	return &PostgresTodoStore{db: db}
}

// Create inserts a new todo.
func (s *PostgresTodoStore) Create(ctx context.Context, todo *models.Todo) error {
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (id, name, status, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		todo.ID, todo.Name, todo.Status, todo.OwnerID, todo.UpdatedAt)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return apperrors.ErrUnknownOwner.WithCause(err)
		}
		logger.Error(ctx, "Repository Create failed", "error", err)
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// Get returns one todo regardless of status.
func (s *PostgresTodoStore) Get(ctx context.Context, id string) (models.Todo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id)
	return scanTodo(ctx, row, id)
}

// ListByOwner returns the owner's todos in the given statuses, newest update first.
func (s *PostgresTodoStore) ListByOwner(ctx context.Context, ownerID string, statuses []models.Status) ([]models.Todo, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos
		 WHERE owner_id = $1 AND status = ANY($2)
		 ORDER BY updated_at DESC, id DESC`,
		ownerID, pq.Array(names))
	if err != nil {
		logger.Error(ctx, "Repository ListByOwner failed", "error", err, "owner_id", ownerID)
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()
	todos := make([]models.Todo, 0)
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.OwnerID, &t.UpdatedAt); err != nil {
			logger.Error(ctx, "Repository scan todo failed", "error", err)
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// Update applies the non-nil patch fields and refreshes updated_at.
func (s *PostgresTodoStore) Update(ctx context.Context, id string, patch models.TodoPatch, at time.Time) (models.Todo, error) {
	var name, status sql.NullString
	if patch.Name != nil {
		name = sql.NullString{String: *patch.Name, Valid: true}
	}
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	row := s.db.QueryRowContext(ctx,
		`UPDATE todos SET name = COALESCE($1, name), status = COALESCE($2, status), updated_at = $3
		 WHERE id = $4 RETURNING `+todoColumns,
		name, status, at, id)
	return scanTodo(ctx, row, id)
}

// Delete removes a todo permanently and returns the removed record.
func (s *PostgresTodoStore) Delete(ctx context.Context, id string) (models.Todo, error) {
	row := s.db.QueryRowContext(ctx, `DELETE FROM todos WHERE id = $1 RETURNING `+todoColumns, id)
	return scanTodo(ctx, row, id)
}

// Ping checks the connection.
func (s *PostgresTodoStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanTodo(ctx context.Context, row *sql.Row, id string) (models.Todo, error) {
	var t models.Todo
	err := row.Scan(&t.ID, &t.Name, &t.Status, &t.OwnerID, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, apperrors.ErrTodoNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository todo query failed", "error", err, "id", id)
		return models.Todo{}, fmt.Errorf("query todo %s: %w", id, err)
	}
	return t, nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}
