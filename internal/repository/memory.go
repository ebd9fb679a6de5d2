package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"todolist/internal/apperrors"
	"todolist/internal/models"
)

// MemoryStore keeps users and todos in process memory. It enforces the same
// constraints as the Postgres schema and backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	byUsername map[string]string
	todos      map[string]models.Todo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]models.User),
		byUsername: make(map[string]string),
		todos:      make(map[string]models.Todo),
	}
}

// Todos returns the TodoStore view of m.
func (m *MemoryStore) Todos() *MemoryTodoStore {
	return &MemoryTodoStore{m: m}
}

// Users returns the UserStore view of m.
func (m *MemoryStore) Users() *MemoryUserStore {
	return &MemoryUserStore{m: m}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

type MemoryTodoStore struct {
	m *MemoryStore
}

func (s *MemoryTodoStore) Create(ctx context.Context, todo *models.Todo) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[todo.OwnerID]; !ok {
		return apperrors.ErrUnknownOwner
	}
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = time.Now()
	}
	s.m.todos[todo.ID] = *todo
	return nil
}

func (s *MemoryTodoStore) Get(ctx context.Context, id string) (models.Todo, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	t, ok := s.m.todos[id]
	if !ok {
		return models.Todo{}, apperrors.ErrTodoNotFound
	}
	return t, nil
}

func (s *MemoryTodoStore) ListByOwner(ctx context.Context, ownerID string, statuses []models.Status) ([]models.Todo, error) {
	allowed := make(map[models.Status]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}
	s.m.mu.RLock()
	out := make([]models.Todo, 0)
	for _, t := range s.m.todos {
		if t.OwnerID == ownerID && allowed[t.Status] {
			out = append(out, t)
		}
	}
	s.m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryTodoStore) Update(ctx context.Context, id string, patch models.TodoPatch, at time.Time) (models.Todo, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.todos[id]
	if !ok {
		return models.Todo{}, apperrors.ErrTodoNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	t.UpdatedAt = at
	s.m.todos[id] = t
	return t, nil
}

func (s *MemoryTodoStore) Delete(ctx context.Context, id string) (models.Todo, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.todos[id]
	if !ok {
		return models.Todo{}, apperrors.ErrTodoNotFound
	}
	delete(s.m.todos, id)
	return t, nil
}

type MemoryUserStore struct {
	m *MemoryStore
}

func (s *MemoryUserStore) Create(ctx context.Context, user *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, taken := s.m.byUsername[user.Username]; taken {
		return apperrors.ErrUsernameTaken
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.m.users[user.ID] = *user
	s.m.byUsername[user.Username] = user.ID
	return nil
}

func (s *MemoryUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	id, ok := s.m.byUsername[username]
	if !ok {
		return models.User{}, apperrors.NotFound("user not found")
	}
	return s.m.users[id], nil
}
