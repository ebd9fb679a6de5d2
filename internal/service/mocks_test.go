package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"todolist/internal/models"
	"todolist/internal/repository"
)

type mockCache struct {
	mu          sync.Mutex
	lists       map[string][]models.Todo
	gets        int
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{lists: map[string][]models.Todo{}}
}

func (c *mockCache) GetOwnerTodos(ctx context.Context, ownerID string) ([]models.Todo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	l, ok := c.lists[ownerID]
	return l, ok
}

func (c *mockCache) SetOwnerTodos(ctx context.Context, ownerID string, todos []models.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[ownerID] = todos
}

func (c *mockCache) InvalidateOwner(ctx context.Context, ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, ownerID)
	c.invalidated = append(c.invalidated, ownerID)
}

type mockPublisher struct {
	events []models.TodoEvent
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, ev *models.TodoEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *ev)
	return nil
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash, password string) error
}

func (h *mockHasher) Hash(password string) (string, error) {
	if h.hashFunc != nil {
		return h.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (h *mockHasher) Compare(hash, password string) error {
	if h.compareFunc != nil {
		return h.compareFunc(hash, password)
	}
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// countingTodoStore wraps a TodoStore and counts ListByOwner calls.
type countingTodoStore struct {
	repository.TodoStore
	mu    sync.Mutex
	lists int
}

func (s *countingTodoStore) ListByOwner(ctx context.Context, ownerID string, statuses []models.Status) ([]models.Todo, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.TodoStore.ListByOwner(ctx, ownerID, statuses)
}

// stepClock returns a time one second later on each call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// gatedTodoStore takes its ListByOwner snapshot, then holds the call until
// release is closed or ctx ends.
type gatedTodoStore struct {
	repository.TodoStore
	entered  chan struct{}
	release  chan struct{}
	deadline chan bool
}

func newGatedTodoStore(inner repository.TodoStore) *gatedTodoStore {
	return &gatedTodoStore{
		TodoStore: inner,
		entered:   make(chan struct{}, 8),
		release:   make(chan struct{}),
		deadline:  make(chan bool, 8),
	}
}

func (s *gatedTodoStore) ListByOwner(ctx context.Context, ownerID string, statuses []models.Status) ([]models.Todo, error) {
	list, err := s.TodoStore.ListByOwner(ctx, ownerID, statuses)
	_, hasDeadline := ctx.Deadline()
	s.deadline <- hasDeadline
	s.entered <- struct{}{}
	select {
	case <-s.release:
		return list, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
