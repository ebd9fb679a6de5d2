// Package service implements the todo lifecycle and the auth gate on top of
// the repository stores.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"todolist/internal/apperrors"
	"todolist/internal/metrics"
	"todolist/internal/models"
	"todolist/internal/repository"
	"todolist/pkg/logger"
)

// ListCache caches owner-scoped listings.
type ListCache interface {
	GetOwnerTodos(ctx context.Context, ownerID string) ([]models.Todo, bool)
	SetOwnerTodos(ctx context.Context, ownerID string, todos []models.Todo)
	InvalidateOwner(ctx context.Context, ownerID string)
}

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.TodoEvent) error
}

// CreateInput is the payload of Create. An empty Status means active.
type CreateInput struct {
	Name    string
	OwnerID string
	Status  string
}

// UpdateInput carries the optional fields of a combined update.
type UpdateInput struct {
	Name   *string
	Status *string
}

// TodoService owns the todo lifecycle. Status changes are unrestricted:
// any of the four states may follow any other.
type TodoService struct {
	todos  repository.TodoStore
	cache  ListCache
	events EventPublisher
	now    func() time.Time
	group  singleflight.Group

	fillTimeout time.Duration
	fillMu      sync.Mutex
	fills       map[string][]*fill
}

// fill is one in-flight store read for an owner's list.
type fill struct {
	stale bool
}

const defaultFillTimeout = 5 * time.Second

type TodoOption func(*TodoService)

// WithCache enables the owner list cache.
func WithCache(c ListCache) TodoOption {
	return func(s *TodoService) { s.cache = c }
}

// WithEvents enables change event publishing.
func WithEvents(p EventPublisher) TodoOption {
	return func(s *TodoService) { s.events = p }
}

// WithFillTimeout bounds the shared store read behind ListForOwner.
func WithFillTimeout(d time.Duration) TodoOption {
	return func(s *TodoService) {
		if d > 0 {
			s.fillTimeout = d
		}
	}
}

// WithClock overrides the time source for updatedAt.
func WithClock(now func() time.Time) TodoOption {
	return func(s *TodoService) { s.now = now }
}

func NewTodoService(todos repository.TodoStore, opts ...TodoOption) *TodoService {
	s := &TodoService{
		todos:       todos,
		now:         time.Now,
		fillTimeout: defaultFillTimeout,
		fills:       map[string][]*fill{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new todo for ownerID.
func (s *TodoService) Create(ctx context.Context, in CreateInput) (todo models.Todo, err error) {
	defer func() { observe("create", err) }()

	name, err := NormalizeName(in.Name)
	if err != nil {
		return models.Todo{}, err
	}
	if err := ValidateID(in.OwnerID, "userId"); err != nil {
		return models.Todo{}, err
	}
	status := models.StatusActive
	if in.Status != "" {
		if status, err = ParseStatus(in.Status); err != nil {
			return models.Todo{}, err
		}
	}

	todo = models.Todo{
		Name:      name,
		Status:    status,
		OwnerID:   in.OwnerID,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.todos.Create(ctx, &todo); err != nil {
		return models.Todo{}, err
	}
	s.afterWrite(ctx, &models.TodoEvent{Type: models.EventCreated, TodoID: todo.ID, OwnerID: todo.OwnerID, Name: todo.Name, Status: todo.Status})
	return todo, nil
}

// ListForOwner returns the owner's non-deleted todos, most recently updated first.
func (s *TodoService) ListForOwner(ctx context.Context, ownerID string) (todos []models.Todo, err error) {
	defer func() { observe("list", err) }()

	if err := ValidateID(ownerID, "userId"); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cached, ok := s.cache.GetOwnerTodos(ctx, ownerID); ok {
			return cached, nil
		}
	}
	ch := s.group.DoChan(ownerID, func() (interface{}, error) {
		return s.fillOwner(ctx, ownerID)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	list := res.Val.([]models.Todo)
	return append(make([]models.Todo, 0, len(list)), list...), nil
}

// fillOwner reads the owner's list from the store and caches it. The read is
// shared by concurrent callers, so it runs on its own bounded context. If a
// write for the owner lands while the read is in flight, the cached copy is
// dropped again.
func (s *TodoService) fillOwner(parent context.Context, ownerID string) ([]models.Todo, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.fillTimeout)
	defer cancel()

	f := s.beginFill(ownerID)
	list, err := s.todos.ListByOwner(ctx, ownerID, models.VisibleStatuses)
	if err != nil {
		s.endFill(ownerID, f)
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetOwnerTodos(ctx, ownerID, list)
	}
	if s.endFill(ownerID, f) && s.cache != nil {
		logger.Debug(ctx, "Dropping list cached during a write", "owner_id", ownerID)
		s.cache.InvalidateOwner(context.WithoutCancel(parent), ownerID)
	}
	return list, nil
}

func (s *TodoService) beginFill(ownerID string) *fill {
	f := &fill{}
	s.fillMu.Lock()
	s.fills[ownerID] = append(s.fills[ownerID], f)
	s.fillMu.Unlock()
	return f
}

// endFill unregisters f and reports whether a write marked it stale.
func (s *TodoService) endFill(ownerID string, f *fill) bool {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	fills := s.fills[ownerID]
	for i, other := range fills {
		if other == f {
			fills = append(fills[:i], fills[i+1:]...)
			break
		}
	}
	if len(fills) == 0 {
		delete(s.fills, ownerID)
	} else {
		s.fills[ownerID] = fills
	}
	return f.stale
}

// markStale flags the owner's in-flight reads and stops later callers from
// joining them.
func (s *TodoService) markStale(ownerID string) {
	s.fillMu.Lock()
	for _, f := range s.fills[ownerID] {
		f.stale = true
	}
	s.fillMu.Unlock()
	s.group.Forget(ownerID)
}

// Get returns a single todo in any status.
func (s *TodoService) Get(ctx context.Context, id string) (todo models.Todo, err error) {
	defer func() { observe("get", err) }()

	if err := ValidateID(id, "todo id"); err != nil {
		return models.Todo{}, err
	}
	return s.todos.Get(ctx, id)
}

// Rename replaces the todo's name.
func (s *TodoService) Rename(ctx context.Context, id, name string) (models.Todo, error) {
	return s.Update(ctx, id, UpdateInput{Name: &name})
}

// SetStatus moves the todo to status. Setting deleted is a soft delete.
func (s *TodoService) SetStatus(ctx context.Context, id, status string) (models.Todo, error) {
	return s.Update(ctx, id, UpdateInput{Status: &status})
}

// Update validates every provided field before a single store write, so a bad
// field never leaves the other one applied. With no fields it returns the
// stored record unchanged.
func (s *TodoService) Update(ctx context.Context, id string, in UpdateInput) (todo models.Todo, err error) {
	defer func() { observe("update", err) }()

	if err := ValidateID(id, "todo id"); err != nil {
		return models.Todo{}, err
	}
	var patch models.TodoPatch
	if in.Name != nil {
		name, err := NormalizeName(*in.Name)
		if err != nil {
			return models.Todo{}, err
		}
		patch.Name = &name
	}
	if in.Status != nil {
		status, err := ParseStatus(*in.Status)
		if err != nil {
			return models.Todo{}, err
		}
		patch.Status = &status
	}
	if patch.Empty() {
		return s.todos.Get(ctx, id)
	}

	todo, err = s.todos.Update(ctx, id, patch, s.now().UTC())
	if err != nil {
		return models.Todo{}, err
	}
	if patch.Name != nil {
		s.afterWrite(ctx, &models.TodoEvent{Type: models.EventRenamed, TodoID: todo.ID, OwnerID: todo.OwnerID, Name: todo.Name, Status: todo.Status})
	}
	if patch.Status != nil {
		s.afterWrite(ctx, &models.TodoEvent{Type: models.EventStatusChanged, TodoID: todo.ID, OwnerID: todo.OwnerID, Name: todo.Name, Status: todo.Status})
	}
	return todo, nil
}

// HardDelete removes the todo permanently.
func (s *TodoService) HardDelete(ctx context.Context, id string) (err error) {
	defer func() { observe("hard_delete", err) }()

	if err := ValidateID(id, "todo id"); err != nil {
		return err
	}
	todo, err := s.todos.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.afterWrite(ctx, &models.TodoEvent{Type: models.EventHardDeleted, TodoID: todo.ID, OwnerID: todo.OwnerID})
	return nil
}

// afterWrite drops the owner's cached list and announces the change. Both run
// after the store write has succeeded, so their failures are logged only.
func (s *TodoService) afterWrite(ctx context.Context, ev *models.TodoEvent) {
	s.markStale(ev.OwnerID)
	if s.cache != nil {
		s.cache.InvalidateOwner(ctx, ev.OwnerID)
	}
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "Publish todo event failed", "error", err, "type", ev.Type, "todo_id", ev.TodoID)
	}
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperrors.KindOf(err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result = "canceled"
		}
	}
	metrics.ObserveOperation(op, result)
}
