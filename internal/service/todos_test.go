package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"todolist/internal/apperrors"
	"todolist/internal/models"
	"todolist/internal/repository"
)

type todoFixture struct {
	svc    *TodoService
	store  *repository.MemoryStore
	cache  *mockCache
	events *mockPublisher
	owner  string
	other  string
}

func setupTodoService(t *testing.T) *todoFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	auth := NewAuthService(store.Users(), &mockHasher{})
	owner, err := auth.Register(context.Background(), "u1", "pw")
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	other, err := auth.Register(context.Background(), "u2", "pw")
	if err != nil {
		t.Fatalf("register other: %v", err)
	}
	cache := newMockCache()
	events := &mockPublisher{}
	svc := NewTodoService(store.Todos(), WithCache(cache), WithEvents(events), WithClock(newStepClock().Now))
	return &todoFixture{svc: svc, store: store, cache: cache, events: events, owner: owner.ID, other: other.ID}
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperrors.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func ptr(s string) *string { return &s }

func TestCreate_DefaultsAndTrims(t *testing.T) {
	f := setupTodoService(t)

	todo, err := f.svc.Create(context.Background(), CreateInput{Name: "  Buy milk \n", OwnerID: f.owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if todo.Name != "Buy milk" {
		t.Errorf("expected trimmed name, got %q", todo.Name)
	}
	if todo.Status != models.StatusActive {
		t.Errorf("expected active, got %s", todo.Status)
	}
	if todo.OwnerID != f.owner {
		t.Errorf("expected owner %s, got %s", f.owner, todo.OwnerID)
	}
	if _, err := uuid.Parse(todo.ID); err != nil {
		t.Errorf("expected uuid id, got %q", todo.ID)
	}
	if todo.UpdatedAt.IsZero() {
		t.Error("expected updatedAt to be set")
	}
	if len(f.events.events) != 1 || f.events.events[0].Type != models.EventCreated {
		t.Errorf("expected one created event, got %+v", f.events.events)
	}
}

func TestCreate_ExplicitStatus(t *testing.T) {
	f := setupTodoService(t)

	todo, err := f.svc.Create(context.Background(), CreateInput{Name: "Old", OwnerID: f.owner, Status: "archived"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if todo.Status != models.StatusArchived {
		t.Errorf("expected archived, got %s", todo.Status)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	f := setupTodoService(t)

	testCases := []struct {
		name string
		in   CreateInput
	}{
		{"empty name", CreateInput{Name: "", OwnerID: f.owner}},
		{"whitespace name", CreateInput{Name: " \t ", OwnerID: f.owner}},
		{"missing owner", CreateInput{Name: "x"}},
		{"malformed owner", CreateInput{Name: "x", OwnerID: "not-an-id"}},
		{"unknown owner", CreateInput{Name: "x", OwnerID: uuid.NewString()}},
		{"bad status", CreateInput{Name: "x", OwnerID: f.owner, Status: "done"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.in)
			requireKind(t, err, apperrors.KindValidation)
		})
	}
	if len(f.events.events) != 0 {
		t.Errorf("expected no events for failed creates, got %d", len(f.events.events))
	}
}

func TestListForOwner_ScopedAndOrdered(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()

	first, _ := f.svc.Create(ctx, CreateInput{Name: "first", OwnerID: f.owner})
	second, _ := f.svc.Create(ctx, CreateInput{Name: "second", OwnerID: f.owner})
	gone, _ := f.svc.Create(ctx, CreateInput{Name: "gone", OwnerID: f.owner, Status: "deleted"})
	foreign, _ := f.svc.Create(ctx, CreateInput{Name: "foreign", OwnerID: f.other})

	// Touch first so it becomes the most recently updated.
	if _, err := f.svc.SetStatus(ctx, first.ID, "completed"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	list, err := f.svc.ListForOwner(ctx, f.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("expected [first, second], got [%s, %s]", list[0].Name, list[1].Name)
	}
	for _, td := range list {
		if td.ID == gone.ID || td.ID == foreign.ID {
			t.Errorf("unexpected todo %q in listing", td.Name)
		}
		if td.OwnerID != f.owner || td.Status == models.StatusDeleted {
			t.Errorf("listing leaked %+v", td)
		}
	}
}

func TestListForOwner_InvalidOwner(t *testing.T) {
	f := setupTodoService(t)
	_, err := f.svc.ListForOwner(context.Background(), "123")
	requireKind(t, err, apperrors.KindValidation)
}

func TestListForOwner_UnknownOwnerIsEmpty(t *testing.T) {
	f := setupTodoService(t)
	list, err := f.svc.ListForOwner(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

func TestListForOwner_UsesCacheAndInvalidatesOnWrite(t *testing.T) {
	store := repository.NewMemoryStore()
	owner, err := NewAuthService(store.Users(), &mockHasher{}).Register(context.Background(), "u1", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	counting := &countingTodoStore{TodoStore: store.Todos()}
	cache := newMockCache()
	svc := NewTodoService(counting, WithCache(cache), WithClock(newStepClock().Now))
	ctx := context.Background()

	todo, err := svc.Create(ctx, CreateInput{Name: "cached", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ListForOwner(ctx, owner.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.ListForOwner(ctx, owner.ID); err != nil {
		t.Fatalf("list: %v", err)
	}
	if counting.lists != 1 {
		t.Errorf("expected one store read, got %d", counting.lists)
	}

	if _, err := svc.Rename(ctx, todo.ID, "renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	list, err := svc.ListForOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if counting.lists != 2 {
		t.Errorf("expected store read after invalidation, got %d reads", counting.lists)
	}
	if len(list) != 1 || list[0].Name != "renamed" {
		t.Errorf("expected fresh list, got %+v", list)
	}
}

func TestListForOwner_WriteDuringReadIsNotCached(t *testing.T) {
	store := repository.NewMemoryStore()
	owner, err := NewAuthService(store.Users(), &mockHasher{}).Register(context.Background(), "u1", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	gated := newGatedTodoStore(store.Todos())
	cache := newMockCache()
	svc := NewTodoService(gated, WithCache(cache), WithClock(newStepClock().Now))
	ctx := context.Background()

	todo, err := svc.Create(ctx, CreateInput{Name: "Buy milk", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	type result struct {
		list []models.Todo
		err  error
	}
	slow := make(chan result, 1)
	go func() {
		list, err := svc.ListForOwner(ctx, owner.ID)
		slow <- result{list, err}
	}()
	<-gated.entered

	if _, err := svc.SetStatus(ctx, todo.ID, "deleted"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	// A read that starts after the write must not join the older read.
	late := make(chan result, 1)
	go func() {
		list, err := svc.ListForOwner(ctx, owner.ID)
		late <- result{list, err}
	}()
	<-gated.entered
	close(gated.release)

	if r := <-slow; r.err != nil {
		t.Fatalf("slow list: %v", r.err)
	}
	r := <-late
	if r.err != nil {
		t.Fatalf("late list: %v", r.err)
	}
	if len(r.list) != 0 {
		t.Errorf("expected late read to miss the deleted todo, got %+v", r.list)
	}

	list, err := svc.ListForOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, got := range list {
		if got.ID == todo.ID {
			t.Fatalf("soft-deleted todo still listed after SetStatus returned: %+v", list)
		}
	}
}

func TestListForOwner_HonoursCallerDeadline(t *testing.T) {
	store := repository.NewMemoryStore()
	owner, err := NewAuthService(store.Users(), &mockHasher{}).Register(context.Background(), "u1", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	gated := newGatedTodoStore(store.Todos())
	svc := NewTodoService(gated, WithFillTimeout(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = svc.ListForOwner(ctx, owner.ID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("expected return near the caller deadline, took %v", elapsed)
	}
	if !<-gated.deadline {
		t.Error("expected the shared store read to carry its own deadline")
	}
}

func TestSoftDeleteScenario(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()

	t1, err := f.svc.Create(ctx, CreateInput{Name: "Buy milk", OwnerID: f.owner})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if t1.Status != models.StatusActive {
		t.Fatalf("expected active, got %s", t1.Status)
	}

	completed, err := f.svc.SetStatus(ctx, t1.ID, "completed")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if !completed.UpdatedAt.After(t1.UpdatedAt) {
		t.Error("expected updatedAt to advance")
	}

	list, _ := f.svc.ListForOwner(ctx, f.owner)
	if len(list) != 1 || list[0].ID != t1.ID || list[0].Status != models.StatusCompleted {
		t.Fatalf("expected t1 completed in listing, got %+v", list)
	}

	if _, err := f.svc.SetStatus(ctx, t1.ID, "deleted"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	list, _ = f.svc.ListForOwner(ctx, f.owner)
	for _, td := range list {
		if td.ID == t1.ID {
			t.Fatal("soft-deleted todo still listed")
		}
	}

	stored, err := f.svc.Get(ctx, t1.ID)
	if err != nil {
		t.Fatalf("expected soft-deleted record to remain retrievable: %v", err)
	}
	if stored.Status != models.StatusDeleted {
		t.Errorf("expected deleted status, got %s", stored.Status)
	}
}

func TestSetStatus_AnyTransitionAllowed(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()
	todo, _ := f.svc.Create(ctx, CreateInput{Name: "cycle", OwnerID: f.owner})

	for _, next := range []string{"archived", "active", "deleted", "active", "completed", "archived", "deleted", "completed"} {
		got, err := f.svc.SetStatus(ctx, todo.ID, next)
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		if string(got.Status) != next {
			t.Fatalf("expected %s, got %s", next, got.Status)
		}
	}
}

func TestSetStatus_InvalidLeavesStatusUnchanged(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()
	todo, _ := f.svc.Create(ctx, CreateInput{Name: "keep", OwnerID: f.owner})

	for _, bad := range []string{"", "done", "ACTIVE", "pending"} {
		_, err := f.svc.SetStatus(ctx, todo.ID, bad)
		requireKind(t, err, apperrors.KindValidation)
	}

	stored, _ := f.svc.Get(ctx, todo.ID)
	if stored.Status != models.StatusActive {
		t.Errorf("expected status unchanged, got %s", stored.Status)
	}
}

func TestSetStatus_NotFound(t *testing.T) {
	f := setupTodoService(t)
	_, err := f.svc.SetStatus(context.Background(), uuid.NewString(), "completed")
	requireKind(t, err, apperrors.KindNotFound)
}

func TestRename(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()
	todo, _ := f.svc.Create(ctx, CreateInput{Name: "draft", OwnerID: f.owner})

	renamed, err := f.svc.Rename(ctx, todo.ID, "  final  ")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "final" {
		t.Errorf("expected trimmed name, got %q", renamed.Name)
	}

	_, err = f.svc.Rename(ctx, todo.ID, "")
	requireKind(t, err, apperrors.KindValidation)
	_, err = f.svc.Rename(ctx, todo.ID, "   ")
	requireKind(t, err, apperrors.KindValidation)

	stored, _ := f.svc.Get(ctx, todo.ID)
	if stored.Name != "final" {
		t.Errorf("expected name unchanged after failed rename, got %q", stored.Name)
	}

	_, err = f.svc.Rename(ctx, uuid.NewString(), "anything")
	requireKind(t, err, apperrors.KindNotFound)
	_, err = f.svc.Rename(ctx, "bad-id", "anything")
	requireKind(t, err, apperrors.KindValidation)
}

func TestUpdate_NoPartialWrite(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()
	todo, _ := f.svc.Create(ctx, CreateInput{Name: "original", OwnerID: f.owner})

	_, err := f.svc.Update(ctx, todo.ID, UpdateInput{Name: ptr("new name"), Status: ptr("bogus")})
	requireKind(t, err, apperrors.KindValidation)

	stored, _ := f.svc.Get(ctx, todo.ID)
	if stored.Name != "original" || stored.Status != models.StatusActive {
		t.Errorf("expected untouched record, got %+v", stored)
	}

	both, err := f.svc.Update(ctx, todo.ID, UpdateInput{Name: ptr("new name"), Status: ptr("completed")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if both.Name != "new name" || both.Status != models.StatusCompleted {
		t.Errorf("unexpected update result %+v", both)
	}
}

func TestUpdate_EmptyPatchReturnsRecord(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()
	todo, _ := f.svc.Create(ctx, CreateInput{Name: "same", OwnerID: f.owner})
	eventsBefore := len(f.events.events)

	got, err := f.svc.Update(ctx, todo.ID, UpdateInput{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.UpdatedAt.Equal(todo.UpdatedAt) {
		t.Error("expected updatedAt unchanged for empty update")
	}
	if len(f.events.events) != eventsBefore {
		t.Error("expected no event for empty update")
	}
}

func TestHardDelete(t *testing.T) {
	f := setupTodoService(t)
	ctx := context.Background()
	todo, _ := f.svc.Create(ctx, CreateInput{Name: "purge me", OwnerID: f.owner})

	if err := f.svc.HardDelete(ctx, todo.ID); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	_, err := f.svc.Get(ctx, todo.ID)
	requireKind(t, err, apperrors.KindNotFound)

	err = f.svc.HardDelete(ctx, todo.ID)
	requireKind(t, err, apperrors.KindNotFound)

	err = f.svc.HardDelete(ctx, "nope")
	requireKind(t, err, apperrors.KindValidation)

	last := f.events.events[len(f.events.events)-1]
	if last.Type != models.EventHardDeleted || last.OwnerID != f.owner {
		t.Errorf("expected hard_deleted event for owner, got %+v", last)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := setupTodoService(t)
	f.events.err = errors.New("broker down")

	todo, err := f.svc.Create(context.Background(), CreateInput{Name: "still saved", OwnerID: f.owner})
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), todo.ID); err != nil {
		t.Fatalf("expected todo persisted: %v", err)
	}
	if len(f.cache.invalidated) == 0 {
		t.Error("expected cache invalidation even when publish fails")
	}
}
