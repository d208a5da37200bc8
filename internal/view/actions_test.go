package view

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/store"
)

// stubTaskStore records calls and fails the ids it is told to fail,
// standing in for the flaky remote the mock layer simulates.
type stubTaskStore struct {
	mu      sync.Mutex
	fail    map[string]error
	updates map[string]store.TaskPatch
	deletes []string
	creates []store.TaskDraft
}

func newStubTaskStore() *stubTaskStore {
	return &stubTaskStore{
		fail:    make(map[string]error),
		updates: make(map[string]store.TaskPatch),
	}
}

func (s *stubTaskStore) ListTasks(ctx context.Context) ([]store.Task, error) {
	return nil, nil
}

func (s *stubTaskStore) CreateTask(ctx context.Context, draft store.TaskDraft) (store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, draft)
	return store.Task{ID: "new", Title: draft.Title, Category: draft.Category,
		Priority: draft.Priority, DueDate: draft.DueDate, CreatedAt: time.Now()}, nil
}

func (s *stubTaskStore) UpdateTask(ctx context.Context, id string, patch store.TaskPatch) (store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[id]; ok {
		return store.Task{}, err
	}
	s.updates[id] = patch
	t := store.Task{ID: id}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.CompletedAt != nil {
		t.CompletedAt = *patch.CompletedAt
	}
	return t, nil
}

func (s *stubTaskStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.fail[id]; ok {
		return err
	}
	s.deletes = append(s.deletes, id)
	return nil
}

func newActions(s store.TaskStore) Actions {
	return Actions{Tasks: s, Log: zerolog.Nop()}
}

func TestToggleCompleteRoundTrip(t *testing.T) {
	st, err := store.Open(store.Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	a := newActions(st)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, store.TaskDraft{Title: "Water plants"})
	if err != nil {
		t.Fatal(err)
	}

	completed, err := a.ToggleComplete(ctx, task)
	if err != nil {
		t.Fatal(err)
	}
	if !completed.Completed || !completed.CompletedAt.Valid {
		t.Fatalf("expected completed with timestamp, got %+v", completed)
	}

	reopened, err := a.ToggleComplete(ctx, completed)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Completed || reopened.CompletedAt.Valid {
		t.Fatalf("expected incomplete with cleared timestamp, got %+v", reopened)
	}
}

func TestToggleCompleteFailureLeavesNothingToApply(t *testing.T) {
	stub := newStubTaskStore()
	stub.fail["a"] = &store.TransportError{Op: "update task", Err: errors.New("boom")}
	a := newActions(stub)

	_, err := a.ToggleComplete(context.Background(), store.Task{ID: "a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(stub.updates) != 0 {
		t.Fatalf("no update should have been recorded, got %v", stub.updates)
	}
}

func TestBulkCompletePartialFailure(t *testing.T) {
	stub := newStubTaskStore()
	stub.fail["b"] = &store.TransportError{Op: "update task", Err: errors.New("boom")}
	a := newActions(stub)

	now := time.Now()
	succeeded, err := a.BulkComplete(context.Background(), []string{"a", "b", "c"}, now)
	if err == nil {
		t.Fatal("expected aggregate error")
	}
	sort.Strings(succeeded)
	if len(succeeded) != 2 || succeeded[0] != "a" || succeeded[1] != "c" {
		t.Fatalf("succeeded = %v", succeeded)
	}
	// The successful updates stay committed.
	for _, id := range []string{"a", "c"} {
		patch, ok := stub.updates[id]
		if !ok {
			t.Fatalf("update for %s missing", id)
		}
		if patch.Completed == nil || !*patch.Completed {
			t.Fatalf("update for %s did not set completed", id)
		}
		if patch.CompletedAt == nil || !patch.CompletedAt.Valid || !patch.CompletedAt.Time.Equal(now) {
			t.Fatalf("update for %s did not stamp completedAt", id)
		}
	}
}

func TestBulkDeletePartialFailure(t *testing.T) {
	stub := newStubTaskStore()
	stub.fail["b"] = &store.NotFoundError{Kind: "task", ID: "b"}
	a := newActions(stub)

	succeeded, err := a.BulkDelete(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected aggregate error")
	}
	if len(succeeded) != 1 || succeeded[0] != "a" {
		t.Fatalf("succeeded = %v", succeeded)
	}
	if len(stub.deletes) != 1 || stub.deletes[0] != "a" {
		t.Fatalf("deletes = %v", stub.deletes)
	}
}

func TestBulkCompleteAllSucceed(t *testing.T) {
	stub := newStubTaskStore()
	a := newActions(stub)

	succeeded, err := a.BulkComplete(context.Background(), []string{"a", "b", "c"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(succeeded) != 3 {
		t.Fatalf("succeeded = %v", succeeded)
	}
}

func TestSubmitRejectsBlankTitleBeforeStoreCall(t *testing.T) {
	stub := newStubTaskStore()
	a := newActions(stub)

	for _, title := range []string{"", "   "} {
		_, _, err := a.Submit(context.Background(), TaskForm{Title: title}, "")
		var verr *store.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("title %q: expected ValidationError, got %v", title, err)
		}
	}
	if len(stub.creates) != 0 || len(stub.updates) != 0 {
		t.Fatal("store must not be called for a blank title")
	}
}

func TestSubmitRejectsMalformedDueDate(t *testing.T) {
	stub := newStubTaskStore()
	a := newActions(stub)

	_, _, err := a.Submit(context.Background(), TaskForm{Title: "x", DueDate: "tomorrow"}, "")
	var verr *store.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSubmitCreateNormalizesEmptyDueDate(t *testing.T) {
	stub := newStubTaskStore()
	a := newActions(stub)

	_, created, err := a.Submit(context.Background(), TaskForm{Title: "Walk dog", DueDate: "  "}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected create path")
	}
	if len(stub.creates) != 1 {
		t.Fatalf("creates = %d", len(stub.creates))
	}
	if stub.creates[0].DueDate.Valid {
		t.Fatal("blank due date must persist as none")
	}
	if stub.creates[0].Priority != store.PriorityMedium {
		t.Fatalf("blank priority must default to medium, got %q", stub.creates[0].Priority)
	}
}

func TestSubmitEditRoutesToUpdate(t *testing.T) {
	stub := newStubTaskStore()
	a := newActions(stub)

	_, created, err := a.Submit(context.Background(),
		TaskForm{Title: "Renamed", Priority: "high", DueDate: "2024-02-01"}, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected update path")
	}
	patch, ok := stub.updates["t1"]
	if !ok {
		t.Fatal("update not issued")
	}
	if patch.Title == nil || *patch.Title != "Renamed" {
		t.Fatalf("patch title = %v", patch.Title)
	}
	if patch.Priority == nil || *patch.Priority != store.PriorityHigh {
		t.Fatalf("patch priority = %v", patch.Priority)
	}
	if patch.DueDate == nil || !patch.DueDate.Valid {
		t.Fatal("patch due date missing")
	}
	if len(stub.creates) != 0 {
		t.Fatal("create must not be issued when editing")
	}
}
