package view

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/store"
)

// Actions turns user intents from the rendering layer into store calls.
// It never touches rendered state itself: callers apply the returned
// values on success and keep their previous state on error.
type Actions struct {
	Tasks store.TaskStore
	Log   zerolog.Logger
}

// ToggleComplete flips a task's completion and stamps or clears the
// completion time accordingly.
func (a Actions) ToggleComplete(ctx context.Context, t store.Task) (store.Task, error) {
	completed := !t.Completed
	completedAt := sql.NullTime{}
	if completed {
		completedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	updated, err := a.Tasks.UpdateTask(ctx, t.ID, store.TaskPatch{
		Completed:   &completed,
		CompletedAt: &completedAt,
	})
	if err != nil {
		a.Log.Error().Err(err).Str("task_id", t.ID).Msg("toggle failed")
		return store.Task{}, err
	}
	return updated, nil
}

// BulkComplete marks every selected task completed. All updates are
// dispatched concurrently; the ones that succeed stay committed even
// when others fail, and a single aggregate error covers the failures.
func (a Actions) BulkComplete(ctx context.Context, ids []string, now time.Time) ([]string, error) {
	completed := true
	completedAt := sql.NullTime{Time: now, Valid: true}
	return a.fanOut(ctx, ids, "complete", func(ctx context.Context, id string) error {
		_, err := a.Tasks.UpdateTask(ctx, id, store.TaskPatch{
			Completed:   &completed,
			CompletedAt: &completedAt,
		})
		return err
	})
}

// BulkDelete removes every selected task with the same concurrent,
// partial-success semantics as BulkComplete. Confirmation happens in the
// rendering layer before this is called.
func (a Actions) BulkDelete(ctx context.Context, ids []string) ([]string, error) {
	return a.fanOut(ctx, ids, "delete", a.Tasks.DeleteTask)
}

// fanOut fires one operation per id, waits for all of them and reports
// the ids that went through. There is no rollback.
func (a Actions) fanOut(ctx context.Context, ids []string, op string, do func(context.Context, string) error) ([]string, error) {
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = do(ctx, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := make([]string, 0, len(ids))
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			a.Log.Error().Err(err).Str("task_id", ids[i]).Msgf("bulk %s failed", op)
			continue
		}
		succeeded = append(succeeded, ids[i])
	}
	if failed > 0 {
		return succeeded, fmt.Errorf("failed to %s %d of %d tasks", op, failed, len(ids))
	}
	return succeeded, nil
}

// TaskForm carries the raw form fields from the rendering layer.
type TaskForm struct {
	Title    string
	Category string
	Priority string
	DueDate  string // YYYY-MM-DD, blank for none
}

// Submit validates the form and routes it to create or, when editingID
// is set, to update. A blank title or a malformed date is rejected
// before any store call is made; a blank due date is normalized to none.
func (a Actions) Submit(ctx context.Context, form TaskForm, editingID string) (store.Task, bool, error) {
	title := strings.TrimSpace(form.Title)
	if title == "" {
		return store.Task{}, false, &store.ValidationError{Reason: "title cannot be empty"}
	}
	due, err := parseDueDate(form.DueDate)
	if err != nil {
		return store.Task{}, false, &store.ValidationError{Reason: "due date must be YYYY-MM-DD"}
	}
	priority := store.Priority(strings.TrimSpace(form.Priority))
	if priority == "" {
		priority = store.PriorityMedium
	}
	category := strings.TrimSpace(form.Category)

	if editingID != "" {
		t, err := a.Tasks.UpdateTask(ctx, editingID, store.TaskPatch{
			Title:    &title,
			Category: &category,
			Priority: &priority,
			DueDate:  &due,
		})
		if err != nil {
			a.Log.Error().Err(err).Str("task_id", editingID).Msg("update failed")
			return store.Task{}, false, err
		}
		return t, false, nil
	}

	t, err := a.Tasks.CreateTask(ctx, store.TaskDraft{
		Title:    title,
		Category: category,
		Priority: priority,
		DueDate:  due,
	})
	if err != nil {
		a.Log.Error().Err(err).Msg("create failed")
		return store.Task{}, false, err
	}
	return t, true, nil
}

func parseDueDate(v string) (sql.NullTime, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}
