// Package store holds the task and category records and the mock data
// layer backing them: an in-memory SQLite database with artificial
// latency standing in for a remote API.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Priority is one of low, medium or high. Values outside that set are
// kept as-is; the view layer ranks them below low.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// FallbackColor is used for categories created without a color and for
// tasks whose category name no longer resolves.
const FallbackColor = "#8B5CF6"

type Task struct {
	ID          string
	Title       string
	Category    string // category name, "" means none
	Priority    Priority
	DueDate     sql.NullTime // date only, midnight
	Completed   bool
	CompletedAt sql.NullTime
	CreatedAt   time.Time
}

type Category struct {
	ID    string
	Name  string
	Color string
	// TaskCount is caller-maintained. The store never recomputes it, so
	// it can drift from the number of tasks referencing the category.
	TaskCount int
}

// TaskDraft carries the caller-supplied fields for a new task. ID,
// CreatedAt and the completion defaults are assigned by the store.
type TaskDraft struct {
	Title       string
	Category    string
	Priority    Priority
	DueDate     sql.NullTime
	Completed   bool
	CompletedAt sql.NullTime
}

// TaskPatch is a shallow merge over an existing task. Nil pointers leave
// the field unchanged; a non-nil NullTime with Valid=false clears it.
type TaskPatch struct {
	Title       *string
	Category    *string
	Priority    *Priority
	DueDate     *sql.NullTime
	Completed   *bool
	CompletedAt *sql.NullTime
}

type CategoryDraft struct {
	Name  string
	Color string
}

type CategoryPatch struct {
	Name      *string
	Color     *string
	TaskCount *int
}

// TaskStore is the boundary the view layer depends on. A real
// implementation could sit on a network API; the in-process one in this
// package simulates that with latency.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, draft TaskDraft) (Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, draft CategoryDraft) (Category, error)
	UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// ValidationError rejects bad input before it reaches the collection.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError reports an operation on an id absent from the store.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// TransportError covers any store failure that is not a validation or
// not-found condition, including a cancelled wait on the simulated
// latency.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
