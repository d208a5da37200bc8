package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store implements TaskStore and CategoryStore on top of an in-memory
// SQLite database. Nothing survives the process; the database only
// exists so the collection behaves like a real backing service.
type Store struct {
	db      *sql.DB
	latency time.Duration
	log     zerolog.Logger
}

type Options struct {
	// Latency is slept before every operation to imitate a remote API.
	Latency time.Duration
	// Seed loads the demo tasks and categories on open.
	Seed   bool
	Logger zerolog.Logger
}

func Open(opts Options) (*Store, error) {
	// A uniquely named memory database keeps separate Open calls
	// isolated from each other.
	dsn := fmt.Sprintf("file:taskflow_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps the in-memory database alive and
	// serializes concurrent bulk writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, latency: opts.Latency, log: opts.Logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if opts.Seed {
		if err := s.seed(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'medium',
	due TEXT DEFAULT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT DEFAULT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS categories (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	task_count INTEGER NOT NULL DEFAULT 0
);`
	_, err := s.db.Exec(ddl)
	return err
}

// pause simulates network latency. The wait is interruptible even though
// callers in this application never cancel it.
func (s *Store) pause(ctx context.Context, op string) error {
	if s.latency <= 0 {
		if err := ctx.Err(); err != nil {
			return &TransportError{Op: op, Err: err}
		}
		return nil
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return &TransportError{Op: op, Err: ctx.Err()}
	}
}

func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	const op = "list tasks"
	if err := s.pause(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, category, priority, due, completed, completed_at, created_at
		 FROM tasks ORDER BY seq DESC;`)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return tasks, nil
}

func (s *Store) CreateTask(ctx context.Context, draft TaskDraft) (Task, error) {
	const op = "create task"
	if err := s.pause(ctx, op); err != nil {
		return Task{}, err
	}
	if strings.TrimSpace(draft.Title) == "" {
		return Task{}, &ValidationError{Reason: "title cannot be empty"}
	}

	t := Task{
		ID:          uuid.New().String(),
		Title:       draft.Title,
		Category:    draft.Category,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
		Completed:   draft.Completed,
		CompletedAt: draft.CompletedAt,
		CreatedAt:   time.Now(),
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	enforceCompletedAt(&t, nil)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, category, priority, due, completed, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		t.ID, t.Title, t.Category, string(t.Priority),
		nullTimeString(t.DueDate), boolInt(t.Completed),
		nullTimeString(t.CompletedAt), t.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return Task{}, &TransportError{Op: op, Err: err}
	}
	s.log.Debug().Str("task_id", t.ID).Str("title", t.Title).Msg("created task")
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	const op = "update task"
	if err := s.pause(ctx, op); err != nil {
		return Task{}, err
	}
	t, err := s.getTask(ctx, id)
	if err != nil {
		return Task{}, err
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		t.DueDate = *patch.DueDate
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.CompletedAt != nil {
		t.CompletedAt = *patch.CompletedAt
	}
	enforceCompletedAt(&t, patch.CompletedAt)

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, category = ?, priority = ?, due = ?, completed = ?, completed_at = ? WHERE id = ?;`,
		t.Title, t.Category, string(t.Priority), nullTimeString(t.DueDate),
		boolInt(t.Completed), nullTimeString(t.CompletedAt), id)
	if err != nil {
		return Task{}, &TransportError{Op: op, Err: err}
	}
	s.log.Debug().Str("task_id", id).Msg("updated task")
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	const op = "delete task"
	if err := s.pause(ctx, op); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if n == 0 {
		return &NotFoundError{Kind: "task", ID: id}
	}
	s.log.Debug().Str("task_id", id).Msg("deleted task")
	return nil
}

func (s *Store) getTask(ctx context.Context, id string) (Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, category, priority, due, completed, completed_at, created_at
		 FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, &NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return Task{}, &TransportError{Op: "get task", Err: err}
	}
	return t, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	const op = "list categories"
	if err := s.pause(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, task_count FROM categories ORDER BY seq;`)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.TaskCount); err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return cats, nil
}

func (s *Store) CreateCategory(ctx context.Context, draft CategoryDraft) (Category, error) {
	const op = "create category"
	if err := s.pause(ctx, op); err != nil {
		return Category{}, err
	}
	if strings.TrimSpace(draft.Name) == "" {
		return Category{}, &ValidationError{Reason: "name cannot be empty"}
	}

	c := Category{
		ID:    uuid.New().String(),
		Name:  draft.Name,
		Color: draft.Color,
	}
	if c.Color == "" {
		c.Color = FallbackColor
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, color, task_count) VALUES (?, ?, ?, 0);`,
		c.ID, c.Name, c.Color)
	if err != nil {
		return Category{}, &TransportError{Op: op, Err: err}
	}
	s.log.Debug().Str("category_id", c.ID).Str("name", c.Name).Msg("created category")
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (Category, error) {
	const op = "update category"
	if err := s.pause(ctx, op); err != nil {
		return Category{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, task_count FROM categories WHERE id = ?;`, id)
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Color, &c.TaskCount)
	if err == sql.ErrNoRows {
		return Category{}, &NotFoundError{Kind: "category", ID: id}
	}
	if err != nil {
		return Category{}, &TransportError{Op: op, Err: err}
	}

	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if patch.TaskCount != nil {
		c.TaskCount = *patch.TaskCount
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, task_count = ? WHERE id = ?;`,
		c.Name, c.Color, c.TaskCount, id)
	if err != nil {
		return Category{}, &TransportError{Op: op, Err: err}
	}
	return c, nil
}

// DeleteCategory removes the category only. Tasks keep referencing the
// name and resolve to the fallback color from then on.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	const op = "delete category"
	if err := s.pause(ctx, op); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?;`, id)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if n == 0 {
		return &NotFoundError{Kind: "category", ID: id}
	}
	return nil
}

// enforceCompletedAt keeps CompletedAt valid exactly when Completed is
// set, regardless of what the caller put in the payload. An explicit
// CompletedAt in the patch wins for a completed task.
func enforceCompletedAt(t *Task, explicit *sql.NullTime) {
	if t.Completed {
		if explicit != nil && explicit.Valid {
			return
		}
		if !t.CompletedAt.Valid {
			t.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
		}
		return
	}
	t.CompletedAt = sql.NullTime{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var priority string
	var completed int
	var dueStr, completedStr sql.NullString
	var createdStr string

	err := row.Scan(&t.ID, &t.Title, &t.Category, &priority, &dueStr, &completed, &completedStr, &createdStr)
	if err != nil {
		return Task{}, err
	}
	t.Priority = Priority(priority)
	t.Completed = completed == 1
	t.DueDate = parseNullTime(dueStr)
	t.CompletedAt = parseNullTime(completedStr)
	if created, err := time.Parse(time.RFC3339, createdStr); err == nil {
		t.CreatedAt = created
	}
	return t, nil
}

func parseNullTime(s sql.NullString) sql.NullTime {
	if !s.Valid {
		return sql.NullTime{}
	}
	parsed, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: parsed, Valid: true}
}

func nullTimeString(t sql.NullTime) sql.NullString {
	if !t.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Time.UTC().Format(time.RFC3339), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
