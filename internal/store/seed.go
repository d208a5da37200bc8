package store

import (
	"context"
	"database/sql"
	"time"
)

// seed loads the demo data the application ships with. Dates are placed
// relative to the current day so the urgency badges have something to
// show on first launch.
func (s *Store) seed() error {
	ctx := context.Background()
	saved := s.latency
	s.latency = 0
	defer func() { s.latency = saved }()

	categories := []CategoryDraft{
		{Name: "Work", Color: "#5B21B6"},
		{Name: "Personal", Color: "#F59E0B"},
		{Name: "Shopping", Color: "#10B981"},
		{Name: "Health", Color: "#EF4444"},
	}
	for _, c := range categories {
		if _, err := s.CreateCategory(ctx, c); err != nil {
			return err
		}
	}

	today := midnight(time.Now())
	tasks := []TaskDraft{
		{Title: "Review quarterly report", Category: "Work", Priority: PriorityHigh, DueDate: day(today, -1)},
		{Title: "Schedule dentist appointment", Category: "Health", Priority: PriorityMedium, DueDate: day(today, 0)},
		{Title: "Buy groceries for the week", Category: "Shopping", Priority: PriorityLow, DueDate: day(today, 2)},
		{Title: "Prepare slides for Monday sync", Category: "Work", Priority: PriorityHigh, DueDate: day(today, 3)},
		{Title: "Call mom", Category: "Personal", Priority: PriorityMedium},
		{Title: "Morning run", Category: "Health", Priority: PriorityLow, Completed: true,
			CompletedAt: sql.NullTime{Time: time.Now(), Valid: true}},
	}
	for _, t := range tasks {
		if _, err := s.CreateTask(ctx, t); err != nil {
			return err
		}
	}
	s.log.Info().Int("tasks", len(tasks)).Int("categories", len(categories)).Msg("seeded demo data")
	return nil
}

// midnight takes t's calendar day pinned to UTC midnight. Due dates are
// date-only and encode through UTC, so a zone-local midnight would come
// back a day off for positive offsets.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func day(base time.Time, offset int) sql.NullTime {
	return sql.NullTime{Time: base.AddDate(0, 0, offset), Valid: true}
}
