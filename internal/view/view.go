// Package view derives the presentable task list from raw store data:
// filtering, display order, per-task badge attributes and the aggregate
// statistics shown in the header. Everything in this file is a pure
// function of its inputs.
package view

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"taskflow/internal/store"
)

// AllCategories is the sentinel for an unfiltered category selection.
const AllCategories = "all"

// Filter keeps tasks whose title or category name contains the query as
// a case-insensitive substring, restricted to the selected category. An
// empty query matches everything.
func Filter(tasks []store.Task, query, category string) []store.Task {
	q := strings.ToLower(query)
	out := make([]store.Task, 0, len(tasks))
	for _, t := range tasks {
		matchesSearch := q == "" ||
			strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Category), q)
		matchesCategory := category == AllCategories || t.Category == category
		if matchesSearch && matchesCategory {
			out = append(out, t)
		}
	}
	return out
}

// PriorityWeight ranks priorities for sorting. Unknown values rank
// below low.
func PriorityWeight(p store.Priority) int {
	switch p {
	case store.PriorityHigh:
		return 3
	case store.PriorityMedium:
		return 2
	case store.PriorityLow:
		return 1
	default:
		return 0
	}
}

// Sort returns a new slice in display order: incomplete before
// completed, then priority descending, then due date ascending when both
// tasks carry one, otherwise creation time descending. A dated and an
// undated task in the same bucket compare by creation time, so recency
// wins over urgency there.
func Sort(tasks []store.Task) []store.Task {
	out := make([]store.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		wa, wb := PriorityWeight(a.Priority), PriorityWeight(b.Priority)
		if wa != wb {
			return wa > wb
		}
		if a.DueDate.Valid && b.DueDate.Valid {
			return a.DueDate.Time.Before(b.DueDate.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

var (
	styleHigh    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	styleMedium  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	styleLow     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	styleUnknown = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// PriorityStyle maps a priority to one of four fixed badge styles.
func PriorityStyle(p store.Priority) lipgloss.Style {
	switch p {
	case store.PriorityHigh:
		return styleHigh
	case store.PriorityMedium:
		return styleMedium
	case store.PriorityLow:
		return styleLow
	default:
		return styleUnknown
	}
}

// CategoryColor resolves a task's category name to its display color.
// Matching is by exact name; a missing or deleted category falls back to
// the fixed default.
func CategoryColor(name string, categories []store.Category) string {
	for _, c := range categories {
		if c.Name == name {
			if c.Color != "" {
				return c.Color
			}
			break
		}
	}
	return store.FallbackColor
}

type UrgencyClass int

const (
	UrgencyNormal UrgencyClass = iota
	UrgencyDueToday
	UrgencyOverdue
)

// Urgency classifies a due date against the current calendar day. Only
// call it for tasks that actually have one; an unset date means no badge
// at all. A due date is date-only, so each side is read as the calendar
// date in its own zone; comparing the underlying instants would shift
// the day for any non-UTC user.
func Urgency(due time.Time, completed bool, now time.Time) UrgencyClass {
	dueDay := dateOf(due)
	today := dateOf(now)
	if dueDay.Before(today) && !completed {
		return UrgencyOverdue
	}
	if dueDay.Equal(today) {
		return UrgencyDueToday
	}
	return UrgencyNormal
}

// dateOf projects a timestamp to its own calendar date, normalized to
// UTC so dates taken in different zones compare by day.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sameDay reports whether the instant t falls on now's calendar day.
// Unlike due dates, t here is a real instant, so it is viewed in now's
// zone first.
func sameDay(t, now time.Time) bool {
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Stats aggregates over the full, unfiltered task set.
type Stats struct {
	CompletedToday int
	TotalTasks     int
	// CompletionRate is today's completions as a percentage of all
	// tasks, matching the number the header has always shown.
	CompletionRate int
}

func Summarize(tasks []store.Task, now time.Time) Stats {
	st := Stats{TotalTasks: len(tasks)}
	for _, t := range tasks {
		if t.Completed && t.CompletedAt.Valid && sameDay(t.CompletedAt.Time, now) {
			st.CompletedToday++
		}
	}
	if st.TotalTasks > 0 {
		st.CompletionRate = int(math.Round(float64(st.CompletedToday) / float64(st.TotalTasks) * 100))
	}
	return st
}
