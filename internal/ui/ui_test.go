package ui

import (
	"testing"

	"taskflow/internal/store"
	"taskflow/internal/view"
)

func TestInitialFilterKeepsCategoryNameVerbatim(t *testing.T) {
	// Category matching is case-sensitive, so a configured default like
	// "Work" has to survive startup unchanged or it selects nothing.
	if got := initialFilter("Work"); got != "Work" {
		t.Fatalf("got %q, want %q", got, "Work")
	}

	tasks := []store.Task{
		{ID: "a", Title: "Ship report", Category: "Work"},
		{ID: "b", Title: "Buy milk", Category: "Personal"},
	}
	got := view.Filter(tasks, "", initialFilter("Work"))
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("default filter selected %v, want the Work task", got)
	}
}

func TestInitialFilterNormalizesSentinel(t *testing.T) {
	for _, v := range []string{"", "all", "All", "ALL"} {
		if got := initialFilter(v); got != view.AllCategories {
			t.Fatalf("initialFilter(%q) = %q, want %q", v, got, view.AllCategories)
		}
	}
}
