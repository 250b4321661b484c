package router

import (
	"testing"

	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

func TestRouteToReminders_FirstMatchingTagWins(t *testing.T) {
	r := &Router{
		VaultID: "V",
		TagRoutes: []model.TagRoute{
			{Tag: "work", ListID: "L-work"},
			{Tag: "home", ListID: "L-home"},
		},
		DefaultListID: "L-default",
	}
	listID, err := r.RouteToReminders([]string{"home", "work"})
	if err != nil {
		t.Fatalf("RouteToReminders: %v", err)
	}
	if listID != "L-home" {
		t.Fatalf("expected first matching tag (home) to win, got %q", listID)
	}
}

func TestRouteToReminders_FallsBackToDefault(t *testing.T) {
	r := &Router{VaultID: "V", DefaultListID: "L-default"}
	listID, err := r.RouteToReminders([]string{"unrouted"})
	if err != nil {
		t.Fatalf("RouteToReminders: %v", err)
	}
	if listID != "L-default" {
		t.Fatalf("expected default list, got %q", listID)
	}
}

func TestRouteToReminders_ConfigurationErrorWhenNeitherExists(t *testing.T) {
	r := &Router{VaultID: "V"}
	_, err := r.RouteToReminders([]string{"unrouted"})
	if !syncerr.Is(err, syncerr.ConfigurationError) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestRouteToObsidian_FallsBackToInbox(t *testing.T) {
	r := &Router{InboxFile: "inbox.md"}
	file, heading := r.RouteToObsidian("Unrouted List")
	if file != "inbox.md" || heading != "" {
		t.Fatalf("expected inbox fallback, got file=%q heading=%q", file, heading)
	}
}

func TestQuerySetListIDs_IncludesDefaultAndAllRoutes(t *testing.T) {
	r := &Router{
		DefaultListID: "L-default",
		TagRoutes: []model.TagRoute{
			{Tag: "work", ListID: "L-work"},
			{Tag: "urgent", ListID: "L-work"}, // duplicate list id, should dedupe
		},
	}
	ids := r.QuerySetListIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 unique list ids, got %+v", ids)
	}
}
