// Package reminders is the Reminders side of the sync: a Gateway
// abstraction over Apple's Reminders.app, backed by a
// JavaScript-for-Automation (JXA) script shelled out via osascript.
package reminders

import (
	"context"

	"github.com/BoweyLou/obssync/internal/model"
)

// Gateway is the narrow interface the sync engine depends on, so tests
// run against FakeGateway without ever touching Reminders.app.
type Gateway interface {
	// ListLists returns every Reminders list's id and name.
	ListLists(ctx context.Context) ([]ListInfo, error)
	// ListTasks returns every reminder belonging to any of listIDs.
	ListTasks(ctx context.Context, listIDs []string) ([]model.ReminderTask, error)
	// UpdateTask applies t's fields to the existing reminder matching t.ID.
	UpdateTask(ctx context.Context, t model.ReminderTask) error
	// CreateTask creates a new reminder in t.ListID and returns it with
	// its assigned ID populated.
	CreateTask(ctx context.Context, t model.ReminderTask) (model.ReminderTask, error)
	// DeleteTask removes the reminder with the given id from listID.
	DeleteTask(ctx context.Context, listID, id string) error
}

// ListInfo names a Reminders list, as returned by Gateway.ListLists.
type ListInfo struct {
	ID   string
	Name string
}
