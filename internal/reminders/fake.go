package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

// FakeGateway is an in-memory Gateway used by the test suite and as a
// local-dev stand-in when Reminders.app is unavailable.
type FakeGateway struct {
	mu    sync.Mutex
	lists []ListInfo
	tasks map[string]model.ReminderTask // keyed by id
}

// NewFakeGateway builds a FakeGateway seeded with the given lists.
func NewFakeGateway(lists ...ListInfo) *FakeGateway {
	return &FakeGateway{lists: lists, tasks: make(map[string]model.ReminderTask)}
}

// Seed inserts a task directly, bypassing CreateTask, for test setup.
func (g *FakeGateway) Seed(t model.ReminderTask) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks[t.ID] = t
}

func (g *FakeGateway) ListLists(ctx context.Context) ([]ListInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ListInfo, len(g.lists))
	copy(out, g.lists)
	return out, nil
}

func (g *FakeGateway) ListTasks(ctx context.Context, listIDs []string) ([]model.ReminderTask, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	wanted := make(map[string]struct{}, len(listIDs))
	for _, id := range listIDs {
		wanted[id] = struct{}{}
	}
	var out []model.ReminderTask
	for _, t := range g.tasks {
		if _, ok := wanted[t.ListID]; ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *FakeGateway) CreateTask(ctx context.Context, t model.ReminderTask) (model.ReminderTask, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	g.tasks[t.ID] = t
	return t, nil
}

func (g *FakeGateway) UpdateTask(ctx context.Context, t model.ReminderTask) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tasks[t.ID]; !ok {
		return syncerr.New(syncerr.NotFoundError, "reminders.FakeGateway.UpdateTask", fmt.Errorf("reminder %q not found", t.ID))
	}
	g.tasks[t.ID] = t
	return nil
}

func (g *FakeGateway) DeleteTask(ctx context.Context, listID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tasks[id]; !ok {
		return syncerr.New(syncerr.NotFoundError, "reminders.FakeGateway.DeleteTask", fmt.Errorf("reminder %q not found", id))
	}
	delete(g.tasks, id)
	return nil
}
