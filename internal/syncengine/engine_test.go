package syncengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BoweyLou/obssync/internal/dedup"
	"github.com/BoweyLou/obssync/internal/linkstore"
	"github.com/BoweyLou/obssync/internal/matcher"
	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/reminders"
	"github.com/BoweyLou/obssync/internal/router"
)

var errGatewayTimeout = errors.New("gateway timeout")

// fakeObsidian is a minimal in-memory ObsidianManager for engine tests.
type fakeObsidian struct {
	mu      sync.Mutex
	tasks   map[string]model.ObsidianTask
	nextID  int
	created []model.ObsidianTask
}

func newFakeObsidian(tasks ...model.ObsidianTask) *fakeObsidian {
	f := &fakeObsidian{tasks: make(map[string]model.ObsidianTask)}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeObsidian) ListTasks(ctx context.Context) ([]model.ObsidianTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ObsidianTask, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeObsidian) UpdateTask(ctx context.Context, t model.ObsidianTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeObsidian) CreateTask(ctx context.Context, t model.ObsidianTask, heading string) (model.ObsidianTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if t.ID == "" {
		t.ID = "new-obs"
	}
	f.tasks[t.ID] = t
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeObsidian) DeleteTask(ctx context.Context, vaultID, filePath, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

// failingCreateGateway wraps a FakeGateway and fails the first
// CreateTask call, simulating a gateway timeout mid-apply.
type failingCreateGateway struct {
	*reminders.FakeGateway
	failNext bool
}

func (g *failingCreateGateway) CreateTask(ctx context.Context, t model.ReminderTask) (model.ReminderTask, error) {
	if g.failNext {
		g.failNext = false
		return model.ReminderTask{}, errGatewayTimeout
	}
	return g.FakeGateway.CreateTask(ctx, t)
}

func testRouter() *router.Router {
	return &router.Router{
		VaultID:       "V",
		DefaultListID: "L-default",
		InboxFile:     "inbox.md",
	}
}

func testEngine(t *testing.T, obs *fakeObsidian, rem reminders.Gateway, linkPath string) *Engine {
	t.Helper()
	return &Engine{
		VaultID:     "V",
		Obs:         obs,
		Rem:         rem,
		Links:       linkstore.New(linkPath),
		Router:      testRouter(),
		MatcherOpts: matcher.DefaultOptions(),
		Now:         func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) },
	}
}

// Cold start: no link history, one identical task on each side.
func TestSyncColdStartSingleMatch(t *testing.T) {
	due, _ := model.ParseDate("2025-01-15")
	obs := newFakeObsidian(model.ObsidianTask{
		ID: "o1", VaultID: "V", FilePath: "tasks.md",
		Description: "Buy milk", Status: model.StatusTodo, Due: &due,
	})
	gw := reminders.NewFakeGateway(reminders.ListInfo{ID: "L-default", Name: "Default"})
	gw.Seed(model.ReminderTask{
		ID: "r1", ListID: "L-default", ListName: "Default",
		Title: "Buy milk", Status: model.StatusTodo, Due: &due,
	})

	e := testEngine(t, obs, gw, t.TempDir()+"/links.json")
	report, err := e.Sync(context.Background(), Options{Apply: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Creates) != 0 || len(report.Updates) != 0 || len(report.Deletes) != 0 {
		t.Fatalf("expected empty plan, got creates=%d updates=%d deletes=%d",
			len(report.Creates), len(report.Updates), len(report.Deletes))
	}

	links, err := e.Links.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(links) != 1 || links[0].ObsID != "o1" || links[0].RemID != "r1" {
		t.Fatalf("expected single link (o1,r1), got %+v", links)
	}
	if links[0].Score < 0.9 {
		t.Fatalf("expected near-1.0 score, got %v", links[0].Score)
	}
}

// A completion checked off in Reminders with a later native timestamp
// must flow back to the Markdown side, and the re-run must be empty.
func TestSyncReminderCompletionWins(t *testing.T) {
	obsModified := "2025-01-08T10:00:00Z"
	remModified := time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)

	obs := newFakeObsidian(model.ObsidianTask{
		ID: "o3", VaultID: "V", FilePath: "tasks.md",
		Description: "Write report", Status: model.StatusTodo,
		ModifiedAt: model.ISOTimestamp(obsModified),
	})
	gw := reminders.NewFakeGateway(reminders.ListInfo{ID: "L-default", Name: "Default"})
	gw.Seed(model.ReminderTask{
		ID: "r3", ListID: "L-default", ListName: "Default",
		Title: "Write report", Status: model.StatusDone,
		ModifiedAt: model.NativeTimestamp(remModified),
	})

	linkPath := t.TempDir() + "/links.json"
	store := linkstore.New(linkPath)
	if err := store.Save([]model.SyncLink{{ObsID: "o3", RemID: "r3", Score: 1.0, CreatedAt: time.Now()}}); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	e := testEngine(t, obs, gw, linkPath)
	report, err := e.Sync(context.Background(), Options{Apply: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Updates) != 1 {
		t.Fatalf("expected exactly one update, got %d: %+v", len(report.Updates), report.Updates)
	}
	op := report.Updates[0]
	if op.Kind != OpUpdateObs || op.ObsTask.Status != model.StatusDone {
		t.Fatalf("expected update_obs(status=done), got %+v", op)
	}

	// Re-run: should now be idempotent.
	report2, err := e.Sync(context.Background(), Options{Apply: true})
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(report2.Updates) != 0 {
		t.Fatalf("expected empty plan on re-run, got %+v", report2.Updates)
	}
}

// A create routed into a non-default list must survive the next run:
// the query set has to include the routed list or the new reminder
// looks deleted.
func TestRoutedCreateSurvivesSecondSync(t *testing.T) {
	obs := newFakeObsidian(model.ObsidianTask{
		ID: "o2", VaultID: "V", FilePath: "tasks.md",
		Description: "Write report", Status: model.StatusTodo, Tags: []string{"work"},
	})
	gw := reminders.NewFakeGateway(
		reminders.ListInfo{ID: "L-default", Name: "Default"},
		reminders.ListInfo{ID: "L-work", Name: "Work"},
	)

	r := testRouter()
	r.TagRoutes = []model.TagRoute{{VaultID: "V", Tag: "work", ListID: "L-work"}}

	linkPath := t.TempDir() + "/links.json"
	e := &Engine{
		VaultID: "V", Obs: obs, Rem: gw, Links: linkstore.New(linkPath), Router: r,
		MatcherOpts: matcher.DefaultOptions(),
	}

	report1, err := e.Sync(context.Background(), Options{Apply: true})
	if err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if len(report1.Creates) != 1 || report1.Creates[0].RemTask.ListID != "L-work" {
		t.Fatalf("expected one create into L-work, got %+v", report1.Creates)
	}

	report2, err := e.Sync(context.Background(), Options{Apply: true})
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(report2.Deletes) != 0 {
		t.Fatalf("expected no deletes on second sync, got %+v", report2.Deletes)
	}
	if len(report2.Creates) != 0 {
		t.Fatalf("expected no creates on second sync, got %+v", report2.Creates)
	}
}

func TestSyncCompletedResidualDoesNotCreateCounterpart(t *testing.T) {
	obs := newFakeObsidian(model.ObsidianTask{
		ID: "o-done", VaultID: "V", FilePath: "tasks.md",
		Description: "Old finished task", Status: model.StatusDone,
	})
	gw := reminders.NewFakeGateway(reminders.ListInfo{ID: "L-default", Name: "Default"})

	e := testEngine(t, obs, gw, t.TempDir()+"/links.json")
	report, err := e.Sync(context.Background(), Options{Apply: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(report.Creates) != 0 {
		t.Fatalf("a completed residual must not seed a counterpart create, got %+v", report.Creates)
	}

	// With include_completed set, the same task does flow.
	e2 := testEngine(t, obs, gw, t.TempDir()+"/links.json")
	e2.IncludeCompleted = true
	report2, err := e2.Sync(context.Background(), Options{Apply: true})
	if err != nil {
		t.Fatalf("Sync with include_completed: %v", err)
	}
	if len(report2.Creates) != 1 {
		t.Fatalf("expected the completed task to flow when include_completed is set, got %+v", report2.Creates)
	}
}

// Partial apply: the plan's only operation, a create, fails; the failure
// is recorded, the run returns a partial-apply error, and no link is
// persisted for the failed create.
func TestSyncPartialApply(t *testing.T) {
	obs := newFakeObsidian(model.ObsidianTask{
		ID: "o7", VaultID: "V", FilePath: "tasks.md",
		Description: "New task", Status: model.StatusTodo,
	})
	inner := reminders.NewFakeGateway(reminders.ListInfo{ID: "L-default", Name: "Default"})
	gw := &failingCreateGateway{FakeGateway: inner, failNext: true}

	e := testEngine(t, obs, gw, t.TempDir()+"/links.json")
	report, err := e.Sync(context.Background(), Options{Apply: true})
	if err == nil {
		t.Fatal("expected a partial-apply error")
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected exactly one recorded failure, got %+v", report.Failures)
	}

	links, loadErr := e.Links.Load()
	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	if len(links) != 0 {
		t.Fatalf("expected links unchanged (no new link persisted) after partial apply, got %+v", links)
	}
}

// Partial apply with a successful sibling update: the update lands and
// its last_synced bump is persisted, the failed create's task stays
// unlinked, and the run exits with partial-apply status.
func TestSyncPartialApplyPersistsSuccessfulUpdateAlongsideFailedCreate(t *testing.T) {
	obsModified := "2025-01-08T10:00:00Z"
	remModified := time.Date(2025, 1, 8, 11, 0, 0, 0, time.UTC)

	obs := newFakeObsidian(
		model.ObsidianTask{
			ID: "o3", VaultID: "V", FilePath: "tasks.md",
			Description: "Write report", Status: model.StatusTodo,
			ModifiedAt: model.ISOTimestamp(obsModified),
		},
		model.ObsidianTask{
			ID: "o7", VaultID: "V", FilePath: "tasks.md",
			Description: "New task", Status: model.StatusTodo,
		},
	)
	inner := reminders.NewFakeGateway(reminders.ListInfo{ID: "L-default", Name: "Default"})
	inner.Seed(model.ReminderTask{
		ID: "r3", ListID: "L-default", ListName: "Default",
		Title: "Write report", Status: model.StatusDone,
		ModifiedAt: model.NativeTimestamp(remModified),
	})
	gw := &failingCreateGateway{FakeGateway: inner, failNext: true}

	linkPath := t.TempDir() + "/links.json"
	store := linkstore.New(linkPath)
	if err := store.Save([]model.SyncLink{{ObsID: "o3", RemID: "r3", Score: 1.0, CreatedAt: time.Now()}}); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	e := testEngine(t, obs, gw, linkPath)
	report, err := e.Sync(context.Background(), Options{Apply: true})
	if err == nil {
		t.Fatal("expected a partial-apply error")
	}
	if len(report.Updates) != 1 || report.Updates[0].ObsTask.ID != "o3" {
		t.Fatalf("expected the o3 update to have been applied, got %+v", report.Updates)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected exactly one recorded failure, got %+v", report.Failures)
	}

	links, loadErr := e.Links.Load()
	if loadErr != nil {
		t.Fatalf("Load: %v", loadErr)
	}
	var o3Link *model.SyncLink
	for i := range links {
		if links[i].ObsID == "o3" {
			o3Link = &links[i]
		}
		if links[i].ObsID == "o7" {
			t.Fatalf("o7's failed create must not produce a persisted link, got %+v", links)
		}
	}
	if o3Link == nil {
		t.Fatalf("expected the pre-existing (o3,r3) link to survive, got %+v", links)
	}
	if o3Link.LastSynced == nil {
		t.Fatalf("expected o3's last_synced to be bumped by the successful update, got %+v", *o3Link)
	}
}

// Dedup with linked exclusion, driven through the interactive
// disposition callback. Confirms the engine actually acts on the
// returned decision vector instead of only reporting it.
func TestSyncDedupPromptAppliesDeletion(t *testing.T) {
	obs := newFakeObsidian(
		model.ObsidianTask{ID: "o5a", VaultID: "V", FilePath: "tasks.md", Description: "Call Alice", Status: model.StatusTodo},
		model.ObsidianTask{ID: "o5b", VaultID: "V", FilePath: "tasks.md", Description: "call alice", Status: model.StatusTodo},
		model.ObsidianTask{ID: "o5c", VaultID: "V", FilePath: "tasks.md", Description: "Call   ALICE", Status: model.StatusTodo},
	)
	gw := reminders.NewFakeGateway(reminders.ListInfo{ID: "L-default", Name: "Default"})
	gw.Seed(model.ReminderTask{
		ID: "r5", ListID: "L-default", ListName: "Default",
		Title: "Call Alice", Status: model.StatusTodo,
	})

	linkPath := t.TempDir() + "/links.json"
	store := linkstore.New(linkPath)
	if err := store.Save([]model.SyncLink{{ObsID: "o5a", RemID: "r5", Score: 1.0, CreatedAt: time.Now()}}); err != nil {
		t.Fatalf("seed Save: %v", err)
	}

	e := testEngine(t, obs, gw, linkPath)

	var seenClusters []dedup.Cluster
	opts := Options{
		Apply: true,
		DedupPrompt: func(clusters []dedup.Cluster) (dedup.Disposition, error) {
			seenClusters = clusters
			decisions := make(dedup.Disposition, len(clusters))
			for _, c := range clusters {
				if len(c.Members) == 0 {
					continue
				}
				decisions[c.ID] = map[string]struct{}{c.Members[0].ID: {}}
			}
			return decisions, nil
		},
	}

	report, err := e.Sync(context.Background(), opts)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(seenClusters) != 1 {
		t.Fatalf("expected the prompt callback to see exactly one cluster, got %+v", seenClusters)
	}
	for _, m := range seenClusters[0].Members {
		if m.ID == "o5a" {
			t.Fatalf("linked member o5a must never appear in a cluster, got %+v", seenClusters)
		}
	}
	if len(report.DedupClusters) != 0 {
		t.Fatalf("expected no undecided clusters left in the report, got %+v", report.DedupClusters)
	}
	if len(report.Deletes) != 1 {
		t.Fatalf("expected exactly one delete from the disposition, got %+v", report.Deletes)
	}
	del := report.Deletes[0]
	if del.Kind != OpDeleteObs || del.ObsTask.ID != "o5c" {
		t.Fatalf("expected delete_obs(o5c) (o5b kept), got %+v", del)
	}

	remaining, err := obs.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	for _, t2 := range remaining {
		if t2.ID == "o5c" {
			t.Fatalf("expected o5c to have actually been deleted from the obsidian manager")
		}
	}
}
