// Package syncengine ties the matcher, resolver, deduplicator, link
// store, and router together into the ten-phase sync run: collect,
// load links, normalize, partition, match, resolve, plan creates,
// dedupe, apply or report, persist.
package syncengine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/BoweyLou/obssync/internal/dedup"
	"github.com/BoweyLou/obssync/internal/linkstore"
	"github.com/BoweyLou/obssync/internal/matcher"
	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/reminders"
	"github.com/BoweyLou/obssync/internal/resolver"
	"github.com/BoweyLou/obssync/internal/router"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

// ObsidianManager is the narrow slice of internal/obsidian.Manager the
// engine depends on. Kept as an interface so tests run against a small
// in-memory fake instead of a real vault directory.
type ObsidianManager interface {
	ListTasks(ctx context.Context) ([]model.ObsidianTask, error)
	UpdateTask(ctx context.Context, t model.ObsidianTask) error
	CreateTask(ctx context.Context, t model.ObsidianTask, heading string) (model.ObsidianTask, error)
	DeleteTask(ctx context.Context, vaultID, filePath, id string) error
}

// Direction filters which side's creates are permitted to flow.
// Updates to already-linked pairs always flow both ways; the filter
// suppresses new counterpart creation only.
type Direction int

const (
	DirectionBoth Direction = iota
	DirectionObsToRem
	DirectionRemToObs
)

// Options configures a single Sync invocation.
type Options struct {
	Apply     bool
	Direction Direction
	ListIDs   []string // explicit query-set override; computed from the router when empty
	NoDedup   bool
	DedupAuto bool

	// DedupPrompt, when set, is called synchronously during phase 8 with
	// every duplicate cluster found this run (Obsidian and Reminders,
	// namespaced so ids never collide across stores) whenever DedupAuto
	// is false and at least one cluster exists. Its returned disposition
	// is applied immediately via dedup.Apply, and the resulting deletes
	// join the same plan the auto-apply path builds. Left nil, clusters
	// are only reported for the caller to act on out-of-band.
	DedupPrompt func(clusters []dedup.Cluster) (dedup.Disposition, error)
}

// Engine orchestrates one vault's sync run. All fields are required
// except Logger (defaults to slog.Default()) and Now (defaults to
// time.Now).
type Engine struct {
	VaultID string
	Obs     ObsidianManager
	Rem     reminders.Gateway
	Links   *linkstore.Store
	Router  *router.Router

	MatcherOpts      matcher.Options
	IncludeCompleted bool

	Logger *slog.Logger
	Now    func() time.Time
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Sync runs the full ten-phase reconciliation and returns the
// resulting Report. In dry-run mode (the default, Options.Apply false)
// no mutation reaches either store.
func (e *Engine) Sync(ctx context.Context, opts Options) (*Report, error) {
	if err := e.Links.Lock(); err != nil {
		return nil, err
	}
	defer e.Links.Unlock()

	// Phase 1: collect.
	obsTasks, err := e.Obs.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	listIDs := opts.ListIDs
	if len(listIDs) == 0 {
		listIDs = e.Router.QuerySetListIDs()
	}
	remTasks, err := e.Rem.ListTasks(ctx, listIDs)
	if err != nil {
		return nil, err
	}

	obsByID := indexObs(obsTasks)
	remByID := indexRem(remTasks)

	// Phase 2: load links.
	persisted, err := e.Links.Load()
	if err != nil {
		return nil, err
	}

	// Phase 3: normalize links (recovery, tombstoning).
	norm := linkstore.Normalize(persisted, obsByID, remByID, e.MatcherOpts.DaysTolerance)
	for _, msg := range norm.Diagnostic {
		e.logger().Info("linkstore diagnostic", "vault", e.VaultID, "msg", msg)
	}

	tombstones, tombstonedObsIDs, tombstonedRemIDs := buildTombstones(norm.Retired, obsByID, remByID)

	// Phase 4: partition.
	// Completed tasks stay in the snapshot so linked pairs keep resolving
	// (a Reminders-side completion must still propagate) and stale links
	// normalize against reality, but they leave the residual pool: a done
	// task never seeds a new match or a counterpart create unless
	// include_completed is set.
	linkedObsIDs, linkedRemIDs := linkedSets(norm.Kept)
	obsResiduals := residualObs(obsTasks, linkedObsIDs, tombstonedObsIDs, e.IncludeCompleted)
	remResiduals := residualRem(remTasks, linkedRemIDs, tombstonedRemIDs, e.IncludeCompleted)

	// Phase 5: match residuals.
	proposed := matchResiduals(obsResiduals, remResiduals, e.MatcherOpts, e.now())

	matchedObsIDs := make(map[string]struct{}, len(proposed))
	matchedRemIDs := make(map[string]struct{}, len(proposed))
	for _, link := range proposed {
		matchedObsIDs[link.ObsID] = struct{}{}
		matchedRemIDs[link.RemID] = struct{}{}
	}

	allLinks := append(append([]model.SyncLink{}, norm.Kept...), proposed...)
	if err := checkOneToOne(allLinks); err != nil {
		return nil, err
	}

	// Phase 6: resolve pairs.
	var updates []Operation
	for i := range allLinks {
		link := allLinks[i]
		obsTask, obsOK := obsByID[link.ObsID]
		remTask, remOK := remByID[link.RemID]
		if !obsOK || !remOK {
			continue
		}
		// The resolver treats an unparsable modified_at as absent; log it
		// so that degradation is never silent.
		for _, side := range []struct {
			name string
			ts   model.Timestamp
		}{{"obsidian", obsTask.ModifiedAt}, {"reminders", remTask.ModifiedAt}} {
			if _, ok := side.ts.Resolve(); !ok && side.ts.Kind() != model.TimestampAbsent {
				e.logger().Warn("unparsable modified_at treated as absent", "vault", e.VaultID,
					"kind", syncerr.TimestampTypeMismatch.String(), "side", side.name, "obs_id", link.ObsID, "rem_id", link.RemID)
			}
		}
		ops, changed := resolvePair(link, obsTask, remTask)
		if changed {
			updates = append(updates, ops...)
		}
	}

	// Phase 7: plan creates.
	var createsObsToRem, createsRemToObs []Operation
	if opts.Direction == DirectionBoth || opts.Direction == DirectionObsToRem {
		createsObsToRem = planObsToRemCreates(obsResiduals, matchedObsIDs, remTasks, e.Router)
	}
	if opts.Direction == DirectionBoth || opts.Direction == DirectionRemToObs {
		createsRemToObs = planRemToObsCreates(remResiduals, matchedRemIDs, obsTasks, e.Router)
	}

	// Phase 8: dedupe. Excluded: every id on a link (existing or newly
	// proposed) plus anything already scheduled for tombstone deletion.
	excludeIDs := make(map[string]struct{}, len(allLinks)*2)
	for _, link := range allLinks {
		excludeIDs[link.ObsID] = struct{}{}
		excludeIDs[link.RemID] = struct{}{}
	}
	for id := range tombstonedObsIDs {
		excludeIDs[id] = struct{}{}
	}
	for id := range tombstonedRemIDs {
		excludeIDs[id] = struct{}{}
	}
	var clusters []dedup.Cluster
	var dedupDeletes []Operation
	if !opts.NoDedup {
		obsClusters := dedup.Find(obsDedupItems(obsTasks), excludeIDs)
		remClusters := dedup.Find(remDedupItems(remTasks), excludeIDs)
		merged := append(namespaceClusters("obs", obsClusters), namespaceClusters("rem", remClusters)...)

		switch {
		case opts.DedupAuto:
			dedupDeletes = autoApplyDedup(obsClusters, remClusters, obsByID, remByID)
		case len(merged) == 0:
			// nothing to disposition.
		case opts.DedupPrompt != nil:
			disposition, err := opts.DedupPrompt(merged)
			if err != nil {
				e.logger().Warn("dedup disposition prompt failed", "vault", e.VaultID, "err", err)
				clusters = merged
			} else {
				dedupDeletes = dedupDeleteOps(dedup.Apply(merged, disposition), obsByID, remByID)
			}
		default:
			clusters = merged
		}
	}

	plan := &Plan{
		Updates: updates,
		Creates: append(append([]Operation{}, createsObsToRem...), createsRemToObs...),
		Deletes: append(append([]Operation{}, tombstones...), dedupDeletes...),
	}
	plan.Sort()

	report := &Report{
		VaultID:       e.VaultID,
		DryRun:        !opts.Apply,
		DedupClusters: clusters,
		Diagnostics:   norm.Diagnostic,
	}

	// Cancellation raised before apply discards the plan: nothing is
	// mutated and the link file is left exactly as loaded.
	if err := ctx.Err(); err != nil {
		return report, err
	}

	// Phase 9: apply or report.
	if opts.Apply {
		if err := e.apply(ctx, plan, report); err != nil {
			return report, err
		}
		// A pair counts as synced only once every one of its update
		// operations landed; a dry run never bumps last_synced.
		bumpSyncedLinks(allLinks, plan.Updates, e.now())
	} else {
		report.fillDryRun(plan)
	}

	// Phase 10: persist links. finalLinks is safe-by-construction -
	// mergeLinks only appends a create's new link once that create
	// actually returned an id, so it already reflects exactly the
	// mutations that landed even when some other operation in the same
	// plan failed. It is always written: a failed create still needs its
	// sibling update's last_synced bump persisted, not the whole write
	// skipped.
	finalLinks := mergeLinks(allLinks, plan, opts.Apply, e.now())
	if err := e.Links.Save(finalLinks); err != nil {
		return report, err
	}

	if opts.Apply && (report.hasUnsafeApply() || len(report.Failures) > 0) {
		e.logger().Warn("partial apply: one or more operations failed", "vault", e.VaultID)
		return report, syncerr.New(syncerr.PartialApply, "syncengine.Sync", nil)
	}

	return report, nil
}

func indexObs(tasks []model.ObsidianTask) map[string]model.ObsidianTask {
	out := make(map[string]model.ObsidianTask, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}

func indexRem(tasks []model.ReminderTask) map[string]model.ReminderTask {
	out := make(map[string]model.ReminderTask, len(tasks))
	for _, t := range tasks {
		out[t.ID] = t
	}
	return out
}

func linkedSets(links []model.SyncLink) (obsIDs, remIDs map[string]struct{}) {
	obsIDs = make(map[string]struct{}, len(links))
	remIDs = make(map[string]struct{}, len(links))
	for _, l := range links {
		obsIDs[l.ObsID] = struct{}{}
		remIDs[l.RemID] = struct{}{}
	}
	return
}

func residualObs(tasks []model.ObsidianTask, linked, tombstoned map[string]struct{}, includeCompleted bool) []model.ObsidianTask {
	out := make([]model.ObsidianTask, 0, len(tasks))
	for _, t := range tasks {
		if !includeCompleted && t.Status == model.StatusDone {
			continue
		}
		if _, ok := linked[t.ID]; ok {
			continue
		}
		if _, ok := tombstoned[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func residualRem(tasks []model.ReminderTask, linked, tombstoned map[string]struct{}, includeCompleted bool) []model.ReminderTask {
	out := make([]model.ReminderTask, 0, len(tasks))
	for _, t := range tasks {
		if !includeCompleted && t.Status == model.StatusDone {
			continue
		}
		if _, ok := linked[t.ID]; ok {
			continue
		}
		if _, ok := tombstoned[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchResiduals(obs []model.ObsidianTask, rem []model.ReminderTask, opts matcher.Options, now time.Time) []model.SyncLink {
	obsFP := make([]matcher.Fingerprint, len(obs))
	for i, t := range obs {
		obsFP[i] = matcher.NewObsidianFingerprint(t)
	}
	remFP := make([]matcher.Fingerprint, len(rem))
	remByID := make(map[string]model.ReminderTask, len(rem))
	for i, t := range rem {
		remFP[i] = matcher.NewReminderFingerprint(t)
		remByID[t.ID] = t
	}

	pairs := matcher.Match(obsFP, remFP, opts)
	links := make([]model.SyncLink, 0, len(pairs))
	for _, p := range pairs {
		remTask := remByID[p.BID]
		links = append(links, model.SyncLink{
			ObsID:             p.AID,
			RemID:             p.BID,
			Score:             p.Score,
			CreatedAt:         now,
			RemListID:         remTask.ListID,
			RemTitleHash:      linkstore.TitleHash(remTask.Title),
			RemLastKnownTitle: remTask.Title,
		})
	}
	return links
}

// checkOneToOne enforces the 1:1 invariant: no obs_id or rem_id
// appears on more than one link. A violation is a PlanInconsistency -
// fatal, no apply, no persist.
func checkOneToOne(links []model.SyncLink) error {
	obsSeen := make(map[string]struct{}, len(links))
	remSeen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if _, ok := obsSeen[l.ObsID]; ok {
			return syncerr.Newf(syncerr.PlanInconsistency, "syncengine.checkOneToOne", "obs_id %q linked more than once", l.ObsID)
		}
		if _, ok := remSeen[l.RemID]; ok {
			return syncerr.Newf(syncerr.PlanInconsistency, "syncengine.checkOneToOne", "rem_id %q linked more than once", l.RemID)
		}
		obsSeen[l.ObsID] = struct{}{}
		remSeen[l.RemID] = struct{}{}
	}
	return nil
}

// resolvePair runs the resolver over one matched pair and translates
// its field-winner map into concrete update operations per side.
func resolvePair(link model.SyncLink, obsTask model.ObsidianTask, remTask model.ReminderTask) ([]Operation, bool) {
	tagsChangedBothSides := false
	if link.LastSynced != nil {
		since := model.NativeTimestamp(*link.LastSynced)
		tagsChangedBothSides = obsTask.ModifiedAt.StrictlyAfter(since) && remTask.ModifiedAt.StrictlyAfter(since)
	}

	res := resolver.Resolve(resolver.Pair{Obs: obsTask, Rem: remTask}, tagsChangedBothSides)
	if res.IsEmpty() {
		return nil, false
	}

	obsUpdated, remUpdated := obsTask, remTask
	var obsChanged, remChanged bool

	for _, field := range res.Fields() {
		fw := res[field]
		switch field {
		case "description":
			applyStringField(field, fw, &obsUpdated.Description, &remUpdated.Title, &obsChanged, &remChanged)
		case "notes":
			applyStringField(field, fw, &obsUpdated.Notes, &remUpdated.Notes, &obsChanged, &remChanged)
		case "due":
			applyDueField(fw, &obsUpdated.Due, &remUpdated.Due, &obsChanged, &remChanged)
		case "priority":
			applyPriorityField(fw, &obsUpdated.Priority, &remUpdated.Priority, &obsChanged, &remChanged)
		case "status":
			applyStatusField(fw, &obsUpdated.Status, &remUpdated.Status, &obsChanged, &remChanged)
		case "tags":
			applyTagsField(fw, &obsUpdated.Tags, &remUpdated.Tags, &obsChanged, &remChanged)
		}
	}

	var ops []Operation
	if obsChanged {
		ops = append(ops, Operation{Kind: OpUpdateObs, ObsTask: &obsUpdated, Changes: res, Reason: "resolved"})
	}
	if remChanged {
		ops = append(ops, Operation{Kind: OpUpdateRem, RemTask: &remUpdated, Changes: res, Reason: "resolved"})
	}
	return ops, len(ops) > 0
}

func applyStringField(field string, fw resolver.FieldWinner, obsVal, remVal *string, obsChanged, remChanged *bool) {
	switch fw.Winner {
	case resolver.SideReminders:
		*obsVal = fw.Value.(string)
		*obsChanged = true
	case resolver.SideObsidian:
		*remVal = fw.Value.(string)
		*remChanged = true
	}
}

func applyDueField(fw resolver.FieldWinner, obsVal, remVal **model.Date, obsChanged, remChanged *bool) {
	switch fw.Winner {
	case resolver.SideReminders:
		*obsVal = fw.Value.(*model.Date)
		*obsChanged = true
	case resolver.SideObsidian:
		*remVal = fw.Value.(*model.Date)
		*remChanged = true
	}
}

func applyPriorityField(fw resolver.FieldWinner, obsVal, remVal *model.Priority, obsChanged, remChanged *bool) {
	switch fw.Winner {
	case resolver.SideReminders:
		*obsVal = fw.Value.(model.Priority)
		*obsChanged = true
	case resolver.SideObsidian:
		*remVal = fw.Value.(model.Priority)
		*remChanged = true
	}
}

func applyStatusField(fw resolver.FieldWinner, obsVal, remVal *model.Status, obsChanged, remChanged *bool) {
	switch fw.Winner {
	case resolver.SideReminders:
		*obsVal = fw.Value.(model.Status)
		*obsChanged = true
	case resolver.SideObsidian:
		*remVal = fw.Value.(model.Status)
		*remChanged = true
	}
}

func applyTagsField(fw resolver.FieldWinner, obsVal, remVal *[]string, obsChanged, remChanged *bool) {
	value := fw.Value.([]string)
	switch fw.Winner {
	case resolver.SideReminders:
		*obsVal = value
		*obsChanged = true
	case resolver.SideObsidian:
		*remVal = value
		*remChanged = true
	case resolver.SideNone: // union: applies to whichever side doesn't already match
		if !tagsEqualUnordered(*obsVal, value) {
			*obsVal = value
			*obsChanged = true
		}
		if !tagsEqualUnordered(*remVal, value) {
			*remVal = value
			*remChanged = true
		}
	}
}

func tagsEqualUnordered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// buildTombstones converts retired links into delete operations
// targeting whichever side still exists in the current snapshot, and
// returns the id sets so those survivors are excluded from the
// residual/create pipeline.
func buildTombstones(retired []model.SyncLink, obsByID map[string]model.ObsidianTask, remByID map[string]model.ReminderTask) ([]Operation, map[string]struct{}, map[string]struct{}) {
	var ops []Operation
	obsIDs := make(map[string]struct{})
	remIDs := make(map[string]struct{})
	for _, link := range retired {
		if remTask, ok := remByID[link.RemID]; ok {
			if _, obsGone := obsByID[link.ObsID]; !obsGone {
				t := remTask
				ops = append(ops, Operation{Kind: OpDeleteRem, RemTask: &t, Reason: "tombstone"})
				remIDs[link.RemID] = struct{}{}
			}
		}
		if obsTask, ok := obsByID[link.ObsID]; ok {
			if _, remGone := remByID[link.RemID]; !remGone {
				t := obsTask
				ops = append(ops, Operation{Kind: OpDeleteObs, ObsTask: &t, Reason: "tombstone"})
				obsIDs[link.ObsID] = struct{}{}
			}
		}
	}
	return ops, obsIDs, remIDs
}

func planObsToRemCreates(residuals []model.ObsidianTask, matched map[string]struct{}, existingRem []model.ReminderTask, r *router.Router) []Operation {
	existingDesc := make(map[string]struct{}, len(existingRem))
	for _, t := range existingRem {
		existingDesc[matcher.NormalizeDescription(t.Title)] = struct{}{}
	}

	var ops []Operation
	for _, t := range residuals {
		if _, ok := matched[t.ID]; ok {
			continue
		}
		if _, collide := existingDesc[matcher.NormalizeDescription(t.Description)]; collide {
			continue
		}
		listID, err := r.RouteToReminders(t.Tags)
		if err != nil {
			ops = append(ops, Operation{Kind: OpCreateRem, ObsTask: &t, Err: err, Reason: "routing failed"})
			continue
		}
		target := model.ReminderTask{
			ListID:   listID,
			Title:    t.Description,
			Status:   t.Status,
			Due:      t.Due,
			Priority: t.Priority,
			Tags:     t.Tags,
			Notes:    t.Notes,
		}
		ops = append(ops, Operation{Kind: OpCreateRem, ObsTask: &t, RemTask: &target, Reason: "create"})
	}
	sort.Slice(ops, func(i, j int) bool { return opSortKey(ops[i]) < opSortKey(ops[j]) })
	return ops
}

func planRemToObsCreates(residuals []model.ReminderTask, matched map[string]struct{}, existingObs []model.ObsidianTask, r *router.Router) []Operation {
	existingDesc := make(map[string]struct{}, len(existingObs))
	for _, t := range existingObs {
		existingDesc[matcher.NormalizeDescription(t.Description)] = struct{}{}
	}

	var ops []Operation
	for _, t := range residuals {
		if _, ok := matched[t.ID]; ok {
			continue
		}
		if _, collide := existingDesc[matcher.NormalizeDescription(t.Title)]; collide {
			continue
		}
		file, heading := r.RouteToObsidian(t.ListName)
		target := model.ObsidianTask{
			VaultID:     r.VaultID,
			FilePath:    file,
			Description: t.Title,
			Status:      t.Status,
			Due:         t.Due,
			Priority:    t.Priority,
			Tags:        t.Tags,
			Notes:       t.Notes,
		}
		ops = append(ops, Operation{Kind: OpCreateObs, RemTask: &t, ObsTask: &target, Heading: heading, Reason: "create"})
	}
	sort.Slice(ops, func(i, j int) bool { return opSortKey(ops[i]) < opSortKey(ops[j]) })
	return ops
}

func obsDedupItems(tasks []model.ObsidianTask) []dedup.Item {
	out := make([]dedup.Item, len(tasks))
	for i, t := range tasks {
		out[i] = dedup.Item{
			ID:          t.ID,
			Description: t.Description,
			Location:    t.FilePath,
			Line:        t.Line,
			DueDate:     dueString(t.Due),
			Status:      string(t.Status),
		}
	}
	return out
}

func remDedupItems(tasks []model.ReminderTask) []dedup.Item {
	out := make([]dedup.Item, len(tasks))
	for i, t := range tasks {
		out[i] = dedup.Item{
			ID:          t.ID,
			Description: t.Title,
			Location:    t.ListName,
			DueDate:     dueString(t.Due),
			Status:      string(t.Status),
		}
	}
	return out
}

func dueString(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// namespaceClusters prefixes each cluster's id with its originating
// store so a merged obs+rem cluster list can share one decision vector
// without an Obsidian and a Reminders cluster that happen to normalize
// to the same description colliding on the same disposition key.
func namespaceClusters(prefix string, clusters []dedup.Cluster) []dedup.Cluster {
	out := make([]dedup.Cluster, len(clusters))
	for i, c := range clusters {
		c.ID = prefix + ":" + c.ID
		out[i] = c
	}
	return out
}

// dedupDeleteOps translates the ids dedup.Apply returns into concrete
// delete operations, looking each id up in whichever store's snapshot
// contains it.
func dedupDeleteOps(ids []string, obsByID map[string]model.ObsidianTask, remByID map[string]model.ReminderTask) []Operation {
	var ops []Operation
	for _, id := range ids {
		if t, ok := obsByID[id]; ok {
			t := t
			ops = append(ops, Operation{Kind: OpDeleteObs, ObsTask: &t, Reason: "dedup"})
			continue
		}
		if t, ok := remByID[id]; ok {
			t := t
			ops = append(ops, Operation{Kind: OpDeleteRem, RemTask: &t, Reason: "dedup"})
		}
	}
	return ops
}

// autoApplyDedup picks a deterministic keeper per cluster (lowest id)
// and emits delete operations for the rest, used when
// Options.DedupAuto bypasses the interactive disposition prompt.
func autoApplyDedup(obsClusters, remClusters []dedup.Cluster, obsByID map[string]model.ObsidianTask, remByID map[string]model.ReminderTask) []Operation {
	var ops []Operation
	for _, c := range obsClusters {
		for i, m := range c.Members {
			if i == 0 {
				continue
			}
			if t, ok := obsByID[m.ID]; ok {
				t := t
				ops = append(ops, Operation{Kind: OpDeleteObs, ObsTask: &t, Reason: "dedup"})
			}
		}
	}
	for _, c := range remClusters {
		for i, m := range c.Members {
			if i == 0 {
				continue
			}
			if t, ok := remByID[m.ID]; ok {
				t := t
				ops = append(ops, Operation{Kind: OpDeleteRem, RemTask: &t, Reason: "dedup"})
			}
		}
	}
	return ops
}

// bumpSyncedLinks sets LastSynced on every link whose update operations
// all succeeded this run. A link with any failed update keeps its old
// LastSynced so the next run re-resolves the pair from scratch.
func bumpSyncedLinks(links []model.SyncLink, updates []Operation, now time.Time) {
	byObsID := make(map[string]int, len(links))
	byRemID := make(map[string]int, len(links))
	for i, l := range links {
		byObsID[l.ObsID] = i
		byRemID[l.RemID] = i
	}

	touched := make(map[int]bool)
	failed := make(map[int]bool)
	for _, op := range updates {
		var idx int
		var ok bool
		switch op.Kind {
		case OpUpdateObs:
			idx, ok = byObsID[op.ObsTask.ID]
		case OpUpdateRem:
			idx, ok = byRemID[op.RemTask.ID]
		default:
			continue
		}
		if !ok {
			continue
		}
		touched[idx] = true
		if op.Err != nil {
			failed[idx] = true
		}
	}

	for idx := range touched {
		if failed[idx] {
			continue
		}
		synced := now
		links[idx].LastSynced = &synced
	}
}

// mergeLinks produces the final link set to persist: kept links with
// any LastSynced bumps from a successful apply, plus links for creates
// that returned a usable id this run.
func mergeLinks(allLinks []model.SyncLink, plan *Plan, applied bool, now time.Time) []model.SyncLink {
	out := append([]model.SyncLink{}, allLinks...)

	if !applied {
		return out
	}

	// Attach ids created during this apply so newly created counterparts
	// become linked on the very next load, satisfying the "no spurious
	// deletion" property for routed creates.
	for _, op := range plan.Creates {
		if op.Err != nil || op.CreatedID == "" {
			continue
		}
		switch op.Kind {
		case OpCreateRem:
			out = append(out, model.SyncLink{
				ObsID:             op.ObsTask.ID,
				RemID:             op.CreatedID,
				Score:             1.0,
				CreatedAt:         now,
				RemListID:         op.RemTask.ListID,
				RemTitleHash:      linkstore.TitleHash(op.RemTask.Title),
				RemLastKnownTitle: op.RemTask.Title,
			})
		case OpCreateObs:
			out = append(out, model.SyncLink{
				ObsID:             op.CreatedID,
				RemID:             op.RemTask.ID,
				Score:             1.0,
				CreatedAt:         now,
				RemListID:         op.RemTask.ListID,
				RemTitleHash:      linkstore.TitleHash(op.RemTask.Title),
				RemLastKnownTitle: op.RemTask.Title,
			})
		}
	}
	return out
}
