package linkstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/BoweyLou/obssync/internal/matcher"
	"github.com/BoweyLou/obssync/internal/model"
)

// TitleHash computes the stable hash stored as a link's rem_title_hash
// recovery anchor.
func TitleHash(title string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// recoveryScoreThreshold is the matcher-score bar a lone anchor
// candidate must clear before a drifted rem_id is rewritten.
const recoveryScoreThreshold = 0.9

// NormalizeResult is the outcome of running Normalize over a loaded
// link set against the current snapshot.
type NormalizeResult struct {
	Kept       []model.SyncLink
	Recovered  int
	Retired    []model.SyncLink
	Diagnostic []string
}

// Normalize reconciles a loaded link set against the current snapshot:
// links whose Obsidian side is gone are dropped (the counterpart
// becomes an orphan candidate for tombstoning elsewhere in the engine);
// links whose Reminders side is gone attempt recovery by (rem_list_id,
// rem_title_hash) against the residual Reminders snapshot before
// falling back to a one-run grace period and eventual retirement.
func Normalize(
	links []model.SyncLink,
	obsByID map[string]model.ObsidianTask,
	remByID map[string]model.ReminderTask,
	daysTolerance int,
) NormalizeResult {
	result := NormalizeResult{}

	// linkedRemIDs is every rem_id already claimed by a persisted link in
	// this batch. Recovery must search only residual (unlinked) Reminders
	// tasks - otherwise a stale anchor could match a reminder that is in
	// fact the valid counterpart of a different link.
	linkedRemIDs := make(map[string]struct{}, len(links))
	for _, l := range links {
		linkedRemIDs[l.RemID] = struct{}{}
	}

	for _, link := range links {
		obsTask, obsOK := obsByID[link.ObsID]
		if !obsOK {
			result.Retired = append(result.Retired, link)
			continue
		}

		if _, remOK := remByID[link.RemID]; remOK {
			// Both sides present: clear any stale marker accumulated by
			// a prior grace run.
			link.StaleSince = nil
			result.Kept = append(result.Kept, link)
			continue
		}

		recovered, ok := attemptRecovery(link, obsTask, remByID, linkedRemIDs, daysTolerance)
		if ok {
			result.Kept = append(result.Kept, recovered)
			result.Recovered++
			result.Diagnostic = append(result.Diagnostic,
				"recovered drifted rem_id for obs_id="+link.ObsID)
			continue
		}

		if link.IsStale() {
			// Already had one grace run with no recovery: retire.
			result.Retired = append(result.Retired, link)
			result.Diagnostic = append(result.Diagnostic,
				"retiring link obs_id="+link.ObsID+" after grace period with no recovery")
			continue
		}

		now := Now()
		link.StaleSince = &now
		result.Kept = append(result.Kept, link)
		result.Diagnostic = append(result.Diagnostic,
			"marking link obs_id="+link.ObsID+" stale, rem_id not found in snapshot")
	}

	return result
}

// attemptRecovery searches the residual Reminders snapshot - excluding
// any rem_id already claimed by another persisted link - for a single
// candidate whose list id and title hash match the link's stored
// anchors, then confirms via the matcher's scoring function.
func attemptRecovery(
	link model.SyncLink,
	obsTask model.ObsidianTask,
	remByID map[string]model.ReminderTask,
	linkedRemIDs map[string]struct{},
	daysTolerance int,
) (model.SyncLink, bool) {
	if link.RemListID == "" || link.RemTitleHash == "" {
		return model.SyncLink{}, false
	}

	var candidates []model.ReminderTask
	for _, rem := range remByID {
		if _, linked := linkedRemIDs[rem.ID]; linked {
			continue
		}
		if rem.ListID != link.RemListID {
			continue
		}
		if TitleHash(rem.Title) != link.RemTitleHash {
			continue
		}
		candidates = append(candidates, rem)
	}
	if len(candidates) != 1 {
		return model.SyncLink{}, false
	}

	candidate := candidates[0]
	obsFP := matcher.NewObsidianFingerprint(obsTask)
	remFP := matcher.NewReminderFingerprint(candidate)
	score := matcher.Score(obsFP, remFP, daysTolerance)
	if score < recoveryScoreThreshold {
		return model.SyncLink{}, false
	}

	recovered := link
	recovered.RemID = candidate.ID
	recovered.RemListID = candidate.ListID
	recovered.RemTitleHash = TitleHash(candidate.Title)
	recovered.RemLastKnownTitle = candidate.Title
	recovered.StaleSince = nil
	now := Now()
	recovered.LastSynced = &now
	return recovered, true
}
