package model

import "time"

// SyncLink is the oriented tuple persisted by the link store.
// RemListID/RemTitleHash/RemLastKnownTitle are recovery anchors: the
// Reminders-side identifier is not guaranteed stable, so recovery must
// be possible as a pure function of a current snapshot plus these
// anchors, not of the id alone.
type SyncLink struct {
	ObsID      string     `json:"obs_id"`
	RemID      string     `json:"rem_id"`
	Score      float64    `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSynced *time.Time `json:"last_synced,omitempty"`

	RemListID         string `json:"rem_list_id,omitempty"`
	RemTitleHash      string `json:"rem_title_hash,omitempty"`
	RemLastKnownTitle string `json:"rem_last_known_title,omitempty"`

	// StaleSince marks a link whose rem_id failed recovery this run; it
	// is retained for exactly one further grace run before retirement.
	StaleSince *time.Time `json:"stale_since,omitempty"`
}

// IsStale reports whether this link is currently in its grace window.
func (l SyncLink) IsStale() bool {
	return l.StaleSince != nil
}
