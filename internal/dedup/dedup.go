// Package dedup detects within-store duplicates by normalized
// description, excluding any task already participating in a link.
package dedup

import (
	"sort"

	"github.com/BoweyLou/obssync/internal/matcher"
)

// Item is the minimal shape the deduplicator needs per task - enough
// context (location, line, due date, status) for a human to choose
// which member of a cluster to keep.
type Item struct {
	ID          string
	Description string
	Location    string // file path or list name
	Line        int    // 0 for Reminders-side items without a line number
	DueDate     string
	Status      string
}

// Cluster is a group of duplicate items, reported when it has 2 or more
// members.
type Cluster struct {
	ID      string
	Members []Item
}

// Find groups items by normalized description, excluding any id present
// in linkedIDs, and returns clusters of size >= 2. Cluster IDs are the
// shared normalized description, and both cluster order and member
// order are sorted by item ID for determinism.
func Find(items []Item, linkedIDs map[string]struct{}) []Cluster {
	buckets := make(map[string][]Item)
	for _, item := range items {
		if _, linked := linkedIDs[item.ID]; linked {
			continue
		}
		key := matcher.NormalizeDescription(item.Description)
		buckets[key] = append(buckets[key], item)
	}

	var clusters []Cluster
	for key, members := range buckets {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		clusters = append(clusters, Cluster{ID: key, Members: members})
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i].Members) == 0 || len(clusters[j].Members) == 0 {
			return clusters[i].ID < clusters[j].ID
		}
		return clusters[i].Members[0].ID < clusters[j].Members[0].ID
	})
	return clusters
}

// Disposition maps a cluster id to the set of member ids that should be
// kept; every other member in that cluster becomes a delete action.
type Disposition map[string]map[string]struct{}

// Apply resolves a decision vector against a cluster set and returns the
// ids that should be deleted (every non-kept member of every cluster
// with a recorded decision). Clusters absent from the decision vector
// are left untouched - the caller surfaces them for disposition first.
func Apply(clusters []Cluster, decisions Disposition) []string {
	var deletes []string
	for _, cluster := range clusters {
		kept, decided := decisions[cluster.ID]
		if !decided {
			continue
		}
		for _, member := range cluster.Members {
			if _, keep := kept[member.ID]; keep {
				continue
			}
			deletes = append(deletes, member.ID)
		}
	}
	sort.Strings(deletes)
	return deletes
}
