// Package router dispatches create destinations: first-match-wins tag
// routing for Obsidian-originated creates, list-name routing for
// Reminders-originated creates, and the query-set expansion the sync
// engine depends on to keep routed tasks visible across runs.
package router

import (
	"sort"

	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

// Router dispatches create destinations for a single vault. TagRoutes
// is kept as the ordered slice it was loaded as (see internal/config) -
// first-match-wins requires stable iteration order, so it is never a
// map.
type Router struct {
	VaultID       string
	TagRoutes     []model.TagRoute
	ListRoutes    []model.ListRoute
	DefaultListID string
	InboxFile     string
}

// RouteToReminders picks the destination list for an Obsidian-originated
// create by iterating the task's tags in the order they appeared and
// returning the first configured route's list id. Falls back to the
// vault's default list id, and refuses (ConfigurationError) if neither
// exists.
func (r *Router) RouteToReminders(tags []string) (string, error) {
	for _, tag := range tags {
		for _, route := range r.TagRoutes {
			if route.Tag == tag {
				return route.ListID, nil
			}
		}
	}
	if r.DefaultListID != "" {
		return r.DefaultListID, nil
	}
	return "", syncerr.Newf(syncerr.ConfigurationError, "router.RouteToReminders",
		"vault %q has no matching tag route and no default list", r.VaultID)
}

// RouteToObsidian picks the destination file (and optional heading) for
// a Reminders-originated create by list-name rule, falling back to the
// vault's inbox file.
func (r *Router) RouteToObsidian(listName string) (file string, heading string) {
	for _, route := range r.ListRoutes {
		if route.ListName == listName {
			return route.File, route.Heading
		}
	}
	return r.InboxFile, ""
}

// QuerySetListIDs returns every list id this vault's configuration can
// possibly produce or consume: the default list plus every list
// referenced by a tag route. Omitting a routed list from the Reminders
// query makes tasks created into it on run N look deleted on run N+1.
func (r *Router) QuerySetListIDs() []string {
	seen := make(map[string]struct{})
	if r.DefaultListID != "" {
		seen[r.DefaultListID] = struct{}{}
	}
	for _, route := range r.TagRoutes {
		seen[route.ListID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
