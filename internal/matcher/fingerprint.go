// Package matcher scores candidate (Obsidian, Reminders) task pairs on
// cached fingerprints and solves a bipartite assignment so each task
// gets at most one partner.
package matcher

import (
	"regexp"
	"strings"

	"github.com/BoweyLou/obssync/internal/model"
)

var (
	checkboxPrefix = regexp.MustCompile(`^\s*[-*]\s*\[[^\]]*\]\s*`)
	blockIDToken   = regexp.MustCompile(`\[[A-Za-z0-9_-]+\]`)
	tagToken       = regexp.MustCompile(`#[[:alnum:]_/-]+`)
	wordToken      = regexp.MustCompile(`[[:alnum:]]+`)
)

// Fingerprint is the side-agnostic shape the matcher scores: both
// ObsidianTask and ReminderTask are reduced to this before matching, so
// the scoring and assignment code never needs to know which side it is
// looking at.
type Fingerprint struct {
	ID       string
	Tokens   map[string]int
	TokenLen int
	Due      *model.Date
	Tags     map[string]struct{}
	Priority model.Priority
}

// NewObsidianFingerprint builds a Fingerprint from an Obsidian task.
func NewObsidianFingerprint(t model.ObsidianTask) Fingerprint {
	return newFingerprint(t.ID, t.Description, t.Due, t.Tags, t.Priority)
}

// NewReminderFingerprint builds a Fingerprint from a Reminders task.
func NewReminderFingerprint(t model.ReminderTask) Fingerprint {
	return newFingerprint(t.ID, t.Title, t.Due, t.Tags, t.Priority)
}

func newFingerprint(id, text string, due *model.Date, tags []string, priority model.Priority) Fingerprint {
	tokens, length := tokenBag(text)
	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[strings.ToLower(strings.TrimPrefix(tag, "#"))] = struct{}{}
	}
	return Fingerprint{
		ID:       id,
		Tokens:   tokens,
		TokenLen: length,
		Due:      due,
		Tags:     tagSet,
		Priority: priority,
	}
}

// NormalizeDescription lowercases, strips checkbox markup, any block id
// bracket token and any #tag token, and collapses whitespace. This is the same
// normalizer the deduplicator uses (internal/dedup) - the contract is
// shared: two tasks are duplicates iff their normalizations are
// byte-equal, and the matcher scores on the same basis.
func NormalizeDescription(text string) string {
	s := strings.ToLower(text)
	s = checkboxPrefix.ReplaceAllString(s, "")
	s = blockIDToken.ReplaceAllString(s, "")
	s = tagToken.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return s
}

func tokenBag(text string) (map[string]int, int) {
	normalized := NormalizeDescription(text)
	words := wordToken.FindAllString(normalized, -1)
	bag := make(map[string]int, len(words))
	for _, w := range words {
		bag[w]++
	}
	return bag, len(words)
}
