package matcher

import "github.com/BoweyLou/obssync/internal/model"

const (
	weightDescription = 0.6
	weightDueDate     = 0.25
	weightTags        = 0.1
	weightPriority    = 0.05
)

// Score computes the weighted similarity between two fingerprints,
// clamped to [0, 1]: description similarity dominates, then due-date
// proximity, tag overlap, and priority equality.
func Score(a, b Fingerprint, daysTolerance int) float64 {
	score := weightDescription*diceCoefficient(a, b) +
		weightDueDate*dueProximity(a.Due, b.Due, daysTolerance) +
		weightTags*tagJaccard(a.Tags, b.Tags) +
		weightPriority*priorityMatch(a.Priority, b.Priority)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// diceCoefficient computes the Dice coefficient over two token bags
// (with multiplicity): 2 * sum(min(count_a, count_b)) / (lenA + lenB).
func diceCoefficient(a, b Fingerprint) float64 {
	if a.TokenLen == 0 && b.TokenLen == 0 {
		return 1.0
	}
	if a.TokenLen == 0 || b.TokenLen == 0 {
		return 0.0
	}
	var overlap int
	for tok, countA := range a.Tokens {
		if countB, ok := b.Tokens[tok]; ok {
			if countA < countB {
				overlap += countA
			} else {
				overlap += countB
			}
		}
	}
	return 2 * float64(overlap) / float64(a.TokenLen+b.TokenLen)
}

// dueProximity is 1.0 when both due dates are absent (neither side
// expresses an opinion, so they don't diverge), 1.0 when equal, linear
// falloff to 0.0 over daysTolerance days when both are present, and 0.0
// when exactly one side has a due date (a clean divergence signal).
func dueProximity(a, b *model.Date, daysTolerance int) float64 {
	if a == nil && b == nil {
		return 1.0
	}
	if a == nil || b == nil {
		return 0.0
	}
	if a.Equal(*b) {
		return 1.0
	}
	if daysTolerance <= 0 {
		return 0.0
	}
	delta := a.DaysUntil(*b)
	if delta < 0 {
		delta = -delta
	}
	if delta >= daysTolerance {
		return 0.0
	}
	return 1.0 - float64(delta)/float64(daysTolerance)
}

// tagJaccard is the Jaccard index over tag sets, 1.0 when both are
// empty.
func tagJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	union := make(map[string]struct{}, len(a)+len(b))
	var intersection int
	for tag := range a {
		union[tag] = struct{}{}
		if _, ok := b[tag]; ok {
			intersection++
		}
	}
	for tag := range b {
		union[tag] = struct{}{}
	}
	if len(union) == 0 {
		return 1.0
	}
	return float64(intersection) / float64(len(union))
}

// priorityMatch is 1.0 on exact equality, else 0.0.
func priorityMatch(a, b model.Priority) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}
