package matcher

import (
	"sort"

	"github.com/BoweyLou/obssync/internal/model"
)

// Options configures matching thresholds.
type Options struct {
	MinScore      float64 // default 0.75
	DaysTolerance int     // default 1
	TopK          int     // default 50
	HungarianCap  int     // |A|*|B| <= this uses the optimal solver; default 250000
	PruneCap      int     // |A|*|B| > this makes pruning mandatory; default 10000
}

// DefaultOptions returns the matcher's default thresholds.
func DefaultOptions() Options {
	return Options{
		MinScore:      0.75,
		DaysTolerance: 1,
		TopK:          50,
		HungarianCap:  250000,
		PruneCap:      10000,
	}
}

// Pair is a proposed match between an Obsidian residual and a Reminders
// residual.
type Pair struct {
	AID   string
	BID   string
	Score float64
}

type candidatePair struct {
	aIndex int
	bIndex int
	score  float64
}

func sortCandidatesDescending(c []candidatePair) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].score != c[j].score {
			return c[i].score > c[j].score
		}
		ai, aj := c[i].aIndex, c[j].aIndex
		if ai != aj {
			return ai < aj
		}
		return c[i].bIndex < c[j].bIndex
	})
}

// Match runs the matcher's contract: given disjoint residual sets A and
// B, return a set of pairs such that each element appears at most once
// and every returned score is >= opts.MinScore.
func Match(a, b []Fingerprint, opts Options) []Pair {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	size := len(a) * len(b)
	mustPrune := size > opts.PruneCap
	pruned := mustPrune || size > opts.HungarianCap

	candidates := buildCandidates(a, b, opts, pruned)
	if len(candidates) == 0 {
		return nil
	}

	var chosen []candidatePair
	if size <= opts.HungarianCap {
		chosen = solveOptimal(a, b, candidates)
	} else {
		chosen = greedyAssign(candidates)
	}

	pairs := make([]Pair, 0, len(chosen))
	for _, c := range chosen {
		if c.score < opts.MinScore {
			continue
		}
		pairs = append(pairs, Pair{AID: a[c.aIndex].ID, BID: b[c.bIndex].ID, Score: c.score})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].AID != pairs[j].AID {
			return pairs[i].AID < pairs[j].AID
		}
		return pairs[i].BID < pairs[j].BID
	})
	return pairs
}

// buildCandidates computes scores for every (a, b) pair, optionally
// pruning to the top-K by score within a due-date bucket of
// +/- daysTolerance.
func buildCandidates(a, b []Fingerprint, opts Options, prune bool) []candidatePair {
	var candidates []candidatePair
	for i, fa := range a {
		var row []candidatePair
		for j, fb := range b {
			if prune && !withinDueBucket(fa.Due, fb.Due, opts.DaysTolerance) {
				continue
			}
			s := Score(fa, fb, opts.DaysTolerance)
			row = append(row, candidatePair{aIndex: i, bIndex: j, score: s})
		}
		if prune && opts.TopK > 0 && len(row) > opts.TopK {
			sortCandidatesDescending(row)
			row = row[:opts.TopK]
		}
		candidates = append(candidates, row...)
	}
	return candidates
}

func withinDueBucket(a, b *model.Date, daysTolerance int) bool {
	if a == nil || b == nil {
		return true
	}
	delta := a.DaysUntil(*b)
	if delta < 0 {
		delta = -delta
	}
	return delta <= daysTolerance
}

// solveOptimal builds a dense cost matrix over the candidate set (padded
// to square so every row/column resolves to a perfect matching) and
// runs the Hungarian algorithm. Cells outside the candidate set are
// penalized with cost 1 (score 0), so the solver only chooses them when
// no real alternative exists, and the MinScore filter in Match then
// drops them.
func solveOptimal(a, b []Fingerprint, candidates []candidatePair) []candidatePair {
	n, m := len(a), len(b)
	size := n
	if m > size {
		size = m
	}
	cost := make([][]float64, size)
	for i := range cost {
		cost[i] = make([]float64, size)
		for j := range cost[i] {
			cost[i][j] = 1.0
		}
	}
	scoreOf := make(map[[2]int]float64, len(candidates))
	for _, c := range candidates {
		cost[c.aIndex][c.bIndex] = 1.0 - c.score
		scoreOf[[2]int{c.aIndex, c.bIndex}] = c.score
	}

	assignment := hungarian(cost)
	var chosen []candidatePair
	for i, j := range assignment {
		if i >= n || j < 0 || j >= m {
			continue
		}
		score, ok := scoreOf[[2]int{i, j}]
		if !ok {
			continue
		}
		chosen = append(chosen, candidatePair{aIndex: i, bIndex: j, score: score})
	}
	return chosen
}
