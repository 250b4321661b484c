package matcher

import "math"

// hungarian solves the rectangular minimum-cost assignment problem for
// an n x m cost matrix with n <= m, using the classic O(n^2 * m)
// potentials-and-augmenting-path algorithm (Kuhn-Munkres).
//
// result[i] is the column assigned to row i.
func hungarian(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])

	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)    // p[j] = row matched to column j (1-indexed row), 0 = unmatched
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	for j := 1; j <= m; j++ {
		if p[j] != 0 {
			result[p[j]-1] = j - 1
		}
	}
	return result
}

// greedyAssign solves the assignment problem approximately by repeatedly
// picking the remaining candidate pair with the highest score, largest
// remaining first. Deterministic given the lexicographic tie-break in
// sortCandidatesDescending.
func greedyAssign(candidates []candidatePair) []candidatePair {
	sortCandidatesDescending(candidates)
	usedA := make(map[int]bool)
	usedB := make(map[int]bool)
	var chosen []candidatePair
	for _, c := range candidates {
		if usedA[c.aIndex] || usedB[c.bIndex] {
			continue
		}
		usedA[c.aIndex] = true
		usedB[c.bIndex] = true
		chosen = append(chosen, c)
	}
	return chosen
}
