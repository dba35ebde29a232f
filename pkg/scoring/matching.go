package scoring

import "github.com/ekaya-inc/sqleval/pkg/models"

// Matcher counts how many gold items can be paired with distinct, equal
// predicted items.
type Matcher func(n, m int, equal func(i, j int) bool) int

// MatcherFor returns the matcher implementing strategy. Unknown strategies
// fall back to greedy.
func MatcherFor(strategy models.MatchingStrategy) Matcher {
	if strategy == models.MatchingMaximum {
		return MatchMaximum
	}
	return MatchGreedy
}

// MatchGreedy pairs each gold item, in order, with the first unconsumed
// predicted item equal to it. This can undercount when an early gold item
// takes a prediction a later one needed.
func MatchGreedy(n, m int, equal func(i, j int) bool) int {
	used := make([]bool, m)
	matches := 0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if !used[j] && equal(i, j) {
				used[j] = true
				matches++
				break
			}
		}
	}
	return matches
}

// MatchMaximum returns the size of a maximum bipartite matching between
// gold and predicted items using augmenting paths.
func MatchMaximum(n, m int, equal func(i, j int) bool) int {
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if equal(i, j) {
				adj[i] = append(adj[i], j)
			}
		}
	}

	owner := make([]int, m)
	for j := range owner {
		owner[j] = -1
	}

	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for _, j := range adj[i] {
			if seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}

	matches := 0
	for i := 0; i < n; i++ {
		if augment(i, make([]bool, m)) {
			matches++
		}
	}
	return matches
}

// MatchOrdered counts positions, up to the shorter length, where both the
// items and their metadata are equal.
func MatchOrdered(n, m int, equal func(i, j int) bool) int {
	matches := 0
	for i := 0; i < n && i < m; i++ {
		if equal(i, i) {
			matches++
		}
	}
	return matches
}

// multisetOverlap counts the common elements of two multisets.
func multisetOverlap[T comparable](gold, pred []T) int {
	counts := make(map[T]int, len(pred))
	for _, p := range pred {
		counts[p]++
	}
	overlap := 0
	for _, g := range gold {
		if counts[g] > 0 {
			counts[g]--
			overlap++
		}
	}
	return overlap
}

// setOverlap counts the distinct elements present in both lists.
func setOverlap[T comparable](gold, pred []T) int {
	in := make(map[T]struct{}, len(pred))
	for _, p := range pred {
		in[p] = struct{}{}
	}
	seen := make(map[T]struct{}, len(gold))
	overlap := 0
	for _, g := range gold {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := in[g]; ok {
			overlap++
		}
	}
	return overlap
}
