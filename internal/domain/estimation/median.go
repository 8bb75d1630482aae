// Package estimation turns recent wait-time submissions into a single estimate.
package estimation

import (
	"sort"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
)

// DefaultWindow is the number of most recent submissions considered
const DefaultWindow = 20

// Median returns the median of values and false when values is empty.
// For an even count the two middle values are averaged and rounded half up.
// values is not modified.
func Median(values []int) (int, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}

	sorted := make([]int, n)
	copy(sorted, values)
	sort.Ints(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid], true
	}
	return roundHalfUpMean(sorted[mid-1], sorted[mid]), true
}

// roundHalfUpMean requires a <= b. Same-sign operands go through the
// difference so the sum cannot overflow.
func roundHalfUpMean(a, b int) int {
	if (a >= 0) == (b >= 0) {
		d := b - a
		return a + d/2 + d%2
	}
	sum := a + b
	if sum >= 0 {
		return (sum + 1) / 2
	}
	// floor((sum+1)/2) for negative sums
	return -((-sum) / 2)
}

// FromSubmissions computes the estimate over subs. Callers pass the window
// already trimmed to the most recent submissions. Nil means unknown.
func FromSubmissions(subs []*entities.Submission) *int {
	values := make([]int, 0, len(subs))
	for _, s := range subs {
		if s == nil {
			continue
		}
		values = append(values, s.WaitTimeMinutes)
	}
	m, ok := Median(values)
	if !ok {
		return nil
	}
	return &m
}
