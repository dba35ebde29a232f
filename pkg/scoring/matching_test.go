package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

// crossed is a 2x2 compatibility table where greedy pairs gold 0 with
// pred 0 and leaves gold 1 without a partner.
func crossed(i, j int) bool {
	return !(i == 1 && j == 1)
}

func TestMatchGreedy(t *testing.T) {
	eq := func(i, j int) bool { return i == j }
	assert.Equal(t, 3, MatchGreedy(3, 3, eq))
	assert.Equal(t, 2, MatchGreedy(2, 5, eq))
	assert.Equal(t, 0, MatchGreedy(0, 5, eq))
	assert.Equal(t, 1, MatchGreedy(2, 2, crossed))
}

func TestMatchGreedy_ConsumesPredictions(t *testing.T) {
	always := func(i, j int) bool { return true }
	assert.Equal(t, 2, MatchGreedy(3, 2, always))
	assert.Equal(t, 2, MatchGreedy(2, 3, always))
}

func TestMatchMaximum(t *testing.T) {
	assert.Equal(t, 2, MatchMaximum(2, 2, crossed))
	assert.Equal(t, 0, MatchMaximum(3, 0, crossed))

	// A chain where each gold item fits two predictions.
	chain := func(i, j int) bool { return j == i || j == i+1 }
	assert.Equal(t, 4, MatchMaximum(4, 5, chain))
}

func TestMatchOrdered(t *testing.T) {
	gold := []string{"a", "b", "c"}
	pred := []string{"a", "c", "b", "d"}
	eq := func(i, j int) bool { return gold[i] == pred[j] }
	assert.Equal(t, 1, MatchOrdered(len(gold), len(pred), eq))
}

func TestMatcherFor(t *testing.T) {
	assert.Equal(t, 2, MatcherFor(models.MatchingMaximum)(2, 2, crossed))
	assert.Equal(t, 1, MatcherFor(models.MatchingGreedy)(2, 2, crossed))
	assert.Equal(t, 1, MatcherFor("unknown")(2, 2, crossed))
}

func TestOverlaps(t *testing.T) {
	assert.Equal(t, 2, multisetOverlap([]int{1, 1, 2}, []int{1, 2, 2}))
	assert.Equal(t, 0, multisetOverlap([]int{}, []int{1}))
	assert.Equal(t, 2, setOverlap([]int{1, 1, 2}, []int{1, 2, 2}))
	assert.Equal(t, 1, setOverlap([]int{3, 3}, []int{3}))
}
