package scoring

import "github.com/ekaya-inc/sqleval/pkg/models"

// Aggregator accumulates per-pair scores into dataset averages. Each
// metric is averaged over the pairs where its clause was applicable. It is
// not safe for concurrent use.
type Aggregator struct {
	sums   map[string]models.PRF
	counts map[models.Clause]int
	scored int
	exact  int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		sums:   make(map[string]models.PRF),
		counts: make(map[models.Clause]int),
	}
}

// Add folds the scores of one pair into the running totals. Pairs with a
// set-operation mismatch count toward every clause with zero scores.
func (a *Aggregator) Add(s *models.Scores) {
	if s == nil {
		return
	}
	a.scored++
	if s.AllExact() {
		a.exact++
	}
	for _, c := range models.Clauses {
		if s.Applicable(c) {
			a.counts[c]++
		}
	}
	for _, m := range s.Metrics() {
		sum := a.sums[m.Name()]
		sum.Precision += m.Score.Precision
		sum.Recall += m.Score.Recall
		sum.F1 += m.Score.F1
		a.sums[m.Name()] = sum
	}
}

// Summary returns the averages of every metric in report order. A clause
// that never applied reports zeros.
func (a *Aggregator) Summary() models.Summary {
	summary := models.Summary{
		Scored:       a.scored,
		ExactMatches: a.exact,
		ClauseCounts: make(map[models.Clause]int, len(models.Clauses)),
	}
	for _, c := range models.Clauses {
		summary.ClauseCounts[c] = a.counts[c]
	}

	// The mismatch record lists every metric, which fixes the report order.
	for _, m := range models.MismatchScores().Metrics() {
		n := a.counts[m.Clause]
		if n == 0 {
			n = 1
		}
		sum := a.sums[m.Name()]
		summary.Metrics = append(summary.Metrics, models.MetricSummary{
			Clause:    m.Clause,
			Key:       m.Key,
			Precision: sum.Precision / float64(n),
			Recall:    sum.Recall / float64(n),
			F1:        sum.F1 / float64(n),
		})
	}
	return summary
}

// Aggregate averages a list of per-pair scores. Nil entries (pairs that
// failed to canonicalize) are skipped.
func Aggregate(scores []*models.Scores) models.Summary {
	a := NewAggregator()
	for _, s := range scores {
		a.Add(s)
	}
	return a.Summary()
}
