package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

func TestAggregate_AveragesOverApplicablePairs(t *testing.T) {
	e := NewEngine(models.MatchingGreedy)
	c := testCanonicalizer(t)
	canon := func(q string) *models.Query {
		out, err := c.Canonicalize(q)
		require.NoError(t, err)
		return out
	}

	exactPair := e.Compare(canon("SELECT a FROM t WHERE b = 1"), canon("SELECT a FROM t WHERE b = 1"))
	whereMiss := e.Compare(canon("SELECT a FROM t WHERE b = 1"), canon("SELECT a FROM t WHERE b = 2"))
	noWhere := e.Compare(canon("SELECT a FROM t"), canon("SELECT b FROM t"))

	summary := Aggregate([]*models.Scores{exactPair, nil, whereMiss, noWhere})

	assert.Equal(t, 3, summary.Scored)
	assert.Equal(t, 1, summary.ExactMatches)
	assert.Equal(t, 3, summary.ClauseCounts[models.ClauseSelect])
	assert.Equal(t, 2, summary.ClauseCounts[models.ClauseWhere])
	assert.Equal(t, 0, summary.ClauseCounts[models.ClauseLimit])

	sel, ok := summary.Metric(models.ClauseSelect, "full")
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, sel.F1, 1e-9)

	where, ok := summary.Metric(models.ClauseWhere, "conditions")
	require.True(t, ok)
	assert.InDelta(t, 0.5, where.F1, 1e-9)

	colOnly, ok := summary.Metric(models.ClauseWhere, "col_only")
	require.True(t, ok)
	assert.InDelta(t, 1.0, colOnly.F1, 1e-9)

	// Never applicable: reported, with zeros.
	limit, ok := summary.Metric(models.ClauseLimit, "exact")
	require.True(t, ok)
	assert.Zero(t, limit.F1)
}

func TestAggregate_ClauseOnlyInPredictionCounts(t *testing.T) {
	e := NewEngine(models.MatchingGreedy)
	c := testCanonicalizer(t)
	canon := func(q string) *models.Query {
		out, err := c.Canonicalize(q)
		require.NoError(t, err)
		return out
	}

	extraWhere := e.Compare(canon("SELECT a FROM t"), canon("SELECT a FROM t WHERE b = 1"))
	exactWhere := e.Compare(canon("SELECT a FROM t WHERE b = 1"), canon("SELECT a FROM t WHERE b = 1"))
	require.NotNil(t, extraWhere.Where)

	summary := Aggregate([]*models.Scores{extraWhere, exactWhere})

	assert.Equal(t, 2, summary.ClauseCounts[models.ClauseWhere])
	where, ok := summary.Metric(models.ClauseWhere, "conditions")
	require.True(t, ok)
	assert.InDelta(t, 0.5, where.F1, 1e-9)
}

func TestAggregate_MismatchCountsEverywhere(t *testing.T) {
	summary := Aggregate([]*models.Scores{models.MismatchScores()})

	assert.Equal(t, 1, summary.Scored)
	assert.Zero(t, summary.ExactMatches)
	for _, c := range models.Clauses {
		assert.Equal(t, 1, summary.ClauseCounts[c], c)
	}
	for _, m := range summary.Metrics {
		assert.Zero(t, m.F1)
	}
}

func TestAggregate_ReportOrderIsStable(t *testing.T) {
	empty := Aggregate(nil)
	full := Aggregate([]*models.Scores{models.MismatchScores()})

	require.Len(t, empty.Metrics, len(full.Metrics))
	for i := range empty.Metrics {
		assert.Equal(t, full.Metrics[i].Clause, empty.Metrics[i].Clause)
		assert.Equal(t, full.Metrics[i].Key, empty.Metrics[i].Key)
	}
	assert.Equal(t, models.ClauseSetOp, empty.Metrics[0].Clause)
}

func TestAggregator_Incremental(t *testing.T) {
	a := NewAggregator()
	a.Add(nil)
	assert.Zero(t, a.Summary().Scored)

	perfect := &models.Scores{
		Select: &models.SelectScore{Full: one, NoAgg: one, NoDistinct: one, Distinct: one},
		From:   &models.FromScore{Full: one, TableOnly: one},
	}
	a.Add(perfect)
	a.Add(perfect)

	s := a.Summary()
	assert.Equal(t, 2, s.Scored)
	assert.Equal(t, 2, s.ExactMatches)
	m, ok := s.Metric(models.ClauseFrom, "table_only")
	require.True(t, ok)
	assert.InDelta(t, 1.0, m.Precision, 1e-9)
}
