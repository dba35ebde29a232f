package models

// PRF is a precision/recall/F1 triple.
type PRF struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Exact reports whether the score is a perfect match.
func (p PRF) Exact() bool {
	return p.F1 == 1
}

// Clause names a scored part of a query.
type Clause string

const (
	ClauseSetOp         Clause = "set_op"
	ClauseSelect        Clause = "select"
	ClauseFrom          Clause = "from"
	ClauseJoinConds     Clause = "join_conds"
	ClauseWhere         Clause = "where"
	ClauseGroupBy       Clause = "group_by"
	ClauseHaving        Clause = "having"
	ClauseGroupByHaving Clause = "group_by_having"
	ClauseOrderBy       Clause = "order_by"
	ClauseLimit         Clause = "limit"
)

// Clauses lists every clause in report order.
var Clauses = []Clause{
	ClauseSetOp,
	ClauseSelect,
	ClauseFrom,
	ClauseJoinConds,
	ClauseWhere,
	ClauseGroupBy,
	ClauseHaving,
	ClauseGroupByHaving,
	ClauseOrderBy,
	ClauseLimit,
}

// SelectScore holds the SELECT clause metrics.
type SelectScore struct {
	Full       PRF `json:"full"`
	NoAgg      PRF `json:"no_agg"`
	NoDistinct PRF `json:"no_distinct"`
	Distinct   PRF `json:"distinct"`
}

// FromScore holds the FROM clause metrics.
type FromScore struct {
	Full      PRF `json:"full"`
	TableOnly PRF `json:"table_only"`
}

// ConditionScore holds the metrics of a condition clause.
type ConditionScore struct {
	Conditions  PRF `json:"conditions"`
	ColumnsOnly PRF `json:"col_only"`
}

// OrderScore holds the ORDER BY metrics.
type OrderScore struct {
	Ordered     PRF `json:"ordered"`
	NoDirection PRF `json:"no_direction"`
}

// Scores is the per-clause comparison of one gold/predicted pair.
// A nil clause is not applicable to the pair and is skipped when averaging.
type Scores struct {
	SetOpMismatch bool            `json:"set_op_mismatch,omitempty"`
	SetOp         *PRF            `json:"set_op,omitempty"`
	Select        *SelectScore    `json:"select,omitempty"`
	From          *FromScore      `json:"from,omitempty"`
	JoinConds     *ConditionScore `json:"join_conds,omitempty"`
	Where         *ConditionScore `json:"where,omitempty"`
	GroupBy       *PRF            `json:"group_by,omitempty"`
	Having        *ConditionScore `json:"having,omitempty"`
	GroupByHaving *PRF            `json:"group_by_having,omitempty"`
	OrderBy       *OrderScore     `json:"order_by,omitempty"`
	Limit         *PRF            `json:"limit,omitempty"`
}

// Metric is one named score of one clause.
type Metric struct {
	Clause Clause
	Key    string
	Score  PRF
}

// Name returns the dotted metric name, e.g. "select.no_agg".
func (m Metric) Name() string {
	return string(m.Clause) + "." + m.Key
}

// MismatchScores is the all-zero record used when the set-operation shape
// of the two queries differs. Every clause is present so the pair counts
// toward every clause average.
func MismatchScores() *Scores {
	return &Scores{
		SetOpMismatch: true,
		SetOp:         &PRF{},
		Select:        &SelectScore{},
		From:          &FromScore{},
		JoinConds:     &ConditionScore{},
		Where:         &ConditionScore{},
		GroupBy:       &PRF{},
		Having:        &ConditionScore{},
		GroupByHaving: &PRF{},
		OrderBy:       &OrderScore{},
		Limit:         &PRF{},
	}
}

// Applicable reports whether clause c was scored for this pair.
func (s *Scores) Applicable(c Clause) bool {
	switch c {
	case ClauseSetOp:
		return s.SetOp != nil
	case ClauseSelect:
		return s.Select != nil
	case ClauseFrom:
		return s.From != nil
	case ClauseJoinConds:
		return s.JoinConds != nil
	case ClauseWhere:
		return s.Where != nil
	case ClauseGroupBy:
		return s.GroupBy != nil
	case ClauseHaving:
		return s.Having != nil
	case ClauseGroupByHaving:
		return s.GroupByHaving != nil
	case ClauseOrderBy:
		return s.OrderBy != nil
	case ClauseLimit:
		return s.Limit != nil
	}
	return false
}

// Metrics flattens the applicable clauses into named metrics.
func (s *Scores) Metrics() []Metric {
	var out []Metric
	add := func(c Clause, key string, p PRF) {
		out = append(out, Metric{Clause: c, Key: key, Score: p})
	}
	if s.SetOp != nil {
		add(ClauseSetOp, "right_equal", *s.SetOp)
	}
	if s.Select != nil {
		add(ClauseSelect, "full", s.Select.Full)
		add(ClauseSelect, "no_agg", s.Select.NoAgg)
		add(ClauseSelect, "no_distinct", s.Select.NoDistinct)
		add(ClauseSelect, "distinct", s.Select.Distinct)
	}
	if s.From != nil {
		add(ClauseFrom, "full", s.From.Full)
		add(ClauseFrom, "table_only", s.From.TableOnly)
	}
	for _, c := range []struct {
		clause Clause
		score  *ConditionScore
	}{
		{ClauseJoinConds, s.JoinConds},
		{ClauseWhere, s.Where},
	} {
		if c.score != nil {
			add(c.clause, "conditions", c.score.Conditions)
			add(c.clause, "col_only", c.score.ColumnsOnly)
		}
	}
	if s.GroupBy != nil {
		add(ClauseGroupBy, "full", *s.GroupBy)
	}
	if s.Having != nil {
		add(ClauseHaving, "conditions", s.Having.Conditions)
		add(ClauseHaving, "col_only", s.Having.ColumnsOnly)
	}
	if s.GroupByHaving != nil {
		add(ClauseGroupByHaving, "full", *s.GroupByHaving)
	}
	if s.OrderBy != nil {
		add(ClauseOrderBy, "ordered", s.OrderBy.Ordered)
		add(ClauseOrderBy, "no_direction", s.OrderBy.NoDirection)
	}
	if s.Limit != nil {
		add(ClauseLimit, "exact", *s.Limit)
	}
	return out
}

// AllExact reports whether every applicable metric has F1 == 1. Two
// queries whose comparison is AllExact are considered equal when nested.
func (s *Scores) AllExact() bool {
	for _, m := range s.Metrics() {
		if !m.Score.Exact() {
			return false
		}
	}
	return true
}
