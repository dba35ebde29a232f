package scoring

import "github.com/ekaya-inc/sqleval/pkg/models"

// prf1 computes precision, recall and F1 with zero denominators yielding 0.
func prf1(matches, gold, pred int) models.PRF {
	var s models.PRF
	if pred > 0 {
		s.Precision = float64(matches) / float64(pred)
	}
	if gold > 0 {
		s.Recall = float64(matches) / float64(gold)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// prf1OrExact is prf1 for degraded metrics, where two empty sides agree.
func prf1OrExact(matches, gold, pred int) models.PRF {
	if gold == 0 && pred == 0 {
		return exact(true)
	}
	return prf1(matches, gold, pred)
}

func exact(equal bool) models.PRF {
	if equal {
		return models.PRF{Precision: 1, Recall: 1, F1: 1}
	}
	return models.PRF{}
}

// Compare scores pred against gold clause by clause.
//
// When either query is a set operation the chains must have the same
// operators at every level; otherwise every clause scores zero and
// SetOpMismatch is set. Matching chains score their right operands as
// whole queries (set_op.right_equal) and the innermost left operands
// clause by clause.
func (e *Engine) Compare(gold, pred *models.Query) *models.Scores {
	chain, equalRights := 0, 0
	for gold.SetOp != nil || pred.SetOp != nil {
		if gold.SetOp == nil || pred.SetOp == nil || gold.SetOp.Kind != pred.SetOp.Kind {
			return models.MismatchScores()
		}
		chain++
		if e.QueriesEqual(gold.SetOp.Right, pred.SetOp.Right) {
			equalRights++
		}
		gold, pred = gold.SetOp.Left, pred.SetOp.Left
	}

	scores := e.compareClauses(gold, pred)
	if chain > 0 {
		setOp := prf1(equalRights, chain, chain)
		scores.SetOp = &setOp
	}
	return scores
}

func (e *Engine) compareClauses(gold, pred *models.Query) *models.Scores {
	scores := &models.Scores{
		Select:    e.selectScore(gold, pred),
		From:      e.fromScore(gold.From.Tables, pred.From.Tables),
		JoinConds: e.conditionScore(gold.From.JoinConds, pred.From.JoinConds),
		Where:     e.conditionScore(gold.Where, pred.Where),
		GroupBy:   groupByScore(gold.GroupBy, pred.GroupBy),
		Having:    e.conditionScore(gold.Having, pred.Having),
		OrderBy:   e.orderByScore(gold.OrderBy, pred.OrderBy),
		Limit:     limitScore(gold.Limit, pred.Limit),
	}
	if scores.GroupBy != nil && scores.Having != nil {
		scores.GroupByHaving = &models.PRF{
			Precision: (scores.GroupBy.Precision + scores.Having.Conditions.Precision) / 2,
			Recall:    (scores.GroupBy.Recall + scores.Having.Conditions.Recall) / 2,
			F1:        (scores.GroupBy.F1 + scores.Having.Conditions.F1) / 2,
		}
	}
	return scores
}

type columnKey struct {
	id       int
	distinct bool
}

func (e *Engine) selectScore(gold, pred *models.Query) *models.SelectScore {
	matches := e.match(len(gold.Select), len(pred.Select), func(i, j int) bool {
		return e.TermsEqual(gold.Select[i], pred.Select[j])
	})

	var goldKeys, predKeys []columnKey
	var goldIDs, predIDs []int
	for _, expr := range gold.Select {
		for _, ref := range models.ColumnRefs(expr) {
			goldKeys = append(goldKeys, columnKey{ref.ColumnID, ref.Distinct})
			goldIDs = append(goldIDs, ref.ColumnID)
		}
	}
	for _, expr := range pred.Select {
		for _, ref := range models.ColumnRefs(expr) {
			predKeys = append(predKeys, columnKey{ref.ColumnID, ref.Distinct})
			predIDs = append(predIDs, ref.ColumnID)
		}
	}

	return &models.SelectScore{
		Full:       prf1(matches, len(gold.Select), len(pred.Select)),
		NoAgg:      prf1OrExact(multisetOverlap(goldKeys, predKeys), len(goldKeys), len(predKeys)),
		NoDistinct: prf1OrExact(multisetOverlap(goldIDs, predIDs), len(goldIDs), len(predIDs)),
		Distinct:   exact(gold.Distinct == pred.Distinct),
	}
}

// fromScore is nil when neither query reads from a table.
func (e *Engine) fromScore(gold, pred []models.TableRef) *models.FromScore {
	if len(gold) == 0 && len(pred) == 0 {
		return nil
	}
	full := e.match(len(gold), len(pred), func(i, j int) bool {
		return e.tablesEqual(gold[i], pred[j], true)
	})
	tableOnly := e.match(len(gold), len(pred), func(i, j int) bool {
		return e.tablesEqual(gold[i], pred[j], false)
	})
	return &models.FromScore{
		Full:      prf1(full, len(gold), len(pred)),
		TableOnly: prf1(tableOnly, len(gold), len(pred)),
	}
}

func (e *Engine) tablesEqual(a, b models.TableRef, withJoin bool) bool {
	if a.Kind != b.Kind || (withJoin && a.Join != b.Join) {
		return false
	}
	if a.Kind == models.TableDerived {
		return e.QueriesEqual(a.Subquery, b.Subquery)
	}
	return a.TableID == b.TableID
}

// conditionScore is nil when both lists are absent and all-zero when only
// one is.
func (e *Engine) conditionScore(gold, pred *models.ConditionList) *models.ConditionScore {
	if gold == nil && pred == nil {
		return nil
	}
	if gold == nil || pred == nil {
		return &models.ConditionScore{}
	}

	matches := e.match(len(gold.Atoms), len(pred.Atoms), func(i, j int) bool {
		return e.ConditionsEqual(gold.Atoms[i], pred.Atoms[j])
	})
	goldIDs, predIDs := conditionColumns(gold), conditionColumns(pred)

	return &models.ConditionScore{
		Conditions:  prf1(matches, len(gold.Atoms), len(pred.Atoms)),
		ColumnsOnly: prf1OrExact(multisetOverlap(goldIDs, predIDs), len(goldIDs), len(predIDs)),
	}
}

// conditionColumns lists the column ids of each atom's left side and first
// value. The upper bound of BETWEEN is not counted.
func conditionColumns(list *models.ConditionList) []int {
	var ids []int
	for _, atom := range list.Atoms {
		for _, t := range []models.Term{atom.Left, atom.Right1} {
			for _, ref := range models.ColumnRefs(t) {
				ids = append(ids, ref.ColumnID)
			}
		}
	}
	return ids
}

func groupByScore(gold, pred []models.ColumnRef) *models.PRF {
	if gold == nil && pred == nil {
		return nil
	}
	if gold == nil || pred == nil {
		return &models.PRF{}
	}
	s := prf1(setOverlap(gold, pred), len(gold), len(pred))
	return &s
}

func (e *Engine) orderByScore(gold, pred []models.OrderItem) *models.OrderScore {
	if gold == nil && pred == nil {
		return nil
	}
	if gold == nil || pred == nil {
		return &models.OrderScore{}
	}

	ordered := MatchOrdered(len(gold), len(pred), func(i, j int) bool {
		return gold[i].Direction == pred[j].Direction && e.TermsEqual(gold[i].Expr, pred[j].Expr)
	})
	unordered := e.match(len(gold), len(pred), func(i, j int) bool {
		return e.TermsEqual(gold[i].Expr, pred[j].Expr)
	})
	return &models.OrderScore{
		Ordered:     prf1(ordered, len(gold), len(pred)),
		NoDirection: prf1(unordered, len(gold), len(pred)),
	}
}

func limitScore(gold, pred *int) *models.PRF {
	if gold == nil && pred == nil {
		return nil
	}
	if gold == nil || pred == nil {
		return &models.PRF{}
	}
	s := exact(*gold == *pred)
	return &s
}
