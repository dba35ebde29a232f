// Package scoring compares canonical queries clause by clause and produces
// precision, recall and F1 per clause.
package scoring

import "github.com/ekaya-inc/sqleval/pkg/models"

// Engine compares canonical queries. It is stateless apart from the
// matching strategy and safe for concurrent use.
type Engine struct {
	strategy models.MatchingStrategy
	match    Matcher
}

// NewEngine returns an engine that pairs unordered lists using strategy.
func NewEngine(strategy models.MatchingStrategy) *Engine {
	if !strategy.Valid() {
		strategy = models.MatchingGreedy
	}
	return &Engine{strategy: strategy, match: MatcherFor(strategy)}
}

// Strategy returns the matching strategy of e.
func (e *Engine) Strategy() models.MatchingStrategy {
	return e.strategy
}

// QueriesEqual reports whether two queries are structurally equal: every
// applicable metric of their comparison has F1 == 1. Nil queries are equal
// only to each other.
func (e *Engine) QueriesEqual(gold, pred *models.Query) bool {
	if gold == nil || pred == nil {
		return gold == nil && pred == nil
	}
	return e.Compare(gold, pred).AllExact()
}

// TermsEqual is structural equality of operands and value expressions.
//
// An Identity equals its bare operand, so a column written as a value
// expression matches the same column written as a condition value.
// Addition and multiplication compare operands in either order.
func (e *Engine) TermsEqual(a, b models.Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if y, ok := b.(models.Identity); ok {
		if _, aIdentity := a.(models.Identity); !aIdentity {
			return e.TermsEqual(a, y.Operand)
		}
	}

	switch x := a.(type) {
	case models.Identity:
		if y, ok := b.(models.Identity); ok {
			return e.TermsEqual(x.Operand, y.Operand)
		}
		return e.TermsEqual(x.Operand, b)
	case models.Arithmetic:
		y, ok := b.(models.Arithmetic)
		return ok && e.arithmeticEqual(x, y)
	case models.Subquery:
		y, ok := b.(models.Subquery)
		return ok && e.QueriesEqual(x.Query, y.Query)
	case models.ColumnRef:
		y, ok := b.(models.ColumnRef)
		return ok && x == y
	case models.Literal:
		y, ok := b.(models.Literal)
		return ok && x == y
	case models.LiteralList:
		y, ok := b.(models.LiteralList)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	}
	return false
}

func (e *Engine) arithmeticEqual(x, y models.Arithmetic) bool {
	if x.Op != y.Op {
		return false
	}
	if e.TermsEqual(x.Left, y.Left) && e.TermsEqual(x.Right, y.Right) {
		return true
	}
	return x.Op.Commutative() && e.TermsEqual(x.Left, y.Right) && e.TermsEqual(x.Right, y.Left)
}

// ConditionsEqual is structural equality of condition atoms. Equality and
// inequality are symmetric, IN lists compare as sets, and a > b matches
// b < a (likewise >= and <=).
func (e *Engine) ConditionsEqual(gold, pred models.ConditionAtom) bool {
	if gold.Negated != pred.Negated {
		return false
	}

	if gold.Op == pred.Op {
		switch gold.Op {
		case models.CompareEq, models.CompareNe:
			return (e.TermsEqual(gold.Left, pred.Left) && e.TermsEqual(gold.Right1, pred.Right1)) ||
				(e.TermsEqual(gold.Left, pred.Right1) && e.TermsEqual(gold.Right1, pred.Left))
		case models.CompareIn:
			if !e.TermsEqual(gold.Left, pred.Left) {
				return false
			}
			goldList, goldIsList := gold.Right1.(models.LiteralList)
			predList, predIsList := pred.Right1.(models.LiteralList)
			if goldIsList && predIsList {
				return sameLiteralSet(goldList, predList)
			}
			return e.TermsEqual(gold.Right1, pred.Right1)
		default:
			return e.TermsEqual(gold.Left, pred.Left) &&
				e.TermsEqual(gold.Right1, pred.Right1) &&
				e.TermsEqual(gold.Right2, pred.Right2)
		}
	}

	if converse, ok := gold.Op.Converse(); ok && converse == pred.Op {
		return e.TermsEqual(gold.Left, pred.Right1) && e.TermsEqual(gold.Right1, pred.Left)
	}
	return false
}

func sameLiteralSet(a, b models.LiteralList) bool {
	set := func(list models.LiteralList) map[models.Literal]struct{} {
		out := make(map[models.Literal]struct{}, len(list))
		for _, lit := range list {
			out[lit] = struct{}{}
		}
		return out
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for lit := range sa {
		if _, ok := sb[lit]; !ok {
			return false
		}
	}
	return true
}
