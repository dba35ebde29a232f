package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

func ref(id int) models.ColumnRef {
	return models.ColumnRef{Agg: models.AggNone, ColumnID: id}
}

func colExpr(id int) models.ValueExpr {
	return models.Column(ref(id))
}

func arith(op models.ArithOp, l, r models.ValueExpr) models.Arithmetic {
	return models.Arithmetic{Op: op, Left: l, Right: r}
}

func simpleQuery(ids ...int) *models.Query {
	q := &models.Query{From: models.FromClause{Tables: []models.TableRef{{Kind: models.TableBase, TableID: 0}}}}
	for _, id := range ids {
		q.Select = append(q.Select, colExpr(id))
	}
	return q
}

func TestTermsEqual(t *testing.T) {
	e := NewEngine(models.MatchingGreedy)

	tests := []struct {
		name string
		a, b models.Term
		want bool
	}{
		{"nil and nil", nil, nil, true},
		{"nil and column", nil, ref(1), false},
		{"column and nil", ref(1), nil, false},
		{"same column", ref(1), ref(1), true},
		{"different aggregate", ref(1), models.ColumnRef{Agg: models.AggMax, ColumnID: 1}, false},
		{"different distinct", models.ColumnRef{Agg: models.AggCount, ColumnID: 1}, models.ColumnRef{Agg: models.AggCount, ColumnID: 1, Distinct: true}, false},
		{"identity and bare column", colExpr(1), ref(1), true},
		{"bare column and identity", ref(1), colExpr(1), true},
		{"identity and bare literal", models.Identity{Operand: models.Number(5)}, models.Number(5), true},
		{"literal kinds differ", models.Number(5), models.String("5"), false},
		{"column and literal", ref(5), models.Number(5), false},
		{"addition commutes", arith(models.ArithAdd, colExpr(1), colExpr(2)), arith(models.ArithAdd, colExpr(2), colExpr(1)), true},
		{"multiplication commutes", arith(models.ArithMul, colExpr(1), colExpr(2)), arith(models.ArithMul, colExpr(2), colExpr(1)), true},
		{"subtraction is positional", arith(models.ArithSub, colExpr(1), colExpr(2)), arith(models.ArithSub, colExpr(2), colExpr(1)), false},
		{"subtraction matches itself", arith(models.ArithSub, colExpr(1), colExpr(2)), arith(models.ArithSub, colExpr(1), colExpr(2)), true},
		{"division is positional", arith(models.ArithDiv, colExpr(1), colExpr(2)), arith(models.ArithDiv, colExpr(2), colExpr(1)), false},
		{"addition needs a real pairing", arith(models.ArithAdd, colExpr(1), colExpr(1)), arith(models.ArithAdd, colExpr(1), colExpr(2)), false},
		{"operators differ", arith(models.ArithAdd, colExpr(1), colExpr(2)), arith(models.ArithMul, colExpr(1), colExpr(2)), false},
		{"arithmetic and column", arith(models.ArithAdd, colExpr(1), colExpr(2)), colExpr(1), false},
		{"nested arithmetic", arith(models.ArithDiv, arith(models.ArithAdd, colExpr(1), colExpr(2)), colExpr(3)),
			arith(models.ArithDiv, arith(models.ArithAdd, colExpr(2), colExpr(1)), colExpr(3)), true},
		{"literal lists ordered", models.LiteralList{models.Number(1), models.Number(2)}, models.LiteralList{models.Number(1), models.Number(2)}, true},
		{"literal lists reordered", models.LiteralList{models.Number(1), models.Number(2)}, models.LiteralList{models.Number(2), models.Number(1)}, false},
		{"equal subqueries", models.Subquery{Query: simpleQuery(1)}, models.Subquery{Query: simpleQuery(1)}, true},
		{"different subqueries", models.Subquery{Query: simpleQuery(1)}, models.Subquery{Query: simpleQuery(2)}, false},
		{"wrapped subquery", models.Identity{Operand: models.Subquery{Query: simpleQuery(1)}}, models.Subquery{Query: simpleQuery(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.TermsEqual(tt.a, tt.b))
		})
	}
}

func TestConditionsEqual(t *testing.T) {
	e := NewEngine(models.MatchingGreedy)
	five := models.Number(5)
	lit5 := models.Identity{Operand: five}

	atom := func(op models.CompareOp, left models.ValueExpr, right models.Value) models.ConditionAtom {
		return models.ConditionAtom{Op: op, Left: left, Right1: right}
	}

	tests := []struct {
		name       string
		gold, pred models.ConditionAtom
		want       bool
	}{
		{"identical", atom(models.CompareGt, colExpr(1), five), atom(models.CompareGt, colExpr(1), five), true},
		{"negation differs", atom(models.CompareGt, colExpr(1), five),
			models.ConditionAtom{Negated: true, Op: models.CompareGt, Left: colExpr(1), Right1: five}, false},
		{"equality commutes", atom(models.CompareEq, colExpr(1), ref(2)), atom(models.CompareEq, colExpr(2), ref(1)), true},
		{"inequality commutes", atom(models.CompareNe, colExpr(1), five), atom(models.CompareNe, lit5, ref(1)), true},
		{"greater than converse", atom(models.CompareGt, colExpr(1), five), atom(models.CompareLt, lit5, ref(1)), true},
		{"less than converse", atom(models.CompareLt, colExpr(1), five), atom(models.CompareGt, lit5, ref(1)), true},
		{"ge converse", atom(models.CompareGe, colExpr(1), ref(2)), atom(models.CompareLe, colExpr(2), ref(1)), true},
		{"greater than does not commute", atom(models.CompareGt, colExpr(1), five), atom(models.CompareGt, lit5, ref(1)), false},
		{"converse needs swapped operands", atom(models.CompareGt, colExpr(1), five), atom(models.CompareLt, colExpr(1), five), false},
		{"different values", atom(models.CompareEq, colExpr(1), five), atom(models.CompareEq, colExpr(1), models.Number(6)), false},
		{"in list as set",
			atom(models.CompareIn, colExpr(1), models.LiteralList{models.String("a"), models.String("b")}),
			atom(models.CompareIn, colExpr(1), models.LiteralList{models.String("b"), models.String("a"), models.String("a")}), true},
		{"in list differs",
			atom(models.CompareIn, colExpr(1), models.LiteralList{models.String("a")}),
			atom(models.CompareIn, colExpr(1), models.LiteralList{models.String("b")}), false},
		{"in subquery",
			atom(models.CompareIn, colExpr(1), models.Subquery{Query: simpleQuery(3)}),
			atom(models.CompareIn, colExpr(1), models.Subquery{Query: simpleQuery(3)}), true},
		{"in left differs",
			atom(models.CompareIn, colExpr(1), models.Subquery{Query: simpleQuery(3)}),
			atom(models.CompareIn, colExpr(2), models.Subquery{Query: simpleQuery(3)}), false},
		{"between positional",
			models.ConditionAtom{Op: models.CompareBetween, Left: colExpr(1), Right1: models.Number(1), Right2: models.Number(9)},
			models.ConditionAtom{Op: models.CompareBetween, Left: colExpr(1), Right1: models.Number(1), Right2: models.Number(9)}, true},
		{"between bounds swapped",
			models.ConditionAtom{Op: models.CompareBetween, Left: colExpr(1), Right1: models.Number(1), Right2: models.Number(9)},
			models.ConditionAtom{Op: models.CompareBetween, Left: colExpr(1), Right1: models.Number(9), Right2: models.Number(1)}, false},
		{"exists",
			models.ConditionAtom{Op: models.CompareExists, Right1: models.Subquery{Query: simpleQuery(4)}},
			models.ConditionAtom{Op: models.CompareExists, Right1: models.Subquery{Query: simpleQuery(4)}}, true},
		{"like and eq", atom(models.CompareLike, colExpr(1), models.String("a%")), atom(models.CompareEq, colExpr(1), models.String("a%")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ConditionsEqual(tt.gold, tt.pred))
			// Equality of atoms is symmetric.
			assert.Equal(t, tt.want, e.ConditionsEqual(tt.pred, tt.gold))
		})
	}
}

func TestQueriesEqual_Nil(t *testing.T) {
	e := NewEngine(models.MatchingGreedy)
	assert.True(t, e.QueriesEqual(nil, nil))
	assert.False(t, e.QueriesEqual(simpleQuery(1), nil))
	assert.False(t, e.QueriesEqual(nil, simpleQuery(1)))
}

func TestNewEngine_DefaultsToGreedy(t *testing.T) {
	assert.Equal(t, models.MatchingGreedy, NewEngine("").Strategy())
	assert.Equal(t, models.MatchingMaximum, NewEngine(models.MatchingMaximum).Strategy())
}
