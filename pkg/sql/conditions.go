package sql

import (
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

var compareOps = map[opcode.Op]models.CompareOp{
	opcode.EQ: models.CompareEq,
	opcode.NE: models.CompareNe,
	opcode.GT: models.CompareGt,
	opcode.LT: models.CompareLt,
	opcode.GE: models.CompareGe,
	opcode.LE: models.CompareLe,
}

// conditions flattens a boolean expression into a left-associative list of
// atoms. Parentheses only group; the connectives between atoms are kept in
// source order.
func (ctx *canonContext) conditions(expr ast.ExprNode) (*models.ConditionList, error) {
	list := &models.ConditionList{}
	if err := ctx.flatten(expr, false, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (ctx *canonContext) flatten(expr ast.ExprNode, negated bool, list *models.ConditionList) error {
	switch e := expr.(type) {
	case *ast.ParenthesesExpr:
		return ctx.flatten(e.Expr, negated, list)

	case *ast.BinaryOperationExpr:
		var conn models.Connective
		switch e.Op {
		case opcode.LogicAnd:
			conn = models.ConnectiveAnd
		case opcode.LogicOr:
			conn = models.ConnectiveOr
		default:
			return ctx.appendAtom(expr, negated, list)
		}
		if negated {
			return unsupported("NOT over %s", e.Op)
		}
		if err := ctx.flatten(e.L, false, list); err != nil {
			return err
		}
		right := &models.ConditionList{}
		if err := ctx.flatten(e.R, false, right); err != nil {
			return err
		}
		list.Concat(conn, right)
		return nil

	case *ast.UnaryOperationExpr:
		if e.Op == opcode.Not || e.Op == opcode.Not2 {
			return ctx.flatten(e.V, !negated, list)
		}
	}
	return ctx.appendAtom(expr, negated, list)
}

func (ctx *canonContext) appendAtom(expr ast.ExprNode, negated bool, list *models.ConditionList) error {
	atom, err := ctx.atom(expr, negated)
	if err != nil {
		return err
	}
	list.Append(models.ConnectiveAnd, atom)
	return nil
}

// atom canonicalizes a single predicate. negated carries any enclosing NOT;
// the predicate's own NOT (NOT IN, NOT LIKE, IS NOT NULL, ...) toggles it.
func (ctx *canonContext) atom(expr ast.ExprNode, negated bool) (models.ConditionAtom, error) {
	switch e := expr.(type) {
	case *ast.BinaryOperationExpr:
		op, ok := compareOps[e.Op]
		if !ok {
			return models.ConditionAtom{}, unsupported("operator %s in condition", e.Op)
		}
		return ctx.binaryAtom(op, negated, e.L, e.R)

	case *ast.PatternLikeOrIlikeExpr:
		return ctx.binaryAtom(models.CompareLike, negated != e.Not, e.Expr, e.Pattern)

	case *ast.BetweenExpr:
		left, err := ctx.valueExpr(e.Expr)
		if err != nil {
			return models.ConditionAtom{}, err
		}
		low, err := ctx.value(e.Left)
		if err != nil {
			return models.ConditionAtom{}, err
		}
		high, err := ctx.value(e.Right)
		if err != nil {
			return models.ConditionAtom{}, err
		}
		return models.ConditionAtom{Negated: negated != e.Not, Op: models.CompareBetween, Left: left, Right1: low, Right2: high}, nil

	case *ast.PatternInExpr:
		left, err := ctx.valueExpr(e.Expr)
		if err != nil {
			return models.ConditionAtom{}, err
		}
		atom := models.ConditionAtom{Negated: negated != e.Not, Op: models.CompareIn, Left: left}
		if e.Sel != nil {
			if atom.Right1, err = ctx.value(e.Sel); err != nil {
				return models.ConditionAtom{}, err
			}
			return atom, nil
		}
		if atom.Right1, err = literalList(e.List); err != nil {
			return models.ConditionAtom{}, err
		}
		return atom, nil

	case *ast.IsNullExpr:
		left, err := ctx.valueExpr(e.Expr)
		if err != nil {
			return models.ConditionAtom{}, err
		}
		return models.ConditionAtom{Negated: negated != e.Not, Op: models.CompareIs, Left: left, Right1: models.Null()}, nil

	case *ast.ExistsSubqueryExpr:
		sub, err := ctx.value(e.Sel)
		if err != nil {
			return models.ConditionAtom{}, err
		}
		return models.ConditionAtom{Negated: negated != e.Not, Op: models.CompareExists, Right1: sub}, nil
	}
	return models.ConditionAtom{}, errNotCondition(expr)
}

func (ctx *canonContext) binaryAtom(op models.CompareOp, negated bool, l, r ast.ExprNode) (models.ConditionAtom, error) {
	left, err := ctx.valueExpr(l)
	if err != nil {
		return models.ConditionAtom{}, err
	}
	right, err := ctx.value(r)
	if err != nil {
		return models.ConditionAtom{}, err
	}
	return models.ConditionAtom{Negated: negated, Op: op, Left: left, Right1: right}, nil
}
