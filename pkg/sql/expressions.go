package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

var arithOps = map[opcode.Op]models.ArithOp{
	opcode.Plus:  models.ArithAdd,
	opcode.Minus: models.ArithSub,
	opcode.Mul:   models.ArithMul,
	opcode.Div:   models.ArithDiv,
}

var aggKinds = map[string]models.AggKind{
	ast.AggFuncCount: models.AggCount,
	ast.AggFuncSum:   models.AggSum,
	ast.AggFuncAvg:   models.AggAvg,
	ast.AggFuncMin:   models.AggMin,
	ast.AggFuncMax:   models.AggMax,
}

// valueExpr canonicalizes an expression used as a SELECT item, ORDER BY or
// GROUP BY key, or condition left-hand side.
func (ctx *canonContext) valueExpr(expr ast.ExprNode) (models.ValueExpr, error) {
	switch e := expr.(type) {
	case *ast.ParenthesesExpr:
		return ctx.valueExpr(e.Expr)

	case *ast.BinaryOperationExpr:
		op, ok := arithOps[e.Op]
		if !ok {
			return nil, unsupported("operator %s in value expression", e.Op)
		}
		left, err := ctx.valueExpr(e.L)
		if err != nil {
			return nil, err
		}
		right, err := ctx.valueExpr(e.R)
		if err != nil {
			return nil, err
		}
		return models.Arithmetic{Op: op, Left: left, Right: right}, nil

	case *ast.ColumnNameExpr:
		res, err := ctx.scope.resolveColumn(e.Name.Table.O, e.Name.Name.O, ctx.clause)
		if err != nil {
			return nil, err
		}
		if res.alias != nil {
			return res.alias, nil
		}
		return models.Column(models.ColumnRef{Agg: models.AggNone, ColumnID: res.columnID}), nil

	case *ast.AggregateFuncExpr:
		ref, err := ctx.aggregate(e)
		if err != nil {
			return nil, err
		}
		return models.Column(ref), nil

	case *ast.SubqueryExpr:
		sub, _, err := ctx.resultSet(e.Query, ctx.scope)
		if err != nil {
			return nil, err
		}
		return models.Identity{Operand: models.Subquery{Query: sub}}, nil

	case *ast.UnaryOperationExpr:
		lit, err := signedLiteral(e)
		if err != nil {
			return nil, err
		}
		return models.Identity{Operand: lit}, nil

	case ast.ParamMarkerExpr:
		return nil, unsupported("placeholder")

	case ast.ValueExpr:
		lit, err := literal(e)
		if err != nil {
			return nil, err
		}
		return models.Identity{Operand: lit}, nil

	case *ast.CaseExpr:
		return nil, unsupported("CASE expression")
	case *ast.WindowFuncExpr:
		return nil, unsupported("window function %s", e.Name)
	case *ast.FuncCallExpr:
		return nil, unsupported("function %s", e.FnName.O)
	case *ast.FuncCastExpr:
		return nil, unsupported("CAST")
	case *ast.RowExpr:
		return nil, unsupported("row constructor")
	}
	return nil, unsupported("%s", exprName(expr))
}

// value canonicalizes the right-hand side of a condition.
func (ctx *canonContext) value(expr ast.ExprNode) (models.Value, error) {
	ve, err := ctx.valueExpr(expr)
	if err != nil {
		return nil, err
	}
	return asValue(ve), nil
}

// asValue unwraps an Identity so its operand can stand as a condition value.
func asValue(ve models.ValueExpr) models.Value {
	switch v := ve.(type) {
	case models.Identity:
		return v.Operand.(models.Value)
	case models.Arithmetic:
		return v
	}
	return nil
}

// aggregate resolves COUNT/SUM/AVG/MIN/MAX over a single column.
// COUNT(*) arrives from the parser as COUNT(1), so any non-NULL literal
// argument to COUNT counts rows.
func (ctx *canonContext) aggregate(e *ast.AggregateFuncExpr) (models.ColumnRef, error) {
	agg, ok := aggKinds[strings.ToLower(e.F)]
	if !ok {
		return models.ColumnRef{}, unsupported("aggregate %s", e.F)
	}
	if len(e.Args) != 1 {
		return models.ColumnRef{}, unsupported("%s with %d arguments", e.F, len(e.Args))
	}
	if e.Order != nil {
		return models.ColumnRef{}, unsupported("ORDER BY inside %s", e.F)
	}

	arg := e.Args[0]
	for {
		paren, ok := arg.(*ast.ParenthesesExpr)
		if !ok {
			break
		}
		arg = paren.Expr
	}

	switch a := arg.(type) {
	case *ast.ColumnNameExpr:
		res, err := ctx.scope.resolveColumn(a.Name.Table.O, a.Name.Name.O, clauseSelect)
		if err != nil {
			return models.ColumnRef{}, err
		}
		return models.ColumnRef{Agg: agg, ColumnID: res.columnID, Distinct: e.Distinct}, nil
	case ast.ValueExpr:
		if agg == models.AggCount && a.GetValue() != nil {
			return models.ColumnRef{Agg: agg, ColumnID: models.StarColumnID, Distinct: e.Distinct}, nil
		}
	}
	return models.ColumnRef{}, unsupported("%s over an expression", e.F)
}

// literal converts a parser constant. Numbers become float64.
func literal(v ast.ValueExpr) (models.Literal, error) {
	switch x := v.GetValue().(type) {
	case nil:
		return models.Null(), nil
	case int64:
		return models.Number(float64(x)), nil
	case uint64:
		return models.Number(float64(x)), nil
	case float64:
		return models.Number(x), nil
	case float32:
		return models.Number(float64(x)), nil
	case string:
		return models.String(x), nil
	case []byte:
		return models.String(string(x)), nil
	case fmt.Stringer:
		// decimals
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return models.Literal{}, unsupported("literal %s", x.String())
		}
		return models.Number(f), nil
	default:
		return models.Literal{}, unsupported("literal of type %T", x)
	}
}

// signedLiteral folds -5 and +5 into numeric literals.
func signedLiteral(e *ast.UnaryOperationExpr) (models.Literal, error) {
	if e.Op != opcode.Minus && e.Op != opcode.Plus {
		return models.Literal{}, unsupported("unary %s in value expression", e.Op)
	}
	inner := e.V
	if paren, ok := inner.(*ast.ParenthesesExpr); ok {
		inner = paren.Expr
	}
	v, ok := inner.(ast.ValueExpr)
	if !ok {
		return models.Literal{}, unsupported("unary %s over an expression", e.Op)
	}
	lit, err := literal(v)
	if err != nil {
		return models.Literal{}, err
	}
	if lit.Kind != models.LiteralNumber {
		return models.Literal{}, unsupported("unary %s over a non-numeric literal", e.Op)
	}
	if e.Op == opcode.Minus {
		lit.Number = -lit.Number
	}
	return lit, nil
}

// literalList converts the constant list of IN (...).
func literalList(items []ast.ExprNode) (models.LiteralList, error) {
	out := make(models.LiteralList, 0, len(items))
	for _, item := range items {
		var (
			lit models.Literal
			err error
		)
		switch v := item.(type) {
		case ast.ParamMarkerExpr:
			return nil, unsupported("placeholder")
		case ast.ValueExpr:
			lit, err = literal(v)
		case *ast.UnaryOperationExpr:
			lit, err = signedLiteral(v)
		default:
			return nil, unsupported("non-constant IN list item")
		}
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
	}
	return out, nil
}

// asColumnRef returns the column reference held by an Identity expression.
func asColumnRef(ve models.ValueExpr) (models.ColumnRef, bool) {
	id, ok := ve.(models.Identity)
	if !ok {
		return models.ColumnRef{}, false
	}
	ref, ok := id.Operand.(models.ColumnRef)
	return ref, ok
}

func exprName(expr ast.ExprNode) string {
	name := fmt.Sprintf("%T", expr)
	return strings.TrimPrefix(name, "*ast.")
}

// errNotCondition reports an expression that cannot stand as a predicate.
func errNotCondition(expr ast.ExprNode) error {
	return fmt.Errorf("%w: %s used as a condition", apperrors.ErrUnsupportedConstruct, exprName(expr))
}
