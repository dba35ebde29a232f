package sql

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

// maxNestingDepth bounds subquery recursion.
const maxNestingDepth = 32

// Canonicalizer converts SQL text for one schema into canonical queries.
// It holds no per-call state and is safe for concurrent use.
type Canonicalizer struct {
	resolver *SchemaResolver
}

// NewCanonicalizer returns a canonicalizer resolving names against resolver.
func NewCanonicalizer(resolver *SchemaResolver) *Canonicalizer {
	return &Canonicalizer{resolver: resolver}
}

// Resolver returns the schema resolver used by c.
func (c *Canonicalizer) Resolver() *SchemaResolver {
	return c.resolver
}

// Canonicalize parses sqlQuery and returns its canonical form. Errors wrap
// apperrors.ErrMalformedQuery, apperrors.ErrSchemaResolution or
// apperrors.ErrUnsupportedConstruct.
func (c *Canonicalizer) Canonicalize(sqlQuery string) (*models.Query, error) {
	node, err := Parse(sqlQuery)
	if err != nil {
		return nil, err
	}
	return c.CanonicalizeNode(node)
}

// CanonicalizeNode canonicalizes an already parsed statement.
func (c *Canonicalizer) CanonicalizeNode(node ast.ResultSetNode) (*models.Query, error) {
	ctx := &canonContext{resolver: c.resolver}
	q, _, err := ctx.resultSet(node, nil)
	return q, err
}

// canonContext is the state threaded through one canonicalization: the
// scope of the query level being built, the clause being visited and the
// subquery depth.
type canonContext struct {
	resolver *SchemaResolver
	scope    *scope
	clause   clause
	depth    int
}

// in returns a copy of ctx visiting cl.
func (ctx *canonContext) in(cl clause) *canonContext {
	next := *ctx
	next.clause = cl
	return &next
}

// nested returns a context for a query level whose scope encloses parent.
func (ctx *canonContext) nested(parent *scope) (*canonContext, error) {
	if ctx.depth >= maxNestingDepth {
		return nil, fmt.Errorf("%w: subqueries nested deeper than %d", apperrors.ErrUnsupportedConstruct, maxNestingDepth)
	}
	return &canonContext{
		resolver: ctx.resolver,
		scope:    newScope(ctx.resolver, parent),
		clause:   clauseSelect,
		depth:    ctx.depth + 1,
	}, nil
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperrors.ErrUnsupportedConstruct}, args...)...)
}

// resultSet canonicalizes a SELECT or compound SELECT whose names may
// refer to parent. It also returns the output columns of the statement,
// used when it appears as a derived table.
func (ctx *canonContext) resultSet(node ast.ResultSetNode, parent *scope) (*models.Query, map[string]int, error) {
	switch n := node.(type) {
	case *ast.SelectStmt:
		return ctx.selectStmt(n, parent)
	case *ast.SetOprStmt:
		if n.With != nil {
			return nil, nil, unsupported("WITH clause")
		}
		if n.SelectList == nil {
			return nil, nil, fmt.Errorf("%w: empty compound statement", apperrors.ErrMalformedQuery)
		}
		return ctx.setOprList(n.SelectList, parent)
	case *ast.SubqueryExpr:
		return ctx.resultSet(n.Query, parent)
	default:
		return nil, nil, unsupported("%T as a query", node)
	}
}

// setOprList folds a compound statement to the left: A op1 B op2 C becomes
// (A op1 B) op2 C. Wrapper-level ORDER BY and LIMIT are not represented.
func (ctx *canonContext) setOprList(list *ast.SetOprSelectList, parent *scope) (*models.Query, map[string]int, error) {
	if list.With != nil {
		return nil, nil, unsupported("WITH clause")
	}
	if len(list.Selects) == 0 {
		return nil, nil, fmt.Errorf("%w: empty compound statement", apperrors.ErrMalformedQuery)
	}

	var (
		acc     *models.Query
		outputs map[string]int
	)
	for i, node := range list.Selects {
		var (
			operand  *models.Query
			operator *ast.SetOprType
			cols     map[string]int
			err      error
		)
		switch sel := node.(type) {
		case *ast.SelectStmt:
			operator = sel.AfterSetOperator
			operand, cols, err = ctx.selectStmt(sel, parent)
		case *ast.SetOprSelectList:
			operator = sel.AfterSetOperator
			operand, cols, err = ctx.setOprList(sel, parent)
		default:
			err = unsupported("%T in compound statement", node)
		}
		if err != nil {
			return nil, nil, err
		}

		if i == 0 {
			acc, outputs = operand, cols
			continue
		}
		kind, err := setOpKind(operator)
		if err != nil {
			return nil, nil, err
		}
		acc = &models.Query{SetOp: &models.SetOperation{Kind: kind, Left: acc, Right: operand}}
	}
	return acc, outputs, nil
}

func setOpKind(op *ast.SetOprType) (models.SetOpKind, error) {
	if op == nil {
		return "", fmt.Errorf("%w: compound statement without operator", apperrors.ErrMalformedQuery)
	}
	switch *op {
	case ast.Union, ast.UnionAll:
		return models.SetOpUnion, nil
	case ast.Intersect, ast.IntersectAll:
		return models.SetOpIntersect, nil
	case ast.Except, ast.ExceptAll:
		return models.SetOpExcept, nil
	}
	return "", unsupported("set operator %v", *op)
}

// selectStmt canonicalizes one SELECT. Clauses are visited in an order that
// makes FROM sources visible to every later clause and SELECT aliases
// visible to WHERE, GROUP BY, HAVING and ORDER BY.
func (ctx *canonContext) selectStmt(stmt *ast.SelectStmt, parent *scope) (*models.Query, map[string]int, error) {
	switch {
	case stmt.With != nil:
		return nil, nil, unsupported("WITH clause")
	case stmt.Kind != ast.SelectStmtKindSelect:
		return nil, nil, unsupported("TABLE or VALUES statement")
	case len(stmt.WindowSpecs) > 0:
		return nil, nil, unsupported("WINDOW clause")
	case stmt.SelectIntoOpt != nil:
		return nil, nil, unsupported("SELECT INTO")
	case stmt.Fields == nil || len(stmt.Fields.Fields) == 0:
		return nil, nil, fmt.Errorf("%w: empty select list", apperrors.ErrMalformedQuery)
	}

	level, err := ctx.nested(parent)
	if err != nil {
		return nil, nil, err
	}
	q := &models.Query{Distinct: stmt.Distinct}

	if stmt.From != nil && stmt.From.TableRefs != nil {
		if err := level.in(clauseFrom).from(stmt.From.TableRefs, models.JoinNone, &q.From); err != nil {
			return nil, nil, err
		}
	}

	outputs, err := level.in(clauseSelect).selectList(stmt.Fields.Fields, q)
	if err != nil {
		return nil, nil, err
	}

	if stmt.Where != nil {
		if q.Where, err = level.in(clauseWhere).conditions(stmt.Where); err != nil {
			return nil, nil, err
		}
	}

	if stmt.GroupBy != nil {
		if q.GroupBy, err = level.in(clauseGroupBy).groupBy(stmt.GroupBy, q.Select); err != nil {
			return nil, nil, err
		}
	}

	if stmt.Having != nil && stmt.Having.Expr != nil {
		if q.Having, err = level.in(clauseHaving).conditions(stmt.Having.Expr); err != nil {
			return nil, nil, err
		}
	}

	if stmt.OrderBy != nil {
		if q.OrderBy, err = level.in(clauseOrderBy).orderBy(stmt.OrderBy.Items, q.Select); err != nil {
			return nil, nil, err
		}
	}

	if stmt.Limit != nil {
		if q.Limit, err = limit(stmt.Limit); err != nil {
			return nil, nil, err
		}
	}

	return q, outputs, nil
}

// from flattens a join tree into q.From in left-to-right order. kind is the
// join attaching the leftmost table of node to what precedes it.
func (ctx *canonContext) from(node ast.ResultSetNode, kind models.JoinKind, from *models.FromClause) error {
	switch n := node.(type) {
	case *ast.Join:
		if n.NaturalJoin {
			return unsupported("NATURAL JOIN")
		}
		if len(n.Using) > 0 {
			return unsupported("JOIN ... USING")
		}
		if err := ctx.from(n.Left, kind, from); err != nil {
			return err
		}
		if n.Right == nil {
			return nil
		}
		if err := ctx.from(n.Right, joinKind(n), from); err != nil {
			return err
		}
		if n.On != nil && n.On.Expr != nil {
			conds, err := ctx.conditions(n.On.Expr)
			if err != nil {
				return err
			}
			if from.JoinConds == nil {
				from.JoinConds = &models.ConditionList{}
			}
			from.JoinConds.Concat(models.ConnectiveAnd, conds)
		}
		return nil

	case *ast.TableSource:
		return ctx.tableSource(n, kind, from)

	default:
		return unsupported("%T in FROM", node)
	}
}

// joinKind maps a parsed join to its canonical kind. The parser produces
// the same node for "a, b", "a JOIN b" and "a CROSS JOIN b", so an ON-less
// inner join is a cross product.
func joinKind(j *ast.Join) models.JoinKind {
	switch j.Tp {
	case ast.LeftJoin:
		return models.JoinLeft
	case ast.RightJoin:
		return models.JoinRight
	}
	if j.On != nil {
		return models.JoinInner
	}
	return models.JoinNone
}

func (ctx *canonContext) tableSource(ts *ast.TableSource, kind models.JoinKind, from *models.FromClause) error {
	switch src := ts.Source.(type) {
	case *ast.TableName:
		tableID, err := ctx.scope.addTable(src.Name.O, ts.AsName.O)
		if err != nil {
			return err
		}
		from.Tables = append(from.Tables, models.TableRef{Kind: models.TableBase, TableID: tableID, Join: kind})
		return nil

	case *ast.SelectStmt, *ast.SetOprStmt:
		// Derived tables see the enclosing query, not sibling FROM items.
		sub, outputs, err := ctx.resultSet(src, ctx.scope.parent)
		if err != nil {
			return err
		}
		ctx.scope.addDerived(ts.AsName.O, outputs)
		from.Tables = append(from.Tables, models.TableRef{Kind: models.TableDerived, Subquery: sub, Join: kind})
		return nil

	case *ast.Join:
		// Parenthesized join: its first table takes the outer join kind.
		return ctx.from(src, kind, from)

	default:
		return unsupported("%T in FROM", ts.Source)
	}
}

// selectList canonicalizes the SELECT fields into q.Select and returns the
// statement's output columns.
func (ctx *canonContext) selectList(fields []*ast.SelectField, q *models.Query) (map[string]int, error) {
	outputs := make(map[string]int)
	q.Select = make([]models.ValueExpr, 0, len(fields))

	for _, field := range fields {
		if field.WildCard != nil {
			if table := field.WildCard.Table.O; table != "" && !ctx.scope.knows(table) {
				return nil, fmt.Errorf("%w: unknown table or alias %q", apperrors.ErrSchemaResolution, table)
			}
			q.Select = append(q.Select, models.Column(models.ColumnRef{Agg: models.AggNone, ColumnID: models.StarColumnID}))
			for name, id := range ctx.scope.columns() {
				if _, exists := outputs[name]; !exists {
					outputs[name] = id
				}
			}
			continue
		}

		expr, err := ctx.valueExpr(field.Expr)
		if err != nil {
			return nil, err
		}
		q.Select = append(q.Select, expr)

		name := field.AsName.L
		if name != "" {
			ctx.scope.addSelectAlias(name, expr)
		} else if col, ok := field.Expr.(*ast.ColumnNameExpr); ok {
			name = col.Name.Name.L
		}
		if name == "" {
			continue
		}
		if refs := models.ColumnRefs(expr); len(refs) > 0 {
			outputs[name] = refs[0].ColumnID
		}
	}
	return outputs, nil
}

// groupBy resolves GROUP BY keys, which must be plain column references.
func (ctx *canonContext) groupBy(gb *ast.GroupByClause, selected []models.ValueExpr) ([]models.ColumnRef, error) {
	if gb.Rollup {
		return nil, unsupported("GROUP BY ... WITH ROLLUP")
	}
	keys := make([]models.ColumnRef, 0, len(gb.Items))
	for _, item := range gb.Items {
		expr, err := ctx.byItem(item.Expr, selected)
		if err != nil {
			return nil, err
		}
		ref, ok := asColumnRef(expr)
		if !ok {
			return nil, unsupported("GROUP BY expression")
		}
		keys = append(keys, ref)
	}
	return keys, nil
}

func (ctx *canonContext) orderBy(items []*ast.ByItem, selected []models.ValueExpr) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		expr, err := ctx.byItem(item.Expr, selected)
		if err != nil {
			return nil, err
		}
		dir := models.Asc
		if item.Desc {
			dir = models.Desc
		}
		out = append(out, models.OrderItem{Expr: expr, Direction: dir})
	}
	return out, nil
}

// byItem canonicalizes a GROUP BY or ORDER BY key. Positional keys refer to
// the SELECT list.
func (ctx *canonContext) byItem(expr ast.ExprNode, selected []models.ValueExpr) (models.ValueExpr, error) {
	if pos, ok := expr.(*ast.PositionExpr); ok {
		if pos.P != nil || pos.N < 1 || pos.N > len(selected) {
			return nil, unsupported("positional reference %d", pos.N)
		}
		return selected[pos.N-1], nil
	}
	return ctx.valueExpr(expr)
}

func limit(l *ast.Limit) (*int, error) {
	if l.Offset != nil {
		return nil, unsupported("LIMIT with OFFSET")
	}
	lit, ok := l.Count.(ast.ValueExpr)
	if !ok {
		return nil, unsupported("non-literal LIMIT")
	}
	var n int
	switch v := lit.GetValue().(type) {
	case int64:
		n = int(v)
	case uint64:
		n = int(v)
	default:
		return nil, unsupported("non-integer LIMIT")
	}
	return &n, nil
}
