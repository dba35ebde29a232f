package models

// StarColumnID is the column id of "*" in every schema.
const StarColumnID = -1

// AggKind is the aggregate applied to a column reference.
type AggKind string

const (
	AggNone  AggKind = "none"
	AggCount AggKind = "count"
	AggSum   AggKind = "sum"
	AggAvg   AggKind = "avg"
	AggMin   AggKind = "min"
	AggMax   AggKind = "max"
)

// ArithOp is a binary arithmetic operator inside a value expression.
type ArithOp string

const (
	ArithAdd ArithOp = "+"
	ArithSub ArithOp = "-"
	ArithMul ArithOp = "*"
	ArithDiv ArithOp = "/"
)

// Commutative reports whether swapping the operands preserves meaning.
func (op ArithOp) Commutative() bool {
	return op == ArithAdd || op == ArithMul
}

// CompareOp is the operator of a single condition atom.
type CompareOp string

const (
	CompareEq      CompareOp = "="
	CompareNe      CompareOp = "!="
	CompareGt      CompareOp = ">"
	CompareLt      CompareOp = "<"
	CompareGe      CompareOp = ">="
	CompareLe      CompareOp = "<="
	CompareLike    CompareOp = "like"
	CompareIs      CompareOp = "is"
	CompareIn      CompareOp = "in"
	CompareBetween CompareOp = "between"
	CompareExists  CompareOp = "exists"
)

// Converse returns the operator that holds when the operands are swapped
// (a > b is b < a). ok is false for operators without a distinct converse.
func (op CompareOp) Converse() (converse CompareOp, ok bool) {
	switch op {
	case CompareGt:
		return CompareLt, true
	case CompareLt:
		return CompareGt, true
	case CompareGe:
		return CompareLe, true
	case CompareLe:
		return CompareGe, true
	}
	return "", false
}

// Connective joins two adjacent condition atoms.
type Connective string

const (
	ConnectiveAnd Connective = "and"
	ConnectiveOr  Connective = "or"
)

// JoinKind is the join that attaches a table to the ones before it.
// JoinNone marks the first table and implicit (comma) cross products.
type JoinKind string

const (
	JoinNone  JoinKind = ""
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
)

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SetOpKind is a compound-query operator. ALL variants share the kind.
type SetOpKind string

const (
	SetOpUnion     SetOpKind = "union"
	SetOpIntersect SetOpKind = "intersect"
	SetOpExcept    SetOpKind = "except"
)

// LiteralKind tags the payload of a Literal.
type LiteralKind string

const (
	LiteralNumber LiteralKind = "number"
	LiteralString LiteralKind = "string"
	LiteralBool   LiteralKind = "bool"
	LiteralNull   LiteralKind = "null"
)

// TableKind distinguishes schema tables from derived tables in FROM.
type TableKind string

const (
	TableBase    TableKind = "table"
	TableDerived TableKind = "subquery"
)

// Term is any node that can appear as an operand in a canonical query.
// The set of implementations is closed: ColumnRef, Literal, LiteralList,
// Subquery, Identity and Arithmetic.
type Term interface {
	isTerm()
}

// Operand is what an Identity expression may wrap.
type Operand interface {
	Term
	isOperand()
}

// ValueExpr is a SELECT item, ORDER BY key or condition left-hand side.
type ValueExpr interface {
	Term
	isValueExpr()
}

// Value is the right-hand side of a condition atom.
type Value interface {
	Term
	isValue()
}

// ColumnRef is a resolved column with its aggregate. It is comparable and
// may be used as a map key.
type ColumnRef struct {
	Agg      AggKind `json:"agg"`
	ColumnID int     `json:"column_id"`
	Distinct bool    `json:"distinct,omitempty"`
}

// Literal is a constant. Numbers are normalized to float64 so 5 and 5.0
// compare equal.
type Literal struct {
	Kind   LiteralKind `json:"kind"`
	Number float64     `json:"number,omitempty"`
	Text   string      `json:"text,omitempty"`
	Bool   bool        `json:"bool,omitempty"`
}

// LiteralList is the right-hand side of IN (...).
type LiteralList []Literal

// Subquery is a nested query owned by its parent.
type Subquery struct {
	Query *Query `json:"query"`
}

// Identity is a value expression without arithmetic.
type Identity struct {
	Operand Operand `json:"operand"`
}

// Arithmetic is a binary arithmetic value expression.
type Arithmetic struct {
	Op    ArithOp   `json:"op"`
	Left  ValueExpr `json:"left"`
	Right ValueExpr `json:"right"`
}

func (ColumnRef) isTerm()   {}
func (Literal) isTerm()     {}
func (LiteralList) isTerm() {}
func (Subquery) isTerm()    {}
func (Identity) isTerm()    {}
func (Arithmetic) isTerm()  {}

func (ColumnRef) isOperand() {}
func (Literal) isOperand()   {}
func (Subquery) isOperand()  {}

func (Identity) isValueExpr()   {}
func (Arithmetic) isValueExpr() {}

func (ColumnRef) isValue()   {}
func (Literal) isValue()     {}
func (LiteralList) isValue() {}
func (Subquery) isValue()    {}
func (Arithmetic) isValue()  {}

// Column wraps a column reference as a value expression.
func Column(ref ColumnRef) Identity {
	return Identity{Operand: ref}
}

// Number returns a numeric literal.
func Number(v float64) Literal {
	return Literal{Kind: LiteralNumber, Number: v}
}

// String returns a string literal.
func String(v string) Literal {
	return Literal{Kind: LiteralString, Text: v}
}

// Null returns the NULL literal.
func Null() Literal {
	return Literal{Kind: LiteralNull}
}

// TableRef is one entry of a FROM clause.
type TableRef struct {
	Kind     TableKind `json:"kind"`
	TableID  int       `json:"table_id"`
	Subquery *Query    `json:"subquery,omitempty"`
	Join     JoinKind  `json:"join,omitempty"`
}

// ConditionAtom is a single predicate. Left is nil only for EXISTS, whose
// subquery is held in Right1. Right2 is set only for BETWEEN.
type ConditionAtom struct {
	Negated bool      `json:"negated,omitempty"`
	Op      CompareOp `json:"op"`
	Left    ValueExpr `json:"left,omitempty"`
	Right1  Value     `json:"right1,omitempty"`
	Right2  Value     `json:"right2,omitempty"`
}

// ConditionList is a flat, left-associative sequence of atoms.
// len(Connectives) is always len(Atoms)-1.
type ConditionList struct {
	Atoms       []ConditionAtom `json:"atoms"`
	Connectives []Connective    `json:"connectives,omitempty"`
}

// Append adds an atom joined to the previous one by conn.
func (l *ConditionList) Append(conn Connective, atom ConditionAtom) {
	if len(l.Atoms) > 0 {
		l.Connectives = append(l.Connectives, conn)
	}
	l.Atoms = append(l.Atoms, atom)
}

// Concat appends other to l joined by conn.
func (l *ConditionList) Concat(conn Connective, other *ConditionList) {
	if other == nil || len(other.Atoms) == 0 {
		return
	}
	if len(l.Atoms) > 0 {
		l.Connectives = append(l.Connectives, conn)
	}
	l.Atoms = append(l.Atoms, other.Atoms...)
	l.Connectives = append(l.Connectives, other.Connectives...)
}

// FromClause holds the flattened table list and ON conditions.
type FromClause struct {
	Tables    []TableRef     `json:"tables"`
	JoinConds *ConditionList `json:"join_conds,omitempty"`
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr      ValueExpr `json:"expr"`
	Direction Direction `json:"direction"`
}

// SetOperation combines two queries. Chains fold to the left.
type SetOperation struct {
	Kind  SetOpKind `json:"kind"`
	Left  *Query    `json:"left"`
	Right *Query    `json:"right"`
}

// Query is the canonical, schema-resolved form of a SELECT statement.
// When SetOp is set the other clauses are empty and the operands live in
// SetOp. A Query is never modified after the canonicalizer returns it.
type Query struct {
	Distinct bool           `json:"distinct,omitempty"`
	Select   []ValueExpr    `json:"select,omitempty"`
	From     FromClause     `json:"from"`
	Where    *ConditionList `json:"where,omitempty"`
	GroupBy  []ColumnRef    `json:"group_by,omitempty"`
	Having   *ConditionList `json:"having,omitempty"`
	OrderBy  []OrderItem    `json:"order_by,omitempty"`
	Limit    *int           `json:"limit,omitempty"`
	SetOp    *SetOperation  `json:"set_op,omitempty"`
}

// ColumnRefs collects the column references of a term, left to right,
// without descending into subqueries.
func ColumnRefs(t Term) []ColumnRef {
	switch v := t.(type) {
	case ColumnRef:
		return []ColumnRef{v}
	case Identity:
		return ColumnRefs(v.Operand)
	case Arithmetic:
		return append(ColumnRefs(v.Left), ColumnRefs(v.Right)...)
	}
	return nil
}
