package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

// InjectionFinding is a string literal that libinjection classifies as an
// SQL injection payload.
type InjectionFinding struct {
	Literal     string `json:"literal"`
	Fingerprint string `json:"fingerprint"`
}

// CheckLiteralForInjection runs libinjection over one string literal.
// Returns nil if the literal looks clean.
func CheckLiteralForInjection(value string) *InjectionFinding {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{Literal: value, Fingerprint: string(fingerprint)}
}

// AuditLiterals checks every string literal of q, including those in
// subqueries and set-operation operands. Generated SQL occasionally embeds
// a second statement or a tautology inside a string; these findings are
// reported alongside the scores and do not affect them.
func AuditLiterals(q *models.Query) []InjectionFinding {
	var findings []InjectionFinding
	walkLiterals(q, func(lit models.Literal) {
		if lit.Kind != models.LiteralString {
			return
		}
		if f := CheckLiteralForInjection(lit.Text); f != nil {
			findings = append(findings, *f)
		}
	})
	return findings
}

func walkLiterals(q *models.Query, visit func(models.Literal)) {
	if q == nil {
		return
	}
	if q.SetOp != nil {
		walkLiterals(q.SetOp.Left, visit)
		walkLiterals(q.SetOp.Right, visit)
		return
	}
	for _, e := range q.Select {
		walkTermLiterals(e, visit)
	}
	for _, t := range q.From.Tables {
		walkLiterals(t.Subquery, visit)
	}
	for _, conds := range []*models.ConditionList{q.From.JoinConds, q.Where, q.Having} {
		if conds == nil {
			continue
		}
		for _, atom := range conds.Atoms {
			walkTermLiterals(atom.Left, visit)
			walkTermLiterals(atom.Right1, visit)
			walkTermLiterals(atom.Right2, visit)
		}
	}
	for _, item := range q.OrderBy {
		walkTermLiterals(item.Expr, visit)
	}
}

func walkTermLiterals(t models.Term, visit func(models.Literal)) {
	switch v := t.(type) {
	case models.Literal:
		visit(v)
	case models.LiteralList:
		for _, lit := range v {
			visit(lit)
		}
	case models.Subquery:
		walkLiterals(v.Query, visit)
	case models.Identity:
		walkTermLiterals(v.Operand, visit)
	case models.Arithmetic:
		walkTermLiterals(v.Left, visit)
		walkTermLiterals(v.Right, visit)
	}
}
