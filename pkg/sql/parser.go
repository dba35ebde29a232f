package sql

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
)

// Parsers are not safe for concurrent use; each call borrows one.
var parserPool = sync.Pool{
	New: func() any { return parser.New() },
}

// Parse validates sqlQuery and parses it into a SELECT or compound SELECT
// statement.
func Parse(sqlQuery string) (ast.ResultSetNode, error) {
	validation := ValidateAndNormalize(sqlQuery)
	if validation.Error != nil {
		return nil, validation.Error
	}

	p := parserPool.Get().(*parser.Parser)
	defer parserPool.Put(p)

	stmts, _, err := p.Parse(validation.NormalizedSQL, "", "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMalformedQuery, firstLine(err.Error()))
	}
	if len(stmts) != 1 {
		return nil, ErrMultipleStatements
	}

	switch stmt := stmts[0].(type) {
	case *ast.SelectStmt:
		return stmt, nil
	case *ast.SetOprStmt:
		return stmt, nil
	default:
		return nil, fmt.Errorf("%w: %s statement", apperrors.ErrUnsupportedConstruct, statementName(stmt))
	}
}

// statementName turns *ast.InsertStmt into "insert".
func statementName(node ast.Node) string {
	name := fmt.Sprintf("%T", node)
	name = strings.TrimPrefix(name, "*ast.")
	name = strings.TrimSuffix(name, "Stmt")
	return strings.ToLower(name)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
