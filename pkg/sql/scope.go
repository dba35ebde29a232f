package sql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

// clause identifies the part of a SELECT being canonicalized.
type clause int

const (
	clauseSelect clause = iota
	clauseFrom
	clauseWhere
	clauseGroupBy
	clauseHaving
	clauseOrderBy
)

// allowsSelectAlias reports whether names in this clause may refer to
// SELECT-list aliases. SQLite accepts them in WHERE as well.
func (c clause) allowsSelectAlias() bool {
	switch c {
	case clauseWhere, clauseGroupBy, clauseHaving, clauseOrderBy:
		return true
	}
	return false
}

// source is one FROM item visible in a scope.
type source struct {
	name    string // lower-case alias, or table name when unaliased
	tableID int
	derived bool
	outputs map[string]int // derived tables only
}

// scope is the set of names visible to one query level. Scopes chain to
// the enclosing query so correlated subqueries resolve outer columns.
type scope struct {
	resolver      *SchemaResolver
	parent        *scope
	sources       []source
	byName        map[string]int
	selectAliases map[string]models.ValueExpr
}

func newScope(resolver *SchemaResolver, parent *scope) *scope {
	return &scope{
		resolver:      resolver,
		parent:        parent,
		byName:        make(map[string]int),
		selectAliases: make(map[string]models.ValueExpr),
	}
}

// resolved is the outcome of a column lookup: a column id or, for a
// SELECT-list alias, the aliased expression.
type resolved struct {
	columnID int
	alias    models.ValueExpr
}

// addTable registers a schema table under alias (or its own name).
func (s *scope) addTable(name, alias string) (int, error) {
	tableID, err := s.resolver.ResolveTable(name)
	if err != nil {
		return 0, err
	}
	key := strings.ToLower(alias)
	if key == "" {
		key = strings.ToLower(name)
	}
	s.add(source{name: key, tableID: tableID})
	return tableID, nil
}

// addDerived registers a derived table and its output columns.
func (s *scope) addDerived(alias string, outputs map[string]int) {
	s.add(source{name: strings.ToLower(alias), derived: true, outputs: outputs})
}

func (s *scope) add(src source) {
	if src.name != "" {
		if _, exists := s.byName[src.name]; !exists {
			s.byName[src.name] = len(s.sources)
		}
	}
	s.sources = append(s.sources, src)
}

func (s *scope) addSelectAlias(alias string, expr models.ValueExpr) {
	key := strings.ToLower(alias)
	if _, exists := s.selectAliases[key]; !exists {
		s.selectAliases[key] = expr
	}
}

// resolveColumn resolves a possibly qualified column name.
func (s *scope) resolveColumn(qualifier, name string, cl clause) (resolved, error) {
	if name == "*" {
		return resolved{columnID: models.StarColumnID}, nil
	}
	if qualifier != "" {
		return s.resolveQualified(strings.ToLower(qualifier), name)
	}

	for sc := s; sc != nil; sc = sc.parent {
		if id, ok := sc.lookup(name); ok {
			return resolved{columnID: id}, nil
		}
		if sc == s && cl.allowsSelectAlias() {
			if expr, ok := s.selectAliases[strings.ToLower(name)]; ok {
				return resolved{alias: expr}, nil
			}
		}
	}
	return resolved{}, s.unknownColumn(name)
}

func (s *scope) resolveQualified(qualifier, name string) (resolved, error) {
	for sc := s; sc != nil; sc = sc.parent {
		idx, ok := sc.byName[qualifier]
		if !ok {
			continue
		}
		src := sc.sources[idx]
		if src.derived {
			if id, ok := src.outputs[strings.ToLower(name)]; ok {
				return resolved{columnID: id}, nil
			}
			return resolved{}, fmt.Errorf("%w: unknown column %q in derived table %q",
				apperrors.ErrSchemaResolution, name, qualifier)
		}
		id, err := s.resolver.ResolveColumn(src.tableID, name)
		if err != nil {
			return resolved{}, err
		}
		return resolved{columnID: id}, nil
	}

	// Any schema table name qualifies, even when not in FROM.
	if tableID, ok := s.resolver.lookupTable(qualifier); ok {
		id, err := s.resolver.ResolveColumn(tableID, name)
		if err != nil {
			return resolved{}, err
		}
		return resolved{columnID: id}, nil
	}
	return resolved{}, fmt.Errorf("%w: unknown table or alias %q", apperrors.ErrSchemaResolution, qualifier)
}

// knows reports whether qualifier names a visible source or a schema table.
func (s *scope) knows(qualifier string) bool {
	key := strings.ToLower(qualifier)
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.byName[key]; ok {
			return true
		}
	}
	_, ok := s.resolver.lookupTable(key)
	return ok
}

// lookup finds an unqualified column in this scope only. The first source
// in declaration order wins.
func (s *scope) lookup(name string) (int, bool) {
	lower := strings.ToLower(name)
	for _, src := range s.sources {
		if src.derived {
			if id, ok := src.outputs[lower]; ok {
				return id, true
			}
			continue
		}
		if id, ok := s.resolver.lookupColumn(src.tableID, lower); ok {
			return id, true
		}
	}
	return 0, false
}

// columns returns every column visible through this scope's sources, used
// to expand "*" in a derived table.
func (s *scope) columns() map[string]int {
	out := make(map[string]int)
	for _, src := range s.sources {
		cols := src.outputs
		if !src.derived {
			cols = s.resolver.tableColumns(src.tableID)
		}
		for name, id := range cols {
			if _, exists := out[name]; !exists {
				out[name] = id
			}
		}
	}
	return out
}

func (s *scope) unknownColumn(name string) error {
	for sc := s; sc != nil; sc = sc.parent {
		for _, src := range sc.sources {
			if src.derived {
				continue
			}
			if suggestion, ok := s.resolver.suggest(name, s.resolver.tableColumns(src.tableID)); ok {
				return fmt.Errorf("%w: unknown column %q (did you mean %q?)", apperrors.ErrSchemaResolution, name, suggestion)
			}
		}
	}
	return fmt.Errorf("%w: unknown column %q", apperrors.ErrSchemaResolution, name)
}
