// Package sql turns SQL text into canonical, schema-resolved queries.
package sql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
)

var (
	// ErrEmptyQuery indicates the query text is blank.
	ErrEmptyQuery = fmt.Errorf("%w: empty query", apperrors.ErrMalformedQuery)
	// ErrMultipleStatements indicates the query contains more than one statement.
	ErrMultipleStatements = fmt.Errorf("%w: multiple SQL statements; only single statements can be scored", apperrors.ErrMalformedQuery)
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize trims whitespace and a trailing semicolon, then
// rejects empty input and input holding several statements.
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{Error: ErrEmptyQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)
	if normalized == "" {
		return ValidationResult{Error: ErrEmptyQuery}
	}

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// hasSemicolonOutsideStrings returns true if the SQL contains a semicolon
// outside of quoted strings, quoted identifiers and comments.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBacktick
		stateLineComment
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '`':
				state = stateBacktick
			case '-':
				if prevChar == '-' {
					state = stateLineComment
				}
			}
		case stateSingleQuote:
			// '' re-enters the string on the next quote, so doubled quotes need no special case
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		case stateBacktick:
			if char == '`' {
				state = stateNormal
			}
		case stateLineComment:
			if char == '\n' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes trailing semicolons and surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	for strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimRight(strings.TrimSuffix(sqlQuery, ";"), " \t\n\r")
	}
	return sqlQuery
}
