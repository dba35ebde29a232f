package sql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
)

func TestValidateAndNormalize_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no semicolon", "SELECT name FROM singer", "SELECT name FROM singer"},
		{"trailing semicolon", "SELECT name FROM singer;", "SELECT name FROM singer"},
		{"trailing semicolon and whitespace", "SELECT name FROM singer ;  \n", "SELECT name FROM singer"},
		{"repeated trailing semicolons", "SELECT 1;;", "SELECT 1"},
		{"semicolon inside single quotes", "SELECT * FROM t WHERE a = 'x;y'", "SELECT * FROM t WHERE a = 'x;y'"},
		{"semicolon inside double quotes", `SELECT * FROM t WHERE a = "x;y"`, `SELECT * FROM t WHERE a = "x;y"`},
		{"semicolon inside backticks", "SELECT `a;b` FROM t", "SELECT `a;b` FROM t"},
		{"doubled quote escape", "SELECT * FROM t WHERE a = 'O''Brien;'", "SELECT * FROM t WHERE a = 'O''Brien;'"},
		{"semicolon in line comment", "SELECT a -- pick a; b\nFROM t", "SELECT a -- pick a; b\nFROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			require.NoError(t, result.Error)
			assert.Equal(t, tt.expected, result.NormalizedSQL)
		})
	}
}

func TestValidateAndNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptyQuery},
		{"whitespace", "  \n\t", ErrEmptyQuery},
		{"only semicolons", " ; ;", ErrEmptyQuery},
		{"two statements", "SELECT 1; SELECT 2", ErrMultipleStatements},
		{"two statements with trailing", "SELECT 1; SELECT 2;", ErrMultipleStatements},
		{"string then statement", "SELECT 'a;b'; DROP TABLE t", ErrMultipleStatements},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			require.Error(t, result.Error)
			assert.ErrorIs(t, result.Error, tt.want)
			assert.True(t, errors.Is(result.Error, apperrors.ErrMalformedQuery))
			assert.Empty(t, result.NormalizedSQL)
		})
	}
}

func TestHasSemicolonOutsideStrings(t *testing.T) {
	assert.False(t, hasSemicolonOutsideStrings(`SELECT 'test\';more'`))
	assert.False(t, hasSemicolonOutsideStrings("SELECT 'it''s;here'"))
	assert.True(t, hasSemicolonOutsideStrings("SELECT 'a;b'; SELECT 1"))
	assert.True(t, hasSemicolonOutsideStrings("SELECT a -- c\n; SELECT 1"))
}
