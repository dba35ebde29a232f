package schemas

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

const spiderTablesJSON = `[
  {
    "db_id": "concert_singer",
    "table_names": ["stadium", "singer", "concert"],
    "table_names_original": ["stadium", "singer", "concert"],
    "column_names": [[-1, "*"], [0, "stadium id"], [0, "name"], [1, "singer id"], [1, "name"], [2, "concert id"], [2, "stadium id"]],
    "column_names_original": [[-1, "*"], [0, "Stadium_ID"], [0, "Name"], [1, "Singer_ID"], [1, "Name"], [2, "concert_ID"], [2, "Stadium_ID"]],
    "column_types": ["text", "number", "text", "number", "text", "number", "text"],
    "primary_keys": [1, 3, [5, 6]],
    "foreign_keys": [[6, 1]]
  }
]`

func TestParseSpider_Tables(t *testing.T) {
	schemas, err := ParseSpider(strings.NewReader(spiderTablesJSON))
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "concert_singer", s.DBID)
	require.Len(t, s.Tables, 3)
	assert.Equal(t, "stadium", s.Tables[0].Name)
	assert.Equal(t, []models.SchemaColumn{
		{Name: "Stadium_ID", DataType: "number"},
		{Name: "Name", DataType: "text"},
	}, s.Tables[0].Columns)
	assert.Equal(t, 6, s.ColumnCount())

	assert.Equal(t, []string{"Stadium_ID"}, s.Tables[0].PrimaryKey)
	assert.Equal(t, []string{"concert_ID", "Stadium_ID"}, s.Tables[2].PrimaryKey)
	assert.Equal(t, []models.ForeignKey{{
		Table: "concert", Column: "Stadium_ID", ReferencedTable: "stadium", ReferencedColumn: "Stadium_ID",
	}}, s.ForeignKeys)
}

func TestParseSpider_SchemaRows(t *testing.T) {
	const rows = `[{
		"db_id": "perpetrator",
		"Schema (values (type))": "perpetrator : perpetrator_id (number) , people_id (number) , location (text) | people : people_id (number) , name",
		"Primary Keys": "perpetrator : perpetrator_id | people : people_id",
		"Foreign Keys": "perpetrator : people_id equals people : people_id"
	}]`

	schemas, err := ParseSpider(strings.NewReader(rows))
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	require.Len(t, s.Tables, 2)
	assert.Equal(t, "perpetrator", s.Tables[0].Name)
	assert.Equal(t, models.SchemaColumn{Name: "location", DataType: "text"}, s.Tables[0].Columns[2])
	assert.Equal(t, models.SchemaColumn{Name: "name"}, s.Tables[1].Columns[1])
	assert.Equal(t, []string{"people_id"}, s.Tables[1].PrimaryKey)
	require.Len(t, s.ForeignKeys, 1)
	assert.Equal(t, "people", s.ForeignKeys[0].ReferencedTable)
}

func TestParseSpider_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"object instead of array", `{"db_id": "x"}`},
		{"missing db id", `[{"table_names_original": ["t"], "column_names_original": [[0, "a"]]}]`},
		{"no tables", `[{"db_id": "x"}]`},
		{"column of unknown table", `[{"db_id": "x", "table_names_original": ["t"], "column_names_original": [[3, "a"]]}]`},
		{"bad column pair", `[{"db_id": "x", "table_names_original": ["t"], "column_names_original": [[0]]}]`},
		{"primary key on star", `[{"db_id": "x", "table_names_original": ["t"], "column_names_original": [[-1, "*"], [0, "a"]], "primary_keys": [0]}]`},
		{"short foreign key", `[{"db_id": "x", "table_names_original": ["t"], "column_names_original": [[0, "a"]], "foreign_keys": [[0]]}]`},
		{"row without colon", `[{"db_id": "x", "Schema (values (type))": "t a, b"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpider(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidSchema)
		})
	}
}

func TestLoadSpider_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")
	require.NoError(t, os.WriteFile(path, []byte(spiderTablesJSON), 0o644))

	schemas, err := Load("spider", path)
	require.NoError(t, err)
	assert.Len(t, schemas, 1)

	_, err = LoadSpider(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
