package schemas

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

// spiderRecord is one database of a Spider schema file. Two layouts are
// accepted: the tables.json layout (index-based) and the flattened "schema
// rows" export, where each database is three pipe-separated strings.
type spiderRecord struct {
	DBID string `json:"db_id"`

	TableNamesOriginal  []string        `json:"table_names_original"`
	TableNames          []string        `json:"table_names"`
	ColumnNamesOriginal []spiderColumn  `json:"column_names_original"`
	ColumnNames         []spiderColumn  `json:"column_names"`
	ColumnTypes         []string        `json:"column_types"`
	PrimaryKeys         []columnIndexes `json:"primary_keys"`
	ForeignKeys         [][]int         `json:"foreign_keys"`

	SchemaValues    string `json:"Schema (values (type))"`
	PrimaryKeysText string `json:"Primary Keys"`
	ForeignKeysText string `json:"Foreign Keys"`
}

// spiderColumn decodes a [table_index, column_name] pair. The "*" column
// has table index -1.
type spiderColumn struct {
	Table int
	Name  string
}

func (c *spiderColumn) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("column entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Table); err != nil {
		return fmt.Errorf("column table index: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Name); err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	return nil
}

// columnIndexes decodes a primary key entry, which is a single column index
// or a list of them for composite keys.
type columnIndexes []int

func (c *columnIndexes) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*c = columnIndexes{single}
		return nil
	}
	var many []int
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("primary key must be an index or a list of indexes: %w", err)
	}
	*c = many
	return nil
}

// LoadSpider reads a Spider schema file from path.
func LoadSpider(path string) ([]*models.DatabaseSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()

	schemas, err := ParseSpider(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

// ParseSpider decodes a Spider schema file: a JSON array with one record per
// database.
func ParseSpider(r io.Reader) ([]*models.DatabaseSchema, error) {
	var records []spiderRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSchema, err)
	}

	out := make([]*models.DatabaseSchema, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.DBID == "" {
			return nil, fmt.Errorf("%w: record %d has no db_id", apperrors.ErrInvalidSchema, i)
		}

		var (
			schema *models.DatabaseSchema
			err    error
		)
		if rec.SchemaValues != "" {
			schema, err = rec.fromSchemaRows()
		} else {
			schema, err = rec.fromTables()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: db %q: %v", apperrors.ErrInvalidSchema, rec.DBID, err)
		}
		out = append(out, schema)
	}
	return out, nil
}

func (rec *spiderRecord) fromTables() (*models.DatabaseSchema, error) {
	names := rec.TableNamesOriginal
	if len(names) == 0 {
		names = rec.TableNames
	}
	columns := rec.ColumnNamesOriginal
	if len(columns) == 0 {
		columns = rec.ColumnNames
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no tables")
	}

	schema := &models.DatabaseSchema{DBID: rec.DBID, Tables: make([]models.SchemaTable, len(names))}
	for i, name := range names {
		schema.Tables[i].Name = name
	}

	// owner[i] is the table index of global column i, or -1 for "*".
	owner := make([]int, len(columns))
	for i, c := range columns {
		owner[i] = c.Table
		if c.Table < 0 {
			continue
		}
		if c.Table >= len(names) {
			return nil, fmt.Errorf("column %q refers to table %d of %d", c.Name, c.Table, len(names))
		}
		col := models.SchemaColumn{Name: c.Name}
		if i < len(rec.ColumnTypes) {
			col.DataType = rec.ColumnTypes[i]
		}
		schema.Tables[c.Table].Columns = append(schema.Tables[c.Table].Columns, col)
	}

	column := func(idx int) (int, string, error) {
		if idx < 0 || idx >= len(columns) || owner[idx] < 0 {
			return 0, "", fmt.Errorf("invalid column index %d", idx)
		}
		return owner[idx], columns[idx].Name, nil
	}

	for _, key := range rec.PrimaryKeys {
		for _, idx := range key {
			table, name, err := column(idx)
			if err != nil {
				return nil, fmt.Errorf("primary key: %w", err)
			}
			schema.Tables[table].PrimaryKey = append(schema.Tables[table].PrimaryKey, name)
		}
	}

	for _, pair := range rec.ForeignKeys {
		if len(pair) != 2 {
			return nil, fmt.Errorf("foreign key has %d columns, want 2", len(pair))
		}
		fromTable, fromCol, err := column(pair[0])
		if err != nil {
			return nil, fmt.Errorf("foreign key: %w", err)
		}
		toTable, toCol, err := column(pair[1])
		if err != nil {
			return nil, fmt.Errorf("foreign key: %w", err)
		}
		schema.ForeignKeys = append(schema.ForeignKeys, models.ForeignKey{
			Table:            names[fromTable],
			Column:           fromCol,
			ReferencedTable:  names[toTable],
			ReferencedColumn: toCol,
		})
	}
	return schema, nil
}

// fromSchemaRows parses the flattened export:
//
//	Schema:       "stadium : stadium_id (number) , name (text) | singer : ..."
//	Primary Keys: "stadium : stadium_id | singer : singer_id"
//	Foreign Keys: "concert : stadium_id equals stadium : stadium_id | ..."
func (rec *spiderRecord) fromSchemaRows() (*models.DatabaseSchema, error) {
	schema := &models.DatabaseSchema{DBID: rec.DBID}
	tableIndex := make(map[string]int)

	for _, part := range splitList(rec.SchemaValues, "|") {
		name, attrs, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("table entry %q has no ':'", part)
		}
		table := models.SchemaTable{Name: strings.TrimSpace(name)}
		for _, attr := range splitList(attrs, ",") {
			table.Columns = append(table.Columns, nameAndType(attr))
		}
		tableIndex[strings.ToLower(table.Name)] = len(schema.Tables)
		schema.Tables = append(schema.Tables, table)
	}
	if len(schema.Tables) == 0 {
		return nil, fmt.Errorf("no tables")
	}

	for _, part := range splitList(rec.PrimaryKeysText, "|") {
		table, column, err := tableColumn(part)
		if err != nil {
			return nil, fmt.Errorf("primary key: %w", err)
		}
		idx, ok := tableIndex[strings.ToLower(table)]
		if !ok {
			return nil, fmt.Errorf("primary key on unknown table %q", table)
		}
		schema.Tables[idx].PrimaryKey = append(schema.Tables[idx].PrimaryKey, column)
	}

	for _, part := range splitList(rec.ForeignKeysText, "|") {
		lhs, rhs, ok := strings.Cut(part, "equals")
		if !ok {
			return nil, fmt.Errorf("foreign key %q has no 'equals'", part)
		}
		fromTable, fromCol, err := tableColumn(lhs)
		if err != nil {
			return nil, fmt.Errorf("foreign key: %w", err)
		}
		toTable, toCol, err := tableColumn(rhs)
		if err != nil {
			return nil, fmt.Errorf("foreign key: %w", err)
		}
		schema.ForeignKeys = append(schema.ForeignKeys, models.ForeignKey{
			Table:            fromTable,
			Column:           fromCol,
			ReferencedTable:  toTable,
			ReferencedColumn: toCol,
		})
	}
	return schema, nil
}

// splitList splits s on sep and drops blank items.
func splitList(s, sep string) []string {
	var out []string
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// nameAndType parses "name (type)"; the type is optional.
func nameAndType(attr string) models.SchemaColumn {
	lp, rp := strings.Index(attr, "("), strings.LastIndex(attr, ")")
	if lp < 0 || rp < lp {
		return models.SchemaColumn{Name: strings.TrimSpace(attr)}
	}
	return models.SchemaColumn{
		Name:     strings.TrimSpace(attr[:lp]),
		DataType: strings.TrimSpace(attr[lp+1 : rp]),
	}
}

func tableColumn(s string) (string, string, error) {
	table, column, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("%q is not table:column", strings.TrimSpace(s))
	}
	return strings.TrimSpace(table), strings.TrimSpace(column), nil
}
