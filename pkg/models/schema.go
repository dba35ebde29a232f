package models

// DatabaseSchema describes the tables of one database. Table and column
// positions define the ids used in canonical queries, so the order of
// Tables and of each table's Columns must be stable.
type DatabaseSchema struct {
	DBID        string        `json:"db_id" yaml:"db_id"`
	Tables      []SchemaTable `json:"tables" yaml:"tables"`
	ForeignKeys []ForeignKey  `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

// SchemaTable is a table and its columns in declaration order.
type SchemaTable struct {
	Name       string         `json:"name" yaml:"name"`
	Columns    []SchemaColumn `json:"columns" yaml:"columns"`
	PrimaryKey []string       `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
}

// SchemaColumn is a table column.
type SchemaColumn struct {
	Name     string `json:"name" yaml:"name"`
	DataType string `json:"data_type,omitempty" yaml:"data_type,omitempty"`
}

// ForeignKey links a column to the column it references.
type ForeignKey struct {
	Table            string `json:"table" yaml:"table"`
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumn string `json:"referenced_column" yaml:"referenced_column"`
}

// ColumnCount returns the number of columns across all tables.
func (s *DatabaseSchema) ColumnCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Columns)
	}
	return n
}
