package schemas

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

// yamlFile is the layout of a YAML schema file:
//
//	databases:
//	  - db_id: concert_singer
//	    tables:
//	      - name: stadium
//	        columns:
//	          - name: stadium_id
//	            data_type: number
//	        primary_key: [stadium_id]
//	    foreign_keys:
//	      - {table: concert, column: stadium_id, referenced_table: stadium, referenced_column: stadium_id}
type yamlFile struct {
	Databases []*models.DatabaseSchema `yaml:"databases"`
}

// LoadYAML reads a YAML schema file from path.
func LoadYAML(path string) ([]*models.DatabaseSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()

	schemas, err := ParseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

// ParseYAML decodes a YAML schema file. Unknown keys are rejected so typos in
// hand-written files surface early.
func ParseYAML(r io.Reader) ([]*models.DatabaseSchema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file yamlFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSchema, err)
	}
	if len(file.Databases) == 0 {
		return nil, fmt.Errorf("%w: no databases", apperrors.ErrInvalidSchema)
	}
	for i, db := range file.Databases {
		if db == nil || db.DBID == "" {
			return nil, fmt.Errorf("%w: database %d has no db_id", apperrors.ErrInvalidSchema, i)
		}
		if len(db.Tables) == 0 {
			return nil, fmt.Errorf("%w: db %q has no tables", apperrors.ErrInvalidSchema, db.DBID)
		}
	}
	return file.Databases, nil
}

// Load reads schemas from a file of the given source kind ("spider" or "yaml").
func Load(source, path string) ([]*models.DatabaseSchema, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no schema path for source %q", apperrors.ErrInvalidSchema, source)
	}
	switch source {
	case "spider":
		return LoadSpider(path)
	case "yaml":
		return LoadYAML(path)
	}
	return nil, fmt.Errorf("%w: schema source %q is not file based", apperrors.ErrInvalidSchema, source)
}
