// Package datasets loads gold/predicted SQL pairs from JSON, JSON Lines and
// CSV files.
package datasets

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/jsonutil"
	"github.com/ekaya-inc/sqleval/pkg/models"
)

// Format is a sample file encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// fieldAliases maps accepted column/key names to Sample fields. Spider-style
// exports call the gold query "query"; generation runs often use "pred".
var fieldAliases = map[string]string{
	"id":            "id",
	"question_id":   "id",
	"db_id":         "db_id",
	"question":      "question",
	"gold":          "gold",
	"query":         "gold",
	"gold_sql":      "gold",
	"predicted":     "predicted",
	"pred":          "predicted",
	"predicted_sql": "predicted",
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: unrecognized dataset extension %q", apperrors.ErrInvalidDataset, filepath.Ext(path))
}

// Load reads every sample in the file at path.
func Load(path string) ([]models.Sample, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	samples, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// Parse decodes samples of the given format. Samples without an id are
// numbered from 1 in file order. Every sample must name a database and a gold
// query; an empty prediction is kept and fails later as a malformed query.
func Parse(r io.Reader, format Format) ([]models.Sample, error) {
	var (
		samples []models.Sample
		err     error
	)
	switch format {
	case FormatJSON:
		samples, err = parseJSON(r)
	case FormatJSONL:
		samples, err = parseJSONL(r)
	case FormatCSV:
		samples, err = parseCSV(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", apperrors.ErrInvalidDataset, format)
	}
	if err != nil {
		return nil, err
	}

	for i := range samples {
		s := &samples[i]
		if s.ID == "" {
			s.ID = strconv.Itoa(i + 1)
		}
		if s.DBID == "" {
			return nil, fmt.Errorf("%w: sample %s has no db_id", apperrors.ErrInvalidDataset, s.ID)
		}
		if strings.TrimSpace(s.Gold) == "" {
			return nil, fmt.Errorf("%w: sample %s has no gold query", apperrors.ErrInvalidDataset, s.ID)
		}
	}
	return samples, nil
}

func parseJSON(r io.Reader) ([]models.Sample, error) {
	var records []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDataset, err)
	}
	samples := make([]models.Sample, 0, len(records))
	for i, rec := range records {
		s, err := sampleFromJSON(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", apperrors.ErrInvalidDataset, i+1, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseJSONL(r io.Reader) ([]models.Sample, error) {
	var samples []models.Sample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", apperrors.ErrInvalidDataset, line, err)
		}
		s, err := sampleFromJSON(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", apperrors.ErrInvalidDataset, line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDataset, err)
	}
	return samples, nil
}

func sampleFromJSON(rec map[string]json.RawMessage) (models.Sample, error) {
	var s models.Sample
	for key, raw := range rec {
		field, ok := fieldAliases[strings.ToLower(key)]
		if !ok {
			continue
		}
		value, err := jsonutil.FlexibleString(raw)
		if err != nil {
			return s, fmt.Errorf("field %q: %w", key, err)
		}
		setField(&s, field, value)
	}
	return s, nil
}

func parseCSV(r io.Reader) ([]models.Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV", apperrors.ErrInvalidDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDataset, err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool)
	for i, name := range header {
		field := fieldAliases[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))]
		columns[i] = field
		if field != "" {
			seen[field] = true
		}
	}
	for _, required := range []string{"db_id", "gold", "predicted"} {
		if !seen[required] {
			return nil, fmt.Errorf("%w: CSV header has no %s column", apperrors.ErrInvalidDataset, required)
		}
	}

	var samples []models.Sample
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDataset, err)
		}
		var s models.Sample
		for i, value := range record {
			if i < len(columns) && columns[i] != "" {
				setField(&s, columns[i], value)
			}
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func setField(s *models.Sample, field, value string) {
	switch field {
	case "id":
		s.ID = strings.TrimSpace(value)
	case "db_id":
		s.DBID = strings.TrimSpace(value)
	case "question":
		s.Question = value
	case "gold":
		s.Gold = value
	case "predicted":
		s.Predicted = value
	}
}
