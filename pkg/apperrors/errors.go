package apperrors

import (
	"context"
	"errors"
)

var (
	ErrMalformedQuery       = errors.New("malformed query")
	ErrSchemaResolution     = errors.New("schema resolution failed")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrUnknownDatabase      = errors.New("unknown database")
	ErrInvalidDataset       = errors.New("invalid dataset")
	ErrInvalidSchema        = errors.New("invalid schema")
)

// Kind returns a stable label for err, used in reports and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedQuery):
		return "malformed_query"
	case errors.Is(err, ErrSchemaResolution):
		return "schema_resolution"
	case errors.Is(err, ErrUnsupportedConstruct):
		return "unsupported_construct"
	case errors.Is(err, ErrUnknownDatabase):
		return "unknown_database"
	case errors.Is(err, ErrInvalidDataset):
		return "invalid_dataset"
	case errors.Is(err, ErrInvalidSchema):
		return "invalid_schema"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "internal"
}
