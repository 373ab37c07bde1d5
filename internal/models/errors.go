package models

import "errors"

var (
	// ErrDataUnavailable signals that training input is missing or unreadable.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrModelUnavailable signals that the serving path has no usable model.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrSchemaMismatch signals that a vector or artifact does not carry the expected features.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Error kinds reported to callers in structured results.
const (
	KindDataUnavailable  = "DataUnavailable"
	KindModelUnavailable = "ModelUnavailable"
	KindSchemaMismatch   = "SchemaMismatch"
	KindInternal         = "Internal"
)

// ErrorKind maps err onto the error taxonomy.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, ErrSchemaMismatch):
		return KindSchemaMismatch
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	default:
		return KindInternal
	}
}
