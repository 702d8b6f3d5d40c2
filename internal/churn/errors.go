package churn

import "errors"

// Every pipeline failure wraps exactly one of these; callers branch with errors.Is.
var (
	ErrDataSourceNotFound = errors.New("data source not found")
	ErrDataSourceCorrupt  = errors.New("data source corrupt")
	ErrSchemaViolation    = errors.New("schema violation")
	ErrPersistence        = errors.New("persistence error")
)
