package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means an input could not be opened or read
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch means an input lacks a header or a required column
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// SourceError identifies which input failed and why. It matches
// ErrSourceUnavailable or ErrSchemaMismatch through errors.Is, as well as
// the underlying cause.
type SourceError struct {
	Source string // "listings" or "demographics"
	Path   string
	Kind   error
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s source %q: %v", e.Source, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s source %q: %v: %v", e.Source, e.Path, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unavailable(source, path string, err error) error {
	return &SourceError{Source: source, Path: path, Kind: ErrSourceUnavailable, Err: err}
}

func mismatch(source, path string, format string, args ...interface{}) error {
	return &SourceError{Source: source, Path: path, Kind: ErrSchemaMismatch, Err: fmt.Errorf(format, args...)}
}
