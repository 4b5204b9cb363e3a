package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrCanceled is returned when a job stops because cancellation was requested.
	ErrCanceled = errors.New("job canceled")

	// ErrEmptyFile is returned when a CSV file has no header row.
	ErrEmptyFile = errors.New("csv file is empty")

	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// ParseError reports a CSV file that cannot be opened or parsed. It is fatal to the job.
type ParseError struct {
	Path string
	// Line is the 1-based line of the failure, or 0 when the file could not be read at all.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StoreError reports a batch that could not be committed. Earlier batches stay committed.
type StoreError struct {
	// Batch is the 1-based index of the failed batch.
	Batch int
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store batch %d: %v", e.Batch, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
