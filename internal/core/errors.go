package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Batch-level failures. Both abort the batch before any row is processed.
var (
	ErrMalformedInput = errors.New("malformed input: a header line and at least one data row are required")
	ErrMissingColumns = errors.New("missing required column")
)

// ErrNotFound is returned by stores when an ID does not exist.
var ErrNotFound = errors.New("record not found")

// ErrEmptyFile is returned when an upload carries no bytes.
var ErrEmptyFile = errors.New("empty file")

// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

// MissingColumnsError lists every required column absent from a header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns.Error(), strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingColumns
}

// StoreError wraps a failure reported by the external store for a single record.
type StoreError struct {
	Op  string // "find", "upsert", "find_student", "set_published", "list"
	Key Key    // zero when the call was made by ID
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	var target string
	switch {
	case e.ID != "":
		target = e.ID
	case e.Key.CourseCode != "":
		target = e.Key.String()
	case e.Key.RollNumber != "":
		target = e.Key.RollNumber
	default:
		target = "-"
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, target, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is a timeout of this single call.
func (e *StoreError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ErrValidationFailed marks a batch rejected because rows failed validation.
// The row errors themselves are carried in the IngestReport.
var ErrValidationFailed = errors.New("validation failed")

// ErrNoRollNumbers is returned when a publish request names no students.
var ErrNoRollNumbers = errors.New("no roll numbers supplied")

// ErrNoResults is returned when a student has no published results.
var ErrNoResults = errors.New("no results found")
