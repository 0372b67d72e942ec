package core

// validation.go checks normalized rows against the result domain rules.
//
// Every rule runs for every row: a failing roll number does not stop the marks
// check on the same row, and a failing row does not stop later rows. The
// output is the full ordered error list (by row, then by rule order below);
// an empty list means the batch is clean.
//
// Roll numbers and course codes deliberately share one identifier pattern.

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Validation failure reasons, stable for clients that group errors.
const (
	ReasonInvalidFormat = "invalid format"
	ReasonOutOfRange    = "out of range"
	ReasonTooShort      = "too short"
	ReasonInvalidValue  = "invalid value"
)

// Bounds for the marks column, inclusive.
const (
	MinMarks = 0
	MaxMarks = 100
)

// MinNameLength is the minimum trimmed length of a student name.
const MinNameLength = 2

// identifierPattern matches roll numbers and course codes: DDLLLDDDL.
var identifierPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{3}[0-9]{3}[A-Z]$`)

// ValidationError represents a single failed rule on one row.
type ValidationError struct {
	Row     int    `json:"row"`     // 1-based, header is row 1
	Field   string `json:"field"`   // Column name
	Value   string `json:"value"`   // The offending raw input
	Reason  string `json:"reason"`  // One of the Reason* constants
	Message string `json:"message"` // Human-readable error message
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// IsIdentifier reports whether s has the DDLLLDDDL identifier shape.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ValidateRow applies every rule to one row and returns all failures.
func ValidateRow(n NormalizedRow) []ValidationError {
	var errs []ValidationError
	fail := func(field, reason, msg string) {
		errs = append(errs, ValidationError{
			Row:     n.Row,
			Field:   field,
			Value:   n.Raw.Get(field),
			Reason:  reason,
			Message: msg,
		})
	}

	if !IsIdentifier(n.RollNumber) {
		fail(ColRollNumber, ReasonInvalidFormat,
			fmt.Sprintf("invalid roll number format %q (expected format like 21CSC201J)", n.Raw.Get(ColRollNumber)))
	}

	if !IsIdentifier(n.CourseCode) {
		fail(ColCourseCode, ReasonInvalidFormat,
			fmt.Sprintf("invalid course code format %q (expected format like 21CSC301T)", n.Raw.Get(ColCourseCode)))
	}

	if n.MarksNaN || n.Marks < MinMarks || n.Marks > MaxMarks {
		fail(ColMarks, ReasonOutOfRange,
			fmt.Sprintf("marks must be a number between %d and %d, got %q", MinMarks, MaxMarks, n.Raw.Get(ColMarks)))
	}

	if utf8.RuneCountInString(n.StudentName) < MinNameLength {
		fail(ColStudentName, ReasonTooShort,
			fmt.Sprintf("student name must be at least %d characters", MinNameLength))
	}

	if n.HasCredits && (n.CreditsInvalid || n.Credits < 0) {
		fail(ColCredits, ReasonInvalidValue,
			fmt.Sprintf("credits must be a non-negative whole number, got %q", n.Raw.Get(ColCredits)))
	}

	if n.HasPublished && n.PublishedInvalid {
		fail(ColPublished, ReasonInvalidValue,
			fmt.Sprintf("published must be true/false, yes/no, or 1/0, got %q", n.Raw.Get(ColPublished)))
	}

	return errs
}

// ValidateBatch validates every row and returns the ordered error list.
func ValidateBatch(rows []NormalizedRow) []ValidationError {
	var errs []ValidationError
	for _, n := range rows {
		errs = append(errs, ValidateRow(n)...)
	}
	return errs
}
