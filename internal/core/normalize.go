package core

import (
	"strconv"
	"strings"
)

// NormalizedRow holds a RawRecord's values after trimming and coercion.
// Normalization never fails: unparsable numbers and booleans are flagged here
// and rejected by the Validator.
type NormalizedRow struct {
	Row int

	RollNumber  string
	CourseCode  string
	StudentName string
	CourseName  string
	Semester    string
	ExamType    string

	Marks    int
	MarksNaN bool

	Credits        int
	HasCredits     bool
	CreditsInvalid bool

	Published        bool
	HasPublished     bool
	PublishedInvalid bool

	Raw RawRecord
}

// Normalize trims every field, upper-cases the identifiers and coerces the
// numeric and boolean columns.
func Normalize(rec RawRecord) NormalizedRow {
	field := func(col string) string {
		return strings.TrimSpace(rec.Get(col))
	}

	n := NormalizedRow{
		Row:         rec.Row,
		RollNumber:  strings.ToUpper(field(ColRollNumber)),
		CourseCode:  strings.ToUpper(field(ColCourseCode)),
		StudentName: field(ColStudentName),
		CourseName:  field(ColCourseName),
		Semester:    field(ColSemester),
		ExamType:    field(ColExamType),
		Raw:         rec,
	}

	if marks, ok := parseInt(field(ColMarks)); ok {
		n.Marks = marks
	} else {
		n.MarksNaN = true
	}

	if raw := field(ColCredits); raw != "" {
		n.HasCredits = true
		if credits, ok := parseInt(raw); ok {
			n.Credits = credits
		} else {
			n.CreditsInvalid = true
		}
	}

	if raw := field(ColPublished); raw != "" {
		n.HasPublished = true
		if b, ok := ParseBool(raw); ok {
			n.Published = b
		} else {
			n.PublishedInvalid = true
		}
	}

	return n
}

// NormalizeAll normalizes a batch, preserving order.
func NormalizeAll(recs []RawRecord) []NormalizedRow {
	rows := make([]NormalizedRow, len(recs))
	for i, rec := range recs {
		rows[i] = Normalize(rec)
	}
	return rows
}

// Candidate converts a clean row into a reconciliation candidate.
// Only meaningful for rows that passed validation.
func (n NormalizedRow) Candidate() Candidate {
	return Candidate{
		Row: n.Row,
		Record: ResultRecord{
			RollNumber:  n.RollNumber,
			CourseCode:  n.CourseCode,
			Marks:       n.Marks,
			StudentName: n.StudentName,
			CourseName:  n.CourseName,
			Semester:    n.Semester,
			ExamType:    n.ExamType,
			Published:   n.Published,
			Credits:     n.Credits,
		},
		HasPublished: n.HasPublished,
		HasCredits:   n.HasCredits,
	}
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0, case-insensitively.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// parseInt parses a strict base-10 integer. "85.5" and "85abc" are rejected.
func parseInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return i, true
}
