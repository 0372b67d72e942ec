package core

// grades.go derives letter grades from marks and GPA from letter grades.
//
// The two tables are independent: marksGrades produces the display grade for
// a mark (A+ through F), gradePoints scores a pre-assigned letter grade
// (A, A-, B+, ...) for aggregation. They are not inverses of each other.
// Both are fixed at compile time and only exposed through functions.

import (
	"fmt"
	"strings"
)

type gradeBand struct {
	min   int
	grade string
}

// marksGrades is consulted top-down; the first band whose lower bound is met wins.
var marksGrades = [...]gradeBand{
	{90, "A+"},
	{80, "A"},
	{70, "B"},
	{60, "C"},
	{50, "D"},
}

// FailGrade is assigned below the lowest band.
const FailGrade = "F"

var gradePoints = map[string]int{
	"A":  10,
	"A-": 9,
	"B+": 8,
	"B":  7,
	"B-": 6,
	"C":  5,
	"F":  0,
}

// ZeroGPA is reported when a course set carries no credits.
const ZeroGPA = "0.00"

// GradeFromMarks maps marks to a letter grade. Defined for every integer;
// non-decreasing in marks.
func GradeFromMarks(marks int) string {
	for _, b := range marksGrades {
		if marks >= b.min {
			return b.grade
		}
	}
	return FailGrade
}

// GradePoints returns the points for a letter grade. Unknown grades score 0.
func GradePoints(grade string) int {
	return gradePoints[strings.TrimSpace(grade)]
}

// CourseGrade is one course's contribution to a GPA.
type CourseGrade struct {
	Grade   string `json:"grade"`
	Credits int    `json:"credits"`
}

// ComputeGPA returns the credit-weighted grade point average rounded to two
// decimals, ties rounding up (8.125 is "8.13"). Courses without positive
// credits contribute nothing; with no credits at all the result is "0.00".
func ComputeGPA(courses []CourseGrade) string {
	var points, credits int
	for _, c := range courses {
		if c.Credits <= 0 {
			continue
		}
		points += GradePoints(c.Grade) * c.Credits
		credits += c.Credits
	}

	if credits == 0 {
		return ZeroGPA
	}
	// Integer half-up rounding of points/credits to hundredths.
	hundredths := (points*200 + credits) / (2 * credits)
	return fmt.Sprintf("%d.%02d", hundredths/100, hundredths%100)
}

// TotalCredits sums the positive credits of a course set.
func TotalCredits(courses []CourseGrade) int {
	total := 0
	for _, c := range courses {
		if c.Credits > 0 {
			total += c.Credits
		}
	}
	return total
}
