package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CourseResult is a stored result with its display grade.
type CourseResult struct {
	ResultRecord
	Grade string `json:"grade"`
}

// StudentIdentity names the student a result view belongs to.
type StudentIdentity struct {
	RollNumber  string `json:"rollNumber"`
	StudentName string `json:"studentName"`
}

// StudentResults is what a student sees: published results only.
type StudentResults struct {
	Student      StudentIdentity `json:"student"`
	Results      []CourseResult  `json:"results"`
	TotalCredits int             `json:"totalCredits"`
}

// CourseStats aggregates the marks of one course.
type CourseStats struct {
	CourseCode   string  `json:"courseCode"`
	CourseName   string  `json:"courseName"`
	Count        int     `json:"count"`
	AverageMarks float64 `json:"averageMarks"`
}

// ResultStats is the admin analytics view.
type ResultStats struct {
	TotalResults     int           `json:"totalResults"`
	PublishedResults int           `json:"publishedResults"`
	TotalStudents    int           `json:"totalStudents"`
	CourseStats      []CourseStats `json:"courseStats"`
}

// StudentSummary is one entry of the student listing.
type StudentSummary struct {
	RollNumber  string `json:"rollNumber"`
	StudentName string `json:"studentName"`
	Results     int    `json:"results"`
	Published   int    `json:"published"`
}

// StudentResults returns a student's published results with letter grades.
// Returns an error wrapping ErrNoResults if nothing is published yet.
func (s *Service) StudentResults(ctx context.Context, rollNumber string) (*StudentResults, error) {
	roll := strings.ToUpper(strings.TrimSpace(rollNumber))

	var recs []ResultRecord
	err := callStore(ctx, s.opts.Store, func(ctx context.Context) error {
		var err error
		recs, err = s.repo.FindByStudent(ctx, roll)
		return err
	})
	if err != nil {
		return nil, &StoreError{Op: "find_student", Key: Key{RollNumber: roll}, Err: err}
	}

	out := &StudentResults{Student: StudentIdentity{RollNumber: roll}, Results: []CourseResult{}}
	for _, rec := range recs {
		if !rec.Published {
			continue
		}
		if out.Student.StudentName == "" {
			out.Student.StudentName = rec.StudentName
		}
		out.Results = append(out.Results, CourseResult{
			ResultRecord: rec,
			Grade:        GradeFromMarks(rec.Marks),
		})
		if rec.Credits > 0 {
			out.TotalCredits += rec.Credits
		}
	}

	if len(out.Results) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoResults, roll)
	}

	sort.Slice(out.Results, func(i, j int) bool {
		a, b := out.Results[i], out.Results[j]
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		return a.CourseCode < b.CourseCode
	})
	return out, nil
}

// Stats returns result totals and per-course average marks.
func (s *Service) Stats(ctx context.Context) (*ResultStats, error) {
	recs, err := s.listResults(ctx)
	if err != nil {
		return nil, err
	}

	type acc struct {
		name  string
		count int
		sum   int
	}
	courses := make(map[string]*acc)
	students := make(map[string]bool)
	stats := &ResultStats{TotalResults: len(recs), CourseStats: []CourseStats{}}

	for _, rec := range recs {
		if rec.Published {
			stats.PublishedResults++
		}
		students[rec.RollNumber] = true

		a, ok := courses[rec.CourseCode]
		if !ok {
			a = &acc{}
			courses[rec.CourseCode] = a
		}
		if a.name == "" {
			a.name = rec.CourseName
		}
		a.count++
		a.sum += rec.Marks
	}
	stats.TotalStudents = len(students)

	for code, a := range courses {
		stats.CourseStats = append(stats.CourseStats, CourseStats{
			CourseCode:   code,
			CourseName:   a.name,
			Count:        a.count,
			AverageMarks: float64(a.sum) / float64(a.count),
		})
	}
	sort.Slice(stats.CourseStats, func(i, j int) bool {
		return stats.CourseStats[i].CourseCode < stats.CourseStats[j].CourseCode
	})

	return stats, nil
}

// Students lists every student with stored results, sorted by roll number.
func (s *Service) Students(ctx context.Context) ([]StudentSummary, error) {
	recs, err := s.listResults(ctx)
	if err != nil {
		return nil, err
	}

	byRoll := make(map[string]*StudentSummary)
	for _, rec := range recs {
		sum, ok := byRoll[rec.RollNumber]
		if !ok {
			sum = &StudentSummary{RollNumber: rec.RollNumber}
			byRoll[rec.RollNumber] = sum
		}
		if sum.StudentName == "" {
			sum.StudentName = rec.StudentName
		}
		sum.Results++
		if rec.Published {
			sum.Published++
		}
	}

	out := make([]StudentSummary, 0, len(byRoll))
	for _, sum := range byRoll {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RollNumber < out[j].RollNumber
	})
	return out, nil
}

func (s *Service) listResults(ctx context.Context) ([]ResultRecord, error) {
	var recs []ResultRecord
	err := callStore(ctx, s.opts.Store, func(ctx context.Context) error {
		var err error
		recs, err = s.repo.ListResults(ctx)
		return err
	})
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return recs, nil
}
