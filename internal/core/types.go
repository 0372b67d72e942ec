package core

import (
	"context"
	"time"
)

// Column names recognised in an uploaded batch header.
const (
	ColRollNumber  = "rollNumber"
	ColCourseCode  = "courseCode"
	ColMarks       = "marks"
	ColStudentName = "studentName"
	ColCourseName  = "courseName"
	ColSemester    = "semester"
	ColExamType    = "examType"
	ColPublished   = "published"
	ColCredits     = "credits"
)

// RequiredColumns must all be present in a batch header.
var RequiredColumns = []string{ColRollNumber, ColCourseCode, ColMarks, ColStudentName}

// Key identifies one result: a student's result for one course.
// At most one ResultRecord exists per Key in storage.
type Key struct {
	RollNumber string `json:"rollNumber"`
	CourseCode string `json:"courseCode"`
}

func (k Key) String() string {
	return k.RollNumber + "/" + k.CourseCode
}

// ResultRecord is a validated, persisted academic result.
type ResultRecord struct {
	ID          string    `json:"id"`
	RollNumber  string    `json:"rollNumber"`
	CourseCode  string    `json:"courseCode"`
	Marks       int       `json:"marks"`
	StudentName string    `json:"studentName"`
	CourseName  string    `json:"courseName"`
	Semester    string    `json:"semester"`
	ExamType    string    `json:"examType"`
	Published   bool      `json:"published"`
	Credits     int       `json:"credits"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Key returns the record's unique key.
func (r ResultRecord) Key() Key {
	return Key{RollNumber: r.RollNumber, CourseCode: r.CourseCode}
}

// RawRecord is one header-conformant data line, column name to raw value.
type RawRecord struct {
	Row    int // 1-based, header is row 1
	Fields map[string]string
}

// Get returns the raw value for a column, or "" if the column is absent.
func (r RawRecord) Get(column string) string {
	return r.Fields[column]
}

// Candidate is a clean row ready for reconciliation.
// HasPublished and HasCredits record whether the batch supplied those values,
// so an update only overwrites them when asked to.
type Candidate struct {
	Row          int
	Record       ResultRecord
	HasPublished bool
	HasCredits   bool
}

// ChangeOp classifies a planned change.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
)

// PlannedChange is one row's effect on storage.
type PlannedChange struct {
	Row    int          `json:"row"`
	Op     ChangeOp     `json:"op"`
	Record ResultRecord `json:"record"`
	Notice string       `json:"notice,omitempty"`
}

// ChangePlan partitions a clean batch into inserts and updates.
// It is created per upload and consumed once.
type ChangePlan struct {
	ToInsert []PlannedChange `json:"toInsert"`
	ToUpdate []PlannedChange `json:"toUpdate"`
	Notices  []string        `json:"notices"`
}

// Changes returns all planned changes in batch row order.
func (p *ChangePlan) Changes() []PlannedChange {
	all := make([]PlannedChange, 0, len(p.ToInsert)+len(p.ToUpdate))
	i, j := 0, 0
	for i < len(p.ToInsert) || j < len(p.ToUpdate) {
		if j >= len(p.ToUpdate) || (i < len(p.ToInsert) && p.ToInsert[i].Row < p.ToUpdate[j].Row) {
			all = append(all, p.ToInsert[i])
			i++
		} else {
			all = append(all, p.ToUpdate[j])
			j++
		}
	}
	return all
}

// KeyLookup is the existence check the Reconciler needs from storage.
type KeyLookup interface {
	// FindByKey returns the stored record and true, or false if absent.
	FindByKey(ctx context.Context, key Key) (ResultRecord, bool, error)
}

// PublishStore is what the Publication Gate needs from storage.
type PublishStore interface {
	FindByStudent(ctx context.Context, rollNumber string) ([]ResultRecord, error)
	SetPublished(ctx context.Context, id string, published bool) error
}

// Store is the persistence contract consumed by the core.
// Schema, indexing and network protocol are the implementation's concern.
type Store interface {
	KeyLookup
	PublishStore
	// Upsert inserts the record, or overwrites the stored record with the same Key.
	Upsert(ctx context.Context, rec ResultRecord) error
}

// Repository is a Store that can also enumerate its records,
// used by the analytics and student listing views.
type Repository interface {
	Store
	ListResults(ctx context.Context) ([]ResultRecord, error)
}

// RecordOutcome is the result of applying one planned change or one publish update.
type RecordOutcome struct {
	Row     int      `json:"row,omitempty"`
	ID      string   `json:"id,omitempty"`
	Key     Key      `json:"key"`
	Op      ChangeOp `json:"op,omitempty"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
}

// IngestReport is the final result of previewing or uploading a batch.
type IngestReport struct {
	BatchID     string            `json:"batchId"`
	FileName    string            `json:"fileName,omitempty"`
	TotalRows   int               `json:"totalRows"`
	SkippedRows []int             `json:"skippedRows,omitempty"`
	Errors      []ValidationError `json:"errors,omitempty"`
	Plan        *ChangePlan       `json:"plan,omitempty"`
	Notices     []string          `json:"warnings"`
	Outcomes    []RecordOutcome   `json:"outcomes,omitempty"`
	Inserted    int               `json:"inserted"`
	Updated     int               `json:"updated"`
	Failed      int               `json:"failed"`
	Applied     bool              `json:"applied"`
	Duration    time.Duration     `json:"duration"`
}

// Valid reports whether the batch passed validation.
func (r *IngestReport) Valid() bool {
	return len(r.Errors) == 0
}
