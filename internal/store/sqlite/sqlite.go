// Package sqlite stores results in a single SQLite file through gorm.
//
// It is the zero-infrastructure store for a single department machine; the
// schema is created by AutoMigrate on Open.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/JonMunkholm/resultportal/internal/core"
)

// result is the gorm model of one stored result.
type result struct {
	ID          string `gorm:"primaryKey;size:36"`
	RollNumber  string `gorm:"not null;uniqueIndex:idx_results_key,priority:1;index:idx_results_roll"`
	CourseCode  string `gorm:"not null;uniqueIndex:idx_results_key,priority:2"`
	Marks       int    `gorm:"not null"`
	StudentName string `gorm:"not null"`
	CourseName  string
	Semester    string
	ExamType    string
	Published   bool `gorm:"not null;default:false"`
	Credits     int  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (result) TableName() string { return "results" }

func fromRecord(r core.ResultRecord) result {
	return result{
		ID:          r.ID,
		RollNumber:  r.RollNumber,
		CourseCode:  r.CourseCode,
		Marks:       r.Marks,
		StudentName: r.StudentName,
		CourseName:  r.CourseName,
		Semester:    r.Semester,
		ExamType:    r.ExamType,
		Published:   r.Published,
		Credits:     r.Credits,
	}
}

func (m result) record() core.ResultRecord {
	return core.ResultRecord{
		ID:          m.ID,
		RollNumber:  m.RollNumber,
		CourseCode:  m.CourseCode,
		Marks:       m.Marks,
		StudentName: m.StudentName,
		CourseName:  m.CourseName,
		Semester:    m.Semester,
		ExamType:    m.ExamType,
		Published:   m.Published,
		Credits:     m.Credits,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// Store implements core.Repository on a gorm connection.
type Store struct {
	db *gorm.DB
}

var _ core.Repository = (*Store)(nil)

// Open opens (or creates) the database file at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// SQLite allows one writer; serialise through a single connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&result{}); err != nil {
		return nil, fmt.Errorf("migrate results: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindByKey returns the result stored for key.
func (s *Store) FindByKey(ctx context.Context, key core.Key) (core.ResultRecord, bool, error) {
	var m result
	err := s.db.WithContext(ctx).
		Where("roll_number = ? AND course_code = ?", key.RollNumber, key.CourseCode).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ResultRecord{}, false, nil
	}
	if err != nil {
		return core.ResultRecord{}, false, err
	}
	return m.record(), true, nil
}

// Upsert inserts rec or updates the row with the same key, keeping its id.
func (s *Store) Upsert(ctx context.Context, rec core.ResultRecord) error {
	m := fromRecord(rec)
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "roll_number"}, {Name: "course_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"marks", "student_name", "course_name", "semester", "exam_type",
			"published", "credits", "updated_at",
		}),
	}).Create(&m).Error
}

// FindByStudent returns every result of one student ordered by course code.
func (s *Store) FindByStudent(ctx context.Context, rollNumber string) ([]core.ResultRecord, error) {
	var ms []result
	err := s.db.WithContext(ctx).
		Where("roll_number = ?", rollNumber).
		Order("course_code").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return records(ms), nil
}

// SetPublished flips the published flag of one result.
// Returns an error wrapping core.ErrNotFound when no row has the ID.
func (s *Store) SetPublished(ctx context.Context, id string, published bool) error {
	res := s.db.WithContext(ctx).
		Model(&result{}).
		Where("id = ?", id).
		Update("published", published)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}

// ListResults returns every stored result ordered by roll number then course.
func (s *Store) ListResults(ctx context.Context) ([]core.ResultRecord, error) {
	var ms []result
	if err := s.db.WithContext(ctx).Order("roll_number, course_code").Find(&ms).Error; err != nil {
		return nil, err
	}
	return records(ms), nil
}

func records(ms []result) []core.ResultRecord {
	out := make([]core.ResultRecord, len(ms))
	for i, m := range ms {
		out[i] = m.record()
	}
	return out
}
