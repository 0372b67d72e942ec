package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const cleanBatch = `rollNumber,courseCode,marks,studentName,courseName,semester,credits
21CSE101A,21CSC201J,92,Asha Rao,Data Structures,3,4
21CSE101A,21CSC202J,55,Asha Rao,Algorithms,3,3
21CSE102B,21CSC201J,40,"Ravi, Kumar",Data Structures,3,4
`

func newTestService(store *fakeStore) *Service {
	return NewService(store, Options{MaxFileSize: 4096})
}

func TestService_Upload(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	report, err := svc.Upload(context.Background(), "results.csv", []byte(cleanBatch))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !report.Valid() || !report.Applied {
		t.Fatalf("report = %+v, want valid and applied", report)
	}
	if report.TotalRows != 3 || report.Inserted != 3 || report.Updated != 0 || report.Failed != 0 {
		t.Errorf("counts = total %d ins %d upd %d fail %d", report.TotalRows, report.Inserted, report.Updated, report.Failed)
	}
	if report.BatchID == "" || report.FileName != "results.csv" {
		t.Errorf("batch metadata = %q, %q", report.BatchID, report.FileName)
	}

	rec, ok := store.get("21CSE102B", "21CSC201J")
	if !ok || rec.StudentName != "Ravi, Kumar" || rec.Credits != 4 || rec.Published {
		t.Errorf("stored record = %+v", rec)
	}

	again, err := svc.Upload(context.Background(), "results.csv", []byte(cleanBatch))
	if err != nil {
		t.Fatalf("second Upload() error = %v", err)
	}
	if again.Inserted != 0 || again.Updated != 3 || len(again.Notices) != 3 {
		t.Errorf("re-upload = ins %d upd %d notices %v", again.Inserted, again.Updated, again.Notices)
	}
}

func TestService_UploadValidationFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	report, err := svc.Upload(context.Background(), "bad.csv", []byte(exampleBatch))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if report.Valid() || report.Applied || report.Plan != nil {
		t.Fatalf("report = %+v, want invalid and not applied", report)
	}
	if len(report.Errors) != 1 || report.Errors[0].Row != 3 {
		t.Errorf("errors = %v", report.Errors)
	}
	if store.findCalls != 0 || store.upsertCalls != 0 {
		t.Errorf("store touched: %d finds, %d upserts", store.findCalls, store.upsertCalls)
	}
}

func TestService_RejectedInputs(t *testing.T) {
	svc := newTestService(newFakeStore())

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrEmptyFile},
		{"too large", []byte(strings.Repeat("x", 5000)), ErrFileTooLarge},
		{"header only", []byte("rollNumber,courseCode,marks,studentName\n"), ErrMalformedInput},
		{"missing columns", []byte("rollNumber,marks\n21CSE101A,80\n"), ErrMissingColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), "f.csv", tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_PreviewWritesNothing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	report, err := svc.Preview(context.Background(), []byte(cleanBatch))
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if report.Applied || report.Plan == nil || len(report.Plan.ToInsert) != 3 {
		t.Errorf("preview = %+v", report)
	}
	if store.upsertCalls != 0 {
		t.Errorf("Preview() made %d upserts", store.upsertCalls)
	}
}

func TestService_UploadStoreFailures(t *testing.T) {
	store := newFakeStore()
	store.upsertErr[Key{"21CSE101A", "21CSC202J"}] = errors.New("connection reset")
	svc := newTestService(store)

	report, err := svc.Upload(context.Background(), "results.csv", []byte(cleanBatch))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if report.Inserted != 2 || report.Failed != 1 {
		t.Errorf("counts = ins %d fail %d, want 2 and 1", report.Inserted, report.Failed)
	}
}

func TestService_Publish(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Publish(ctx, []string{" ", ""}); !errors.Is(err, ErrNoRollNumbers) {
		t.Errorf("Publish(blank) error = %v, want ErrNoRollNumbers", err)
	}

	if _, err := svc.Upload(ctx, "r.csv", []byte(cleanBatch)); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, err := svc.StudentResults(ctx, "21CSE101A"); !errors.Is(err, ErrNoResults) {
		t.Errorf("StudentResults() before publish error = %v, want ErrNoResults", err)
	}

	report, err := svc.Publish(ctx, []string{"21cse101a"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if report.Modified != 2 {
		t.Errorf("Modified = %d, want 2", report.Modified)
	}

	view, err := svc.StudentResults(ctx, "21cse101a")
	if err != nil {
		t.Fatalf("StudentResults() error = %v", err)
	}
	if view.Student.StudentName != "Asha Rao" || view.Student.RollNumber != "21CSE101A" || len(view.Results) != 2 || view.TotalCredits != 7 {
		t.Fatalf("view = %+v", view)
	}
	if view.Results[0].CourseCode != "21CSC201J" || view.Results[0].Grade != "A+" {
		t.Errorf("first result = %+v, want 21CSC201J A+", view.Results[0])
	}
	if view.Results[1].Grade != "D" {
		t.Errorf("second grade = %q, want D", view.Results[1].Grade)
	}
}

func TestService_StatsAndStudents(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "r.csv", []byte(cleanBatch)); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, err := svc.Publish(ctx, []string{"21CSE102B"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalResults != 3 || stats.PublishedResults != 1 || stats.TotalStudents != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.CourseStats) != 2 || stats.CourseStats[0].CourseCode != "21CSC201J" || stats.CourseStats[0].AverageMarks != 66 {
		t.Errorf("course stats = %+v", stats.CourseStats)
	}

	students, err := svc.Students(ctx)
	if err != nil {
		t.Fatalf("Students() error = %v", err)
	}
	if len(students) != 2 || students[0].RollNumber != "21CSE101A" || students[0].Results != 2 || students[1].Published != 1 {
		t.Errorf("students = %+v", students)
	}

	store.listErr = errors.New("connection refused")
	if _, err := svc.Stats(ctx); err == nil {
		t.Error("Stats() with failing store returned nil error")
	}
}

func TestService_UploadBusy(t *testing.T) {
	svc := NewService(newFakeStore(), Options{MaxConcurrentUploads: 1, MaxWaitTime: 1})
	if !svc.limiter.TryAcquire() {
		t.Fatal("TryAcquire() = false")
	}
	defer svc.limiter.Release()

	if _, err := svc.Upload(context.Background(), "r.csv", []byte(cleanBatch)); !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("Upload() error = %v, want ErrTooManyUploads", err)
	}
	if got := svc.UploadLimiterStatus().Active; got != 1 {
		t.Errorf("Active = %d, want 1", got)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	got := string(sanitizeUTF8([]byte("Ab\xffc")))
	if got != "Ab\uFFFDc" {
		t.Errorf("sanitizeUTF8() = %q", got)
	}
}
