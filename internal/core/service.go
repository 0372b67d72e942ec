package core

import (
	"bytes"
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/resultportal/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxFileSize is the upload size limit when none is configured (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Options configures a Service.
type Options struct {
	MaxFileSize          int64
	MaxConcurrentUploads int
	MaxWaitTime          time.Duration
	UploadTimeout        time.Duration
	Store                CallOptions
}

// Service provides the ingestion, publication and reporting operations.
type Service struct {
	repo    Repository
	limiter *UploadLimiter
	opts    Options
}

// NewService creates a Service over the given repository.
func NewService(repo Repository, opts Options) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	opts.Store = opts.Store.withDefaults()

	return &Service{
		repo:    repo,
		limiter: NewUploadLimiter(opts.MaxConcurrentUploads, opts.MaxWaitTime),
		opts:    opts,
	}
}

// Preview parses, validates and plans a batch without writing anything.
func (s *Service) Preview(ctx context.Context, data []byte) (*IngestReport, error) {
	return s.ingest(ctx, "", data, false)
}

// Upload parses, validates and plans a batch, then applies the plan.
// A batch with validation errors is returned with its errors and is not applied.
func (s *Service) Upload(ctx context.Context, fileName string, data []byte) (*IngestReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.UploadTimeout)
		defer cancel()
	}

	return s.ingest(ctx, fileName, data, true)
}

func (s *Service) ingest(ctx context.Context, fileName string, data []byte, apply bool) (*IngestReport, error) {
	start := time.Now()
	report := &IngestReport{
		BatchID:  uuid.New().String(),
		FileName: fileName,
		Notices:  []string{},
	}
	logger := logging.WithFields(ctx,
		"batch_id", report.BatchID,
		"file", fileName,
		"client_ip", ClientIPFromContext(ctx),
	)

	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrFileTooLarge, len(data), s.opts.MaxFileSize)
	}

	batch, err := ParseBatch(string(sanitizeUTF8(data)))
	if err != nil {
		logger.Info("batch rejected", "error", err)
		return nil, err
	}

	rows := NormalizeAll(batch.Records)
	report.TotalRows = len(rows)
	report.SkippedRows = batch.Skipped

	if errs := ValidateBatch(rows); len(errs) > 0 {
		report.Errors = errs
		report.Duration = time.Since(start)
		logger.Info("batch failed validation",
			"rows", report.TotalRows,
			"errors", len(errs),
		)
		return report, nil
	}

	cands := make([]Candidate, len(rows))
	for i, n := range rows {
		cands[i] = n.Candidate()
	}

	plan, err := PlanChanges(ctx, timedLookup{store: s.repo, opts: s.opts.Store}, cands)
	if err != nil {
		logger.Error("planning failed", "error", err)
		return nil, err
	}
	report.Plan = plan
	report.Notices = append(report.Notices, plan.Notices...)

	if apply {
		report.Outcomes = ApplyPlan(ctx, s.repo, plan, s.opts.Store)
		report.Inserted, report.Updated, report.Failed = CountOutcomes(report.Outcomes)
		report.Applied = true

		for _, o := range report.Outcomes {
			if !o.Success {
				logger.Warn("record not applied", "row", o.Row, "key", o.Key.String(), "error", o.Error)
			}
		}
	}

	report.Duration = time.Since(start)
	logger.Info("batch processed",
		"rows", report.TotalRows,
		"skipped", len(report.SkippedRows),
		"inserts", len(plan.ToInsert),
		"updates", len(plan.ToUpdate),
		"applied", apply,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// Publish makes every stored result of the given students visible to them.
func (s *Service) Publish(ctx context.Context, rollNumbers []string) (*PublishReport, error) {
	if len(NormalizeRollNumbers(rollNumbers)) == 0 {
		return nil, ErrNoRollNumbers
	}

	report := PublishStudents(ctx, s.repo, rollNumbers, s.opts.Store)
	logging.FromContext(ctx).Info("results published",
		"students", len(report.Requested),
		"matched", report.Matched,
		"modified", report.Modified,
		"failed", report.Failed,
		"lookup_failed", report.LookupFailed,
	)
	return report, nil
}

// GPA computes the grade point average of a course set.
func (s *Service) GPA(courses []CourseGrade) string {
	return ComputeGPA(courses)
}

// UploadLimiterStatus reports the upload slots in use.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight uploads finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// timedLookup bounds each existence check with the store call options.
type timedLookup struct {
	store KeyLookup
	opts  CallOptions
}

func (l timedLookup) FindByKey(ctx context.Context, key Key) (ResultRecord, bool, error) {
	var (
		rec   ResultRecord
		found bool
	)
	err := callStore(ctx, l.opts, func(ctx context.Context) error {
		var err error
		rec, found, err = l.store.FindByKey(ctx, key)
		return err
	})
	return rec, found, err
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.WriteRune(r)
		}
		data = data[size:]
	}

	return buf.Bytes()
}
