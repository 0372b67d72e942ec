package web

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/resultportal/internal/core"
)

// multipartSlack covers multipart boundaries and headers around the file part.
const multipartSlack = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uploads": s.service.UploadLimiterStatus(),
	})
}

// handleUpload ingests a batch and applies it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	report, err := s.service.Upload(withRequestMetadata(r), name, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.respondReport(w, r, report)
}

// handlePreview validates and plans a batch without writing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	report, err := s.service.Preview(withRequestMetadata(r), data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.respondReport(w, r, report)
}

// respondReport writes an IngestReport; a batch that failed validation is a 422.
func (s *Server) respondReport(w http.ResponseWriter, r *http.Request, report *core.IngestReport) {
	status := http.StatusOK
	if !report.Valid() {
		status = http.StatusUnprocessableEntity
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = UploadSummary(report).Render(r.Context(), w)
		return
	}

	if !report.Valid() {
		msg := core.MapError(core.ErrValidationFailed)
		writeJSON(w, status, struct {
			ErrorResponse
			*core.IngestReport
		}{
			ErrorResponse: ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code},
			IngestReport:  report,
		})
		return
	}
	writeJSON(w, status, report)
}

// readUpload returns the uploaded bytes from a multipart "file" part or,
// for any other content type, the raw request body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", tooLarge(err)
		}
		name := r.URL.Query().Get("fileName")
		if name == "" {
			name = "upload.csv"
		}
		return data, name, nil
	}

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", tooLarge(err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return data, header.Filename, nil
}

func tooLarge(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", errInvalidInput, err)
}

// readJSON reads a small JSON body and checks that it parses.
func readJSON(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		return nil, tooLarge(err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errInvalidInput
	}
	return body, nil
}

// handlePublish marks every result of the listed students as published.
//
//	{"rollNumbers": ["21CSE101A", "21CSE102B"]}
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	field := gjson.GetBytes(body, "rollNumbers")
	if !field.IsArray() {
		s.respondError(w, r, fmt.Errorf("%w: rollNumbers must be an array", errInvalidInput), 0)
		return
	}

	var rolls []string
	for _, v := range field.Array() {
		rolls = append(rolls, v.String())
	}

	report, err := s.service.Publish(withRequestMetadata(r), rolls)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStudentResults(w http.ResponseWriter, r *http.Request) {
	roll := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "rollNumber")))
	if !core.IsIdentifier(roll) {
		s.respondError(w, r, fmt.Errorf("%w: roll number %q", errInvalidInput, roll), 0)
		return
	}

	results, err := s.service.StudentResults(r.Context(), roll)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.service.Students(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(students),
		"count":    len(students),
		"students": students,
	})
}

// handleGPA computes a GPA from explicit letter grades.
//
//	{"courses": [{"grade": "A", "credits": 3}, {"grade": "B+", "credits": 4}]}
func (s *Server) handleGPA(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	field := gjson.GetBytes(body, "courses")
	if !field.IsArray() {
		s.respondError(w, r, fmt.Errorf("%w: courses must be an array", errInvalidInput), 0)
		return
	}

	var courses []core.CourseGrade
	for i, c := range field.Array() {
		credits := c.Get("credits")
		if credits.Type != gjson.Number || credits.Num != math.Trunc(credits.Num) {
			s.respondError(w, r, fmt.Errorf("%w: courses[%d].credits must be an integer", errInvalidInput, i), 0)
			return
		}
		courses = append(courses, core.CourseGrade{
			Grade:   c.Get("grade").String(),
			Credits: int(credits.Int()),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gpa":          s.service.GPA(courses),
		"totalCredits": core.TotalCredits(courses),
	})
}

// handleTemplate downloads the sample upload file.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, core.TemplateFileName))
	_, _ = io.WriteString(w, core.ResultTemplateCSV+"\n")
}
