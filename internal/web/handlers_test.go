package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/resultportal/internal/config"
	"github.com/JonMunkholm/resultportal/internal/core"
	"github.com/JonMunkholm/resultportal/internal/store/memory"
)

const uploadCSV = `rollNumber,courseCode,marks,studentName,credits
21CSE101A,21CSC201J,92,Asha Rao,4
21CSE101A,21CSC202J,55,Asha Rao,3
21CSE102B,21CSC201J,40,Ravi Kumar,4
`

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	vars := map[string]string{"DB_DRIVER": "memory", "RATE_LIMIT_ENABLED": "false"}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.LoadFrom(func(k string) string { return vars[k] })
	if err != nil {
		t.Fatalf("config.LoadFrom() error = %v", err)
	}
	return cfg
}

func newTestServer(t *testing.T, env map[string]string) (*Server, *memory.Store) {
	t.Helper()
	cfg := testConfig(t, env)
	store := memory.New()
	svc := core.NewService(store, core.Options{MaxFileSize: cfg.Upload.MaxFileSize})
	s := NewServer(svc, cfg)
	t.Cleanup(func() { _ = s.Shutdown(t.Context()) })
	return s, store
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func multipartUpload(t *testing.T, url, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload_Multipart(t *testing.T) {
	s, store := newTestServer(t, nil)

	rec := do(t, s, multipartUpload(t, "/api/upload/csv-results", "sem3.csv", uploadCSV))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var report core.IngestReport
	decode(t, rec, &report)
	if report.FileName != "sem3.csv" || report.Inserted != 3 || !report.Applied {
		t.Errorf("report = %+v", report)
	}
	if store.Len() != 3 {
		t.Errorf("stored = %d, want 3", store.Len())
	}
}

func TestHandleUpload_RawBodyReupload(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for i, wantUpdated := range []int{0, 3} {
		req := httptest.NewRequest(http.MethodPost, "/api/upload/csv-results?fileName=r.csv", strings.NewReader(uploadCSV))
		req.Header.Set("Content-Type", "text/csv")
		rec := do(t, s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("upload %d status = %d", i, rec.Code)
		}
		var report core.IngestReport
		decode(t, rec, &report)
		if report.Updated != wantUpdated {
			t.Errorf("upload %d updated = %d, want %d", i, report.Updated, wantUpdated)
		}
		if wantUpdated > 0 && len(report.Notices) != wantUpdated {
			t.Errorf("upload %d warnings = %v", i, report.Notices)
		}
	}
}

func TestHandleUpload_ValidationFailure(t *testing.T) {
	s, store := newTestServer(t, nil)

	body := "rollNumber,courseCode,marks,studentName\n21CSE101A,21CSC201J,85,Asha\n21CSE102B,21CSC201J,105,Ravi\n"
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/upload/csv-results", strings.NewReader(body)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp struct {
		Code   string                 `json:"code"`
		Errors []core.ValidationError `json:"errors"`
	}
	decode(t, rec, &resp)
	if resp.Code != "VAL003" || len(resp.Errors) != 1 || resp.Errors[0].Row != 3 {
		t.Errorf("response = %+v", resp)
	}
	if store.Len() != 0 {
		t.Errorf("stored = %d, want 0", store.Len())
	}
}

func TestHandleUpload_Rejections(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"UPLOAD_MAX_FILE_SIZE": "200"})

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:     "empty body",
			req:      httptest.NewRequest(http.MethodPost, "/api/upload/csv-results", strings.NewReader("")),
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE003",
		},
		{
			name:     "missing column",
			req:      httptest.NewRequest(http.MethodPost, "/api/upload/csv-results", strings.NewReader("rollNumber,marks\n21CSE101A,50\n")),
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL002",
		},
		{
			name:     "too large",
			req:      httptest.NewRequest(http.MethodPost, "/api/upload/csv-results", strings.NewReader(strings.Repeat("x", 300))),
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
		{
			name: "multipart without file",
			req: func() *http.Request {
				var buf bytes.Buffer
				mw := multipart.NewWriter(&buf)
				_ = mw.WriteField("note", "x")
				_ = mw.Close()
				r := httptest.NewRequest(http.MethodPost, "/api/upload/csv-results", &buf)
				r.Header.Set("Content-Type", mw.FormDataContentType())
				return r
			}(),
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantErr)
			}
		})
	}
}

func TestHandlePreview_HTMX(t *testing.T) {
	s, store := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/upload/preview", strings.NewReader(uploadCSV))
	req.Header.Set("HX-Request", "true")
	rec := do(t, s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Would insert 3") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if store.Len() != 0 {
		t.Error("preview wrote records")
	}
}

func TestPublishAndStudentView(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, httptest.NewRequest(http.MethodPost, "/api/upload/csv-results", strings.NewReader(uploadCSV)))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/results/student/21CSE101A", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unpublished view status = %d, want 404", rec.Code)
	}

	for i, wantModified := range []int{2, 0} {
		req := httptest.NewRequest(http.MethodPatch, "/api/results/publish",
			strings.NewReader(`{"rollNumbers":["21cse101a"]}`))
		req.Header.Set("Content-Type", "application/json")
		rec = do(t, s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("publish %d status = %d", i, rec.Code)
		}
		var report core.PublishReport
		decode(t, rec, &report)
		if report.Modified != wantModified {
			t.Errorf("publish %d modifiedCount = %d, want %d", i, report.Modified, wantModified)
		}
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/results/student/21cse101a", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("student view status = %d", rec.Code)
	}
	var view core.StudentResults
	decode(t, rec, &view)
	if len(view.Results) != 2 || view.Results[0].Grade != "A+" || view.TotalCredits != 7 {
		t.Errorf("view = %+v", view)
	}

	// The student dashboard reads the identity from a nested object.
	body := rec.Body.Bytes()
	if got := gjson.GetBytes(body, "student.studentName").String(); got != "Asha Rao" {
		t.Errorf("student.studentName = %q, want Asha Rao", got)
	}
	if got := gjson.GetBytes(body, "student.rollNumber").String(); got != "21CSE101A" {
		t.Errorf("student.rollNumber = %q, want 21CSE101A", got)
	}
}

func TestHandlePublish_BadBodies(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		body     string
		wantCode string
	}{
		{`not json`, "VAL004"},
		{`{"rollNumbers":"21CSE101A"}`, "VAL004"},
		{`{"rollNumbers":[]}`, "PUB001"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/results/publish", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleStudentResults_InvalidRoll(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/results/student/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStatsAndStudents(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, httptest.NewRequest(http.MethodPost, "/api/upload/csv-results", strings.NewReader(uploadCSV)))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/results/stats", nil))
	var stats core.ResultStats
	decode(t, rec, &stats)
	if stats.TotalResults != 3 || stats.TotalStudents != 2 || stats.PublishedResults != 0 {
		t.Errorf("stats = %+v", stats)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	var list struct {
		Total    int                   `json:"total"`
		Count    int                   `json:"count"`
		Students []core.StudentSummary `json:"students"`
	}
	decode(t, rec, &list)
	if list.Total != 2 || list.Count != 2 || list.Students[1].RollNumber != "21CSE102B" {
		t.Errorf("students = %+v", list)
	}
}

func TestHandleGPA(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		body    string
		wantGPA string
	}{
		{`{"courses":[{"grade":"A","credits":3},{"grade":"B+","credits":4}]}`, "8.86"},
		{`{"courses":[{"grade":"A","credits":3},{"grade":"B","credits":5}]}`, "8.13"},
		{`{"courses":[]}`, "0.00"},
		{`{"courses":[{"grade":"Z","credits":2}]}`, "0.00"},
	}
	for _, tt := range tests {
		rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/gpa", strings.NewReader(tt.body)))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d for %s", rec.Code, tt.body)
		}
		var resp struct {
			GPA string `json:"gpa"`
		}
		decode(t, rec, &resp)
		if resp.GPA != tt.wantGPA {
			t.Errorf("gpa(%s) = %q, want %q", tt.body, resp.GPA, tt.wantGPA)
		}
	}
}

func TestHandleGPA_RejectsNonIntegerCredits(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []string{
		`{"courses":[{"grade":"A","credits":3.5}]}`,
		`{"courses":[{"grade":"A","credits":"abc"}]}`,
		`{"courses":[{"grade":"A","credits":"3"}]}`,
		`{"courses":[{"grade":"A"}]}`,
		`{"courses":[{"grade":"A","credits":3},{"grade":"B","credits":null}]}`,
	}
	for _, body := range tests {
		t.Run(body, func(t *testing.T) {
			rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/gpa", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Code != "VAL004" {
				t.Errorf("code = %q, want VAL004", resp.Code)
			}
		})
	}
}

func TestHandleTemplate(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/template", nil))

	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, core.TemplateFileName) {
		t.Errorf("Content-Disposition = %q", got)
	}
	batch, err := core.ParseBatch(rec.Body.String())
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if len(batch.Records) != 10 {
		t.Errorf("template rows = %d, want 10", len(batch.Records))
	}
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"RATE_LIMIT_ENABLED":             "true",
		"RATE_LIMIT_REQUESTS_PER_MINUTE": "2",
	})

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		codes = append(codes, do(t, s, req).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want 200, 200, 429", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.RemoteAddr = "192.0.2.11:5555"
	if got := do(t, s, other).Code; got != http.StatusOK {
		t.Errorf("other client status = %d, want 200", got)
	}
}

func TestErrorAlert_Escapes(t *testing.T) {
	var buf bytes.Buffer
	err := ErrorAlert(core.UserMessage{Message: "<b>bad</b>", Code: "ERR000"}).Render(t.Context(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<b>") {
		t.Errorf("ErrorAlert did not escape: %s", buf.String())
	}
}
