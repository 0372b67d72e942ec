package web

// views.go holds the HTML fragments returned to HTMX clients.

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/resultportal/internal/core"
)

// ErrorAlert renders a dismissible error box with the support code.
func ErrorAlert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p>`+
				`<p class="alert-action">%s</p><p class="alert-code">Code: %s</p></div>`,
			templ.EscapeString(msg.Message),
			templ.EscapeString(msg.Action),
			templ.EscapeString(msg.Code),
		)
		return err
	})
}

// UploadSummary renders the outcome of a preview or upload: the counts, the
// update notices and every validation error.
func UploadSummary(report *core.IngestReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}

		if !report.Valid() {
			ew.printf(`<div class="upload-summary upload-invalid"><p>%d errors in %d of %d rows</p><table class="validation-errors">`,
				len(report.Errors), failedRows(report.Errors), report.TotalRows)
			ew.printf(`<tr><th>Row</th><th>Field</th><th>Value</th><th>Problem</th></tr>`)
			for _, e := range report.Errors {
				ew.printf(`<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					e.Row, templ.EscapeString(e.Field), templ.EscapeString(e.Value), templ.EscapeString(e.Message))
			}
			ew.printf(`</table></div>`)
			return ew.err
		}

		if report.Applied {
			ew.printf(`<div class="upload-summary"><p>Inserted %d, updated %d, failed %d</p>`,
				report.Inserted, report.Updated, report.Failed)
		} else if report.Plan != nil {
			ew.printf(`<div class="upload-summary upload-preview"><p>Would insert %d, update %d</p>`,
				len(report.Plan.ToInsert), len(report.Plan.ToUpdate))
		}
		if len(report.SkippedRows) > 0 {
			ew.printf(`<p class="upload-skipped">Skipped rows: %v</p>`, report.SkippedRows)
		}
		if len(report.Notices) > 0 {
			ew.printf(`<ul class="upload-notices">`)
			for _, n := range report.Notices {
				ew.printf(`<li>%s</li>`, templ.EscapeString(n))
			}
			ew.printf(`</ul>`)
		}
		ew.printf(`</div>`)
		return ew.err
	})
}

// errWriter keeps the first write error so fragments can be written in sequence.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// failedRows counts the distinct rows that have at least one error.
func failedRows(errs []core.ValidationError) int {
	rows := make(map[int]struct{}, len(errs))
	for _, e := range errs {
		rows[e.Row] = struct{}{}
	}
	return len(rows)
}
