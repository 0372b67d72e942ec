package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/JonMunkholm/resultportal/internal/core"
	"github.com/JonMunkholm/resultportal/internal/store/memory"
	"github.com/JonMunkholm/resultportal/internal/store/sqlite"
)

func newValidateCommand(out io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("resultctl validate", flag.ContinueOnError)
	var (
		sqlitePath = fs.String("sqlite", "", "plan against this sqlite result store instead of an empty one")
		maxSize    = fs.Int64("max-size", core.DefaultMaxFileSize, "maximum file size in bytes")
		asJSON     = fs.Bool("json", false, "print the full report as JSON")
	)

	return &ffcli.Command{
		Name:       "validate",
		ShortUsage: "resultctl validate [flags] <file.csv>",
		ShortHelp:  "Parse, validate and plan a result file without writing it.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix("RESULTCTL")},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("validate takes exactly one file")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var repo core.Repository = memory.New()
			if *sqlitePath != "" {
				store, err := sqlite.Open(*sqlitePath)
				if err != nil {
					return err
				}
				defer store.Close()
				repo = store
			}

			svc := core.NewService(repo, core.Options{MaxFileSize: *maxSize})
			report, err := svc.Preview(ctx, data)
			if err != nil {
				return core.NewUserError(err)
			}
			if *asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}
			if !report.Valid() {
				return errCheckFailed
			}
			return nil
		},
	}
}

func printReport(out io.Writer, report *core.IngestReport) {
	fmt.Fprintf(out, "rows: %d\n", report.TotalRows)
	if len(report.SkippedRows) > 0 {
		fmt.Fprintf(out, "skipped rows: %v\n", report.SkippedRows)
	}
	if !report.Valid() {
		fmt.Fprintln(out, core.FormatUserError(core.ErrValidationFailed))
		for _, e := range report.Errors {
			fmt.Fprintf(out, "  %s (value %q)\n", e.Error(), e.Value)
		}
		return
	}
	fmt.Fprintf(out, "would insert %d, update %d\n", len(report.Plan.ToInsert), len(report.Plan.ToUpdate))
	for _, n := range report.Notices {
		fmt.Fprintf(out, "  %s\n", n)
	}
}

func newTemplateCommand(out io.Writer) *ffcli.Command {
	return &ffcli.Command{
		Name:       "template",
		ShortUsage: "resultctl template",
		ShortHelp:  "Print the upload template.",
		Exec: func(ctx context.Context, args []string) error {
			_, err := fmt.Fprintln(out, core.ResultTemplateCSV)
			return err
		},
	}
}

func newGPACommand(out io.Writer) *ffcli.Command {
	return &ffcli.Command{
		Name:       "gpa",
		ShortUsage: "resultctl gpa <grade:credits>...",
		ShortHelp:  "Compute a credit-weighted GPA from letter grades.",
		Exec: func(ctx context.Context, args []string) error {
			courses, err := parseCourses(args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "GPA %s over %d credits\n", core.ComputeGPA(courses), core.TotalCredits(courses))
			return err
		},
	}
}

// parseCourses reads "A:3" style arguments.
func parseCourses(args []string) ([]core.CourseGrade, error) {
	courses := make([]core.CourseGrade, 0, len(args))
	for _, arg := range args {
		grade, credits, ok := strings.Cut(arg, ":")
		if !ok || grade == "" {
			return nil, fmt.Errorf("invalid course %q: want GRADE:CREDITS", arg)
		}
		n, err := strconv.Atoi(credits)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid credits in %q", arg)
		}
		courses = append(courses, core.CourseGrade{Grade: strings.ToUpper(grade), Credits: n})
	}
	return courses, nil
}
