// Command resultctl checks result files offline and computes GPAs.
//
//	resultctl validate -sqlite results.db sem3.csv
//	resultctl template > result_upload_template.csv
//	resultctl gpa A:3 B+:4
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
)

func main() {
	root := newRootCommand(os.Stdout)
	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// errCheckFailed is returned after the failures have already been printed.
var errCheckFailed = errors.New("check failed")

func newRootCommand(out io.Writer) *ffcli.Command {
	return &ffcli.Command{
		ShortUsage: "resultctl <subcommand> [flags] [args]",
		ShortHelp:  "Offline tools for academic result files.",
		Subcommands: []*ffcli.Command{
			newValidateCommand(out),
			newTemplateCommand(out),
			newGPACommand(out),
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
}
