package core

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PublishReport summarises one run of the Publication Gate.
type PublishReport struct {
	Requested        []string        `json:"requested"`          // Normalized, de-duplicated roll numbers
	Matched          int             `json:"matchedCount"`       // Records found for the requested students
	Modified         int             `json:"modifiedCount"`      // Records flipped to published by this run
	AlreadyPublished int             `json:"alreadyPublished"`   // Records that needed no change
	Failed           int             `json:"failedCount"`        // Record updates that failed
	LookupFailed     int             `json:"lookupFailedCount"`  // Students whose records could not be read
	Outcomes         []RecordOutcome `json:"outcomes,omitempty"` // One per attempted update or failed lookup
}

// NormalizeRollNumbers trims, upper-cases and de-duplicates roll numbers,
// dropping blanks. The result is sorted for stable reporting.
func NormalizeRollNumbers(rolls []string) []string {
	seen := make(map[string]bool, len(rolls))
	out := make([]string, 0, len(rolls))
	for _, r := range rolls {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// PublishStudents sets published=true on every stored result of the given
// students. It is idempotent: records already published are counted but not
// written, so a second run reports Modified == 0.
//
// A failed lookup for one student or a failed update for one record is
// reported in the outcomes; it never aborts the rest of the run. Lookup
// failures are counted in LookupFailed, record failures in Failed.
func PublishStudents(ctx context.Context, store PublishStore, rolls []string, opts CallOptions) *PublishReport {
	opts = opts.withDefaults()
	report := &PublishReport{Requested: NormalizeRollNumbers(rolls)}

	var pending []ResultRecord
	for _, roll := range report.Requested {
		var recs []ResultRecord
		err := callStore(ctx, opts, func(ctx context.Context) error {
			var err error
			recs, err = store.FindByStudent(ctx, roll)
			return err
		})
		if err != nil {
			report.LookupFailed++
			report.Outcomes = append(report.Outcomes, RecordOutcome{
				Key:   Key{RollNumber: roll},
				Error: (&StoreError{Op: "find_student", Key: Key{RollNumber: roll}, Err: err}).Error(),
			})
			continue
		}

		report.Matched += len(recs)
		for _, rec := range recs {
			if rec.Published {
				report.AlreadyPublished++
				continue
			}
			pending = append(pending, rec)
		}
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(opts.Workers)
	updates := make([]RecordOutcome, len(pending))

	for i, rec := range pending {
		g.Go(func() error {
			outcome := RecordOutcome{ID: rec.ID, Key: rec.Key()}
			err := callStore(ctx, opts, func(ctx context.Context) error {
				return store.SetPublished(ctx, rec.ID, true)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.Error = (&StoreError{Op: "set_published", ID: rec.ID, Err: err}).Error()
				report.Failed++
			} else {
				outcome.Success = true
				report.Modified++
			}
			updates[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes = append(report.Outcomes, updates...)
	return report
}
