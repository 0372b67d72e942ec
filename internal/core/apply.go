package core

// apply.go commits a ChangePlan to a Store.
//
// Each key's change is applied and retried independently; there is no
// multi-record atomicity. Distinct keys are written concurrently by a bounded
// worker group. Changes for the same key run in batch order on one worker.

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults for store calls.
const (
	DefaultWorkers     = 4
	DefaultCallTimeout = 5 * time.Second
	DefaultAttempts    = 2
)

// CallOptions bounds the calls made to the external store.
type CallOptions struct {
	Workers     int           // Parallel records (default: 4)
	CallTimeout time.Duration // Per-call timeout (default: 5s)
	Attempts    int           // Attempts per call; only timeouts are retried (default: 2)
}

func (o CallOptions) withDefaults() CallOptions {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	return o
}

// callStore runs fn with its own timeout, retrying while it times out and the
// parent context is still live.
func callStore(ctx context.Context, opts CallOptions, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < opts.Attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
		err = fn(callCtx)
		cancel()

		if err == nil || !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// ApplyPlan writes every planned change and returns one outcome per change,
// in batch row order. A failure on one record never stops its siblings.
func ApplyPlan(ctx context.Context, store Store, plan *ChangePlan, opts CallOptions) []RecordOutcome {
	opts = opts.withDefaults()
	changes := plan.Changes()
	outcomes := make([]RecordOutcome, len(changes))

	// Group positions by key, keeping batch order inside each group.
	groups := make(map[Key][]int)
	var order []Key
	for i, ch := range changes {
		key := ch.Record.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for _, key := range order {
		positions := groups[key]
		g.Go(func() error {
			for _, i := range positions {
				ch := changes[i]
				outcome := RecordOutcome{
					Row: ch.Row,
					ID:  ch.Record.ID,
					Key: ch.Record.Key(),
					Op:  ch.Op,
				}

				err := callStore(ctx, opts, func(ctx context.Context) error {
					return store.Upsert(ctx, ch.Record)
				})
				if err != nil {
					outcome.Error = (&StoreError{Op: "upsert", Key: outcome.Key, Err: err}).Error()
				} else {
					outcome.Success = true
				}
				outcomes[i] = outcome
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// CountOutcomes tallies applied inserts, applied updates and failures.
func CountOutcomes(outcomes []RecordOutcome) (inserted, updated, failed int) {
	for _, o := range outcomes {
		switch {
		case !o.Success:
			failed++
		case o.Op == OpInsert:
			inserted++
		case o.Op == OpUpdate:
			updated++
		}
	}
	return inserted, updated, failed
}
