package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestApplyPlan_FailuresAreIndependent(t *testing.T) {
	store := newFakeStore()
	store.upsertErr[Key{"21CSE102B", "21CSC201J"}] = errors.New("connection reset by peer")

	plan, err := PlanChanges(context.Background(), store, []Candidate{
		candidate(2, "21CSE101A", "21CSC201J", 85),
		candidate(3, "21CSE102B", "21CSC201J", 75),
		candidate(4, "21CSE103C", "21CSC201J", 65),
	})
	if err != nil {
		t.Fatalf("PlanChanges() error = %v", err)
	}

	outcomes := ApplyPlan(context.Background(), store, plan, CallOptions{Workers: 2})
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}

	for i, want := range []bool{true, false, true} {
		if outcomes[i].Row != i+2 {
			t.Errorf("outcome %d row = %d, want %d", i, outcomes[i].Row, i+2)
		}
		if outcomes[i].Success != want {
			t.Errorf("outcome row %d success = %v, want %v", outcomes[i].Row, outcomes[i].Success, want)
		}
	}
	if !strings.Contains(outcomes[1].Error, "connection reset") {
		t.Errorf("failure error = %q", outcomes[1].Error)
	}

	if _, ok := store.get("21CSE103C", "21CSC201J"); !ok {
		t.Error("record after the failure was not written")
	}

	inserted, updated, failed := CountOutcomes(outcomes)
	if inserted != 2 || updated != 0 || failed != 1 {
		t.Errorf("CountOutcomes() = %d, %d, %d, want 2, 0, 1", inserted, updated, failed)
	}
}

func TestApplyPlan_RetriesTimeouts(t *testing.T) {
	store := newFakeStore()
	var calls atomic.Int32
	store.upsertHook = func(ctx context.Context, _ ResultRecord) error {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	plan, _ := PlanChanges(context.Background(), store, []Candidate{candidate(2, "21CSE101A", "21CSC201J", 85)})
	outcomes := ApplyPlan(context.Background(), store, plan, CallOptions{
		CallTimeout: 20 * time.Millisecond,
		Attempts:    2,
	})

	if !outcomes[0].Success {
		t.Fatalf("outcome = %+v, want success on retry", outcomes[0])
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upsert attempts = %d, want 2", got)
	}
}

func TestApplyPlan_DoesNotRetryOtherErrors(t *testing.T) {
	store := newFakeStore()
	var calls atomic.Int32
	store.upsertHook = func(context.Context, ResultRecord) error {
		calls.Add(1)
		return errors.New("unique constraint violated")
	}

	plan, _ := PlanChanges(context.Background(), store, []Candidate{candidate(2, "21CSE101A", "21CSC201J", 85)})
	outcomes := ApplyPlan(context.Background(), store, plan, CallOptions{Attempts: 3})

	if outcomes[0].Success {
		t.Fatal("outcome succeeded, want failure")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upsert attempts = %d, want 1", got)
	}
}

func TestApplyPlan_TimeoutExhausted(t *testing.T) {
	store := newFakeStore()
	store.upsertHook = func(ctx context.Context, _ ResultRecord) error {
		<-ctx.Done()
		return ctx.Err()
	}

	plan, _ := PlanChanges(context.Background(), store, []Candidate{candidate(2, "21CSE101A", "21CSC201J", 85)})
	outcomes := ApplyPlan(context.Background(), store, plan, CallOptions{
		CallTimeout: 10 * time.Millisecond,
		Attempts:    2,
	})

	if outcomes[0].Success {
		t.Fatal("outcome succeeded, want timeout failure")
	}
	if !strings.Contains(outcomes[0].Error, "deadline exceeded") {
		t.Errorf("error = %q, want deadline exceeded", outcomes[0].Error)
	}
}

func TestCallOptions_Defaults(t *testing.T) {
	got := CallOptions{}.withDefaults()
	want := CallOptions{Workers: DefaultWorkers, CallTimeout: DefaultCallTimeout, Attempts: DefaultAttempts}
	if got != want {
		t.Errorf("withDefaults() = %+v, want %+v", got, want)
	}
}
