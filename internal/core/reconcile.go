package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UpdateNotice is the notice emitted for every planned update.
func UpdateNotice(key Key) string {
	return fmt.Sprintf("Updated existing result for %s/%s", key.RollNumber, key.CourseCode)
}

// PlanChanges classifies each clean candidate as an insert or an update.
//
// One FindByKey is issued per distinct key. A key repeated within the batch is
// planned as an update of the row already planned for it, so applying the plan
// in row order leaves the last row's values in storage.
func PlanChanges(ctx context.Context, lookup KeyLookup, cands []Candidate) (*ChangePlan, error) {
	plan := &ChangePlan{}
	planned := make(map[Key]ResultRecord, len(cands))

	for _, c := range cands {
		key := c.Record.Key()

		existing, found := planned[key]
		if !found {
			rec, ok, err := lookup.FindByKey(ctx, key)
			if err != nil {
				return nil, &StoreError{Op: "find", Key: key, Err: err}
			}
			existing, found = rec, ok
		}

		if !found {
			rec := c.Record
			rec.ID = uuid.New().String()
			if !c.HasPublished {
				rec.Published = false
			}
			planned[key] = rec
			plan.ToInsert = append(plan.ToInsert, PlannedChange{
				Row:    c.Row,
				Op:     OpInsert,
				Record: rec,
			})
			continue
		}

		rec := mergeUpdate(existing, c)
		planned[key] = rec
		notice := UpdateNotice(key)
		plan.ToUpdate = append(plan.ToUpdate, PlannedChange{
			Row:    c.Row,
			Op:     OpUpdate,
			Record: rec,
			Notice: notice,
		})
		plan.Notices = append(plan.Notices, notice)
	}

	return plan, nil
}

// mergeUpdate overwrites the marks, name and course metadata of an existing
// record. Published and credits are only overwritten when the batch supplied them.
func mergeUpdate(existing ResultRecord, c Candidate) ResultRecord {
	rec := existing
	rec.Marks = c.Record.Marks
	rec.StudentName = c.Record.StudentName
	rec.CourseName = c.Record.CourseName
	rec.Semester = c.Record.Semester
	rec.ExamType = c.Record.ExamType
	if c.HasPublished {
		rec.Published = c.Record.Published
	}
	if c.HasCredits {
		rec.Credits = c.Record.Credits
	}
	return rec
}
