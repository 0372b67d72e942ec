// Package core provides the business logic for academic result ingestion.
//
// This package holds all domain logic independent of any UI, transport or
// storage engine. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Pipeline
//
// An uploaded batch flows through pure stages, then one stateful one:
//
//  1. [ParseBatch] splits the text into [RawRecord]s with a quote-aware scanner
//  2. [Normalize] trims, upper-cases identifiers and coerces numbers
//  3. [ValidateBatch] collects every [ValidationError] of every row
//  4. [PlanChanges] asks the store about each key and builds a [ChangePlan]
//  5. [ApplyPlan] upserts each change independently and reports per record
//
// [Service.Preview] stops after step 4; [Service.Upload] runs all five. A batch
// with any validation error never reaches step 4.
//
// # Store Contract
//
// Persistence is an external collaborator described by [Store]: FindByKey,
// Upsert, FindByStudent and SetPublished. Every call gets its own timeout and
// is retried on timeout; a failed call fails only its own record.
//
// # Grades
//
// [GradeFromMarks] gives the display grade for a mark. [ComputeGPA] averages
// pre-assigned letter grades weighted by credits. The two use separate tables.
//
// # Error Handling
//
// [ErrMalformedInput] and [ErrMissingColumns] abort a batch. Store failures are
// wrapped in [StoreError]. [MapError] turns any of them into a [UserMessage]
// with a support code.
package core
