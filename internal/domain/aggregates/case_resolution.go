package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var CaseResolutionAggregateContract = Contract{
	Name:   "Attestation.CaseResolutionAggregate",
	Writes: []string{"attestation_cases", "ballot_versions", "electoral_tables"},
	Notes:  "Owns the case upsert, the counts-toward-totals flags of a table's versions and the table's observed flag.",
}

// CaseResolutionAggregate applies a resolver verdict for one table.
//
// Commit writes the case, re-points counts_toward_totals to the winner and sets the
// reference table's observed flag in one transaction. A case already FINAL is left
// untouched and reported with Skipped=true.
type CaseResolutionAggregate interface {
	Aggregate

	Commit(ctx context.Context, in CommitCaseInput) (CommitCaseResult, error)
}

type CommitCaseInput struct {
	TableCode        string
	Status           string
	WinningVersionID *uuid.UUID
	Rationale        string
	Summary          map[string]any
	ResolvedAt       time.Time
}

type CommitCaseResult struct {
	TableCode      string
	Status         string
	Skipped        bool
	FlaggedVersion *uuid.UUID
	Observed       bool
}
