package aggregates

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
)

const opCaseCommit = "attestation.case_resolution.commit"

type CaseResolutionAggregateDeps struct {
	Base     BaseDeps
	Cases    repos.CaseRepo
	Versions repos.BallotVersionRepo
	Tables   repos.ElectoralTableRepo
}

type caseResolutionAggregate struct {
	deps CaseResolutionAggregateDeps
}

func NewCaseResolutionAggregate(deps CaseResolutionAggregateDeps) domainagg.CaseResolutionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &caseResolutionAggregate{deps: deps}
}

func (a *caseResolutionAggregate) Contract() domainagg.Contract {
	return domainagg.CaseResolutionAggregateContract
}

func (a *caseResolutionAggregate) Commit(ctx context.Context, in domainagg.CommitCaseInput) (domainagg.CommitCaseResult, error) {
	in.TableCode = strings.TrimSpace(in.TableCode)
	status := types.CaseStatus(strings.TrimSpace(in.Status))
	out := domainagg.CommitCaseResult{TableCode: in.TableCode, Status: string(status)}

	if err := validateCommit(in.TableCode, status, in.WinningVersionID); err != nil {
		return out, MapError(opCaseCommit, err)
	}
	summary, err := encodeSummary(in.Summary)
	if err != nil {
		return out, MapError(opCaseCommit, ValidationError("summary is not JSON encodable: "+err.Error()))
	}
	resolvedAt := in.ResolvedAt.UTC()
	if in.ResolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}

	err = executeWrite(ctx, a.deps.Base, opCaseCommit, func(dbc dbctx.Context) error {
		out = domainagg.CommitCaseResult{TableCode: in.TableCode, Status: string(status)}
		existing, err := a.deps.Cases.GetByTableCode(dbc, in.TableCode)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status.Terminal() {
			out.Skipped = true
			out.Status = string(existing.Status)
			out.FlaggedVersion = existing.WinningVersionID
			return nil
		}

		if in.WinningVersionID != nil {
			v, err := a.deps.Versions.GetByID(dbc, *in.WinningVersionID)
			if err != nil {
				return err
			}
			if v == nil || v.TableCode != in.TableCode {
				return InvariantError("winning version " + in.WinningVersionID.String() + " does not belong to table " + in.TableCode)
			}
		}

		row := &types.Case{
			TableCode:        in.TableCode,
			Status:           status,
			WinningVersionID: in.WinningVersionID,
			Rationale:        in.Rationale,
			Summary:          summary,
			ResolvedAt:       resolvedAt,
		}
		if existing != nil {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
		}
		if err := a.deps.Cases.Upsert(dbc, row); err != nil {
			return err
		}

		if _, err := a.deps.Versions.ClearCountsForTable(dbc, in.TableCode); err != nil {
			return err
		}
		if in.WinningVersionID != nil {
			if err := a.deps.Versions.SetCounts(dbc, *in.WinningVersionID); err != nil {
				return err
			}
			w := *in.WinningVersionID
			out.FlaggedVersion = &w
		}

		observed := status == types.CaseUnresolved
		found, err := a.deps.Tables.SetObserved(dbc, in.TableCode, observed)
		if err != nil {
			return err
		}
		if !found {
			a.deps.Base.Log.Debug("no registry row for table, observed flag not written", "table_code", in.TableCode)
		}
		out.Observed = observed
		return nil
	})
	if err != nil {
		return domainagg.CommitCaseResult{TableCode: in.TableCode, Status: string(status)}, err
	}
	return out, nil
}

func validateCommit(tableCode string, status types.CaseStatus, winner *uuid.UUID) error {
	if tableCode == "" {
		return ValidationError("table code is required")
	}
	if !status.Valid() {
		return ValidationError("unknown case status " + string(status))
	}
	if winner != nil && *winner == uuid.Nil {
		return ValidationError("winning version id is nil")
	}
	switch status {
	case types.CaseUnresolved, types.CaseDisputed:
		if winner != nil {
			return InvariantError(string(status) + " case cannot carry a winner")
		}
	case types.CaseFinal, types.CaseAgreed, types.CasePending:
		if winner == nil {
			return InvariantError(string(status) + " case requires a winner")
		}
	}
	return nil
}

func encodeSummary(summary map[string]any) (datatypes.JSON, error) {
	if len(summary) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
