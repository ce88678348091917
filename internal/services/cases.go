package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type CaseQuery struct {
	Statuses     string
	Department   string
	Province     string
	Municipality string
	Limit        int
	Offset       int
}

type CaseService interface {
	Get(dbc dbctx.Context, tableCode string) (*types.Case, error)
	List(dbc dbctx.Context, q CaseQuery) ([]*types.Case, int64, error)
	CountedVersion(dbc dbctx.Context, tableCode string) (*types.BallotVersion, error)
	CountByStatus(dbc dbctx.Context) (map[types.CaseStatus]int64, error)
}

type caseService struct {
	db       *gorm.DB
	log      *logger.Logger
	cases    repos.CaseRepo
	versions repos.BallotVersionRepo
}

func NewCaseService(db *gorm.DB, baseLog *logger.Logger, cases repos.CaseRepo, versions repos.BallotVersionRepo) CaseService {
	return &caseService{
		db:       db,
		log:      baseLog.With("service", "CaseService"),
		cases:    cases,
		versions: versions,
	}
}

func (s *caseService) Get(dbc dbctx.Context, tableCode string) (*types.Case, error) {
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return nil, fmt.Errorf("%w: table code is required", pkgerrors.ErrInvalidArgument)
	}
	c, err := s.cases.GetByTableCode(dbc, tableCode)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("case for table %s: %w", tableCode, pkgerrors.ErrNotFound)
	}
	return c, nil
}

func (s *caseService) List(dbc dbctx.Context, q CaseQuery) ([]*types.Case, int64, error) {
	statuses, err := ParseCaseStatuses(q.Statuses)
	if err != nil {
		return nil, 0, err
	}
	return s.cases.List(dbc, repos.CaseFilter{
		Statuses:     statuses,
		Department:   q.Department,
		Province:     q.Province,
		Municipality: q.Municipality,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
}

// CountedVersion returns the version flagged to count toward totals for tableCode.
func (s *caseService) CountedVersion(dbc dbctx.Context, tableCode string) (*types.BallotVersion, error) {
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return nil, fmt.Errorf("%w: table code is required", pkgerrors.ErrInvalidArgument)
	}
	v, err := s.versions.GetCounted(dbc, tableCode)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("no counted version for table %s: %w", tableCode, pkgerrors.ErrNotFound)
	}
	return v, nil
}

func (s *caseService) CountByStatus(dbc dbctx.Context) (map[types.CaseStatus]int64, error) {
	return s.cases.CountByStatus(dbc)
}

// ParseCaseStatuses splits a comma-separated status list. Empty input means no filter.
func ParseCaseStatuses(csv string) ([]types.CaseStatus, error) {
	var out []types.CaseStatus
	seen := map[types.CaseStatus]bool{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st := types.CaseStatus(part)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown case status %q", pkgerrors.ErrInvalidArgument, part)
		}
		if seen[st] {
			continue
		}
		seen[st] = true
		out = append(out, st)
	}
	return out, nil
}
