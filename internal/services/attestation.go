package services

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/domain/attestation"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

const MaxBulkItems = 1000

// Per-item failure codes reported by CreateBulk.
const (
	ReasonInvalidItem          = "invalid_item"
	ReasonInvalidRole          = "invalid_role"
	ReasonInvalidStance        = "invalid_stance"
	ReasonVersionNotFound      = "version_not_found"
	ReasonDuplicateAttestation = "duplicate_attestation"
	ReasonStoreError           = "store_error"
)

type AttestationItem struct {
	VersionID   string `json:"version_id" validate:"required,uuid"`
	SubmitterID string `json:"submitter_id" validate:"required,uuid"`
	Role        string `json:"role" validate:"required"`
	Stance      string `json:"stance" validate:"required"`
}

type BulkFailure struct {
	Index  int             `json:"index"`
	Code   string          `json:"code"`
	Reason string          `json:"reason"`
	Item   AttestationItem `json:"data"`
}

type BulkSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type BulkResult struct {
	Created []*types.Attestation `json:"created"`
	Failed  []BulkFailure        `json:"failed"`
	Summary BulkSummary          `json:"summary"`
}

type AttestationService interface {
	CreateBulk(dbc dbctx.Context, items []AttestationItem) (*BulkResult, error)
	List(dbc dbctx.Context, f repos.AttestationListFilter) ([]*types.Attestation, int64, error)
	ListByVersion(dbc dbctx.Context, versionID uuid.UUID) ([]*types.Attestation, error)
	MostSupported(dbc dbctx.Context, tableCode string) (*repos.VersionSupport, error)
	Remove(dbc dbctx.Context, id uuid.UUID) error
}

type attestationService struct {
	db           *gorm.DB
	log          *logger.Logger
	attestations repos.AttestationRepo
	versions     repos.BallotVersionRepo
	metrics      *observability.Metrics
	validate     *validator.Validate
	clock        Clock
}

func NewAttestationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	attestations repos.AttestationRepo,
	versions repos.BallotVersionRepo,
	metrics *observability.Metrics,
	clock Clock,
) AttestationService {
	if clock == nil {
		clock = systemClock
	}
	return &attestationService{
		db:           db,
		log:          baseLog.With("service", "AttestationService"),
		attestations: attestations,
		versions:     versions,
		metrics:      metrics,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		clock:        clock,
	}
}

// CreateBulk stores each item independently. Item failures are reported in the result
// and never abort the batch; the error return is reserved for an unusable batch.
func (s *attestationService) CreateBulk(dbc dbctx.Context, items []AttestationItem) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no attestations submitted", pkgerrors.ErrInvalidArgument)
	}
	if len(items) > MaxBulkItems {
		return nil, fmt.Errorf("%w: at most %d attestations per request", pkgerrors.ErrInvalidArgument, MaxBulkItems)
	}

	res := &BulkResult{
		Created: make([]*types.Attestation, 0, len(items)),
		Failed:  []BulkFailure{},
	}
	known := map[uuid.UUID]bool{}
	fail := func(i int, item AttestationItem, code, reason string) {
		res.Failed = append(res.Failed, BulkFailure{Index: i, Code: code, Reason: reason, Item: item})
		s.metrics.IncIngest(code)
	}

	for i, item := range items {
		if err := s.validate.Struct(item); err != nil {
			fail(i, item, ReasonInvalidItem, err.Error())
			continue
		}
		role := attestation.ParseRole(item.Role)
		if !role.Valid() {
			fail(i, item, ReasonInvalidRole, fmt.Sprintf("role must be %q or %q", attestation.RoleJury, attestation.RoleObserver))
			continue
		}
		stance := attestation.ParseStance(item.Stance)
		if !stance.Valid() {
			fail(i, item, ReasonInvalidStance, fmt.Sprintf("stance must be %q or %q", attestation.StanceSupport, attestation.StanceReject))
			continue
		}
		versionID := uuid.MustParse(strings.TrimSpace(item.VersionID))
		submitterID := uuid.MustParse(strings.TrimSpace(item.SubmitterID))

		exists, seen := known[versionID]
		if !seen {
			v, err := s.versions.GetByID(dbc, versionID)
			if err != nil {
				s.log.Error("version lookup failed", "version_id", versionID, "error", err)
				fail(i, item, ReasonStoreError, "could not verify version")
				continue
			}
			exists = v != nil
			known[versionID] = exists
		}
		if !exists {
			fail(i, item, ReasonVersionNotFound, "version does not exist")
			continue
		}

		att := &types.Attestation{
			ID:          uuid.New(),
			VersionID:   versionID,
			SubmitterID: submitterID,
			Role:        role,
			Stance:      stance,
			CreatedAt:   s.clock().UTC(),
		}
		inserted, err := s.attestations.InsertIfAbsent(dbc, att)
		if err != nil {
			if isUniqueViolation(err) {
				fail(i, item, ReasonDuplicateAttestation, "submitter already attested this version")
				continue
			}
			s.log.Error("attestation insert failed", "version_id", versionID, "submitter_id", submitterID, "error", err)
			fail(i, item, ReasonStoreError, "could not store attestation")
			continue
		}
		if !inserted {
			fail(i, item, ReasonDuplicateAttestation, "submitter already attested this version")
			continue
		}
		res.Created = append(res.Created, att)
		s.metrics.IncIngest("created")
	}

	res.Summary = BulkSummary{Total: len(items), Successful: len(res.Created), Failed: len(res.Failed)}
	s.log.Info("attestation batch processed",
		"total", res.Summary.Total,
		"successful", res.Summary.Successful,
		"failed", res.Summary.Failed,
	)
	return res, nil
}

func (s *attestationService) List(dbc dbctx.Context, f repos.AttestationListFilter) ([]*types.Attestation, int64, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown role %q", pkgerrors.ErrInvalidArgument, f.Role)
	}
	if f.Stance != "" && !f.Stance.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown stance %q", pkgerrors.ErrInvalidArgument, f.Stance)
	}
	return s.attestations.List(dbc, f)
}

func (s *attestationService) ListByVersion(dbc dbctx.Context, versionID uuid.UUID) ([]*types.Attestation, error) {
	v, err := s.versions.GetByID(dbc, versionID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("version %s: %w", versionID, pkgerrors.ErrNotFound)
	}
	return s.attestations.ListByVersion(dbc, versionID)
}

func (s *attestationService) MostSupported(dbc dbctx.Context, tableCode string) (*repos.VersionSupport, error) {
	tableCode = strings.TrimSpace(tableCode)
	if tableCode == "" {
		return nil, fmt.Errorf("%w: table code is required", pkgerrors.ErrInvalidArgument)
	}
	top, err := s.attestations.MostSupported(dbc, tableCode)
	if err != nil {
		return nil, err
	}
	if top == nil {
		return nil, fmt.Errorf("no supported version for table %s: %w", tableCode, pkgerrors.ErrNotFound)
	}
	return top, nil
}

func (s *attestationService) Remove(dbc dbctx.Context, id uuid.UUID) error {
	ok, err := s.attestations.Delete(dbc, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("attestation %s: %w", id, pkgerrors.ErrNotFound)
	}
	s.log.Warn("attestation removed by operator", "attestation_id", id)
	return nil
}
