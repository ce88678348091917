package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos/attestation"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos/ballots"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos/elections"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos/geo"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type BallotVersionRepo = ballots.BallotVersionRepo

type AttestationRepo = attestation.AttestationRepo
type AttestationListFilter = attestation.ListFilter
type VersionSupport = attestation.VersionSupport
type CaseRepo = attestation.CaseRepo
type CaseFilter = attestation.CaseFilter

type WindowConfigRepo = elections.WindowConfigRepo

type ElectoralTableRepo = geo.ElectoralTableRepo

func NewBallotVersionRepo(db *gorm.DB, baseLog *logger.Logger) BallotVersionRepo {
	return ballots.NewBallotVersionRepo(db, baseLog)
}

func NewAttestationRepo(db *gorm.DB, baseLog *logger.Logger) AttestationRepo {
	return attestation.NewAttestationRepo(db, baseLog)
}

func NewCaseRepo(db *gorm.DB, baseLog *logger.Logger) CaseRepo {
	return attestation.NewCaseRepo(db, baseLog)
}

func NewWindowConfigRepo(db *gorm.DB, baseLog *logger.Logger) WindowConfigRepo {
	return elections.NewWindowConfigRepo(db, baseLog)
}

func NewElectoralTableRepo(db *gorm.DB, baseLog *logger.Logger) ElectoralTableRepo {
	return geo.NewElectoralTableRepo(db, baseLog)
}
