package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type Repos struct {
	Versions     repos.BallotVersionRepo
	Attestations repos.AttestationRepo
	Cases        repos.CaseRepo
	Windows      repos.WindowConfigRepo
	Tables       repos.ElectoralTableRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Versions:     repos.NewBallotVersionRepo(db, log),
		Attestations: repos.NewAttestationRepo(db, log),
		Cases:        repos.NewCaseRepo(db, log),
		Windows:      repos.NewWindowConfigRepo(db, log),
		Tables:       repos.NewElectoralTableRepo(db, log),
	}
}
