package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	"github.com/yungbote/ballot-consensus-backend/internal/data/repos/testutil"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

var electionDay = time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)

type env struct {
	db  *gorm.DB
	log *logger.Logger
	ctx context.Context
	now time.Time

	windows      WindowService
	attestations AttestationService
	cases        CaseService
	resolver     ResolverService
}

func (e *env) clock() time.Time { return e.now }

func (e *env) dbc() dbctx.Context { return dbctx.Context{Ctx: e.ctx} }

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		db:  testutil.DB(t),
		log: testutil.Logger(t),
		ctx: context.Background(),
		now: electionDay,
	}
	windowRepo := repos.NewWindowConfigRepo(e.db, e.log)
	attRepo := repos.NewAttestationRepo(e.db, e.log)
	versionRepo := repos.NewBallotVersionRepo(e.db, e.log)
	caseRepo := repos.NewCaseRepo(e.db, e.log)
	tableRepo := repos.NewElectoralTableRepo(e.db, e.log)

	e.windows = NewWindowService(e.db, e.log, windowRepo, "America/La_Paz", e.clock)
	e.attestations = NewAttestationService(e.db, e.log, attRepo, versionRepo, nil, e.clock)
	e.cases = NewCaseService(e.db, e.log, caseRepo, versionRepo)
	e.resolver = NewResolverService(e.log, ResolverConfig{Concurrency: 3, StoreTimeout: 30 * time.Second}, ResolverDeps{
		Windows:      e.windows,
		Attestations: attRepo,
		Versions:     versionRepo,
		Cases: aggregates.NewCaseResolutionAggregate(aggregates.CaseResolutionAggregateDeps{
			Base:     aggregates.BaseDeps{DB: e.db, Log: e.log},
			Cases:    caseRepo,
			Versions: versionRepo,
			Tables:   tableRepo,
		}),
		Clock: e.clock,
	})
	return e
}

// closedWindow seeds an active window whose voting ended an hour before e.now.
func (e *env) closedWindow(t *testing.T) {
	t.Helper()
	testutil.SeedWindow(t, e.ctx, e.db, e.now.Add(-10*time.Hour), e.now.Add(-time.Hour), e.now.Add(-time.Hour), false)
}
