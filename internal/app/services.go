package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ballot-consensus-backend/internal/data/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

type Services struct {
	Windows      services.WindowService
	Attestations services.AttestationService
	Cases        services.CaseService
	Resolver     services.ResolverService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, metrics *observability.Metrics, lock services.RunLock, clock services.Clock) Services {
	log.Info("Wiring services...")

	windows := services.NewWindowService(db, log, r.Windows, cfg.ElectionTimezone, clock)
	attestations := services.NewAttestationService(db, log, r.Attestations, r.Versions, metrics, clock)
	cases := services.NewCaseService(db, log, r.Cases, r.Versions)

	caseAgg := aggregates.NewCaseResolutionAggregate(aggregates.CaseResolutionAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Cases:    r.Cases,
		Versions: r.Versions,
		Tables:   r.Tables,
	})

	resolver := services.NewResolverService(log, services.ResolverConfig{
		Concurrency:  cfg.ResolverConcurrency,
		StoreTimeout: cfg.StoreTimeout,
	}, services.ResolverDeps{
		Windows:      windows,
		Attestations: r.Attestations,
		Versions:     r.Versions,
		Cases:        caseAgg,
		Metrics:      metrics,
		Lock:         lock,
		Clock:        clock,
	})

	return Services{
		Windows:      windows,
		Attestations: attestations,
		Cases:        cases,
		Resolver:     resolver,
	}
}
