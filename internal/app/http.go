package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/yungbote/ballot-consensus-backend/internal/http"
	httpH "github.com/yungbote/ballot-consensus-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ballot-consensus-backend/internal/http/middleware"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

const serviceName = "ballot-consensus"

func wireRouterConfig(db *gorm.DB, log *logger.Logger, cfg Config, svc Services, metrics *observability.Metrics) apphttp.RouterConfig {
	log.Info("Wiring handlers and middleware...")
	rc := apphttp.RouterConfig{
		Log:         log,
		Metrics:     metrics,
		CORSOrigins: cfg.CORSOrigins,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, cfg.AdminAPIKeys, cfg.AdminJWTSecret),
		WindowGuard:    httpMW.NewWindowGuard(svc.Windows),

		HealthHandler:      httpH.NewHealthHandler(pingDB(db)),
		WindowHandler:      httpH.NewWindowHandler(svc.Windows),
		AttestationHandler: httpH.NewAttestationHandler(svc.Attestations),
		CaseHandler:        httpH.NewCaseHandler(svc.Cases),
		ResolverHandler:    httpH.NewResolverHandler(svc.Resolver),
	}
	if cfg.OtelEnabled {
		rc.ServiceName = serviceName
	}
	return rc
}

func pingDB(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
