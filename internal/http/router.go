package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/ballot-consensus-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ballot-consensus-backend/internal/http/middleware"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware
	WindowGuard    *httpMW.WindowGuard

	HealthHandler      *httpH.HealthHandler
	WindowHandler      *httpH.WindowHandler
	AttestationHandler *httpH.AttestationHandler
	CaseHandler        *httpH.CaseHandler
	ResolverHandler    *httpH.ResolverHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	{
		if cfg.WindowHandler != nil {
			api.GET("/window/status", cfg.WindowHandler.Status)
		}

		if cfg.AttestationHandler != nil {
			submit := []gin.HandlerFunc{}
			if cfg.WindowGuard != nil {
				submit = append(submit, cfg.WindowGuard.RequireMutationsOpen())
			}
			submit = append(submit, cfg.AttestationHandler.CreateBulk)
			api.POST("/attestations", submit...)
			api.GET("/attestations", cfg.AttestationHandler.List)
			api.GET("/attestations/version/:versionId", cfg.AttestationHandler.ListByVersion)
			api.GET("/attestations/submitter/:submitterId", cfg.AttestationHandler.ListBySubmitter)
			api.GET("/attestations/most-supported/:tableCode", cfg.AttestationHandler.MostSupported)
		}

		if cfg.CaseHandler != nil {
			api.GET("/cases", cfg.CaseHandler.List)
			api.GET("/cases/:tableCode", cfg.CaseHandler.Get)

			counted := []gin.HandlerFunc{}
			if cfg.WindowGuard != nil {
				counted = append(counted, cfg.WindowGuard.RequireResultsOpen())
			}
			counted = append(counted, cfg.CaseHandler.CountedVersion)
			api.GET("/tables/:tableCode/counted-version", counted...)
		}
	}

	admin := api.Group("/admin")
	{
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}

		if cfg.WindowHandler != nil {
			admin.POST("/windows", cfg.WindowHandler.Create)
			admin.GET("/windows", cfg.WindowHandler.List)
			admin.GET("/windows/:id", cfg.WindowHandler.Get)
			admin.PATCH("/windows/:id", cfg.WindowHandler.Update)
			admin.PATCH("/windows/active/override", cfg.WindowHandler.SetOverride)
		}
		if cfg.ResolverHandler != nil {
			admin.POST("/resolver/run", cfg.ResolverHandler.Run)
		}
		if cfg.AttestationHandler != nil {
			admin.DELETE("/attestations/:id", cfg.AttestationHandler.Remove)
		}
	}

	return r
}
