package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ballot-consensus-backend/internal/http/response"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/platform/apierr"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

// WindowGuard gates routes on the election schedule.
type WindowGuard struct {
	windows services.WindowService
}

func NewWindowGuard(windows services.WindowService) *WindowGuard {
	return &WindowGuard{windows: windows}
}

// RequireMutationsOpen admits writes during voting or while the override is set.
func (g *WindowGuard) RequireMutationsOpen() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := g.windows.Status(dbctx.Context{Ctx: c.Request.Context()})
		if err != nil {
			response.AbortErr(c, err)
			return
		}
		if !st.HasActiveConfig {
			response.AbortErr(c, apierr.New(http.StatusForbidden, apierr.CodeNoElectionConfig,
				errors.New("no active election configuration")))
			return
		}
		if !st.MutationsOpen {
			response.AbortErr(c, apierr.New(http.StatusForbidden, apierr.CodeOutsideVotingHours,
				fmt.Errorf("submissions are accepted between %s and %s",
					st.Config.VotingStart.Format(time.RFC3339),
					st.Config.VotingEnd.Format(time.RFC3339))))
			return
		}
		c.Next()
	}
}

// RequireResultsOpen admits reads of counted results once the results window opens.
func (g *WindowGuard) RequireResultsOpen() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := g.windows.Status(dbctx.Context{Ctx: c.Request.Context()})
		if err != nil {
			response.AbortErr(c, err)
			return
		}
		if !st.HasActiveConfig {
			response.AbortErr(c, apierr.New(http.StatusForbidden, apierr.CodeNoElectionConfig,
				errors.New("no active election configuration")))
			return
		}
		if !st.InResultsWindow {
			response.AbortErr(c, apierr.New(http.StatusForbidden, apierr.CodeResultsNotAvailable,
				fmt.Errorf("results are available from %s",
					st.Config.ResultsStart.Format(time.RFC3339))))
			return
		}
		c.Next()
	}
}
