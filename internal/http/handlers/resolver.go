package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ballot-consensus-backend/internal/http/response"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

type ResolverHandler struct {
	resolver services.ResolverService
}

func NewResolverHandler(resolver services.ResolverService) *ResolverHandler {
	return &ResolverHandler{resolver: resolver}
}

// POST /api/v1/admin/resolver/run
func (h *ResolverHandler) Run(c *gin.Context) {
	report, err := h.resolver.RunOnce(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}
