package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/http/response"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

type CaseHandler struct {
	cases services.CaseService
}

func NewCaseHandler(cases services.CaseService) *CaseHandler {
	return &CaseHandler{cases: cases}
}

// GET /api/v1/cases
func (h *CaseHandler) List(c *gin.Context) {
	p, err := pageQuery(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	items, total, err := h.cases.List(dbctx.Context{Ctx: c.Request.Context()}, services.CaseQuery{
		Statuses:     c.Query("status"),
		Department:   c.Query("department"),
		Province:     c.Query("province"),
		Municipality: c.Query("municipality"),
		Limit:        p.Limit,
		Offset:       p.Offset,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if items == nil {
		items = []*types.Case{}
	}
	response.RespondOK(c, gin.H{"items": items, "total": total, "limit": p.Limit, "offset": p.Offset})
}

// GET /api/v1/cases/:tableCode
func (h *CaseHandler) Get(c *gin.Context) {
	kase, err := h.cases.Get(dbctx.Context{Ctx: c.Request.Context()}, c.Param("tableCode"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"case": kase})
}

// GET /api/v1/tables/:tableCode/counted-version
func (h *CaseHandler) CountedVersion(c *gin.Context) {
	v, err := h.cases.CountedVersion(dbctx.Context{Ctx: c.Request.Context()}, c.Param("tableCode"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"version": v})
}
