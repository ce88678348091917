package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ballot-consensus-backend/internal/data/repos"
	types "github.com/yungbote/ballot-consensus-backend/internal/domain"
	"github.com/yungbote/ballot-consensus-backend/internal/domain/attestation"
	"github.com/yungbote/ballot-consensus-backend/internal/http/response"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

type AttestationHandler struct {
	attestations services.AttestationService
}

func NewAttestationHandler(attestations services.AttestationService) *AttestationHandler {
	return &AttestationHandler{attestations: attestations}
}

type bulkRequest struct {
	Attestations []services.AttestationItem `json:"attestations" binding:"required"`
}

// POST /api/v1/attestations
func (h *AttestationHandler) CreateBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
		return
	}
	res, err := h.attestations.CreateBulk(dbctx.Context{Ctx: c.Request.Context()}, req.Attestations)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/v1/attestations
func (h *AttestationHandler) List(c *gin.Context) {
	h.listPage(c, nil)
}

// GET /api/v1/attestations/submitter/:submitterId
func (h *AttestationHandler) ListBySubmitter(c *gin.Context) {
	id, err := uuidParam(c, "submitterId")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	h.listPage(c, &id)
}

func (h *AttestationHandler) listPage(c *gin.Context, submitterID *uuid.UUID) {
	p, err := pageQuery(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	f := repos.AttestationListFilter{
		Role:        attestation.ParseRole(c.Query("role")),
		Stance:      attestation.ParseStance(c.Query("stance")),
		Limit:       p.Limit,
		Offset:      p.Offset,
		SubmitterID: submitterID,
	}
	if raw := c.Query("version_id"); raw != "" {
		id, err := parseUUID(raw, "version_id")
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		f.VersionID = &id
	}
	items, total, err := h.attestations.List(dbctx.Context{Ctx: c.Request.Context()}, f)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if items == nil {
		items = []*types.Attestation{}
	}
	response.RespondOK(c, gin.H{"items": items, "total": total, "limit": p.Limit, "offset": p.Offset})
}

// GET /api/v1/attestations/version/:versionId
func (h *AttestationHandler) ListByVersion(c *gin.Context) {
	id, err := uuidParam(c, "versionId")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	items, err := h.attestations.ListByVersion(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if items == nil {
		items = []*types.Attestation{}
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/v1/attestations/most-supported/:tableCode
func (h *AttestationHandler) MostSupported(c *gin.Context) {
	top, err := h.attestations.MostSupported(dbctx.Context{Ctx: c.Request.Context()}, c.Param("tableCode"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, top)
}

// DELETE /api/v1/admin/attestations/:id
func (h *AttestationHandler) Remove(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.attestations.Remove(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
