package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ballot-consensus-backend/internal/http/response"
	"github.com/yungbote/ballot-consensus-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
	"github.com/yungbote/ballot-consensus-backend/internal/services"
)

type WindowHandler struct {
	windows services.WindowService
}

func NewWindowHandler(windows services.WindowService) *WindowHandler {
	return &WindowHandler{windows: windows}
}

// GET /api/v1/window/status
func (h *WindowHandler) Status(c *gin.Context) {
	st, err := h.windows.Status(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, st)
}

// POST /api/v1/admin/windows
func (h *WindowHandler) Create(c *gin.Context) {
	var in services.CreateWindowInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondErr(c, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
		return
	}
	cfg, err := h.windows.Create(dbctx.Context{Ctx: c.Request.Context()}, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"window": cfg})
}

// GET /api/v1/admin/windows
func (h *WindowHandler) List(c *gin.Context) {
	all, err := h.windows.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"windows": all})
}

// GET /api/v1/admin/windows/:id
func (h *WindowHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	cfg, err := h.windows.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"window": cfg})
}

// PATCH /api/v1/admin/windows/:id
func (h *WindowHandler) Update(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var in services.UpdateWindowInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondErr(c, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
		return
	}
	cfg, err := h.windows.Update(dbctx.Context{Ctx: c.Request.Context()}, id, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"window": cfg})
}

type overrideRequest struct {
	AllowOverride *bool `json:"allow_override" binding:"required"`
}

// PATCH /api/v1/admin/windows/active/override
func (h *WindowHandler) SetOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
		return
	}
	cfg, err := h.windows.SetOverride(dbctx.Context{Ctx: c.Request.Context()}, *req.AllowOverride)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"window": cfg})
}
