package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aakarshsak/ecom-price-tracker/internal/middleware"
	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	"github.com/aakarshsak/ecom-price-tracker/internal/service"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/response"
)

// RoleHandler exposes role administration endpoints.
type RoleHandler struct {
	service *service.RoleService
}

// NewRoleHandler creates a new handler.
func NewRoleHandler(svc *service.RoleService) *RoleHandler {
	return &RoleHandler{service: svc}
}

// List godoc
// @Summary List active roles
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles)
}

// Assign godoc
// @Summary Grant a role to an account
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body models.AssignRoleRequest true "Assignment payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /roles/assign [post]
func (h *RoleHandler) Assign(c *gin.Context) {
	var req models.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assign role payload"))
		return
	}

	actorID := ""
	if identity, ok := middleware.Identity(c); ok {
		actorID = identity.AccountID
	}

	if err := h.service.Assign(c.Request.Context(), actorID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Revoke a role from an account
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body models.RemoveRoleRequest true "Removal payload"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /roles/remove [post]
func (h *RoleHandler) Remove(c *gin.Context) {
	var req models.RemoveRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid remove role payload"))
		return
	}

	actorID := ""
	if identity, ok := middleware.Identity(c); ok {
		actorID = identity.AccountID
	}

	if err := h.service.Remove(c.Request.Context(), actorID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
