package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	"github.com/aakarshsak/ecom-price-tracker/internal/service"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/response"
)

// ReportHandler exposes security-activity report generation and download.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Generate godoc
// @Summary Generate a security activity report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body models.SecurityReportRequest true "Report request"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/security-activity [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	var req models.SecurityReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report request"))
		return
	}

	report, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Download godoc
// @Summary Download a generated report
// @Tags Reports
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	tokenValue := c.Query("token")
	if tokenValue == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter required"))
		return
	}

	file, name, err := h.service.Open(tokenValue)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
