package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusgate/outpass-api/internal/dto"
	"github.com/campusgate/outpass-api/internal/models"
	appErrors "github.com/campusgate/outpass-api/pkg/errors"
	"github.com/campusgate/outpass-api/pkg/response"
)

type outpassService interface {
	Request(ctx context.Context, studentID string, req dto.CreateOutpassRequest) (*models.Outpass, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Outpass, error)
	List(ctx context.Context, query dto.OutpassQuery, actor *models.JWTClaims) ([]models.Outpass, *models.Pagination, error)
	Approve(ctx context.Context, outpassID, wardenID, remarks string) (*models.Outpass, error)
	Reject(ctx context.Context, outpassID, wardenID, reason string) (*models.Outpass, error)
	Cancel(ctx context.Context, outpassID, requesterID string) (*models.Outpass, error)
	CheckOut(ctx context.Context, outpassID, securityID string) (*models.Outpass, error)
	CheckIn(ctx context.Context, outpassID, securityID string) (*models.Outpass, error)
	ScanAndVerify(ctx context.Context, token string) (*dto.ScanResult, error)
	SweepOverdue(ctx context.Context) (*dto.SweepResult, error)
}

// OutpassHandler exposes REST endpoints for the outpass lifecycle.
type OutpassHandler struct {
	service outpassService
}

// NewOutpassHandler constructs the handler.
func NewOutpassHandler(service outpassService) *OutpassHandler {
	return &OutpassHandler{service: service}
}

// Create godoc
// @Summary Request a new outpass
// @Tags Outpasses
// @Accept json
// @Produce json
// @Param payload body dto.CreateOutpassRequest true "Outpass payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /outpasses [post]
func (h *OutpassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateOutpassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid outpass payload"))
		return
	}
	outpass, err := h.service.Request(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, outpass, nil)
}

// List godoc
// @Summary List outpasses
// @Tags Outpasses
// @Produce json
// @Param student_id query string false "Student ID"
// @Param status query string false "Comma separated statuses"
// @Param date_from query string false "RFC3339 lower bound"
// @Param date_to query string false "RFC3339 upper bound"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /outpasses [get]
func (h *OutpassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.OutpassQuery{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.OutpassStatus, 0, len(parts))
		for _, part := range parts {
			status := models.OutpassStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status filter"))
				return
			}
			statuses = append(statuses, status)
		}
		query.Status = statuses
	}
	if raw := c.Query("date_from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_from must be RFC3339"))
			return
		}
		query.DateFrom = &parsed
	}
	if raw := c.Query("date_to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_to must be RFC3339"))
			return
		}
		query.DateTo = &parsed
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	outpasses, pagination, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outpasses, pagination)
}

// Get godoc
// @Summary Get outpass detail
// @Tags Outpasses
// @Produce json
// @Param id path string true "Outpass ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /outpasses/{id} [get]
func (h *OutpassHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	outpass, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outpass, nil)
}

// Approve godoc
// @Summary Approve a pending outpass
// @Tags Outpasses
// @Accept json
// @Produce json
// @Param id path string true "Outpass ID"
// @Param payload body dto.ApproveOutpassRequest false "Optional remarks"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /outpasses/{id}/approve [post]
func (h *OutpassHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApproveOutpassRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approve payload"))
			return
		}
	}
	outpass, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.UserID, req.Remarks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outpass, nil)
}

// Reject godoc
// @Summary Reject a pending outpass
// @Tags Outpasses
// @Accept json
// @Produce json
// @Param id path string true "Outpass ID"
// @Param payload body dto.RejectOutpassRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /outpasses/{id}/reject [post]
func (h *OutpassHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectOutpassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	outpass, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outpass, nil)
}

// Cancel godoc
// @Summary Cancel an unused outpass
// @Tags Outpasses
// @Produce json
// @Param id path string true "Outpass ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /outpasses/{id}/cancel [post]
func (h *OutpassHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	outpass, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outpass, nil)
}

// CheckOut godoc
// @Summary Record a gate check-out
// @Tags Outpasses
// @Produce json
// @Param id path string true "Outpass ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /outpasses/{id}/check-out [post]
func (h *OutpassHandler) CheckOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	outpass, err := h.service.CheckOut(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outpass, nil)
}

// CheckIn godoc
// @Summary Record a gate check-in
// @Tags Outpasses
// @Produce json
// @Param id path string true "Outpass ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /outpasses/{id}/check-in [post]
func (h *OutpassHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	outpass, err := h.service.CheckIn(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outpass, nil)
}

// Scan godoc
// @Summary Verify a scanned pass token
// @Tags Outpasses
// @Accept json
// @Produce json
// @Param payload body dto.ScanRequest true "Scanned token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /outpasses/scan [post]
func (h *OutpassHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.ScanAndVerify(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Sweep godoc
// @Summary Trigger the overdue sweep
// @Tags Outpasses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /outpasses/sweep [post]
func (h *OutpassHandler) Sweep(c *gin.Context) {
	result, err := h.service.SweepOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
