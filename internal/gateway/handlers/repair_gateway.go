package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"garage-system/internal/database/models"
	"garage-system/internal/gateway/middleware"
	repairhandler "garage-system/internal/services/repair/handler"
)

type RepairHTTPHandler struct {
	repairs *repairhandler.RepairHandler
}

func NewRepairHTTPHandler(repairs *repairhandler.RepairHandler) *RepairHTTPHandler {
	return &RepairHTTPHandler{repairs: repairs}
}

type UpdateRepairStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AddStepRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type UpdateStepStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type StepCommentRequest struct {
	Message string `json:"message" binding:"required"`
}

type AddPhotoRequest struct {
	URL         string `json:"url" binding:"required"`
	Description string `json:"description"`
	StepID      *int64 `json:"step_id"`
}

func (h *RepairHTTPHandler) GetRepair(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	repair, err := h.repairs.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Repair retrieved successfully", repair))
}

func (h *RepairHTTPHandler) ListRepairs(c *gin.Context) {
	filter := repairhandler.RepairFilter{Status: c.Query("status")}

	switch c.GetString(middleware.ContextRole) {
	case models.RoleClient:
		filter.ClientID = middleware.UserID(c)
	case models.RoleMechanic:
		filter.MechanicID = middleware.UserID(c)
	default:
		if id, err := parseIDString(c.Query("client_id")); err == nil {
			filter.ClientID = id
		}
	}

	repairs, err := h.repairs.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Repairs retrieved successfully", repairs))
}

func (h *RepairHTTPHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateRepairStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	repair, err := h.repairs.UpdateStatus(c.Request.Context(), id, middleware.UserID(c), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Repair status updated", repair))
}

func (h *RepairHTTPHandler) AddStep(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AddStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	step, err := h.repairs.AddStep(c.Request.Context(), id, middleware.UserID(c), req.Title, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Step added", step))
}

func (h *RepairHTTPHandler) UpdateStepStatus(c *gin.Context) {
	repairID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}
	var req UpdateStepStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	step, err := h.repairs.UpdateStepStatus(c.Request.Context(), repairID, stepID, middleware.UserID(c), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Step status updated", step))
}

func (h *RepairHTTPHandler) AddStepComment(c *gin.Context) {
	repairID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}
	var req StepCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	comment, err := h.repairs.AddStepComment(c.Request.Context(), repairID, stepID, middleware.UserID(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Comment added", comment))
}

func (h *RepairHTTPHandler) AddPhoto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AddPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	photo, err := h.repairs.AddPhoto(c.Request.Context(), id, middleware.UserID(c), req.URL, req.Description, req.StepID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Photo added", photo))
}
