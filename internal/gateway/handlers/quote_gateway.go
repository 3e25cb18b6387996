package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"garage-system/internal/database/models"
	"garage-system/internal/gateway/middleware"
	quotehandler "garage-system/internal/services/quote/handler"
)

type QuoteHTTPHandler struct {
	quotes *quotehandler.QuoteHandler
}

func NewQuoteHTTPHandler(quotes *quotehandler.QuoteHandler) *QuoteHTTPHandler {
	return &QuoteHTTPHandler{quotes: quotes}
}

type CreateQuoteRequest struct {
	ClientID  int64  `json:"client_id"`
	VehicleID int64  `json:"vehicle_id" binding:"required"`
	Problem   string `json:"problem" binding:"required"`
}

type AssignMechanicsRequest struct {
	Mechanics []quotehandler.MechanicAssignmentInput `json:"mechanics" binding:"required,min=1"`
}

type AddMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *QuoteHTTPHandler) CreateQuote(c *gin.Context) {
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	quote, err := h.quotes.Create(c.Request.Context(), middleware.UserID(c), req.ClientID, req.VehicleID, req.Problem)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Quote created successfully", quote))
}

func (h *QuoteHTTPHandler) GetQuote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	quote, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Quote retrieved successfully", quote))
}

func (h *QuoteHTTPHandler) ListQuotes(c *gin.Context) {
	filter := quotehandler.QuoteFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	// Clients only ever see their own quotes; mechanics see quotes they
	// are booked on.
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

	if v := c.Query("from"); v != "" {
		if t, err := quotehandler.ParseDay(v); err == nil {
			filter.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := quotehandler.ParseDay(v); err == nil {
			filter.To = &t
		}
	}

	quotes, pagination, err := h.quotes.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Quotes retrieved successfully", quotes, pagination))
}

func (h *QuoteHTTPHandler) AddAdhocLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req quotehandler.AdhocLineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	quote, err := h.quotes.AddAdhocLine(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Line added successfully", quote))
}

func (h *QuoteHTTPHandler) AddMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	msg, err := h.quotes.AddMessage(c.Request.Context(), id, middleware.UserID(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Message sent", msg))
}

func (h *QuoteHTTPHandler) AssignMechanics(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AssignMechanicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	mechanicIDs := make([]int64, len(req.Mechanics))
	hours := make([]float64, len(req.Mechanics))
	for i, m := range req.Mechanics {
		mechanicIDs[i] = m.MechanicID
		hours[i] = m.Hours
	}

	quote, err := h.quotes.AssignMechanics(c.Request.Context(), id, mechanicIDs, hours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Mechanics assigned successfully", quote))
}

func (h *QuoteHTTPHandler) FinalizeQuote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req quotehandler.FinalizeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	quote, err := h.quotes.Finalize(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Quote finalized successfully", quote))
}

func (h *QuoteHTTPHandler) AcceptQuote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	repairID, err := h.quotes.Accept(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Quote accepted", gin.H{"repair_id": repairID}))
}

func (h *QuoteHTTPHandler) RefuseQuote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.quotes.Refuse(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Quote refused", nil))
}

type ToggleTaskRequest struct {
	Type string `json:"type" binding:"required"`
}

func (h *QuoteHTTPHandler) ToggleTask(c *gin.Context) {
	quoteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	var req ToggleTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	task, err := h.quotes.ToggleTask(c.Request.Context(), quoteID, taskID, middleware.UserID(c), req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Task toggled", task))
}

func (h *QuoteHTTPHandler) GetUnavailableDates(c *gin.Context) {
	dates, err := h.quotes.GetUnavailableDates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Unavailable dates retrieved", dates))
}

func (h *QuoteHTTPHandler) GetAvailableMechanics(c *gin.Context) {
	day := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	date, err := quotehandler.ParseDay(day)
	if err != nil {
		respondError(c, err)
		return
	}

	mechanics, err := h.quotes.GetAvailableMechanics(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Available mechanics retrieved", mechanics))
}
