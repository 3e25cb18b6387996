package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"garage-system/internal/database/models"
	"garage-system/internal/gateway/middleware"
	userhandler "garage-system/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users *userhandler.UserHandler
}

func NewUserHTTPHandler(users *userhandler.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{users: users}
}

// Register handles public self-signup. Role escalation is stripped here:
// anonymous callers always get a client account, staff accounts are
// created through RegisterStaff on the protected group.
func (h *UserHTTPHandler) Register(c *gin.Context) {
	var req userhandler.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	req.Role = models.RoleClient

	result, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("User registered successfully", result))
}

// RegisterStaff lets a manager create manager and mechanic accounts.
func (h *UserHTTPHandler) RegisterStaff(c *gin.Context) {
	var req userhandler.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	result, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Account created successfully", result))
}

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req userhandler.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	result, err := h.users.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Login successful", result))
}

func (h *UserHTTPHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User retrieved successfully", user))
}

func (h *UserHTTPHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User retrieved successfully", user))
}

func (h *UserHTTPHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), c.Query("role"), c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Users retrieved successfully", users))
}

func (h *UserHTTPHandler) DeactivateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User deactivated", nil))
}

type UpdateRateRequest struct {
	HourlyRate string `json:"hourly_rate" binding:"required"`
}

func (h *UserHTTPHandler) UpdateHourlyRate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	user, err := h.users.UpdateHourlyRate(c.Request.Context(), id, req.HourlyRate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Hourly rate updated", user))
}

// AddVehicle registers a vehicle. Clients register under their own
// account, managers may pass an explicit client id.
func (h *UserHTTPHandler) AddVehicle(c *gin.Context) {
	var req struct {
		userhandler.VehicleInput
		ClientID int64 `json:"client_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	clientID := middleware.UserID(c)
	if c.GetString(middleware.ContextRole) == models.RoleManager && req.ClientID != 0 {
		clientID = req.ClientID
	}

	vehicle, err := h.users.AddVehicle(c.Request.Context(), clientID, req.VehicleInput)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Vehicle registered successfully", vehicle))
}

func (h *UserHTTPHandler) ListVehicles(c *gin.Context) {
	clientID := middleware.UserID(c)
	if c.GetString(middleware.ContextRole) == models.RoleManager {
		if id, err := pathOrQueryClient(c); err == nil && id != 0 {
			clientID = id
		}
	}

	vehicles, err := h.users.ListVehicles(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Vehicles retrieved successfully", vehicles))
}

func pathOrQueryClient(c *gin.Context) (int64, error) {
	if v := c.Query("client_id"); v != "" {
		return parseIDString(v)
	}
	return 0, nil
}
