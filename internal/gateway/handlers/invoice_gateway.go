package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"garage-system/internal/database/models"
	"garage-system/internal/gateway/middleware"
	invoicehandler "garage-system/internal/services/invoice/handler"
)

type InvoiceHTTPHandler struct {
	invoices *invoicehandler.InvoiceHandler
}

func NewInvoiceHTTPHandler(invoices *invoicehandler.InvoiceHandler) *InvoiceHTTPHandler {
	return &InvoiceHTTPHandler{invoices: invoices}
}

type CreateInvoiceRequest struct {
	RepairID int64 `json:"repair_id" binding:"required"`
}

func (h *InvoiceHTTPHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	invoice, err := h.invoices.CreateFromRepair(c.Request.Context(), req.RepairID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Invoice created successfully", invoice))
}

func (h *InvoiceHTTPHandler) IssueInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoices.Issue(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Invoice issued", invoice))
}

func (h *InvoiceHTTPHandler) CancelInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoices.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Invoice cancelled", invoice))
}

func (h *InvoiceHTTPHandler) AddPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req invoicehandler.PaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	invoice, err := h.invoices.AddPayment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Payment recorded", invoice))
}

func (h *InvoiceHTTPHandler) GetInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	// Clients can only read their own invoices.
	if c.GetString(middleware.ContextRole) == models.RoleClient && invoice.ClientID != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, errorResponse("You cannot access this invoice"))
		return
	}
	c.JSON(http.StatusOK, successResponse("Invoice retrieved successfully", invoice))
}

func (h *InvoiceHTTPHandler) ListInvoices(c *gin.Context) {
	var clientID int64
	if c.GetString(middleware.ContextRole) == models.RoleClient {
		clientID = middleware.UserID(c)
	} else if id, err := parseIDString(c.Query("client_id")); err == nil {
		clientID = id
	}

	invoices, err := h.invoices.List(c.Request.Context(), c.Query("status"), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Invoices retrieved successfully", invoices))
}
