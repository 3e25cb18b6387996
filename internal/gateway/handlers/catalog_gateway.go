package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cataloghandler "garage-system/internal/services/catalog/handler"
)

type CatalogHTTPHandler struct {
	catalog *cataloghandler.CatalogHandler
}

func NewCatalogHTTPHandler(catalog *cataloghandler.CatalogHandler) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: catalog}
}

func (h *CatalogHTTPHandler) CreateService(c *gin.Context) {
	var req cataloghandler.ServiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	svc, err := h.catalog.CreateService(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Service created successfully", svc))
}

func (h *CatalogHTTPHandler) GetService(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	svc, err := h.catalog.GetService(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Service retrieved successfully", svc))
}

func (h *CatalogHTTPHandler) ListServices(c *gin.Context) {
	services, err := h.catalog.ListServices(c.Request.Context(), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Services retrieved successfully", services))
}

func (h *CatalogHTTPHandler) CreatePack(c *gin.Context) {
	var req cataloghandler.PackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	pack, err := h.catalog.CreatePack(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Pack created successfully", pack))
}

func (h *CatalogHTTPHandler) GetPack(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pack, err := h.catalog.GetPack(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Pack retrieved successfully", pack))
}

func (h *CatalogHTTPHandler) ListPacks(c *gin.Context) {
	packs, err := h.catalog.ListPacks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Packs retrieved successfully", packs))
}
