package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	statshandler "garage-system/internal/services/stats/handler"
)

type StatsHTTPHandler struct {
	stats *statshandler.StatsHandler
}

func NewStatsHTTPHandler(stats *statshandler.StatsHandler) *StatsHTTPHandler {
	return &StatsHTTPHandler{stats: stats}
}

// statsPeriod reads the from/to query params as YYYY-MM-DD days. Without
// params the report covers the current month to date.
func statsPeriod(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid from date, expected YYYY-MM-DD"))
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid to date, expected YYYY-MM-DD"))
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

func (h *StatsHTTPHandler) Revenue(c *gin.Context) {
	from, to, ok := statsPeriod(c)
	if !ok {
		return
	}
	report, err := h.stats.Revenue(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Revenue report retrieved successfully", report))
}

func (h *StatsHTTPHandler) RevenueByKind(c *gin.Context) {
	from, to, ok := statsPeriod(c)
	if !ok {
		return
	}
	report, err := h.stats.RevenueByKind(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Revenue breakdown retrieved successfully", report))
}

func (h *StatsHTTPHandler) QuoteActivity(c *gin.Context) {
	from, to, ok := statsPeriod(c)
	if !ok {
		return
	}
	report, err := h.stats.QuoteActivity(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Quote activity retrieved successfully", report))
}
