package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trendpulse/trendservice/internal/api/middleware"
	"github.com/trendpulse/trendservice/internal/api/models"
	"github.com/trendpulse/trendservice/internal/apperr"
	"github.com/trendpulse/trendservice/internal/trend"
)

// SubmitTrendQuery godoc
// @Summary Submit a trend query
// @Description Scores a keyword's search interest over the requested window against its baseline, for one of the supported countries.
// @Tags trends
// @Accept json
// @Produce json
// @Param body body models.TrendQueryRequest true "query parameters"
// @Success 200 {object} trend.Response
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /trends [post]
func (h *Handler) SubmitTrendQuery(c *gin.Context) {
	requestID := middleware.RequestIDFromContext(c)

	var req models.TrendQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "malformed request body", RequestID: requestID})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), RequestID: requestID})
		return
	}

	if h.engine == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "engine not configured", RequestID: requestID})
		return
	}

	resp, err := h.engine.Execute(c.Request.Context(), req.ToParams(), requestID)
	if err != nil {
		h.writeEngineError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeEngineError maps an engine error to the HTTP status and body
// documented in spec.md §7, carrying the request id on every surfaced error.
func (h *Handler) writeEngineError(c *gin.Context, requestID string, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		if h.logger != nil {
			h.logger.Error("unclassified engine error", "request_id", requestID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", RequestID: requestID})
		return
	}

	if h.logger != nil {
		h.logger.Error("trend query failed", "request_id", requestID, "kind", appErr.Kind, "attempts", appErr.Attempts, "error", err)
	}

	c.JSON(appErr.StatusCode(), models.ErrorResponse{
		Error:     appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID,
	})
}

// ListSupportedCountries godoc
// @Summary List supported countries
// @Description Returns the fixed three-country comparison set.
// @Tags trends
// @Produce json
// @Success 200 {object} models.CountriesResponse
// @Router /trends/countries [get]
func (h *Handler) ListSupportedCountries(c *gin.Context) {
	c.JSON(http.StatusOK, models.CountriesResponse{Countries: trend.SupportedCountries})
}
