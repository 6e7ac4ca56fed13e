package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/intelligence"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/service"
)

type ReplenishmentHandler struct {
	service *service.AdvisorService
}

func NewReplenishmentHandler(service *service.AdvisorService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

type refreshRequest struct {
	Settings *domain.IntelligenceSettings `json:"settings"`
}

type acceptRequest struct {
	Quantity *float64 `json:"quantity"`
}

type dismissRequest struct {
	Reason string `json:"reason"`
}

type snoozeRequest struct {
	Until string `json:"until"`
}

// bindOptionalJSON decodes the body when there is one
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeError maps service errors onto status codes
func writeError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, intelligence.ErrSuggestionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, intelligence.ErrInvalidTransition), errors.Is(err, service.ErrRefreshInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCommand),
		errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, domain.ErrInvalidThresholds):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func (h *ReplenishmentHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, err := h.service.Refresh(c.Request.Context(), req.Settings)
	if err != nil {
		writeError(c, err, "failed to refresh suggestions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_at":        result.RunAt,
		"stats":         result.Stats,
		"summary":       result.Summary,
		"notifications": result.Notifications,
	})
}

func (h *ReplenishmentHandler) parseFilter(c *gin.Context) (domain.SuggestionFilter, error) {
	var filter domain.SuggestionFilter

	for _, v := range queryList(c, "status") {
		status, ok := domain.ParseStatus(v)
		if !ok {
			return filter, errors.New("unknown status " + v)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	for _, v := range queryList(c, "urgency") {
		urgency, ok := domain.ParseUrgency(v)
		if !ok {
			return filter, errors.New("unknown urgency " + v)
		}
		filter.Urgencies = append(filter.Urgencies, urgency)
	}

	if typ := strings.TrimSpace(c.Query("type")); typ != "" {
		parsed, ok := domain.ParseSuggestionType(typ)
		if !ok {
			return filter, errors.New("unknown type " + typ)
		}
		filter.Type = parsed
	}

	filter.LocationID = strings.TrimSpace(c.Query("location_id"))
	filter.ProductID = strings.TrimSpace(c.Query("product_id"))

	return filter, nil
}

// queryList supports both ?k=a&k=b and ?k=a,b
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *ReplenishmentHandler) ListSuggestions(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter", "details": err.Error()})
		return
	}

	items, err := h.service.ListSuggestions(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "failed to fetch suggestions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

func (h *ReplenishmentHandler) GetSuggestion(c *gin.Context) {
	suggestion, err := h.service.GetSuggestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch suggestion")
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

func (h *ReplenishmentHandler) Accept(c *gin.Context) {
	var req acceptRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	suggestion, err := h.service.Accept(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		writeError(c, err, "failed to accept suggestion")
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

func (h *ReplenishmentHandler) Dismiss(c *gin.Context) {
	var req dismissRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	suggestion, err := h.service.Dismiss(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err, "failed to dismiss suggestion")
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

func (h *ReplenishmentHandler) Snooze(c *gin.Context) {
	var req snoozeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	until, err := parseTime(req.Until)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "until must be a date or RFC3339 timestamp", "details": err.Error()})
		return
	}

	suggestion, err := h.service.Snooze(c.Request.Context(), c.Param("id"), until)
	if err != nil {
		writeError(c, err, "failed to snooze suggestion")
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func (h *ReplenishmentHandler) GetDashboard(c *gin.Context) {
	summary, err := h.service.GetDashboard(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to fetch dashboard")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ReplenishmentHandler) ListForecasts(c *gin.Context) {
	forecasts, err := h.service.ListForecasts(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to fetch forecasts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"forecasts": forecasts})
}

func (h *ReplenishmentHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Settings())
}
