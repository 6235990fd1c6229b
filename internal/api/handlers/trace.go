package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/executor"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/workspace"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TraceHandler struct {
	db *gorm.DB
}

func NewTraceHandler(db *gorm.DB) *TraceHandler {
	return &TraceHandler{db: db}
}

// TraceOut is a trace log with its cost computed from the current rate table.
type TraceOut struct {
	models.TraceLog
	EstimatedCostUSD    float64 `json:"estimated_cost_usd"`
	MissingModelPricing bool    `json:"missing_model_pricing"`
}

// TraceSummaryOut aggregates cost over a trace selection.
type TraceSummaryOut struct {
	Count                    int     `json:"count"`
	TotalCostUSD             float64 `json:"total_cost_usd"`
	MissingModelPricingCount int     `json:"missing_model_pricing_count"`
}

func traceToOut(trace models.TraceLog) TraceOut {
	cost, known := executor.CalculateCost(trace.Model, trace.Usage)
	return TraceOut{
		TraceLog:            trace,
		EstimatedCostUSD:    roundUSD(cost),
		MissingModelPricing: !known,
	}
}

func roundUSD(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// appends run_id and status filters from the query string.
func (h *TraceHandler) filteredTraces(c *gin.Context, ws *workspace.Context) *gorm.DB {
	tx := workspace.ApplyTenancyFilter(h.db, &models.TraceLog{}, ws)
	if raw := c.Query("run_id"); raw != "" {
		if runID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			tx = tx.Where("run_id = ?", runID)
		}
	}
	if status := c.Query("status"); status != "" {
		tx = tx.Where("status = ?", status)
	}
	return tx
}

// ListTraces godoc
// @Summary List trace logs in the current project
// @Description Filterable by run_id and status; newest first, capped at 1000
// @Tags traces
// @Security BearerAuth
// @Produce json
// @Success 200 {array} TraceOut
// @Router /traces [get]
func (h *TraceHandler) ListTraces(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "traces.read", nil); err != nil {
		respondError(c, err)
		return
	}

	limit := 200
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	var traces []models.TraceLog
	if err := h.filteredTraces(c, ws).
		Order("created_at DESC").Limit(limit).Find(&traces).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch traces"})
		return
	}

	out := make([]TraceOut, 0, len(traces))
	for _, trace := range traces {
		out = append(out, traceToOut(trace))
	}
	c.JSON(http.StatusOK, out)
}

// TraceSummary godoc
// @Summary Aggregate cost over trace logs
// @Tags traces
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TraceSummaryOut
// @Router /traces/summary [get]
func (h *TraceHandler) TraceSummary(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "traces.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var traces []models.TraceLog
	if err := h.filteredTraces(c, ws).Find(&traces).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch traces"})
		return
	}

	summary := TraceSummaryOut{Count: len(traces)}
	var total float64
	for _, trace := range traces {
		cost, known := executor.CalculateCost(trace.Model, trace.Usage)
		total += cost
		if !known {
			summary.MissingModelPricingCount++
		}
	}
	summary.TotalCostUSD = roundUSD(total)
	c.JSON(http.StatusOK, summary)
}

// GetTrace godoc
// @Summary Get a trace log
// @Tags traces
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TraceOut
// @Failure 404 {object} ErrorResponse
// @Router /traces/{id} [get]
func (h *TraceHandler) GetTrace(c *gin.Context) {
	ws := currentWorkspace(c)
	traceID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "traces.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var trace models.TraceLog
	err := workspace.ApplyTenancyFilter(h.db, &trace, ws).First(&trace, traceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "trace not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch trace"})
		return
	}
	c.JSON(http.StatusOK, traceToOut(trace))
}
