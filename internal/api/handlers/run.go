package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/axiom-eval/axiom/internal/audit"
	"github.com/axiom-eval/axiom/internal/authz"
	"github.com/axiom-eval/axiom/internal/logstream"
	"github.com/axiom-eval/axiom/internal/models"
	"github.com/axiom-eval/axiom/internal/queue"
	"github.com/axiom-eval/axiom/internal/service"
	"github.com/axiom-eval/axiom/internal/workspace"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RunHandler struct {
	db     *gorm.DB
	queue  queue.Queue
	broker *logstream.LogBroker
}

func NewRunHandler(db *gorm.DB, q queue.Queue, broker *logstream.LogBroker) *RunHandler {
	return &RunHandler{db: db, queue: q, broker: broker}
}

// CreateRunRequest is the payload for launching a run
type CreateRunRequest struct {
	SuiteID       uint   `json:"suite_id" binding:"required"`
	AgentConfigID uint   `json:"agent_config_id" binding:"required"`
	Label         string `json:"label"`
	CostPreviewID *uint  `json:"cost_preview_id"`
}

// GradeResultRequest is the payload for manually grading a result
type GradeResultRequest struct {
	Score      *float64 `json:"score" binding:"required"`
	GradeNotes string   `json:"grade_notes"`
}

func (h *RunHandler) loadRun(ws *workspace.Context, runID uint) (*models.Run, error) {
	var run models.Run
	err := workspace.ApplyTenancyFilter(h.db, &run, ws).First(&run, runID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns godoc
// @Summary List runs visible in the current project
// @Tags runs
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Run
// @Router /runs [get]
func (h *RunHandler) ListRuns(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "runs.read", nil); err != nil {
		respondError(c, err)
		return
	}

	var runs []models.Run
	if err := workspace.ApplyTenancyFilter(h.db, &models.Run{}, ws).
		Order("id DESC").Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// CreateRun godoc
// @Summary Launch a run of an agent config against a suite
// @Tags runs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} models.Run
// @Failure 404 {object} ErrorResponse
// @Router /runs [post]
func (h *RunHandler) CreateRun(c *gin.Context) {
	ws := currentWorkspace(c)

	if err := authz.RequirePermission(h.db, ws, "runs.execute", nil); err != nil {
		respondError(c, err)
		return
	}

	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	// Suite and agent must both be visible from this workspace.
	var suite models.BenchmarkSuite
	if err := workspace.ApplyTenancyFilter(h.db, &suite, ws).First(&suite, req.SuiteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "suite not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch suite"})
		return
	}
	var agent models.AgentConfig
	if err := workspace.ApplyTenancyFilter(h.db, &agent, ws).First(&agent, req.AgentConfigID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "agent config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch agent config"})
		return
	}

	// A cost preview is consumed exactly once, by the run created from it.
	if req.CostPreviewID != nil {
		res := workspace.ApplyTenancyFilter(h.db.Model(&models.RunCostPreview{}), &models.RunCostPreview{}, ws).
			Where("id = ? AND consumed_at IS NULL", *req.CostPreviewID).
			Update("consumed_at", time.Now().UTC())
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to consume cost preview"})
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, &service.ValidationError{Message: "cost preview not found or already consumed"})
			return
		}
	}

	label := req.Label
	if label == "" {
		label = fmt.Sprintf("%s / %s", agent.Name, suite.Name)
	}

	run := models.Run{
		SuiteID:         suite.ID,
		AgentConfigID:   agent.ID,
		Label:           label,
		Status:          models.RunStatusPending,
		VisibilityScope: models.VisibilityProject,
	}
	workspace.StampTenancyFields(&run, ws)

	if err := h.db.Create(&run).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create run"})
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), &run); err != nil {
		h.db.Model(&run).Updates(map[string]interface{}{
			"status":        models.RunStatusFailed,
			"error_message": "failed to enqueue run",
		})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to enqueue run"})
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionStartRun, "run",
		map[string]interface{}{"run_id": run.ID, "suite_id": suite.ID, "agent_config_id": agent.ID})
	c.JSON(http.StatusCreated, run)
}

// GetRun godoc
// @Summary Get a run
// @Tags runs
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Run
// @Failure 404 {object} ErrorResponse
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(c *gin.Context) {
	ws := currentWorkspace(c)
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}

	run, err := h.loadRun(ws, runID)
	if err != nil {
		respondError(c, err)
		return
	}

	allowed, err := authz.CanAccessProjectResource(h.db, ws, "runs.read",
		&authz.Resource{Type: "run", ID: run.ID})
	if err != nil {
		respondError(c, err)
		return
	}
	if !allowed {
		respondError(c, &service.ForbiddenError{Message: "missing permission: runs.read"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// CancelRun godoc
// @Summary Cancel a pending or running run
// @Tags runs
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Run
// @Failure 409 {object} ErrorResponse
// @Router /runs/{id}/cancel [post]
func (h *RunHandler) CancelRun(c *gin.Context) {
	ws := currentWorkspace(c)
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "runs.cancel",
		&authz.Resource{Type: "run", ID: runID}); err != nil {
		respondError(c, err)
		return
	}

	run, err := h.loadRun(ws, runID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Conditional update so a run that finished in the meantime stays
	// finished. The worker notices the status flip between queries.
	res := h.db.Model(&models.Run{}).
		Where("id = ? AND status IN ?", run.ID,
			[]models.RunStatus{models.RunStatusPending, models.RunStatusRunning}).
		Update("status", models.RunStatusCancelled)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to cancel run"})
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, &service.ConflictError{Message: fmt.Sprintf("run is already %s", run.Status)})
		return
	}

	audit.LogAction(h.db, &ws.OrganizationID, &ws.User.ID, audit.ActionCancelRun, "run",
		map[string]interface{}{"run_id": run.ID})

	run.Status = models.RunStatusCancelled
	c.JSON(http.StatusOK, run)
}

// DeleteRun godoc
// @Summary Delete a run and its results
// @Tags runs
// @Security BearerAuth
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /runs/{id} [delete]
func (h *RunHandler) DeleteRun(c *gin.Context) {
	ws := currentWorkspace(c)
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "runs.delete",
		&authz.Resource{Type: "run", ID: runID}); err != nil {
		respondError(c, err)
		return
	}

	run, err := h.loadRun(ws, runID)
	if err != nil {
		respondError(c, err)
		return
	}
	if run.Status == models.RunStatusRunning {
		respondError(c, &service.ConflictError{Message: "cancel the run before deleting it"})
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.ID).Delete(&models.Result{}).Error; err != nil {
			return err
		}
		return tx.Delete(run).Error
	}); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete run"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListResults godoc
// @Summary List a run's results
// @Tags runs
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Result
// @Router /runs/{id}/results [get]
func (h *RunHandler) ListResults(c *gin.Context) {
	ws := currentWorkspace(c)
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "results.read", nil); err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.loadRun(ws, runID); err != nil {
		respondError(c, err)
		return
	}

	var results []models.Result
	if err := h.db.Where("run_id = ?", runID).Order("id ASC").Find(&results).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch results"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// GradeResult godoc
// @Summary Manually grade a result
// @Tags runs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} models.Result
// @Failure 404 {object} ErrorResponse
// @Router /runs/{id}/results/{result_id}/grade [post]
func (h *RunHandler) GradeResult(c *gin.Context) {
	ws := currentWorkspace(c)
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}
	resultID, ok := pathID(c, "result_id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "results.grade",
		&authz.Resource{Type: "run", ID: runID}); err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.loadRun(ws, runID); err != nil {
		respondError(c, err)
		return
	}

	var req GradeResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var result models.Result
	if err := h.db.Where("id = ? AND run_id = ?", resultID, runID).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch result"})
		return
	}

	result.Score = req.Score
	result.GradeNotes = req.GradeNotes
	if err := h.db.Save(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to grade result"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// StreamRunLogs godoc
// @Summary Stream run logs in real-time via Server-Sent Events
// @Tags runs
// @Security BearerAuth
// @Produce text/event-stream
// @Param id path int true "Run ID"
// @Param token query string false "Auth token (alternative to Bearer header for EventSource compatibility)"
// @Success 200 {string} string "event stream"
// @Failure 404 {object} ErrorResponse
// @Router /runs/{id}/logs/stream [get]
func (h *RunHandler) StreamRunLogs(c *gin.Context) {
	ws := currentWorkspace(c)
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := authz.RequirePermission(h.db, ws, "runs.read", nil); err != nil {
		respondError(c, err)
		return
	}

	run, err := h.loadRun(ws, runID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Finished runs replay the persisted log and close.
	if run.Status != models.RunStatusPending && run.Status != models.RunStatusRunning {
		if run.OutputDir != "" {
			if data, rerr := os.ReadFile(filepath.Join(run.OutputDir, "run.log")); rerr == nil {
				fmt.Fprintf(c.Writer, "data: %s\n\n", string(data))
			}
		}
		fmt.Fprintf(c.Writer, "event: done\ndata: Run already finished\n\n")
		c.Writer.Flush()
		return
	}

	logChan := h.broker.Subscribe(run.ID)
	defer h.broker.Unsubscribe(run.ID, logChan)

	clientGone := c.Request.Context().Done()
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-clientGone:
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		case line, open := <-logChan:
			if !open {
				fmt.Fprintf(c.Writer, "event: done\ndata: Stream ended\n\n")
				c.Writer.Flush()
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", line)
			if flusher, ok := c.Writer.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}
