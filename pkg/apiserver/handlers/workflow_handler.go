package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/apiserver/middleware"
	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/workflow"
)

type WorkflowHandler struct {
	engine *workflow.Engine
	logger *zap.Logger
}

func NewWorkflowHandler(engine *workflow.Engine, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{engine: engine, logger: logger}
}

type transitionResponse struct {
	DocumentID string `json:"documentId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Actor      string `json:"actor"`
	AuditID    string `json:"auditId"`
	UpdatedAt  string `json:"updatedAt"`
}

type transitionsResponse struct {
	DocumentID string   `json:"documentId"`
	State      string   `json:"state"`
	Next       []string `json:"next"`
}

// SetState handles POST /api/workflow/:id/state?state=<name>&actor=<username>.
func (h *WorkflowHandler) SetState(c *gin.Context) {
	state := c.Query("state")
	if strings.TrimSpace(state) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state is required"})
		return
	}

	identity, _ := middleware.IdentityFrom(c)
	actor := strings.TrimSpace(c.Query("actor"))
	if actor == "" {
		actor = identity.Username
	}
	if actor == "" {
		actor = workflow.SystemActor
	}

	result, err := h.engine.Transition(c.Request.Context(), workflow.Request{
		DocumentID: c.Param("id"),
		State:      state,
		Actor:      actor,
		Role:       identity.Role,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to transition document")
		return
	}

	c.JSON(http.StatusAccepted, transitionResponse{
		DocumentID: result.Document.ID,
		From:       string(result.From),
		To:         string(result.To),
		Actor:      result.Audit.Actor,
		AuditID:    result.Audit.ID.String(),
		UpdatedAt:  formatTime(result.Document.UpdatedAt),
	})
}

// Transitions handles GET /api/workflow/:id/transitions.
func (h *WorkflowHandler) Transitions(c *gin.Context) {
	id := c.Param("id")
	current, next, err := h.engine.AllowedTransitions(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "failed to load document")
		return
	}

	c.JSON(http.StatusOK, transitionsResponse{
		DocumentID: id,
		State:      string(current),
		Next:       stateNames(next),
	})
}

func stateNames(states []model.WorkflowState) []string {
	names := make([]string, 0, len(states))
	for _, state := range states {
		names = append(names, string(state))
	}
	return names
}
