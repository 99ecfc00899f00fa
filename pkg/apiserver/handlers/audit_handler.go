package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/pkg/model"
	"github.com/docuflow/docuflow/pkg/store"
)

type AuditHandler struct {
	audits store.AuditStore
	logger *zap.Logger
}

func NewAuditHandler(audits store.AuditStore, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audits: audits, logger: logger}
}

type auditResponse struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	At         string `json:"at"`
	Details    string `json:"details"`
}

// ListByDocument handles GET /api/audits/document/:id.
func (h *AuditHandler) ListByDocument(c *gin.Context) {
	records, err := h.audits.ListByDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "failed to list audit records")
		return
	}

	response := make([]auditResponse, 0, len(records))
	for _, record := range records {
		response = append(response, mapAudit(record))
	}
	c.JSON(http.StatusOK, response)
}

func mapAudit(record model.AuditRecord) auditResponse {
	return auditResponse{
		ID:         record.ID.String(),
		DocumentID: record.DocumentID,
		Actor:      record.Actor,
		Action:     record.Action,
		At:         formatTime(record.At),
		Details:    record.Details,
	}
}
