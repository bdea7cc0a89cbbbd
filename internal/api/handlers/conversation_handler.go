package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/services"
)

type ConversationHandler struct {
	svc services.ConversationService
}

func NewConversationHandler(svc services.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type TranscriptResponse struct {
	SessionID string                   `json:"session_id"`
	Turns     []models.ConversationLog `json:"turns"`
}

// Transcript lists the archived turns of a rehearsal, oldest first.
func (h *ConversationHandler) Transcript(c *gin.Context) {
	sessionID, ok := requireSessionID(c, "ConversationHandler.Transcript")
	if !ok {
		return
	}

	limit := 200
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := h.svc.ListBySession(c.Request.Context(), sessionID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []models.ConversationLog{}
	}

	c.JSON(http.StatusOK, TranscriptResponse{SessionID: sessionID, Turns: rows})
}
