package handlers

import (
	"net/http"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// ChatHandler relays messages to the security assistant
type ChatHandler struct {
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(log *logger.Logger) *ChatHandler {
	return &ChatHandler{logger: log}
}

// Send posts a message and returns the assistant's reply with the updated
// conversation
// @Summary Chat with the security assistant
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Message and history"
// @Success 200 {object} services.ChatReply
// @Failure 503 {object} utils.ErrorResponse "Assistant not configured"
// @Security BearerAuth
// @Router /chat [post]
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req dto.ChatRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	reply, err := s.Chat.Send(r.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		writeError(w, r, err, "Chat request failed")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, reply)
}
