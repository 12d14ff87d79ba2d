package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hawksec/hawk/internal/gateway"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
)

// ErrChatNotConfigured is returned when the assistant has no model API key
var ErrChatNotConfigured = errors.New("chat assistant is not configured: the model API key is missing")

const (
	chatMissingKey   = "missing_api_key"
	chatDefaultReply = "I'm having trouble understanding that. Could you try rephrasing?"
)

// ChatReply is the assistant's answer. Conversation is the opaque history
// to send with the next message.
type ChatReply struct {
	Message      string            `json:"message"`
	Conversation []json.RawMessage `json:"conversation"`
}

// ChatService talks to the security assistant
type ChatService struct {
	functions FunctionInvoker
	logger    *logger.Logger
}

// NewChatService creates a chat service
func NewChatService(functions FunctionInvoker, log *logger.Logger) *ChatService {
	return &ChatService{functions: functions, logger: log}
}

// Send posts message with the conversation so far
func (s *ChatService) Send(ctx context.Context, message string, history []json.RawMessage) (*ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.BadRequest("Message is required")
	}
	if history == nil {
		history = []json.RawMessage{}
	}

	var reply ChatReply
	body := map[string]interface{}{
		"message":      message,
		"conversation": history,
	}
	if err := s.functions.Invoke(ctx, FnGeminiChat, body, &reply); err != nil {
		if gateway.RemoteErrorType(err) == chatMissingKey {
			s.logger.Warn("Chat assistant is missing its API key")
			return nil, ErrChatNotConfigured
		}
		s.logger.ErrorWithErr(err, "Chat request failed")
		return nil, err
	}

	if reply.Message == "" {
		reply.Message = chatDefaultReply
	}
	if reply.Conversation == nil {
		reply.Conversation = history
	}
	return &reply, nil
}
