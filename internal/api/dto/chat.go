package dto

import "encoding/json"

// ChatRequest sends one message with the prior conversation
type ChatRequest struct {
	Message             string            `json:"message" validate:"required,max=4000"`
	ConversationHistory []json.RawMessage `json:"conversationHistory,omitempty"`
}
