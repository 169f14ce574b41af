package chatclient

import (
	"github.com/go-go-golems/jiminy/pkg/citations"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation log. Assistant messages may carry
// citations, attached at creation time so links are available while the text
// is still being revealed. Text is append-only while a reveal is in progress
// and immutable afterwards.
type Message struct {
	Role      string               `json:"role"`
	Text      string               `json:"text"`
	Citations []citations.Citation `json:"citations,omitempty"`
	Timestamp string               `json:"timestamp"`
}

// ChatRequest is the body POSTed to the backend's ask endpoint. History
// carries every message appended before the current turn; the current query
// travels in Query only.
type ChatRequest struct {
	Query          string    `json:"query"`
	Source         string    `json:"source,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	History        []Message `json:"history,omitempty"`
}

// ChatResponse is the backend's success payload. ConversationID is
// authoritative and adopted verbatim.
type ChatResponse struct {
	Answer         string               `json:"answer"`
	Citations      []citations.Citation `json:"citations,omitempty"`
	ConversationID string               `json:"conversation_id"`
}
