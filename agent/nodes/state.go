// Package nodes holds the orchestration graph nodes. Each node takes the
// turn state, does one thing, and hands the state on.
package nodes

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/scribadev/scriba/agent/contract"
)

var (
	ErrInvalidMessage      = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrInvalidOwner        = fmt.Errorf("%w: owner id is empty", contractx.ErrValidation)
	ErrInvalidConversation = fmt.Errorf("%w: conversation id is empty", contractx.ErrValidation)
)

type GraphInput struct {
	OwnerID        string
	ConversationID string
	Text           string
}

type GraphOutput struct {
	Reply      string
	ArtifactID string
}

type GraphState struct {
	OwnerID        string
	ConversationID string
	Text           string
	Now            time.Time

	History       []contractx.Turn
	MemorySummary string
	Decision      contractx.Decision
	AgentType     contractx.AgentType

	ToolResults []contractx.ToolResult
	Message     string
	Plan        *contractx.DocumentPlan
	ArtifactID  string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	ownerID := strings.TrimSpace(in.OwnerID)
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, ErrInvalidConversation
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		OwnerID:        ownerID,
		ConversationID: conversationID,
		Text:           text,
		Now:            nowFn().UTC(),
	}, nil
}
