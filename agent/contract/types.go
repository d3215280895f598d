package contract

import (
	"encoding/json"
	"time"
)

type AgentType string

const (
	AgentTypeClassifier AgentType = "classifier"
	AgentTypeEditor     AgentType = "editor"
	AgentTypeQA         AgentType = "qa"
	AgentTypeFallback   AgentType = "fallback"
)

type Intent string

const (
	IntentDocumentEdit   Intent = "document-edit"
	IntentQuestionAnswer Intent = "question-answer"
	IntentUnsupported    Intent = "unsupported"
)

// SpecialistFor maps a classified intent to the agent that owns it.
func SpecialistFor(intent Intent) AgentType {
	switch intent {
	case IntentDocumentEdit:
		return AgentTypeEditor
	case IntentQuestionAnswer:
		return AgentTypeQA
	default:
		return AgentTypeFallback
	}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one message exchange unit. Immutable once appended.
type Turn struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	ArtifactID string    `json:"artifact_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ArtifactKind string

const (
	KindDocument    ArtifactKind = "document"
	KindSpreadsheet ArtifactKind = "spreadsheet"
)

// Decision is the classifier output for one user turn. Exactly one intent is
// chosen per turn; ties break editor > qa > fallback.
type Decision struct {
	Intent       Intent       `json:"intent"`
	Confidence   float64      `json:"confidence"`
	TemplateName string       `json:"template_name,omitempty"`
	Topic        string       `json:"topic,omitempty"`
	Kind         ArtifactKind `json:"kind,omitempty"`
	ListRequest  bool         `json:"list_request,omitempty"`
}

// FieldMap maps template placeholder names to replacement values.
type FieldMap map[string]string

// DocumentPlan is the terminal payload a specialist produces when the turn
// results in a generated document. Fields feeds document kind, Rows feeds
// spreadsheet kind.
type DocumentPlan struct {
	Kind         ArtifactKind `json:"kind"`
	TemplateName string       `json:"template_name,omitempty"`
	Filename     string       `json:"filename,omitempty"`
	Fields       FieldMap     `json:"fields,omitempty"`
	Rows         RowSet       `json:"rows,omitempty"`
}

func (p *DocumentPlan) IsZero() bool {
	return p == nil || (len(p.Fields) == 0 && len(p.Rows) == 0)
}

type SpecialistRequest struct {
	UserMessage   string       `json:"user_message"`
	History       []Turn       `json:"history,omitempty"`
	MemorySummary string       `json:"memory_summary,omitempty"`
	Decision      Decision     `json:"decision"`
	ToolResults   []ToolResult `json:"tool_results,omitempty"`
}

// SpecialistResponse is one of: a plain reply, a reply plus tool requests, or a
// terminal document plan with the accompanying reply text.
type SpecialistResponse struct {
	Message      string        `json:"message,omitempty"`
	ToolRequests []ToolRequest `json:"tool_requests,omitempty"`
	Plan         *DocumentPlan `json:"plan,omitempty"`
}

// ToolRequest carries the model's tool call into the gateway. Args stays raw
// JSON end to end: decoding into a map would reorder object keys and lose the
// first-seen field order row sets rely on.
type ToolRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolResult carries a tool outcome back into the cycle. Error holds a
// recoverable, tool-specific failure the model may react to; infrastructure
// failures are returned as Go errors instead.
type ToolResult struct {
	Tool       string `json:"tool"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
}
