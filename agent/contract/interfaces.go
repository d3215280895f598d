package contract

import "context"

// Classifier turns a user message plus context into exactly one Decision.
type Classifier interface {
	Classify(ctx context.Context, message string, history []Turn, memorySummary string) (Decision, error)
}

// Specialist is a stateless per-turn behavior. All state lives in the stores.
type Specialist interface {
	Run(ctx context.Context, req SpecialistRequest) (SpecialistResponse, error)
}

type Registry interface {
	Classifier() Classifier
	Editor() Specialist
	QA() Specialist
	Fallback() Specialist
}

// ToolGateway executes one tool call on behalf of an agent. Owner scoping is
// enforced here, never trusted from model output.
type ToolGateway interface {
	Execute(ctx context.Context, ownerID string, agentType AgentType, req ToolRequest) (ToolResult, error)
}

// Assembler materializes a document plan into bytes. Deterministic: the same
// plan against the same template yields byte-identical output.
type Assembler interface {
	Assemble(kind ArtifactKind, plan *DocumentPlan, template []byte) ([]byte, error)
}

// MemoryStore keeps a rolling per-conversation summary.
type MemoryStore interface {
	ReadSummary(ctx context.Context, conversationID string) (string, error)
	WriteSummary(ctx context.Context, conversationID string, update string) error
}
