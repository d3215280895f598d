// Package orchestrator drives one conversational turn end to end: classify
// the intent, run the specialist cycle, materialize any document plan, and
// persist the exchange.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/scribadev/scriba/agent/contract"
	nodex "github.com/scribadev/scriba/agent/nodes"
	"github.com/scribadev/scriba/store"
)

const (
	defaultToolCallLimit = 4
	titleMaxRunes        = 70
)

var (
	ErrInvalidMessage      = nodex.ErrInvalidMessage
	ErrInvalidOwner        = nodex.ErrInvalidOwner
	ErrInvalidConversation = nodex.ErrInvalidConversation
)

type Config struct {
	ToolCallLimit int
}

type Orchestrator struct {
	conversations store.ConversationStore
	templates     store.TemplateStore
	artifacts     store.ArtifactStore
	models        contractx.Registry
	tools         contractx.ToolGateway
	memory        contractx.MemoryStore
	assembler     contractx.Assembler

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	toolCallLimit int
	now           func() time.Time
}

func New(
	conversations store.ConversationStore,
	templates store.TemplateStore,
	artifacts store.ArtifactStore,
	models contractx.Registry,
	tools contractx.ToolGateway,
	memory contractx.MemoryStore,
	assembler contractx.Assembler,
	cfg Config,
) (*Orchestrator, error) {
	if conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if templates == nil {
		return nil, errors.New("template store is required")
	}
	if artifacts == nil {
		return nil, errors.New("artifact store is required")
	}
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	if assembler == nil {
		return nil, errors.New("assembler is required")
	}
	if memory == nil {
		memory = noopMemoryStore{}
	}

	toolCallLimit := cfg.ToolCallLimit
	if toolCallLimit <= 0 {
		toolCallLimit = defaultToolCallLimit
	}

	o := &Orchestrator{
		conversations: conversations,
		templates:     templates,
		artifacts:     artifacts,
		models:        models,
		tools:         tools,
		memory:        memory,
		assembler:     assembler,
		toolCallLimit: toolCallLimit,
		now:           time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user message in an existing conversation and
// returns the assistant reply, plus the id of the artifact the turn produced,
// if any.
func (o *Orchestrator) HandleTurn(ctx context.Context, ownerID, conversationID, text string) (string, string, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		OwnerID:        ownerID,
		ConversationID: conversationID,
		Text:           text,
	})
	if err != nil {
		return "", "", err
	}
	return out.Reply, out.ArtifactID, nil
}

// StartConversation opens a new conversation titled after the first prompt.
func (o *Orchestrator) StartConversation(ctx context.Context, ownerID, firstText string) (string, error) {
	return o.conversations.Create(ctx, ownerID, deriveTitle(firstText))
}

func deriveTitle(firstText string) string {
	runes := []rune(firstText)
	if len(runes) <= titleMaxRunes {
		return firstText
	}
	return string(runes[:titleMaxRunes]) + "..."
}

type noopMemoryStore struct{}

func (noopMemoryStore) ReadSummary(context.Context, string) (string, error) {
	return "", nil
}

func (noopMemoryStore) WriteSummary(context.Context, string, string) error {
	return nil
}
