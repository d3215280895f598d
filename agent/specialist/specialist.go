// Package specialist implements the per-turn agents behind contract.Specialist:
// the editor that plans documents, the qa agent that answers from stored files,
// and the model-free fallback.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/scribadev/scriba/agent/contract"
	toolx "github.com/scribadev/scriba/agent/tool"
)

const historyWindow = 3

type llmSpecialist struct {
	agentType        contractx.AgentType
	structuredRunner compose.Runnable[map[string]any, specialistLLMOutput]
	toolRunner       compose.Runnable[map[string]any, *schema.Message]
	runtimeRunner    compose.Runnable[contractx.SpecialistRequest, contractx.SpecialistResponse]
	allowedTools     map[string]struct{}
}

type specialistLLMOutput struct {
	Message string                  `json:"message"`
	Plan    *contractx.DocumentPlan `json:"plan,omitempty"`
}

func newSpecialist(
	ctx context.Context,
	agentType contractx.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
) (*llmSpecialist, error) {
	structuredRunner, err := compileStructuredLLMGraph[specialistLLMOutput](
		ctx, chatModel, systemPrompt, fmt.Sprintf("specialist.%s.structured_graph", agentType))
	if err != nil {
		return nil, fmt.Errorf("%w: compile structured graph for %s: %v", contractx.ErrProvider, agentType, err)
	}

	tools := toolx.InfosForAgent(agentType)
	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for specialist=%s: %v", contractx.ErrProvider, agentType, err)
	}
	toolRunner, err := compileToolPlanningGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile tool planning graph for %s: %v", contractx.ErrProvider, agentType, err)
	}

	allowedTools := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowedTools[t.Name] = struct{}{}
	}

	spec := &llmSpecialist{
		agentType:        agentType,
		structuredRunner: structuredRunner,
		toolRunner:       toolRunner,
		allowedTools:     allowedTools,
	}

	runtimeRunner, err := compileRuntimeGraph(ctx, spec.runToolPlanning, spec.runStructured)
	if err != nil {
		return nil, fmt.Errorf("%w: compile runtime graph for %s: %v", contractx.ErrProvider, agentType, err)
	}
	spec.runtimeRunner = runtimeRunner

	return spec, nil
}

func (s *llmSpecialist) Run(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	return s.runtimeRunner.Invoke(ctx, req)
}

// runToolPlanning asks the model which tools it needs first. When it needs
// none, the turn finishes through the structured flow instead.
func (s *llmSpecialist) runToolPlanning(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	input, err := marshalPayload(req, "plan")
	if err != nil {
		return contractx.SpecialistResponse{}, err
	}

	msg, err := s.toolRunner.Invoke(ctx, map[string]any{
		"input": input,
	})
	if err != nil {
		return contractx.SpecialistResponse{}, fmt.Errorf("%w: tool planning invoke: %v", contractx.ErrProvider, err)
	}
	if msg == nil {
		return contractx.SpecialistResponse{}, fmt.Errorf("%w: empty tool planning response", contractx.ErrSchemaViolation)
	}

	toolRequests, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return contractx.SpecialistResponse{}, err
	}
	if len(toolRequests) == 0 {
		return s.runStructured(ctx, req)
	}

	for _, tr := range toolRequests {
		if _, ok := s.allowedTools[tr.Tool]; !ok {
			return contractx.SpecialistResponse{}, fmt.Errorf("%w: tool=%s is not allowed for agent=%s", contractx.ErrSchemaViolation, tr.Tool, s.agentType)
		}
	}

	return contractx.SpecialistResponse{
		ToolRequests: toolRequests,
	}, nil
}

func (s *llmSpecialist) runStructured(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	input, err := marshalPayload(req, "finalize")
	if err != nil {
		return contractx.SpecialistResponse{}, err
	}

	out, err := s.structuredRunner.Invoke(ctx, map[string]any{
		"input": input,
	})
	if err != nil {
		return contractx.SpecialistResponse{}, fmt.Errorf("%w: specialist invoke: %v", contractx.ErrProvider, err)
	}

	resp := contractx.SpecialistResponse{
		Message: strings.TrimSpace(out.Message),
		Plan:    out.Plan,
	}
	if err := validateResponse(s.agentType, resp); err != nil {
		return contractx.SpecialistResponse{}, err
	}
	if s.agentType != contractx.AgentTypeEditor {
		resp.Plan = nil
	}
	return resp, nil
}

func validateResponse(agentType contractx.AgentType, resp contractx.SpecialistResponse) error {
	if resp.Message == "" {
		return fmt.Errorf("%w: specialist message is empty", contractx.ErrSchemaViolation)
	}
	if resp.Plan == nil {
		return nil
	}
	if agentType != contractx.AgentTypeEditor {
		return fmt.Errorf("%w: agent=%s must not emit a document plan", contractx.ErrSchemaViolation, agentType)
	}

	switch resp.Plan.Kind {
	case contractx.KindDocument:
		if len(resp.Plan.Fields) == 0 {
			return fmt.Errorf("%w: document plan needs fields", contractx.ErrSchemaViolation)
		}
	case contractx.KindSpreadsheet:
		if len(resp.Plan.Rows) == 0 {
			return fmt.Errorf("%w: spreadsheet plan needs rows", contractx.ErrSchemaViolation)
		}
	default:
		return fmt.Errorf("%w: plan kind %q is not supported", contractx.ErrSchemaViolation, resp.Plan.Kind)
	}
	return nil
}

func marshalPayload(req contractx.SpecialistRequest, mode string) (string, error) {
	recent := req.History
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	compact := make([]map[string]string, 0, len(recent))
	for _, turn := range recent {
		compact = append(compact, map[string]string{
			"role":    string(turn.Role),
			"content": turn.Content,
		})
	}

	payload := map[string]any{
		"mode":           mode,
		"user_message":   req.UserMessage,
		"decision":       req.Decision,
		"history":        compact,
		"memory_summary": req.MemorySummary,
		"tool_results":   req.ToolResults,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal specialist payload: %v", contractx.ErrValidation, err)
	}
	return string(input), nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		// args stay raw; decoding into a map here would reorder row fields
		var args json.RawMessage
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(rawArgs), &parsed); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
			args = json.RawMessage(rawArgs)
		}

		reqs = append(reqs, contractx.ToolRequest{
			Tool: tool,
			Args: args,
		})
	}
	return reqs, nil
}
