package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/scribadev/scriba/agent/contract"
	toolx "github.com/scribadev/scriba/agent/tool"
)

// DispatchSpecialist runs the specialist cycle: the chosen agent may request
// tools, the gateway executes them one by one, and the results feed the next
// round until the agent produces a terminal reply or plan. At most limit tool
// calls run per turn; past the limit, and on tool or provider failure, the
// turn degrades to the fallback specialist with partial effects reported.
func DispatchSpecialist(
	ctx context.Context,
	in *GraphState,
	models contractx.Registry,
	tools contractx.ToolGateway,
	limit int,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if in.Decision.ListRequest {
		return listTemplates(ctx, in, models, tools)
	}

	specialist := specialistFor(in.AgentType, models)
	req := contractx.SpecialistRequest{
		UserMessage:   in.Text,
		History:       in.History,
		MemorySummary: in.MemorySummary,
		Decision:      in.Decision,
	}

	var results []contractx.ToolResult
	for {
		resp, err := specialist.Run(ctx, req)
		if err != nil {
			if recoverableDispatchError(err) {
				return runFallback(ctx, in, models, results, err)
			}
			return nil, err
		}

		if len(resp.ToolRequests) == 0 {
			in.Message = strings.TrimSpace(resp.Message)
			in.Plan = resp.Plan
			in.ToolResults = results
			return in, nil
		}

		for _, toolReq := range resp.ToolRequests {
			if len(results) >= limit {
				err := fmt.Errorf("%w: more than %d tool calls in one turn", contractx.ErrLimitExceeded, limit)
				return runFallback(ctx, in, models, results, err)
			}
			result, err := tools.Execute(ctx, in.OwnerID, in.AgentType, toolReq)
			if err != nil {
				return runFallback(ctx, in, models, results, err)
			}
			results = append(results, result)
		}
		req.ToolResults = results
	}
}

// listTemplates answers a template listing turn straight from the tool, with
// no generative call.
func listTemplates(ctx context.Context, in *GraphState, models contractx.Registry, tools contractx.ToolGateway) (*GraphState, error) {
	result, err := tools.Execute(ctx, in.OwnerID, in.AgentType, contractx.ToolRequest{
		Tool: toolx.ToolTemplateList,
	})
	if err != nil {
		return runFallback(ctx, in, models, nil, err)
	}
	in.ToolResults = []contractx.ToolResult{result}

	out, ok := result.Result.(toolx.TemplateListOutput)
	if !ok || len(out.Templates) == 0 {
		in.Message = "There are no templates available yet."
		return in, nil
	}
	in.Message = fmt.Sprintf("Available templates: %s.", strings.Join(out.Templates, ", "))
	return in, nil
}

func specialistFor(agentType contractx.AgentType, models contractx.Registry) contractx.Specialist {
	switch agentType {
	case contractx.AgentTypeEditor:
		return models.Editor()
	case contractx.AgentTypeQA:
		return models.QA()
	default:
		return models.Fallback()
	}
}

func recoverableDispatchError(err error) bool {
	return errors.Is(err, contractx.ErrProvider) ||
		errors.Is(err, contractx.ErrTool) ||
		errors.Is(err, contractx.ErrSchemaViolation) ||
		errors.Is(err, contractx.ErrLimitExceeded)
}

func runFallback(
	ctx context.Context,
	in *GraphState,
	models contractx.Registry,
	results []contractx.ToolResult,
	cause error,
) (*GraphState, error) {
	log.Warn().Err(cause).Str("agent_type", string(in.AgentType)).Msg("turn degraded to fallback")

	resp, err := models.Fallback().Run(ctx, contractx.SpecialistRequest{
		UserMessage:   in.Text,
		History:       in.History,
		MemorySummary: in.MemorySummary,
		Decision:      in.Decision,
		ToolResults:   results,
	})
	if err != nil {
		return nil, err
	}

	in.AgentType = contractx.AgentTypeFallback
	in.Message = strings.TrimSpace(resp.Message)
	in.Plan = nil
	in.ToolResults = results
	return in, nil
}
