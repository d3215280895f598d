package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/scribadev/scriba/agent/contract"
)

const (
	intentFillTemplate   = "route_fill_template"
	intentCreateDocument = "route_create_document"
	intentListTemplates  = "route_list_templates"
	intentQuestionAnswer = "route_question_answer"
	intentGeneral        = "route_general"
)

// intentTools exposes each intent as a callable tool; the model routes by
// invoking exactly one of them.
func intentTools() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: intentFillTemplate,
			Desc: "Route to filling an existing named document template.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"template_name": {Type: schema.String, Desc: "Template filename ending in .docx", Required: true},
				"topic":         {Type: schema.String, Desc: "Subject of the document to fill"},
			}),
		},
		{
			Name: intentCreateDocument,
			Desc: "Route to creating a new document or spreadsheet from scratch.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"kind": {
					Type:     schema.String,
					Desc:     "document or spreadsheet",
					Enum:     []string{"document", "spreadsheet"},
					Required: true,
				},
				"topic": {Type: schema.String, Desc: "Main topic or content of the file", Required: true},
			}),
		},
		{
			Name: intentListTemplates,
			Desc: "Route to listing the available document templates.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: intentQuestionAnswer,
			Desc: "Route to answering a question about the user's stored documents.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"topic": {Type: schema.String, Desc: "The question to answer", Required: true},
			}),
		},
		{
			Name: intentGeneral,
			Desc: "Route to general conversation for anything that fits no other tool.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"user_request": {Type: schema.String, Desc: "The original user request", Required: true},
			}),
		},
	}
}

func decisionFromToolCall(call schema.ToolCall, message string) (contractx.Decision, error) {
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return contractx.Decision{}, fmt.Errorf("%w: invalid intent args for %s: %v", contractx.ErrSchemaViolation, call.Function.Name, err)
		}
	}

	switch call.Function.Name {
	case intentFillTemplate:
		return contractx.Decision{
			Intent:       contractx.IntentDocumentEdit,
			Confidence:   0.85,
			TemplateName: stringArg(args, "template_name"),
			Topic:        stringArg(args, "topic"),
		}, nil
	case intentCreateDocument:
		kind := contractx.KindDocument
		if stringArg(args, "kind") == string(contractx.KindSpreadsheet) {
			kind = contractx.KindSpreadsheet
		}
		return contractx.Decision{
			Intent:     contractx.IntentDocumentEdit,
			Confidence: 0.85,
			Kind:       kind,
			Topic:      stringArg(args, "topic"),
		}, nil
	case intentListTemplates:
		return contractx.Decision{
			Intent:      contractx.IntentQuestionAnswer,
			Confidence:  0.85,
			ListRequest: true,
		}, nil
	case intentQuestionAnswer:
		return contractx.Decision{
			Intent:     contractx.IntentQuestionAnswer,
			Confidence: 0.85,
			Topic:      stringArg(args, "topic"),
		}, nil
	case intentGeneral:
		return contractx.Decision{
			Intent:     contractx.IntentUnsupported,
			Confidence: 0.85,
			Topic:      stringArg(args, "user_request"),
		}, nil
	default:
		return contractx.Decision{
			Intent:     contractx.IntentUnsupported,
			Confidence: 0.3,
			Topic:      message,
		}, nil
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func compileIntentGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add intent prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add intent model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add intent edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add intent edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add intent edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.intent_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile intent graph: %w", err)
	}
	return runner, nil
}
