// Package router classifies each user turn into exactly one intent. Cheap
// phases run first: high-confidence regex, conversation context, then plain
// keywords. Only turns none of them can decide reach the model.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/scribadev/scriba/agent/contract"
)

const historyWindow = 3

type HybridClassifier struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Classifier = (*HybridClassifier)(nil)

func New(ctx context.Context, chatModel einomodel.ToolCallingChatModel, systemPrompt string) (*HybridClassifier, error) {
	toolModel, err := chatModel.WithTools(intentTools())
	if err != nil {
		return nil, fmt.Errorf("%w: bind intent tools: %v", contractx.ErrProvider, err)
	}
	runner, err := compileIntentGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile intent graph: %v", contractx.ErrProvider, err)
	}
	return &HybridClassifier{runner: runner}, nil
}

func (c *HybridClassifier) Classify(ctx context.Context, message string, history []contractx.Turn, memorySummary string) (contractx.Decision, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return contractx.Decision{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	if decision, ok := matchPatterns(message); ok {
		log.Debug().Str("intent", string(decision.Intent)).Msg("intent matched by pattern")
		return decision, nil
	}
	if decision, ok := matchContext(message, history); ok {
		log.Debug().Str("intent", string(decision.Intent)).Msg("intent matched by context")
		return decision, nil
	}
	if decision, ok := matchKeywords(message); ok {
		log.Debug().Str("intent", string(decision.Intent)).Msg("intent matched by keyword")
		return decision, nil
	}

	return c.classifyWithModel(ctx, message, history, memorySummary)
}

// High-confidence patterns. Captured template names keep the user's casing.
var (
	fillTemplatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:use|fill|apply)\s+(?:the\s+)?template\s+['"]?([\w\-]+\.docx)['"]?`),
		regexp.MustCompile(`(?i)template\s+['"]?([\w\-]+\.docx)['"]?\s+(?:for|with|about)`),
	}
	listTemplatesPattern     = regexp.MustCompile(`(?i)(?:list|show|which|what)\b.*\btemplates?\b`)
	createSpreadsheetPattern = regexp.MustCompile(`(?i)(?:create|make|generate|build)\s+(?:a\s+|an\s+)?(?:new\s+)?(?:spreadsheet|sheet|table|xlsx)`)
	createDocumentPattern    = regexp.MustCompile(`(?i)(?:create|make|generate|draft)\s+(?:a\s+|an\s+)?(?:new\s+)?(?:document|report|letter|docx)`)
	readDocumentPattern      = regexp.MustCompile(`(?i)(?:read|open|summarize|summarise)\s+(?:the\s+|my\s+)?(?:file|document|doc|spreadsheet)\b`)
	docxNamePattern          = regexp.MustCompile(`([\w\-]+\.docx)`)
)

func matchPatterns(message string) (contractx.Decision, bool) {
	for _, pattern := range fillTemplatePatterns {
		if m := pattern.FindStringSubmatch(message); m != nil {
			return contractx.Decision{
				Intent:       contractx.IntentDocumentEdit,
				Confidence:   0.95,
				TemplateName: m[1],
			}, true
		}
	}
	if listTemplatesPattern.MatchString(message) {
		return contractx.Decision{
			Intent:      contractx.IntentQuestionAnswer,
			Confidence:  0.95,
			ListRequest: true,
		}, true
	}
	if createSpreadsheetPattern.MatchString(message) {
		return contractx.Decision{
			Intent:     contractx.IntentDocumentEdit,
			Confidence: 0.95,
			Kind:       contractx.KindSpreadsheet,
			Topic:      message,
		}, true
	}
	if createDocumentPattern.MatchString(message) {
		return contractx.Decision{
			Intent:     contractx.IntentDocumentEdit,
			Confidence: 0.95,
			Kind:       contractx.KindDocument,
			Topic:      message,
		}, true
	}
	if readDocumentPattern.MatchString(message) {
		return contractx.Decision{
			Intent:     contractx.IntentQuestionAnswer,
			Confidence: 0.95,
			Topic:      message,
		}, true
	}
	return contractx.Decision{}, false
}

var confirmationWords = []string{"yes", "yeah", "ok", "okay", "correct", "exactly", "that one", "use it", "go ahead"}

// matchContext catches short confirmations after the assistant offered a
// template in its previous turn.
func matchContext(message string, history []contractx.Turn) (contractx.Decision, bool) {
	var lastAssistant string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == contractx.RoleAssistant {
			lastAssistant = history[i].Content
			break
		}
	}
	if lastAssistant == "" || !strings.Contains(strings.ToLower(lastAssistant), "template") {
		return contractx.Decision{}, false
	}

	lower := strings.ToLower(message)
	for _, word := range confirmationWords {
		if strings.Contains(lower, word) {
			decision := contractx.Decision{
				Intent:     contractx.IntentDocumentEdit,
				Confidence: 0.8,
			}
			if m := docxNamePattern.FindStringSubmatch(lastAssistant); m != nil {
				decision.TemplateName = m[1]
			}
			return decision, true
		}
	}
	return contractx.Decision{}, false
}

func matchKeywords(message string) (contractx.Decision, bool) {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "template") {
		for _, word := range []string{"list", "which", "show", "available"} {
			if strings.Contains(lower, word) {
				return contractx.Decision{
					Intent:      contractx.IntentQuestionAnswer,
					Confidence:  0.7,
					ListRequest: true,
				}, true
			}
		}
		return contractx.Decision{
			Intent:     contractx.IntentDocumentEdit,
			Confidence: 0.6,
		}, true
	}

	for _, word := range []string{"read", "open", "summarize", "summarise"} {
		if strings.Contains(lower, word) {
			return contractx.Decision{
				Intent:     contractx.IntentQuestionAnswer,
				Confidence: 0.6,
				Topic:      message,
			}, true
		}
	}

	for _, word := range []string{"create", "generate", "make me", "draft"} {
		if strings.Contains(lower, word) {
			decision := contractx.Decision{
				Intent:     contractx.IntentDocumentEdit,
				Confidence: 0.6,
				Kind:       contractx.KindDocument,
				Topic:      message,
			}
			for _, sheetWord := range []string{"spreadsheet", "sheet", "table", "excel", "xlsx"} {
				if strings.Contains(lower, sheetWord) {
					decision.Kind = contractx.KindSpreadsheet
					break
				}
			}
			return decision, true
		}
	}

	return contractx.Decision{}, false
}

func (c *HybridClassifier) classifyWithModel(ctx context.Context, message string, history []contractx.Turn, memorySummary string) (contractx.Decision, error) {
	recent := history
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
		"user_message":   message,
		"history":        compact,
		"memory_summary": memorySummary,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.Decision{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	msg, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.Decision{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrProvider, err)
	}
	if msg == nil || len(msg.ToolCalls) == 0 {
		return contractx.Decision{
			Intent:     contractx.IntentUnsupported,
			Confidence: 0.3,
			Topic:      message,
		}, nil
	}

	// first call wins
	return decisionFromToolCall(msg.ToolCalls[0], message)
}
