package specialist

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/scribadev/scriba/agent/contract"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func TestEditorPlansToolCalls(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						ID:   "call_1",
						Type: "function",
						Function: schema.FunctionCall{
							Name:      "template.inspect",
							Arguments: `{"template_name":"proposal.docx"}`,
						},
					},
				},
			},
		},
	}

	spec, err := newSpecialist(context.Background(), contractx.AgentTypeEditor, fake, "editor prompt")
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	resp, err := spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "fill proposal.docx for Acme",
		Decision:    contractx.Decision{Intent: contractx.IntentDocumentEdit, TemplateName: "proposal.docx"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.ToolRequests) != 1 {
		t.Fatalf("expected 1 tool request, got %d", len(resp.ToolRequests))
	}
	if resp.ToolRequests[0].Tool != "template.inspect" {
		t.Fatalf("unexpected tool: %s", resp.ToolRequests[0].Tool)
	}
	if string(resp.ToolRequests[0].Args) != `{"template_name":"proposal.docx"}` {
		t.Fatalf("unexpected args: %s", resp.ToolRequests[0].Args)
	}
}

func TestEditorFinishesWithoutToolsWhenNoneRequested(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: "no tools needed"},
			{Content: `{"message":"Here is your spreadsheet.","plan":{"kind":"spreadsheet","filename":"budget.xlsx","rows":[{"item":"Desk","price":120}]}}`},
		},
	}

	spec, err := newSpecialist(context.Background(), contractx.AgentTypeEditor, fake, "editor prompt")
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	resp, err := spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "make a budget sheet with a desk at 120",
		Decision:    contractx.Decision{Intent: contractx.IntentDocumentEdit, Kind: contractx.KindSpreadsheet},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Plan == nil {
		t.Fatal("expected terminal document plan")
	}
	if resp.Plan.Kind != contractx.KindSpreadsheet {
		t.Fatalf("plan kind = %s, want spreadsheet", resp.Plan.Kind)
	}
	if got := resp.Plan.Rows.Columns(); !reflect.DeepEqual(got, []string{"item", "price"}) {
		t.Fatalf("row columns = %v, want [item price]", got)
	}
}

func TestEditorStructuredAfterToolResults(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Content: `{"message":"Filled the proposal for Acme.","plan":{"kind":"document","template_name":"proposal.docx","fields":{"client":"Acme"}}}`},
		},
	}

	spec, err := newSpecialist(context.Background(), contractx.AgentTypeEditor, fake, "editor prompt")
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	resp, err := spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "fill proposal.docx for Acme",
		ToolResults: []contractx.ToolResult{
			{Tool: "template.inspect", Result: map[string]any{"placeholders": []string{"client"}}},
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Plan == nil || resp.Plan.TemplateName != "proposal.docx" {
		t.Fatalf("unexpected plan: %#v", resp.Plan)
	}
	if resp.Message == "" {
		t.Fatal("expected non-empty message")
	}
}

func TestSpecialistRejectsDisallowedTool(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						ID:   "call_1",
						Type: "function",
						Function: schema.FunctionCall{
							Name:      "document.read",
							Arguments: `{"artifact_id":"a1"}`,
						},
					},
				},
			},
		},
	}

	spec, err := newSpecialist(context.Background(), contractx.AgentTypeEditor, fake, "editor prompt")
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	_, err = spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "read my notes",
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestQARejectsDocumentPlan(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Content: `{"message":"done","plan":{"kind":"document","fields":{"a":"1"}}}`},
		},
	}

	spec, err := newSpecialist(context.Background(), contractx.AgentTypeQA, fake, "qa prompt")
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	_, err = spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "what is in my notes?",
		ToolResults: []contractx.ToolResult{{Tool: "document.read", Result: "notes text"}},
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestSpecialistEmptyMessageFails(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Content: `{"message":"  "}`},
		},
	}

	spec, err := newSpecialist(context.Background(), contractx.AgentTypeQA, fake, "qa prompt")
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	_, err = spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "hello",
		ToolResults: []contractx.ToolResult{{Tool: "math.evaluate", Result: 4.0}},
	})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestFallbackAlwaysReplies(t *testing.T) {
	t.Parallel()

	spec := &fallbackSpecialist{}
	resp, err := spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "???",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Message == "" {
		t.Fatal("fallback reply must not be empty")
	}
	if len(resp.ToolRequests) != 0 || resp.Plan != nil {
		t.Fatal("fallback must not request tools or plans")
	}
}

func TestFallbackReportsCompletedTools(t *testing.T) {
	t.Parallel()

	spec := &fallbackSpecialist{}
	resp, err := spec.Run(context.Background(), contractx.SpecialistRequest{
		UserMessage: "fill the template",
		ToolResults: []contractx.ToolResult{
			{Tool: "template.inspect", Result: "ok"},
			{Tool: "template.fill", Error: "missing fields"},
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(resp.Message, "template.inspect") {
		t.Fatalf("reply %q must report the completed call", resp.Message)
	}
	if strings.Contains(resp.Message, "template.fill") {
		t.Fatalf("reply %q must not report the failed call", resp.Message)
	}
}
