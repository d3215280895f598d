package tool

import (
	"testing"

	contractx "github.com/scribadev/scriba/agent/contract"
)

func TestInfosForAgentEditor(t *testing.T) {
	t.Parallel()

	infos := InfosForAgent(contractx.AgentTypeEditor)
	if len(infos) != 7 {
		t.Fatalf("expected 7 tool infos, got %d", len(infos))
	}
	names := make(map[string]bool, len(infos))
	for _, info := range infos {
		names[info.Name] = true
	}
	for _, want := range []string{
		ToolTemplateList, ToolTemplateInspect, ToolTemplateFill,
		ToolDocumentCreate, ToolSheetAppendRow, ToolDocumentQuery, ToolMathEvaluate,
	} {
		if !names[want] {
			t.Fatalf("editor catalog missing %s", want)
		}
	}
}

func TestInfosForAgentQA(t *testing.T) {
	t.Parallel()

	infos := InfosForAgent(contractx.AgentTypeQA)
	if len(infos) != 4 {
		t.Fatalf("expected 4 tool infos, got %d", len(infos))
	}
	names := make(map[string]bool, len(infos))
	for _, info := range infos {
		names[info.Name] = true
	}
	if names[ToolTemplateFill] {
		t.Fatal("qa catalog must not include template.fill")
	}
	if !names[ToolDocumentRead] {
		t.Fatal("qa catalog missing document.read")
	}
}

func TestInfosForAgentFallback(t *testing.T) {
	t.Parallel()

	if infos := InfosForAgent(contractx.AgentTypeFallback); infos != nil {
		t.Fatalf("fallback catalog = %v, want none", infos)
	}
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	if !Allowed(contractx.AgentTypeEditor, ToolTemplateFill) {
		t.Fatal("editor must be allowed template.fill")
	}
	if Allowed(contractx.AgentTypeQA, ToolSheetAppendRow) {
		t.Fatal("qa must not be allowed sheet.append_row")
	}
	if Allowed(contractx.AgentTypeFallback, ToolMathEvaluate) {
		t.Fatal("fallback must not be allowed any tool")
	}
}
