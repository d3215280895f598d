package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/rs/xid"
	"github.com/xuri/excelize/v2"

	contractx "github.com/scribadev/scriba/agent/contract"
	"github.com/scribadev/scriba/assembler"
	"github.com/scribadev/scriba/store"
)

type fakeArtifactStore struct {
	artifacts map[string]*store.Artifact
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{artifacts: make(map[string]*store.Artifact)}
}

func (s *fakeArtifactStore) Get(_ context.Context, id, ownerID string) (*store.Artifact, error) {
	artifact, ok := s.artifacts[id]
	if !ok || artifact.OwnerID != ownerID {
		return nil, contractx.ErrNotFound
	}
	copied := *artifact
	return &copied, nil
}

func (s *fakeArtifactStore) Put(_ context.Context, artifact *store.Artifact) (string, error) {
	if artifact.ID == "" {
		artifact.ID = xid.New().String()
	}
	copied := *artifact
	s.artifacts[artifact.ID] = &copied
	return artifact.ID, nil
}

func (s *fakeArtifactStore) Delete(_ context.Context, id, ownerID string) error {
	artifact, ok := s.artifacts[id]
	if !ok || artifact.OwnerID != ownerID {
		return contractx.ErrNotFound
	}
	delete(s.artifacts, id)
	return nil
}

func (s *fakeArtifactStore) Query(_ context.Context, ownerID, nameContains string) ([]store.ArtifactInfo, error) {
	var infos []store.ArtifactInfo
	for _, artifact := range s.artifacts {
		if artifact.OwnerID != ownerID {
			continue
		}
		if nameContains != "" && !strings.Contains(artifact.Filename, nameContains) {
			continue
		}
		infos = append(infos, store.ArtifactInfo{
			ID:       artifact.ID,
			Filename: artifact.Filename,
			Kind:     artifact.Kind,
		})
	}
	return infos, nil
}

type fakeTemplateStore struct {
	templates map[string]*store.Template
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{templates: make(map[string]*store.Template)}
}

func (s *fakeTemplateStore) GetByName(_ context.Context, name string) (*store.Template, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return nil, contractx.ErrNotFound
	}
	return tmpl, nil
}

func (s *fakeTemplateStore) Put(_ context.Context, name string, content []byte) (string, error) {
	id := xid.New().String()
	s.templates[name] = &store.Template{ID: id, Name: name, Content: content}
	return id, nil
}

func (s *fakeTemplateStore) List(_ context.Context) ([]string, error) {
	var names []string
	for name := range s.templates {
		names = append(names, name)
	}
	return names, nil
}

func buildDocxTemplate(t *testing.T, lines []string) []byte {
	t.Helper()

	w := docx.New().WithDefaultTheme()
	for _, line := range lines {
		p := w.AddParagraph()
		if line != "" {
			p.AddText(line)
		}
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("build template: %v", err)
	}
	return buf.Bytes()
}

func newTestGateway() (*Gateway, *fakeArtifactStore, *fakeTemplateStore) {
	artifacts := newFakeArtifactStore()
	templates := newFakeTemplateStore()
	return NewGateway(artifacts, templates, assembler.New()), artifacts, templates
}

func TestGatewayRejectsEmptyOwner(t *testing.T) {
	t.Parallel()

	gw, _, _ := newTestGateway()
	_, err := gw.Execute(context.Background(), "  ", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolTemplateList,
	})
	if err == nil {
		t.Fatal("expected error for empty owner")
	}
}

func TestGatewayUnavailableTool(t *testing.T) {
	t.Parallel()

	gw, _, _ := newTestGateway()
	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeQA, contractx.ToolRequest{
		Tool: ToolTemplateFill,
		Args: json.RawMessage(`{"template_name":"invoice.docx"}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected unavailable-tool message")
	}
}

func TestGatewayTemplateFill(t *testing.T) {
	t.Parallel()

	gw, artifacts, templates := newTestGateway()
	tmpl := buildDocxTemplate(t, []string{"Invoice for {{client}}", "Total: {{total}}"})
	if _, err := templates.Put(context.Background(), "invoice.docx", tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolTemplateFill,
		Args: json.RawMessage(`{"template_name":"invoice.docx","fields":{"client":"Acme","total":"100"}}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}
	if out.ArtifactID == "" {
		t.Fatal("expected artifact id")
	}

	result, ok := out.Result.(TemplateFillOutput)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if result.Filename != "invoice_filled.docx" {
		t.Fatalf("filename = %q, want invoice_filled.docx", result.Filename)
	}

	stored, err := artifacts.Get(context.Background(), out.ArtifactID, "user-1")
	if err != nil {
		t.Fatalf("stored artifact: %v", err)
	}
	if stored.Kind != contractx.KindDocument {
		t.Fatalf("stored kind = %s", stored.Kind)
	}
}

func TestGatewayTemplateFillUnknownTemplate(t *testing.T) {
	t.Parallel()

	gw, _, _ := newTestGateway()
	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolTemplateFill,
		Args: json.RawMessage(`{"template_name":"ghost.docx","fields":{"a":"1"}}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Error, "not found") {
		t.Fatalf("Error = %q, want not-found message", out.Error)
	}
}

func TestGatewayTemplateFillUnknownField(t *testing.T) {
	t.Parallel()

	gw, _, templates := newTestGateway()
	tmpl := buildDocxTemplate(t, []string{"Hello {{name}}"})
	if _, err := templates.Put(context.Background(), "greeting.docx", tmpl); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolTemplateFill,
		Args: json.RawMessage(`{"template_name":"greeting.docx","fields":{"name":"Ada","ghost":"boo"}}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Error, "ghost") {
		t.Fatalf("Error = %q, want missing-placeholder message naming ghost", out.Error)
	}
}

func TestGatewayDocumentCreateSpreadsheet(t *testing.T) {
	t.Parallel()

	gw, artifacts, _ := newTestGateway()
	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolDocumentCreate,
		Args: json.RawMessage(`{"kind":"spreadsheet","rows":[{"name":"A","qty":1},{"name":"B","qty":2}]}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}

	result, ok := out.Result.(DocumentCreateOutput)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if result.Filename != "spreadsheet.xlsx" {
		t.Fatalf("filename = %q, want spreadsheet.xlsx", result.Filename)
	}

	stored, err := artifacts.Get(context.Background(), out.ArtifactID, "user-1")
	if err != nil {
		t.Fatalf("stored artifact: %v", err)
	}
	if stored.Kind != contractx.KindSpreadsheet {
		t.Fatalf("stored kind = %s", stored.Kind)
	}
}

func TestGatewayDocumentCreateKeepsRowFieldOrder(t *testing.T) {
	t.Parallel()

	gw, artifacts, _ := newTestGateway()
	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolDocumentCreate,
		Args: json.RawMessage(`{"kind":"spreadsheet","rows":[{"zeta":"Z","alpha":"A"}]}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}

	stored, err := artifacts.Get(context.Background(), out.ArtifactID, "user-1")
	if err != nil {
		t.Fatalf("stored artifact: %v", err)
	}
	if got := sheetHeader(t, stored.Content); !reflect.DeepEqual(got, []string{"zeta", "alpha"}) {
		t.Fatalf("header = %v, want first-seen order [zeta alpha]", got)
	}

	appended, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolSheetAppendRow,
		Args: json.RawMessage(`{"artifact_id":"` + out.ArtifactID + `","row":{"zeta":"Z2","omega":"O"}}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if appended.Error != "" {
		t.Fatalf("unexpected tool error: %s", appended.Error)
	}

	stored, err = artifacts.Get(context.Background(), out.ArtifactID, "user-1")
	if err != nil {
		t.Fatalf("stored artifact: %v", err)
	}
	if got := sheetHeader(t, stored.Content); !reflect.DeepEqual(got, []string{"zeta", "alpha", "omega"}) {
		t.Fatalf("header = %v, want [zeta alpha omega]", got)
	}
}

func sheetHeader(t *testing.T, content []byte) []string {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetList()[0])
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("workbook has no header row")
	}
	return rows[0]
}

func TestGatewayDocumentCreateMissingPayload(t *testing.T) {
	t.Parallel()

	gw, _, _ := newTestGateway()
	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolDocumentCreate,
		Args: json.RawMessage(`{"kind":"document"}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected recoverable error for missing fields")
	}
}

func TestGatewayDocumentReadCrossOwner(t *testing.T) {
	t.Parallel()

	gw, artifacts, _ := newTestGateway()
	id, err := artifacts.Put(context.Background(), &store.Artifact{
		OwnerID:  "user-1",
		Filename: "secret.docx",
		Kind:     contractx.KindDocument,
		Content:  buildDocxTemplate(t, []string{"classified"}),
	})
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	out, err := gw.Execute(context.Background(), "user-2", contractx.AgentTypeQA, contractx.ToolRequest{
		Tool: ToolDocumentRead,
		Args: json.RawMessage(`{"artifact_id":"` + id + `"}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.Error, "not found") {
		t.Fatalf("Error = %q, want not-found message", out.Error)
	}
}

func TestGatewayDocumentRead(t *testing.T) {
	t.Parallel()

	gw, artifacts, _ := newTestGateway()
	id, err := artifacts.Put(context.Background(), &store.Artifact{
		OwnerID:  "user-1",
		Filename: "notes.docx",
		Kind:     contractx.KindDocument,
		Content:  buildDocxTemplate(t, []string{"meeting notes", "action items"}),
	})
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeQA, contractx.ToolRequest{
		Tool: ToolDocumentRead,
		Args: json.RawMessage(`{"artifact_id":"` + id + `"}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}

	result, ok := out.Result.(DocumentReadOutput)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if !strings.Contains(result.Text, "meeting notes") {
		t.Fatalf("Text = %q, want extracted paragraph", result.Text)
	}
}

func TestGatewaySheetAppendRow(t *testing.T) {
	t.Parallel()

	gw, artifacts, _ := newTestGateway()
	created, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolDocumentCreate,
		Args: json.RawMessage(`{"kind":"spreadsheet","rows":[{"name":"A","qty":1}]}`),
	})
	if err != nil || created.Error != "" {
		t.Fatalf("seed spreadsheet: err=%v toolErr=%s", err, created.Error)
	}
	before, err := artifacts.Get(context.Background(), created.ArtifactID, "user-1")
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolSheetAppendRow,
		Args: json.RawMessage(`{"artifact_id":"` + created.ArtifactID + `","row":{"name":"B","qty":2}}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}

	after, err := artifacts.Get(context.Background(), created.ArtifactID, "user-1")
	if err != nil {
		t.Fatalf("stored artifact: %v", err)
	}
	if bytes.Equal(before.Content, after.Content) {
		t.Fatal("spreadsheet content unchanged after append")
	}
}

func TestGatewayMathEvaluate(t *testing.T) {
	t.Parallel()

	gw, _, _ := newTestGateway()
	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeEditor, contractx.ToolRequest{
		Tool: ToolMathEvaluate,
		Args: json.RawMessage(`{"expression":"2 + 3 * (4 - 1)"}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}
	result, ok := out.Result.(MathEvaluateOutput)
	if !ok {
		t.Fatalf("unexpected result type: %T", out.Result)
	}
	if result.Result != 11 {
		t.Fatalf("Result = %v, want 11", result.Result)
	}
}

func TestGatewayMathEvaluateInvalidExpression(t *testing.T) {
	t.Parallel()

	gw, _, _ := newTestGateway()
	out, err := gw.Execute(context.Background(), "user-1", contractx.AgentTypeQA, contractx.ToolRequest{
		Tool: ToolMathEvaluate,
		Args: json.RawMessage(`{"expression":"2 + abc"}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected validation error")
	}
}
