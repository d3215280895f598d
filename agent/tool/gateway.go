package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	contractx "github.com/scribadev/scriba/agent/contract"
	"github.com/scribadev/scriba/store"
)

const (
	defaultDocumentFilename    = "document.docx"
	defaultSpreadsheetFilename = "spreadsheet.xlsx"
)

// DocumentAssembler is the assembler surface the tools need.
type DocumentAssembler interface {
	Assemble(kind contractx.ArtifactKind, plan *contractx.DocumentPlan, template []byte) ([]byte, error)
	InspectTemplate(template []byte) ([]string, error)
	ExtractText(kind contractx.ArtifactKind, content []byte) (string, error)
	AppendRow(content []byte, record contractx.Record) ([]byte, error)
}

// Gateway executes tool calls against the stores. Every call is scoped to the
// authenticated owner, never to ids taken from model output.
type Gateway struct {
	artifacts store.ArtifactStore
	templates store.TemplateStore
	docs      DocumentAssembler
	validate  *validator.Validate
}

var _ contractx.ToolGateway = (*Gateway)(nil)

func NewGateway(artifacts store.ArtifactStore, templates store.TemplateStore, docs DocumentAssembler) *Gateway {
	return &Gateway{
		artifacts: artifacts,
		templates: templates,
		docs:      docs,
		validate:  validator.New(),
	}
}

// Execute runs one tool call. Recoverable, tool-specific failures come back in
// ToolResult.Error so the model can react; store and ownership failures are
// returned as errors.
func (g *Gateway) Execute(ctx context.Context, ownerID string, agentType contractx.AgentType, req contractx.ToolRequest) (contractx.ToolResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return contractx.ToolResult{}, fmt.Errorf("%w: owner id is empty", contractx.ErrValidation)
	}
	if !Allowed(agentType, req.Tool) {
		return contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", req.Tool, agentType),
		}, nil
	}

	log.Debug().
		Str("tool", req.Tool).
		Str("agent_type", string(agentType)).
		Msg("executing tool")

	switch req.Tool {
	case ToolDocumentCreate:
		return g.documentCreate(ctx, ownerID, req)
	case ToolTemplateFill:
		return g.templateFill(ctx, ownerID, req)
	case ToolTemplateInspect:
		return g.templateInspect(ctx, req)
	case ToolTemplateList:
		return g.templateList(ctx, req)
	case ToolDocumentQuery:
		return g.documentQuery(ctx, ownerID, req)
	case ToolDocumentRead:
		return g.documentRead(ctx, ownerID, req)
	case ToolSheetAppendRow:
		return g.sheetAppendRow(ctx, ownerID, req)
	case ToolMathEvaluate:
		return executeMathTool(g.validate, req)
	default:
		return contractx.ToolResult{}, fmt.Errorf("%w: unknown tool %s", contractx.ErrTool, req.Tool)
	}
}

type documentCreateInput struct {
	Kind     string             `json:"kind" validate:"required,oneof=document spreadsheet"`
	Filename string             `json:"filename" validate:"omitempty,max=120"`
	Fields   contractx.FieldMap `json:"fields"`
	Rows     contractx.RowSet   `json:"rows" validate:"-"`
}

type DocumentCreateOutput struct {
	ArtifactID string `json:"artifact_id"`
	Filename   string `json:"filename"`
	Kind       string `json:"kind"`
}

func (g *Gateway) documentCreate(ctx context.Context, ownerID string, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var input documentCreateInput
	if msg := g.decodeArgs(req.Args, &input); msg != "" {
		return recoverable(req.Tool, msg), nil
	}

	kind := contractx.ArtifactKind(input.Kind)
	plan := &contractx.DocumentPlan{
		Kind:     kind,
		Filename: input.Filename,
		Fields:   input.Fields,
		Rows:     input.Rows,
	}
	switch kind {
	case contractx.KindDocument:
		if len(input.Fields) == 0 {
			return recoverable(req.Tool, "fields are required to create a document"), nil
		}
	case contractx.KindSpreadsheet:
		if len(input.Rows) == 0 {
			return recoverable(req.Tool, "rows are required to create a spreadsheet"), nil
		}
	}

	content, err := g.docs.Assemble(kind, plan, nil)
	if err != nil {
		if errors.Is(err, contractx.ErrAssembly) {
			return recoverable(req.Tool, err.Error()), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrTool, err)
	}

	filename := input.Filename
	if filename == "" {
		filename = defaultDocumentFilename
		if kind == contractx.KindSpreadsheet {
			filename = defaultSpreadsheetFilename
		}
	}

	id, err := g.artifacts.Put(ctx, &store.Artifact{
		OwnerID:  ownerID,
		Filename: filename,
		Kind:     kind,
		Content:  content,
	})
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("store document: %w", err)
	}

	return contractx.ToolResult{
		Tool:       req.Tool,
		ArtifactID: id,
		Result: DocumentCreateOutput{
			ArtifactID: id,
			Filename:   filename,
			Kind:       input.Kind,
		},
	}, nil
}

type templateFillInput struct {
	TemplateName string             `json:"template_name" validate:"required"`
	Filename     string             `json:"filename" validate:"omitempty,max=120"`
	Fields       contractx.FieldMap `json:"fields" validate:"required,min=1"`
}

type TemplateFillOutput struct {
	ArtifactID   string `json:"artifact_id"`
	Filename     string `json:"filename"`
	TemplateName string `json:"template_name"`
}

func (g *Gateway) templateFill(ctx context.Context, ownerID string, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var input templateFillInput
	if msg := g.decodeArgs(req.Args, &input); msg != "" {
		return recoverable(req.Tool, msg), nil
	}

	tmpl, err := g.templates.GetByName(ctx, input.TemplateName)
	if err != nil {
		if errors.Is(err, contractx.ErrNotFound) {
			return recoverable(req.Tool, fmt.Sprintf("template %q not found", input.TemplateName)), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("load template: %w", err)
	}

	plan := &contractx.DocumentPlan{
		Kind:         contractx.KindDocument,
		TemplateName: input.TemplateName,
		Fields:       input.Fields,
	}
	content, err := g.docs.Assemble(contractx.KindDocument, plan, tmpl.Content)
	if err != nil {
		if errors.Is(err, contractx.ErrAssembly) {
			return recoverable(req.Tool, err.Error()), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrTool, err)
	}

	filename := input.Filename
	if filename == "" {
		filename = filledTemplateFilename(input.TemplateName)
	}

	id, err := g.artifacts.Put(ctx, &store.Artifact{
		OwnerID:    ownerID,
		Filename:   filename,
		Kind:       contractx.KindDocument,
		TemplateID: tmpl.ID,
		Content:    content,
	})
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("store document: %w", err)
	}

	return contractx.ToolResult{
		Tool:       req.Tool,
		ArtifactID: id,
		Result: TemplateFillOutput{
			ArtifactID:   id,
			Filename:     filename,
			TemplateName: input.TemplateName,
		},
	}, nil
}

type templateInspectInput struct {
	TemplateName string `json:"template_name" validate:"required"`
}

type TemplateInspectOutput struct {
	TemplateName string   `json:"template_name"`
	Placeholders []string `json:"placeholders"`
}

func (g *Gateway) templateInspect(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var input templateInspectInput
	if msg := g.decodeArgs(req.Args, &input); msg != "" {
		return recoverable(req.Tool, msg), nil
	}

	tmpl, err := g.templates.GetByName(ctx, input.TemplateName)
	if err != nil {
		if errors.Is(err, contractx.ErrNotFound) {
			return recoverable(req.Tool, fmt.Sprintf("template %q not found", input.TemplateName)), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("load template: %w", err)
	}

	placeholders, err := g.docs.InspectTemplate(tmpl.Content)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrTool, err)
	}

	return contractx.ToolResult{
		Tool: req.Tool,
		Result: TemplateInspectOutput{
			TemplateName: input.TemplateName,
			Placeholders: placeholders,
		},
	}, nil
}

type TemplateListOutput struct {
	Templates []string `json:"templates"`
}

func (g *Gateway) templateList(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	names, err := g.templates.List(ctx)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("list templates: %w", err)
	}
	return contractx.ToolResult{
		Tool:   req.Tool,
		Result: TemplateListOutput{Templates: names},
	}, nil
}

type documentQueryInput struct {
	NameContains string `json:"name_contains" validate:"omitempty,max=120"`
}

type DocumentQueryOutput struct {
	Artifacts []store.ArtifactInfo `json:"artifacts"`
}

func (g *Gateway) documentQuery(ctx context.Context, ownerID string, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var input documentQueryInput
	if msg := g.decodeArgs(req.Args, &input); msg != "" {
		return recoverable(req.Tool, msg), nil
	}

	infos, err := g.artifacts.Query(ctx, ownerID, input.NameContains)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("query documents: %w", err)
	}
	return contractx.ToolResult{
		Tool:   req.Tool,
		Result: DocumentQueryOutput{Artifacts: infos},
	}, nil
}

type documentReadInput struct {
	ArtifactID string `json:"artifact_id" validate:"required"`
}

type DocumentReadOutput struct {
	ArtifactID string `json:"artifact_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
}

func (g *Gateway) documentRead(ctx context.Context, ownerID string, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var input documentReadInput
	if msg := g.decodeArgs(req.Args, &input); msg != "" {
		return recoverable(req.Tool, msg), nil
	}

	artifact, err := g.artifacts.Get(ctx, input.ArtifactID, ownerID)
	if err != nil {
		if errors.Is(err, contractx.ErrNotFound) {
			return recoverable(req.Tool, fmt.Sprintf("document %s not found", input.ArtifactID)), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("load document: %w", err)
	}

	text, err := g.docs.ExtractText(artifact.Kind, artifact.Content)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrTool, err)
	}

	return contractx.ToolResult{
		Tool:       req.Tool,
		ArtifactID: artifact.ID,
		Result: DocumentReadOutput{
			ArtifactID: artifact.ID,
			Filename:   artifact.Filename,
			Text:       text,
		},
	}, nil
}

type sheetAppendRowInput struct {
	ArtifactID string           `json:"artifact_id" validate:"required"`
	Row        contractx.Record `json:"row" validate:"-"`
}

type SheetAppendRowOutput struct {
	ArtifactID string `json:"artifact_id"`
	Filename   string `json:"filename"`
}

func (g *Gateway) sheetAppendRow(ctx context.Context, ownerID string, req contractx.ToolRequest) (contractx.ToolResult, error) {
	var input sheetAppendRowInput
	if msg := g.decodeArgs(req.Args, &input); msg != "" {
		return recoverable(req.Tool, msg), nil
	}
	if input.Row.Len() == 0 {
		return recoverable(req.Tool, "row is required"), nil
	}

	artifact, err := g.artifacts.Get(ctx, input.ArtifactID, ownerID)
	if err != nil {
		if errors.Is(err, contractx.ErrNotFound) {
			return recoverable(req.Tool, fmt.Sprintf("spreadsheet %s not found", input.ArtifactID)), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("load spreadsheet: %w", err)
	}
	if artifact.Kind != contractx.KindSpreadsheet {
		return recoverable(req.Tool, fmt.Sprintf("artifact %s is not a spreadsheet", artifact.ID)), nil
	}

	content, err := g.docs.AppendRow(artifact.Content, input.Row)
	if err != nil {
		if errors.Is(err, contractx.ErrAssembly) {
			return recoverable(req.Tool, err.Error()), nil
		}
		return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrTool, err)
	}

	artifact.Content = content
	if _, err := g.artifacts.Put(ctx, artifact); err != nil {
		return contractx.ToolResult{}, fmt.Errorf("store spreadsheet: %w", err)
	}

	return contractx.ToolResult{
		Tool:       req.Tool,
		ArtifactID: artifact.ID,
		Result: SheetAppendRowOutput{
			ArtifactID: artifact.ID,
			Filename:   artifact.Filename,
		},
	}, nil
}

// decodeArgs unmarshals the raw argument JSON into a typed input struct and
// validates it. The raw bytes go straight to the decoder so row fields keep
// their first-seen order. A non-empty return is a recoverable message for the
// model.
func (g *Gateway) decodeArgs(args json.RawMessage, dst any) string {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return fmt.Sprintf("invalid arguments: %v", err)
	}
	if err := g.validate.Struct(dst); err != nil {
		return fmt.Sprintf("invalid arguments: %v", err)
	}
	return ""
}

func recoverable(tool, msg string) contractx.ToolResult {
	return contractx.ToolResult{Tool: tool, Error: msg}
}

func filledTemplateFilename(templateName string) string {
	base := strings.TrimSuffix(templateName, ".docx")
	if base == "" {
		return defaultDocumentFilename
	}
	return base + "_filled.docx"
}
