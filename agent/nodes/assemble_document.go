package nodes

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/scribadev/scriba/agent/contract"
	"github.com/scribadev/scriba/store"
)

const (
	defaultDocumentFilename    = "document.docx"
	defaultSpreadsheetFilename = "spreadsheet.xlsx"
)

// AssembleDocument materializes a terminal document plan: resolve the named
// template, assemble the bytes, store the artifact under the turn's owner, and
// attach the artifact id to the reply. Assembly failures degrade the turn to
// the fallback reply; the turn never fails outright over a bad plan.
func AssembleDocument(
	ctx context.Context,
	in *GraphState,
	templates store.TemplateStore,
	artifacts store.ArtifactStore,
	asm contractx.Assembler,
	models contractx.Registry,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Plan.IsZero() {
		return in, nil
	}
	plan := in.Plan

	var templateContent []byte
	var templateID string
	if plan.TemplateName != "" {
		tmpl, err := templates.GetByName(ctx, plan.TemplateName)
		if err != nil {
			if errors.Is(err, contractx.ErrNotFound) {
				cause := fmt.Errorf("%w: template %q not found", contractx.ErrAssembly, plan.TemplateName)
				return runFallback(ctx, in, models, in.ToolResults, cause)
			}
			return nil, err
		}
		templateContent = tmpl.Content
		templateID = tmpl.ID
	}

	content, err := asm.Assemble(plan.Kind, plan, templateContent)
	if err != nil {
		if errors.Is(err, contractx.ErrAssembly) {
			return runFallback(ctx, in, models, in.ToolResults, err)
		}
		return nil, err
	}

	filename := plan.Filename
	if filename == "" {
		filename = defaultDocumentFilename
		if plan.Kind == contractx.KindSpreadsheet {
			filename = defaultSpreadsheetFilename
		}
	}

	id, err := artifacts.Put(ctx, &store.Artifact{
		OwnerID:    in.OwnerID,
		Filename:   filename,
		Kind:       plan.Kind,
		TemplateID: templateID,
		Content:    content,
		CreatedAt:  in.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("store assembled artifact: %w", err)
	}

	in.ArtifactID = id
	return in, nil
}
