// Package assembler materializes specialist document plans into binary
// artifacts. Output is deterministic: assembling the same plan against the
// same template twice yields byte-identical bytes.
package assembler

import (
	"fmt"

	contractx "github.com/scribadev/scriba/agent/contract"
)

type Assembler struct{}

var _ contractx.Assembler = (*Assembler)(nil)

func New() *Assembler {
	return &Assembler{}
}

// Assemble turns a plan into document bytes. For document kind, template may
// be nil, in which case a fresh document is built from the field map. For
// spreadsheet kind the template is ignored.
func (a *Assembler) Assemble(kind contractx.ArtifactKind, plan *contractx.DocumentPlan, template []byte) ([]byte, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: document plan is nil", contractx.ErrAssembly)
	}

	switch kind {
	case contractx.KindDocument:
		if len(template) == 0 {
			return buildDocument(plan.Fields)
		}
		return fillTemplate(template, plan.Fields)
	case contractx.KindSpreadsheet:
		return buildSpreadsheet(plan.Rows)
	default:
		return nil, fmt.Errorf("%w: unsupported artifact kind %q", contractx.ErrAssembly, kind)
	}
}

// InspectTemplate lists the placeholders a docx template expects, sorted.
func (a *Assembler) InspectTemplate(template []byte) ([]string, error) {
	return extractPlaceholders(template)
}

// ExtractText returns the plain text of a stored artifact for read tools.
func (a *Assembler) ExtractText(kind contractx.ArtifactKind, content []byte) (string, error) {
	switch kind {
	case contractx.KindDocument:
		return documentText(content)
	case contractx.KindSpreadsheet:
		return spreadsheetText(content)
	default:
		return "", fmt.Errorf("%w: unsupported artifact kind %q", contractx.ErrAssembly, kind)
	}
}

// AppendRow adds one record to the first sheet of an existing spreadsheet,
// aligning cells to the header columns and adding new columns for unseen
// field names.
func (a *Assembler) AppendRow(content []byte, record contractx.Record) ([]byte, error) {
	return appendSpreadsheetRow(content, record)
}
