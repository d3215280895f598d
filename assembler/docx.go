package assembler

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fumiama/go-docx"

	contractx "github.com/scribadev/scriba/agent/contract"
)

// Placeholders are {{name}} tokens; names may contain dots and hyphens, as in
// {{invoice.number}}. Word may split a token across runs, so matching always
// happens on the joined paragraph text, never per run.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// fillTemplate substitutes every placeholder in the template and enforces the
// no-empty-paragraph invariant: paragraphs whose substituted content is empty
// are dropped, and consecutive blank separators collapse to one.
func fillTemplate(template []byte, fields contractx.FieldMap) ([]byte, error) {
	doc, err := docx.Parse(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse template: %v", contractx.ErrAssembly, err)
	}

	known := make(map[string]struct{})
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, m := range placeholderPattern.FindAllStringSubmatch(paragraphText(para), -1) {
			known[m[1]] = struct{}{}
		}
	}

	var missing []string
	for name := range fields {
		if _, ok := known[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: field map references placeholders absent from template: %s",
			contractx.ErrAssembly, strings.Join(missing, ", "))
	}

	kept := doc.Document.Body.Items[:0]
	prevBlank := false
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			kept = append(kept, item)
			prevBlank = false
			continue
		}

		text := paragraphText(para)
		substituted := placeholderPattern.ReplaceAllStringFunc(text, func(tok string) string {
			name := placeholderPattern.FindStringSubmatch(tok)[1]
			return fields[name]
		})

		blank := strings.TrimSpace(substituted) == ""
		hadPlaceholder := placeholderPattern.MatchString(text)
		if blank && hadPlaceholder {
			// a placeholder stood alone on this line and resolved empty
			continue
		}
		if blank && prevBlank {
			continue
		}
		if substituted != text {
			setParagraphText(para, substituted)
		}
		kept = append(kept, item)
		prevBlank = blank
	}
	doc.Document.Body.Items = kept

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: write document: %v", contractx.ErrAssembly, err)
	}
	return buf.Bytes(), nil
}

// buildDocument creates a fresh document from a field map with no template.
// Fields render as "name" heading plus value paragraph, sorted by name so the
// output is stable.
func buildDocument(fields contractx.FieldMap) ([]byte, error) {
	w := docx.New().WithDefaultTheme()

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := strings.TrimSpace(fields[name])
		if value == "" {
			continue
		}
		heading := w.AddParagraph()
		heading.AddText(name).Bold()
		body := w.AddParagraph()
		body.AddText(value)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: write document: %v", contractx.ErrAssembly, err)
	}
	return buf.Bytes(), nil
}

// extractPlaceholders lists distinct placeholder names in a template, sorted.
func extractPlaceholders(template []byte) ([]string, error) {
	doc, err := docx.Parse(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse template: %v", contractx.ErrAssembly, err)
	}

	seen := make(map[string]struct{})
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, m := range placeholderPattern.FindAllStringSubmatch(paragraphText(para), -1) {
			seen[m[1]] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func documentText(content []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: parse document: %v", contractx.ErrAssembly, err)
	}

	var sb strings.Builder
	for i, item := range doc.Document.Body.Items {
		var line string
		switch t := item.(type) {
		case *docx.Paragraph:
			line = t.String()
		case *docx.Table:
			line = t.String()
		default:
			continue
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	return sb.String(), nil
}

// paragraphText joins the text of all runs, reuniting placeholders Word split
// across run boundaries.
func paragraphText(p *docx.Paragraph) string {
	var sb strings.Builder
	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				sb.WriteString(t.Text)
			}
		}
	}
	return sb.String()
}

// setParagraphText writes the substituted text into the first text run and
// clears the rest. Formatting of the first run wins; a placeholder split
// across styled runs cannot keep both styles.
func setParagraphText(p *docx.Paragraph, text string) {
	first := true
	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			t, ok := rc.(*docx.Text)
			if !ok {
				continue
			}
			if first {
				t.Text = text
				first = false
			} else {
				t.Text = ""
			}
		}
	}
	if first && text != "" {
		p.AddText(text)
	}
}
