package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/editor.txt
	editorRaw string

	//go:embed template/qa.txt
	qaRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
	Editor     string
	QA         string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Editor:     strings.TrimSpace(editorRaw),
		QA:         strings.TrimSpace(qaRaw),
	}
}
