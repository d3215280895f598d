package specialist

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/scribadev/scriba/agent/contract"
)

const fallbackMessage = "I can fill document templates, create documents and spreadsheets, " +
	"or answer questions about your stored files. What would you like to do?"

// fallbackSpecialist never calls a model or a tool. It always produces a safe,
// non-empty reply, reporting partial effects when earlier tool calls succeeded.
type fallbackSpecialist struct{}

var _ contractx.Specialist = (*fallbackSpecialist)(nil)

func (s *fallbackSpecialist) Run(_ context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	completed := completedTools(req.ToolResults)
	if len(completed) > 0 {
		return contractx.SpecialistResponse{
			Message: fmt.Sprintf(
				"I couldn't fully finish that request. Completed steps: %s. Please tell me how to continue.",
				strings.Join(completed, ", ")),
		}, nil
	}
	return contractx.SpecialistResponse{Message: fallbackMessage}, nil
}

func completedTools(results []contractx.ToolResult) []string {
	var names []string
	for _, r := range results {
		if r.Error == "" && r.Tool != "" {
			names = append(names, r.Tool)
		}
	}
	return names
}
