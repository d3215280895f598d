package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/scribadev/scriba/agent/contract"
)

const (
	memoryLineRunes    = 200
	memorySummaryRunes = 2000
)

// WriteMemory appends this exchange to the rolling summary, keeping the most
// recent tail. Memory is best effort: a write failure is logged, never fatal,
// since the turns are already durable in the conversation store.
func WriteMemory(ctx context.Context, in *GraphState, memory contractx.MemoryStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	update := rollSummary(in.MemorySummary, in.Text, in.Message)
	if err := memory.WriteSummary(ctx, in.ConversationID, update); err != nil {
		log.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("memory write failed")
	}
	return in, nil
}

func rollSummary(previous, userText, reply string) string {
	line := fmt.Sprintf("user: %s\nassistant: %s",
		truncateRunes(userText, memoryLineRunes),
		truncateRunes(reply, memoryLineRunes))

	combined := line
	if strings.TrimSpace(previous) != "" {
		combined = previous + "\n" + line
	}

	// keep the most recent tail
	runes := []rune(combined)
	if len(runes) > memorySummaryRunes {
		combined = string(runes[len(runes)-memorySummaryRunes:])
	}
	return combined
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
