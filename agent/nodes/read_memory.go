package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/scribadev/scriba/agent/contract"
)

// ReadMemory loads the rolling summary. Memory is a cache; a read failure
// degrades to an empty summary instead of failing the turn.
func ReadMemory(ctx context.Context, in *GraphState, memory contractx.MemoryStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	summary, err := memory.ReadSummary(ctx, in.ConversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("memory read failed")
		summary = ""
	}
	in.MemorySummary = summary
	return in, nil
}
