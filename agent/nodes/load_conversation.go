package nodes

import (
	"context"
	"fmt"

	contractx "github.com/scribadev/scriba/agent/contract"
	"github.com/scribadev/scriba/store"
)

// LoadConversation reads the ordered turn history. Unknown conversation and
// owner mismatch are both ErrNotFound.
func LoadConversation(ctx context.Context, in *GraphState, conversations store.ConversationStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	turns, err := conversations.Load(ctx, in.ConversationID, in.OwnerID)
	if err != nil {
		return nil, err
	}
	in.History = turns
	return in, nil
}
