package nodes

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/scribadev/scriba/agent/contract"
	"github.com/scribadev/scriba/store"
)

// PersistTurns appends the user turn and the assistant turn in one
// transaction. Either both land, in order, or neither does.
func PersistTurns(ctx context.Context, in *GraphState, conversations store.ConversationStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("%w: reply message is empty", contractx.ErrSchemaViolation)
	}

	err := conversations.AppendTurns(ctx, in.ConversationID, in.OwnerID,
		contractx.Turn{
			Role:      contractx.RoleUser,
			Content:   in.Text,
			CreatedAt: in.Now,
		},
		contractx.Turn{
			Role:       contractx.RoleAssistant,
			Content:    in.Message,
			ArtifactID: in.ArtifactID,
			CreatedAt:  in.Now,
		},
	)
	if err != nil {
		return nil, err
	}
	return in, nil
}
