package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/scribadev/scriba/agent/contract"
)

// ClassifyIntent runs the hybrid classifier. A provider failure downgrades to
// the unsupported intent so the fallback specialist still answers the turn.
func ClassifyIntent(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	decision, err := classifier.Classify(ctx, in.Text, in.History, in.MemorySummary)
	if err != nil {
		if !errors.Is(err, contractx.ErrProvider) {
			return nil, err
		}
		log.Warn().Err(err).Msg("classifier unavailable, routing to fallback")
		decision = contractx.Decision{Intent: contractx.IntentUnsupported}
	}

	in.Decision = decision
	in.AgentType = contractx.SpecialistFor(decision.Intent)
	log.Info().
		Str("intent", string(decision.Intent)).
		Str("agent_type", string(in.AgentType)).
		Float64("confidence", decision.Confidence).
		Msg("intent classified")
	return in, nil
}
