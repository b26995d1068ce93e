package classifier

import (
	"context"

	"go.uber.org/zap"
)

// Orchestrator runs classification strategies in priority order and
// returns the first usable result. The rule classifier sits last in the
// chain and never declines, so Classify always produces a Result.
type Orchestrator struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewOrchestrator builds the default chain: the AI strategy (if any)
// first, the deterministic rule strategy as the safety net.
func NewOrchestrator(logger *zap.Logger, strategies ...Strategy) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		strategies: strategies,
		logger:     logger.Named("classifier"),
	}
}

func (o *Orchestrator) Classify(ctx context.Context, text string) Result {
	for _, s := range o.strategies {
		if !s.Enabled() {
			continue
		}
		res, ok := s.Classify(ctx, text)
		if !ok {
			o.logger.Debug("strategy produced no result, trying next",
				zap.String("strategy", s.Name()),
			)
			continue
		}
		o.logger.Debug("message classified",
			zap.String("strategy", s.Name()),
			zap.String("kind", string(res.Kind)),
			zap.Float64("confidence", res.Confidence),
		)
		return res
	}

	// Reachable only with a misconfigured chain; treat as no event.
	return none(SourceRule)
}
