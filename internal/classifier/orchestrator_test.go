package classifier_test

import (
	"context"
	"testing"
	"time"

	"go-presence/internal/classifier"
	"go-presence/internal/classifier/mock"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestOrchestrator_PrefersAIResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	ai := mock.NewMockStrategy(ctrl)
	ai.EXPECT().Enabled().Return(true)
	ai.EXPECT().Name().Return("ai").AnyTimes()
	ai.EXPECT().Classify(gomock.Any(), "heading out for a bit").Return(classifier.Result{
		Kind:       classifier.KindBreakStart,
		Confidence: 0.9,
		Urgency:    classifier.UrgencyNormal,
		Source:     classifier.SourceAI,
	}, true)

	o := classifier.NewOrchestrator(nil, ai, classifier.NewRuleClassifier())

	res := o.Classify(ctx, "heading out for a bit")
	assert.Equal(t, classifier.SourceAI, res.Source)
	assert.Equal(t, classifier.KindBreakStart, res.Kind)
}

func TestOrchestrator_FallsBackToRulesOnNoResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	ai := mock.NewMockStrategy(ctrl)
	ai.EXPECT().Enabled().Return(true)
	ai.EXPECT().Classify(gomock.Any(), "BRB").Return(classifier.Result{}, false)
	ai.EXPECT().Name().Return("ai").AnyTimes()

	o := classifier.NewOrchestrator(nil, ai, classifier.NewRuleClassifier())

	res := o.Classify(ctx, "BRB")
	assert.Equal(t, classifier.SourceRule, res.Source)
	assert.Equal(t, classifier.KindBreakStart, res.Kind)
	assert.Equal(t, 0.95, res.Confidence)
}

func TestOrchestrator_SkipsDisabledStrategies(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	ai := mock.NewMockStrategy(ctrl)
	ai.EXPECT().Enabled().Return(false)

	o := classifier.NewOrchestrator(nil, ai, classifier.NewRuleClassifier())

	res := o.Classify(ctx, "Available")
	assert.Equal(t, classifier.SourceRule, res.Source)
	assert.Equal(t, classifier.KindCheckIn, res.Kind)
}

func TestOrchestrator_RulesOnlyIsDeterministic(t *testing.T) {
	o := classifier.NewOrchestrator(nil, classifier.NewRuleClassifier())
	ctx := context.Background()

	first := o.Classify(ctx, "brb - lunch, back in 30")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, o.Classify(ctx, "brb - lunch, back in 30"))
	}
}

// A slow or cancelled AI strategy must not leave a message unclassified.
func TestOrchestrator_CancelledAIFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ai := mock.NewMockStrategy(ctrl)
	ai.EXPECT().Enabled().Return(true)
	ai.EXPECT().Name().Return("ai").AnyTimes()
	ai.EXPECT().Classify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (classifier.Result, bool) {
			select {
			case <-ctx.Done():
				return classifier.Result{}, false
			case <-time.After(time.Second):
				return classifier.Result{}, false
			}
		})

	o := classifier.NewOrchestrator(nil, ai, classifier.NewRuleClassifier())

	res := o.Classify(ctx, "Signing Out")
	assert.Equal(t, classifier.KindCheckOut, res.Kind)
	assert.Equal(t, classifier.SourceRule, res.Source)
}
