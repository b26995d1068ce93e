// Package classifier turns free-text chat messages into attendance events.
//
// Two strategies exist: a deterministic rule-based matcher and an
// AI-assisted matcher backed by an external completion service. The
// orchestrator tries them in priority order and always ends on the rule
// matcher, so classification can never fail outright.
package classifier

import (
	"context"
	"time"
)

// Kind is the attendance event detected in a message.
type Kind string

const (
	KindCheckIn    Kind = "checkin"
	KindCheckOut   Kind = "checkout"
	KindBreakStart Kind = "break_start"
	KindBreakEnd   Kind = "break_end"
	KindNone       Kind = "none"
)

// Category buckets a break reason.
type Category string

const (
	CategoryMeal      Category = "meal"
	CategoryPersonal  Category = "personal"
	CategoryRest      Category = "rest"
	CategoryMeeting   Category = "meeting"
	CategoryEmergency Category = "emergency"
	CategoryOther     Category = "other"
)

// Urgency flags messages that read as emergencies.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

// Source records which strategy produced a result.
type Source string

const (
	SourceRule Source = "rule"
	SourceAI   Source = "ai"
)

// Result is the classification of a single message.
//
// Kind == KindNone means the message is not an attendance event and no
// downstream action is taken. Reason and ReasonCategory are only set for
// break starts; ExpectedDurationMinutes is nil when no duration hint was
// found.
type Result struct {
	Kind                    Kind
	Confidence              float64
	Reason                  string
	ReasonCategory          Category
	ExpectedDurationMinutes *int
	Urgency                 Urgency
	Source                  Source
}

// none builds the canonical "not an attendance message" result.
func none(src Source) Result {
	return Result{
		Kind:       KindNone,
		Confidence: 1.0,
		Urgency:    UrgencyNormal,
		Source:     src,
	}
}

//go:generate mockgen -source=classifier.go -destination=mock/strategy_mock.go -package=mock

// Strategy is one way of classifying a message. Classify returns
// ok=false when the strategy produced no usable result; that is a normal
// outcome, never an error.
type Strategy interface {
	Name() string
	Enabled() bool
	Classify(ctx context.Context, text string) (Result, bool)
}

// MaxExpectedDurationMinutes caps duration hints; larger raw values are
// treated as unreliable and discarded.
const MaxExpectedDurationMinutes = 480

// DefaultAITimeout bounds a single completion-service call so message
// processing never stalls on a slow provider.
const DefaultAITimeout = 8 * time.Second
