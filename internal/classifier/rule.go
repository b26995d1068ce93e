package classifier

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Check-in: "✅ Available", "Available", "good morning", greetings.
var checkInPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[✅☑️✓]?\s*available\s*$`),
	regexp.MustCompile(`(?i)^(good\s*morning|gm|online|in)\s*[!.]?\s*$`),
	regexp.MustCompile(`(?i)^(hello|hi|hey)\s*(everyone|team|all)?[!.]?\s*$`),
}

// Check-out: "👋 Signing Out", "EOD", "logging off", farewells.
var checkOutPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[👋🖐️✋🌙]?\s*signing\s*out\s*$`),
	regexp.MustCompile(`(?i)^(logging\s*off|log\s*off|out|eod|end\s*of\s*day)\s*[!.]?\s*$`),
	regexp.MustCompile(`(?i)^(good\s*night|gn|bye|leaving|done)\s*[!.]?\s*$`),
}

// BRB with an optional reason: "BRB" or "BRB - going to lunch".
var breakStartPattern = regexp.MustCompile(`(?i)^brb(?:\s*[-–—:]\s*(?P<reason>.+))?\s*$`)

var breakStartAltPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(break|afk|lunch|stepping\s*out)\s*$`),
	regexp.MustCompile(`(?i)^(taking\s*(?:a\s*)?break)\s*[-–—:]?\s*(?P<reason>.*)$`),
}

var breakEndPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^back\s*[!.]?\s*$`),
	regexp.MustCompile(`(?i)^(i'?m\s*back|here|returned|resuming)\s*[!.]?\s*$`),
}

// Keyword sets for categorizing break reasons, checked in fixed order.
var (
	mealKeywords      = []string{"lunch", "dinner", "breakfast", "eat", "food", "meal", "snack", "coffee"}
	personalKeywords  = []string{"errand", "appointment", "doctor", "dentist", "pickup", "drop", "bank", "store", "daughter", "son", "kid", "child", "family"}
	restKeywords      = []string{"rest", "nap", "tired", "break", "stretch", "walk"}
	meetingKeywords   = []string{"meeting", "call", "standup", "sync", "interview"}
	emergencyKeywords = []string{"emergency", "urgent", "asap", "important"}
)

// Duration hints: "30 mins", "1 hour", "back in 15".
var durationPatterns = []struct {
	re    *regexp.Regexp
	hours bool
}{
	{regexp.MustCompile(`(?i)(\d+)\s*(?:min(?:ute)?s?|m)\b`), false},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:hour?s?|hr?s?)\b`), true},
	{regexp.MustCompile(`(?i)(?:in|back\s*in)\s*(\d+)`), false},
}

// RuleClassifier pattern-matches message text against the known team
// phrasings. It is pure and deterministic: identical input always yields
// an identical Result, and absence of a match is a KindNone result, not
// an error.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Name() string  { return "rule" }
func (c *RuleClassifier) Enabled() bool { return true }

// Classify never declines; the bool is always true so the rule matcher
// can terminate any strategy chain.
func (c *RuleClassifier) Classify(_ context.Context, text string) (Result, bool) {
	return c.Parse(text), true
}

// Parse classifies a message. Pattern groups are tried in fixed priority
// order: check-in, check-out, break start, break end. First match wins.
func (c *RuleClassifier) Parse(text string) Result {
	text = strings.TrimSpace(text)

	if text == "" {
		// Certain there is nothing to classify.
		return none(SourceRule)
	}

	if res, ok := c.tryCheckIn(text); ok {
		return res
	}
	if res, ok := c.tryCheckOut(text); ok {
		return res
	}
	if res, ok := c.tryBreakStart(text); ok {
		return res
	}
	if res, ok := c.tryBreakEnd(text); ok {
		return res
	}

	return none(SourceRule)
}

func (c *RuleClassifier) tryCheckIn(text string) (Result, bool) {
	for _, p := range checkInPatterns {
		if p.MatchString(text) {
			// Higher confidence for the canonical "Available" phrasing.
			confidence := 0.85
			if strings.Contains(strings.ToLower(text), "available") {
				confidence = 0.95
			}
			return Result{
				Kind:       KindCheckIn,
				Confidence: confidence,
				Urgency:    UrgencyNormal,
				Source:     SourceRule,
			}, true
		}
	}
	return Result{}, false
}

func (c *RuleClassifier) tryCheckOut(text string) (Result, bool) {
	for _, p := range checkOutPatterns {
		if p.MatchString(text) {
			confidence := 0.85
			if strings.Contains(strings.ToLower(text), "signing out") {
				confidence = 0.95
			}
			return Result{
				Kind:       KindCheckOut,
				Confidence: confidence,
				Urgency:    UrgencyNormal,
				Source:     SourceRule,
			}, true
		}
	}
	return Result{}, false
}

func (c *RuleClassifier) tryBreakStart(text string) (Result, bool) {
	if m := breakStartPattern.FindStringSubmatch(text); m != nil {
		reason := m[breakStartPattern.SubexpIndex("reason")]
		return c.buildBreakResult(reason, text), true
	}

	for _, p := range breakStartAltPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		reason := ""
		if idx := p.SubexpIndex("reason"); idx >= 0 {
			reason = m[idx]
		}
		return c.buildBreakResult(reason, text), true
	}

	return Result{}, false
}

func (c *RuleClassifier) buildBreakResult(reason, text string) Result {
	res := Result{
		Kind:       KindBreakStart,
		Confidence: 0.85,
		Urgency:    UrgencyNormal,
		Source:     SourceRule,
	}
	if strings.Contains(strings.ToLower(text), "brb") {
		res.Confidence = 0.95
	}

	reason = strings.TrimSpace(reason)
	if reason != "" {
		res.Reason = reason
		res.ReasonCategory = categorizeReason(reason)
		res.ExpectedDurationMinutes = extractDuration(reason)
		if containsAny(strings.ToLower(reason), emergencyKeywords) {
			res.Urgency = UrgencyUrgent
		}
	}

	return res
}

func (c *RuleClassifier) tryBreakEnd(text string) (Result, bool) {
	for _, p := range breakEndPatterns {
		if p.MatchString(text) {
			confidence := 0.85
			if strings.ToLower(strings.TrimSpace(text)) == "back" {
				confidence = 0.95
			}
			return Result{
				Kind:       KindBreakEnd,
				Confidence: confidence,
				Urgency:    UrgencyNormal,
				Source:     SourceRule,
			}, true
		}
	}
	return Result{}, false
}

// categorizeReason buckets a break reason by keyword membership. The
// category order is fixed and the first hit wins; non-empty reasons that
// match nothing fall through to CategoryOther.
func categorizeReason(reason string) Category {
	lower := strings.ToLower(reason)

	switch {
	case containsAny(lower, mealKeywords):
		return CategoryMeal
	case containsAny(lower, personalKeywords):
		return CategoryPersonal
	case containsAny(lower, restKeywords):
		return CategoryRest
	case containsAny(lower, meetingKeywords):
		return CategoryMeeting
	case containsAny(lower, emergencyKeywords):
		return CategoryEmergency
	default:
		return CategoryOther
	}
}

// extractDuration pulls an expected duration in minutes out of reason
// text. Hour-unit values convert x60; raw minute values above the cap
// are skipped as unreliable and the next pattern is tried.
func extractDuration(text string) *int {
	for _, p := range durationPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if p.hours {
			v := value * 60
			return &v
		}
		if value <= MaxExpectedDurationMinutes {
			v := value
			return &v
		}
	}
	return nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
