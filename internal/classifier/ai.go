package classifier

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

const attendanceToolName = "record_attendance"

const aiSystemPrompt = `You are an attendance tracking assistant that analyzes chat messages from a team check-in channel.

Detect attendance events from status updates posted in varied formats:

Check-in (starting work): "Available", "Good morning", "GM", "Online", "In", or any message indicating they are starting work or now available.

Check-out (ending work): "Signing Out", "EOD", "End of day", "Logging off", "Good night", "Bye", or any message indicating they are done working.

Break start (temporarily away): "BRB", "BRB - reason", "AFK", "Taking a break", "Lunch", "Stepping out". Look for a reason (lunch, errand, rest, meeting, ...) and duration hints ("30 mins", "1 hour", "back in 15").

Break end (returning): "Back", "I'm back", "Here", "Returned".

Not an attendance event: general chat, questions, work updates, anything that does not indicate a status change.

Be flexible with emojis, typos, abbreviations and natural language variations. Record your answer with the record_attendance tool.`

var attendanceToolSchema = map[string]interface{}{
	"event_type": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"checkin", "checkout", "break_start", "break_end", "none"},
		"description": "The type of attendance event detected",
	},
	"confidence": map[string]interface{}{
		"type":        "number",
		"minimum":     0,
		"maximum":     1,
		"description": "Confidence score from 0 to 1",
	},
	"reason": map[string]interface{}{
		"type":        "string",
		"description": "For breaks, the reason given (if any)",
	},
	"reason_category": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"meal", "personal", "rest", "meeting", "emergency", "other"},
		"description": "Category of the break reason",
	},
	"expected_duration_minutes": map[string]interface{}{
		"type":        "integer",
		"description": "Expected duration in minutes (if mentioned)",
	},
	"urgency": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"normal", "urgent"},
		"description": "Whether this seems urgent/emergency",
	},
}

// attendanceToolArgs is the structured payload the model fills in.
type attendanceToolArgs struct {
	EventType               string   `json:"event_type"`
	Confidence              *float64 `json:"confidence"`
	Reason                  string   `json:"reason"`
	ReasonCategory          string   `json:"reason_category"`
	ExpectedDurationMinutes *int     `json:"expected_duration_minutes"`
	Urgency                 string   `json:"urgency"`
}

// AIClassifier wraps an external text-completion service to handle
// phrasings the rule patterns cannot anticipate. It forces a tool call so
// the response is schema-constrained instead of free text. Every failure
// mode (transport error, timeout, malformed tool input, missing key)
// collapses to "no result"; the orchestrator falls back to the rules.
type AIClassifier struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	enabled bool
	logger  *zap.Logger
}

func NewAIClassifier(apiKey, model string, timeout time.Duration, logger *zap.Logger) *AIClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if timeout <= 0 {
		timeout = DefaultAITimeout
	}

	c := &AIClassifier{
		model:   model,
		timeout: timeout,
		logger:  logger.Named("classifier.ai"),
	}
	if apiKey == "" {
		c.logger.Warn("completion service api key not configured, ai classifier disabled")
		return c
	}

	c.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	c.enabled = true
	return c
}

func (c *AIClassifier) Name() string  { return "ai" }
func (c *AIClassifier) Enabled() bool { return c.enabled }

func (c *AIClassifier) Classify(ctx context.Context, text string) (Result, bool) {
	if !c.enabled {
		return Result{}, false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return none(SourceAI), true
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	toolParam := anthropic.ToolParam{
		Name:        attendanceToolName,
		Description: anthropic.String("Record an attendance event detected from a message"),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: attendanceToolSchema,
		},
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: aiSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Analyze this attendance message:\n\n" + text)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &toolParam},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: attendanceToolName},
		},
	})
	if err != nil {
		c.logger.Warn("completion service call failed", zap.Error(err))
		return Result{}, false
	}

	for _, block := range message.Content {
		variant, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || variant.Name != attendanceToolName {
			continue
		}

		var args attendanceToolArgs
		if err := json.Unmarshal([]byte(variant.JSON.Input.Raw()), &args); err != nil {
			c.logger.Warn("malformed tool input from completion service", zap.Error(err))
			return Result{}, false
		}
		return mapToolArgs(args), true
	}

	c.logger.Warn("no tool call in completion service response")
	return Result{}, false
}

// mapToolArgs converts the service payload into a Result, mapping
// unknown strings to the closest defined value instead of failing.
func mapToolArgs(args attendanceToolArgs) Result {
	res := Result{
		Kind:       KindNone,
		Confidence: 0.8,
		Urgency:    UrgencyNormal,
		Source:     SourceAI,
	}

	switch Kind(args.EventType) {
	case KindCheckIn, KindCheckOut, KindBreakStart, KindBreakEnd:
		res.Kind = Kind(args.EventType)
	default:
		res.Kind = KindNone
	}

	if args.Confidence != nil && *args.Confidence >= 0 && *args.Confidence <= 1 {
		res.Confidence = *args.Confidence
	}

	res.Reason = strings.TrimSpace(args.Reason)

	if args.ReasonCategory != "" {
		switch Category(args.ReasonCategory) {
		case CategoryMeal, CategoryPersonal, CategoryRest, CategoryMeeting, CategoryEmergency:
			res.ReasonCategory = Category(args.ReasonCategory)
		default:
			res.ReasonCategory = CategoryOther
		}
	}

	if args.ExpectedDurationMinutes != nil {
		if v := *args.ExpectedDurationMinutes; v > 0 && v <= MaxExpectedDurationMinutes {
			res.ExpectedDurationMinutes = &v
		}
	}

	if Urgency(args.Urgency) == UrgencyUrgent {
		res.Urgency = UrgencyUrgent
	}

	return res
}
