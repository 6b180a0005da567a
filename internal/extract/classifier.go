package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const classifierSystemPrompt = `You are an intent classifier for a personal assistant.
The user writes free-form messages, often in German, that may contain zero or
more actionable items. Split the message into independent candidates and
classify each one.

Classification rules:
- "reminder": ONLY when the item contains an explicit time expression
  (a date, a clock time, or a relative phrase like "morgen", "in 2 Stunden",
  "naechste Woche"). The user wants to be notified.
- "todo": a task without any time expression, or where the time is part of
  the task description rather than a notification request.
- Ignore greetings, questions, and conversational filler entirely.

Each candidate's "text" must be a self-contained phrase carrying everything
needed to process it in isolation, including its time expression if any.
Keep the original language of the message.

Respond with JSON only, in exactly this shape:
{"candidates": [{"type": "todo" | "reminder", "text": "..."}]}

If the message contains no actionable items, respond with
{"candidates": []}.`

// OpenAIClassifier implements CandidateExtractor over the chat completions
// API in JSON mode.
type OpenAIClassifier struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIClassifier(apiKey, model string, logger *zap.Logger) *OpenAIClassifier {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	return &OpenAIClassifier{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Extract classifies text into ordered candidates. Malformed entries in the
// model output are dropped, never surfaced as errors; only transport-level
// failures return an error.
func (c *OpenAIClassifier) Extract(ctx context.Context, text string) ([]Candidate, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifierSystemPrompt),
			openai.UserMessage(text),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classifier completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier completion: empty response")
	}
	return c.coerce(resp.Choices[0].Message.Content), nil
}

// coerce pulls well-formed candidates out of raw model output. Entries with
// an unknown type or empty text are skipped.
func (c *OpenAIClassifier) coerce(content string) []Candidate {
	raw := trimToJSONObject(content)
	if !gjson.Valid(raw) {
		c.logger.Warn("classifier returned non-JSON output", zap.String("content", content))
		return nil
	}

	var candidates []Candidate
	gjson.Get(raw, "candidates").ForEach(func(_, entry gjson.Result) bool {
		kind := Kind(strings.ToLower(strings.TrimSpace(entry.Get("type").String())))
		text := strings.TrimSpace(entry.Get("text").String())
		if kind != KindTodo && kind != KindReminder {
			c.logger.Warn("dropping candidate with unknown type", zap.String("type", string(kind)))
			return true
		}
		if text == "" {
			c.logger.Warn("dropping candidate with empty text")
			return true
		}
		candidates = append(candidates, Candidate{Kind: kind, Text: text})
		return true
	})
	return candidates
}

// trimToJSONObject strips anything around the outermost braces, which models
// occasionally emit despite JSON mode.
func trimToJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
