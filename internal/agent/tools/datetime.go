package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/effortless-app/effortless-server/internal/agent"
	"github.com/effortless-app/effortless-server/internal/temporal"
)

// ParseDateTool resolves a natural-language time phrase into an ISO-8601
// timestamp. It is the only capability exposed to the extraction agents.
var ParseDateTool = agent.Tool{
	Name: "parse_date",
	Description: `Parses a date from natural language text and returns it in ISO 8601 format
with timezone offset. The text must be in English; translate first if needed. Handles
relative expressions ("in 2 hours", "tomorrow at 3pm", "next Monday"), and absolute
dates ("on 25th December", "2025-12-25 14:00"). When no date can be found the result
has found=false; do not invent a date in that case.`,
	InputSchema: agent.BuildJSONSchema("object", map[string]any{
		"text": agent.PropertyString("The English phrase to parse a date from, e.g. 'tomorrow at 3pm'."),
	}, []string{"text"}),
}

type parseDateResult struct {
	Found bool   `json:"found"`
	Date  string `json:"date,omitempty"`
}

// NewParseDateHandler binds the resolver, the user's timezone and the reference
// time into a handler closure. The reference time is injected so extraction is
// deterministic under test.
func NewParseDateHandler(resolver *temporal.Resolver, loc *time.Location, now time.Time) agent.ToolHandler {
	return func(_ context.Context, input map[string]any) (string, error) {
		text, _ := input["text"].(string)
		if text == "" {
			return "", fmt.Errorf("text is required")
		}

		result := parseDateResult{}
		if iso, ok := resolver.ResolveISO(text, loc, now); ok {
			result.Found = true
			result.Date = iso
		}

		out, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(out), nil
	}
}
