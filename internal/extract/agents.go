package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/effortless-app/effortless-server/internal/agent"
	"github.com/effortless-app/effortless-server/internal/agent/tools"
	"github.com/effortless-app/effortless-server/internal/temporal"
	"github.com/effortless-app/effortless-server/internal/timeutil"
)

// RecordTodoTool is the action tool the todo agent must call exactly once
// with its final extraction. The handler validates and echoes the input; the
// extractor reads the echoed call back out of the transcript.
var RecordTodoTool = agent.Tool{
	Name: "record_todo",
	Description: `Records the final extracted todo. Call this exactly once, after any
parse_date calls, with the complete extraction. Omit event_time when the phrase
contains no time expression; never invent one.`,
	InputSchema: agent.BuildJSONSchema("object", map[string]any{
		"todo_text":  agent.PropertyString("The task description, cleaned of time expressions, in the user's language."),
		"event_time": agent.PropertyString("Due time in ISO 8601 format as returned by parse_date. Omit when none."),
		"tags":       agent.PropertyArray("Tag names chosen from the known tag list. Omit when none fits.", agent.PropertyString("A tag name from the known list.")),
	}, []string{"todo_text"}),
}

// RecordReminderTool is the action tool the reminder agent must call exactly
// once with its final extraction.
var RecordReminderTool = agent.Tool{
	Name: "record_reminder",
	Description: `Records the final extracted reminder. Call this exactly once, after any
parse_date calls, with the complete extraction. event_time is when the referenced
event happens; reminder_times are when the user wants to be notified. Provide
whichever the phrase states; never invent times.`,
	InputSchema: agent.BuildJSONSchema("object", map[string]any{
		"reminder_text":  agent.PropertyString("What to remind about, cleaned of time expressions, in the user's language."),
		"event_time":     agent.PropertyString("Event time in ISO 8601 format as returned by parse_date. Omit when the phrase only states notification times."),
		"reminder_times": agent.PropertyArray("Notification times in ISO 8601 format as returned by parse_date.", agent.PropertyString("A notification time in ISO 8601 format.")),
		"tags":           agent.PropertyArray("Tag names chosen from the known tag list. Omit when none fits.", agent.PropertyString("A tag name from the known list.")),
	}, []string{"reminder_text"}),
}

const todoSystemPrompt = `You are a todo extraction agent for a personal assistant.
You receive exactly one phrase describing a single task, often in German.

Steps:
1. If the phrase contains a time expression, translate that expression to
   English and call parse_date to resolve it. Never compute dates yourself.
   If parse_date reports found=false, treat the todo as having no due time.
2. Strip the time expression from the task description; keep the description
   in the user's original language.
3. Pick tags only from the known tag list given with the phrase. Never invent
   tag names.
4. Call record_todo exactly once with the final extraction, then stop.`

const reminderSystemPrompt = `You are a reminder extraction agent for a personal assistant.
You receive exactly one phrase describing a single reminder, often in German.

A reminder has an event time (when the thing happens) and notification times
(when the user wants to be pinged). A phrase may state either or both, e.g.
"remind me 2 hours before the meeting tomorrow at 10" states both.

Steps:
1. Translate each time expression to English and call parse_date to resolve
   it, one call per expression. Never compute dates yourself.
2. Strip time expressions from the reminder text; keep the text in the user's
   original language.
3. Pick tags only from the known tag list given with the phrase. Never invent
   tag names.
4. Call record_reminder exactly once with the final extraction, then stop.
   Provide only the times the phrase actually states.`

// recordHandler validates required fields and echoes the input back as JSON.
// The echoed output is what the extractor later parses, so the model's final
// answer and the parsed result cannot drift apart.
func recordHandler(requiredField string) agent.ToolHandler {
	return func(_ context.Context, input map[string]any) (string, error) {
		text, _ := input[requiredField].(string)
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%s is required", requiredField)
		}
		out, err := json.Marshal(input)
		if err != nil {
			return "", fmt.Errorf("failed to marshal record: %w", err)
		}
		return string(out), nil
	}
}

// AgentSettings carries the model configuration shared by the extraction
// agents. Caller overrides the API client when set (used in tests).
type AgentSettings struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTurns    int
	Caller      agent.Caller
}

// TodoAgent implements TodoExtractor with a tool-using agent.
type TodoAgent struct {
	settings AgentSettings
	resolver *temporal.Resolver
}

func NewTodoAgent(settings AgentSettings, resolver *temporal.Resolver) *TodoAgent {
	return &TodoAgent{settings: settings, resolver: resolver}
}

func (a *TodoAgent) ExtractTodo(ctx context.Context, phrase string, loc *time.Location, now time.Time, knownTags []string) (*TodoExtraction, error) {
	output, err := runExtractionAgent(ctx, extractionRun{
		name:       "todo-extractor",
		system:     todoSystemPrompt,
		actionTool: RecordTodoTool,
		settings:   a.settings,
		resolver:   a.resolver,
		phrase:     phrase,
		loc:        loc,
		now:        now,
		knownTags:  knownTags,
	})
	if err != nil {
		return nil, err
	}

	var record struct {
		Text      string   `json:"todo_text"`
		EventTime string   `json:"event_time"`
		Tags      []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(output), &record); err != nil {
		return nil, fmt.Errorf("failed to parse todo record: %w", err)
	}

	extraction := &TodoExtraction{Text: record.Text, TagNames: record.Tags}
	if record.EventTime != "" {
		t, err := parseAgentTime(record.EventTime, loc)
		if err != nil {
			return nil, err
		}
		extraction.EventTime = &t
	}
	return extraction, nil
}

// ReminderAgent implements ReminderExtractor with a tool-using agent.
type ReminderAgent struct {
	settings AgentSettings
	resolver *temporal.Resolver
}

func NewReminderAgent(settings AgentSettings, resolver *temporal.Resolver) *ReminderAgent {
	return &ReminderAgent{settings: settings, resolver: resolver}
}

func (a *ReminderAgent) ExtractReminder(ctx context.Context, phrase string, loc *time.Location, now time.Time, knownTags []string) (*ReminderExtraction, error) {
	output, err := runExtractionAgent(ctx, extractionRun{
		name:       "reminder-extractor",
		system:     reminderSystemPrompt,
		actionTool: RecordReminderTool,
		settings:   a.settings,
		resolver:   a.resolver,
		phrase:     phrase,
		loc:        loc,
		now:        now,
		knownTags:  knownTags,
	})
	if err != nil {
		return nil, err
	}

	var record struct {
		Text          string   `json:"reminder_text"`
		EventTime     string   `json:"event_time"`
		ReminderTimes []string `json:"reminder_times"`
		Tags          []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(output), &record); err != nil {
		return nil, fmt.Errorf("failed to parse reminder record: %w", err)
	}

	extraction := &ReminderExtraction{Text: record.Text, TagNames: record.Tags}
	if record.EventTime != "" {
		t, err := parseAgentTime(record.EventTime, loc)
		if err != nil {
			return nil, err
		}
		extraction.EventTime = &t
	}
	for _, value := range record.ReminderTimes {
		t, err := parseAgentTime(value, loc)
		if err != nil {
			return nil, err
		}
		extraction.ReminderTimes = append(extraction.ReminderTimes, t)
	}
	return extraction, nil
}

type extractionRun struct {
	name       string
	system     string
	actionTool agent.Tool
	settings   AgentSettings
	resolver   *temporal.Resolver
	phrase     string
	loc        *time.Location
	now        time.Time
	knownTags  []string
}

// runExtractionAgent executes one agent call and returns the output of the
// last successful action tool call. The agent is built per call because the
// parse_date handler binds the per-call timezone and reference time.
func runExtractionAgent(ctx context.Context, run extractionRun) (string, error) {
	ag := agent.NewAgent(agent.AgentConfig{
		Name:         run.name,
		APIKey:       run.settings.APIKey,
		Model:        run.settings.Model,
		Temperature:  run.settings.Temperature,
		SystemPrompt: run.system,
		Caller:       run.settings.Caller,
	})
	ag.MustRegisterTool(tools.ParseDateTool, tools.NewParseDateHandler(run.resolver, run.loc, run.now))
	ag.MustRegisterTool(run.actionTool, recordHandler(requiredFieldOf(run.actionTool)))

	output, err := ag.Execute(ctx, agent.AgentInput{
		Messages: []agent.Message{{
			Role:    "user",
			Content: []agent.ContentBlock{agent.TextBlock{Type: "text", Text: buildExtractionInput(run.phrase, run.knownTags)}},
		}},
		MaxTurns: run.settings.MaxTurns,
	})
	if output == nil {
		return "", err
	}

	// The last successful action call wins; the model may retry after a
	// validation error.
	for i := len(output.ToolCalls) - 1; i >= 0; i-- {
		call := output.ToolCalls[i]
		if call.Name == run.actionTool.Name && call.Error == nil {
			return call.Output, nil
		}
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("agent %s finished without calling %s", run.name, run.actionTool.Name)
}

func requiredFieldOf(tool agent.Tool) string {
	if required, ok := tool.InputSchema["required"].([]string); ok && len(required) > 0 {
		return required[0]
	}
	return "text"
}

func buildExtractionInput(phrase string, knownTags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phrase: %s\n", phrase)
	if len(knownTags) > 0 {
		fmt.Fprintf(&b, "Known tags: %s\n", strings.Join(knownTags, ", "))
	} else {
		b.WriteString("Known tags: (none)\n")
	}
	return b.String()
}

func parseAgentTime(value string, loc *time.Location) (time.Time, error) {
	t, err := timeutil.ParseDateTime(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("agent returned unparseable time %q: %w", value, err)
	}
	return t.In(loc), nil
}
