package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effortless-app/effortless-server/internal/agent"
	"github.com/effortless-app/effortless-server/internal/temporal"
)

// scriptedCaller replays canned API responses in order.
type scriptedCaller struct {
	responses []*agent.APIResponse
	calls     int
}

func (c *scriptedCaller) Call(_ context.Context, _ []agent.Message, _ agent.CallOptions) (*agent.APIResponse, error) {
	if c.calls >= len(c.responses) {
		return &agent.APIResponse{StopReason: "end_turn"}, nil
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedCaller) IsConfigured() bool { return true }

func toolUse(name string, input map[string]any) *agent.APIResponse {
	return &agent.APIResponse{
		StopReason: "tool_use",
		Content: []agent.ContentBlock{
			agent.ToolUseBlock{Type: "tool_use", ID: "tu_1", Name: name, Input: input},
		},
	}
}

func endTurn(text string) *agent.APIResponse {
	return &agent.APIResponse{
		StopReason: "end_turn",
		Content:    []agent.ContentBlock{agent.TextBlock{Type: "text", Text: text}},
	}
}

func TestTodoAgentParsesRecordCall(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, loc)

	caller := &scriptedCaller{responses: []*agent.APIResponse{
		toolUse("record_todo", map[string]any{
			"todo_text":  "Hausaufgaben machen",
			"event_time": "2025-01-02T15:00:00+01:00",
			"tags":       []any{"Schule"},
		}),
		endTurn("done"),
	}}

	ta := NewTodoAgent(AgentSettings{MaxTurns: 5, Caller: caller}, temporal.NewResolver())
	extraction, err := ta.ExtractTodo(context.Background(), "Hausaufgaben bis morgen 15 Uhr", loc, now, []string{"Schule"})
	require.NoError(t, err)

	assert.Equal(t, "Hausaufgaben machen", extraction.Text)
	require.NotNil(t, extraction.EventTime)
	assert.Equal(t, time.Date(2025, 1, 2, 15, 0, 0, 0, loc).Unix(), extraction.EventTime.Unix())
	assert.Equal(t, []string{"Schule"}, extraction.TagNames)
}

func TestTodoAgentWithoutRecordCallFails(t *testing.T) {
	loc := time.UTC
	caller := &scriptedCaller{responses: []*agent.APIResponse{endTurn("nothing to do")}}

	ta := NewTodoAgent(AgentSettings{MaxTurns: 5, Caller: caller}, temporal.NewResolver())
	_, err := ta.ExtractTodo(context.Background(), "irgendwas", loc, time.Now(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record_todo")
}

func TestReminderAgentParsesAllTimes(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Berlin")
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, loc)

	caller := &scriptedCaller{responses: []*agent.APIResponse{
		// First turn resolves a date through the tool, then records.
		toolUse("parse_date", map[string]any{"text": "tomorrow at 10am"}),
		toolUse("record_reminder", map[string]any{
			"reminder_text":  "Zahnarzttermin",
			"event_time":     "2025-01-02T10:00:00+01:00",
			"reminder_times": []any{"2025-01-02T08:00:00+01:00"},
		}),
		endTurn("done"),
	}}

	ra := NewReminderAgent(AgentSettings{MaxTurns: 5, Caller: caller}, temporal.NewResolver())
	extraction, err := ra.ExtractReminder(context.Background(), "Zahnarzt morgen 10 Uhr, erinnere mich um 8", loc, now, nil)
	require.NoError(t, err)

	assert.Equal(t, "Zahnarzttermin", extraction.Text)
	require.NotNil(t, extraction.EventTime)
	assert.Equal(t, 10, extraction.EventTime.Hour())
	require.Len(t, extraction.ReminderTimes, 1)
	assert.Equal(t, 8, extraction.ReminderTimes[0].Hour())
}

func TestReminderAgentRetriedRecordWins(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	caller := &scriptedCaller{responses: []*agent.APIResponse{
		// Invalid first attempt (missing reminder_text), then a corrected one.
		toolUse("record_reminder", map[string]any{"event_time": "2025-01-02T10:00:00Z"}),
		toolUse("record_reminder", map[string]any{
			"reminder_text": "anrufen",
			"event_time":    "2025-01-02T10:00:00Z",
		}),
		endTurn("done"),
	}}

	ra := NewReminderAgent(AgentSettings{MaxTurns: 5, Caller: caller}, temporal.NewResolver())
	extraction, err := ra.ExtractReminder(context.Background(), "ruf morgen um 10 an", loc, now, nil)
	require.NoError(t, err)
	assert.Equal(t, "anrufen", extraction.Text)
}

func TestRecordHandlerValidation(t *testing.T) {
	handler := recordHandler("todo_text")

	_, err := handler(context.Background(), map[string]any{"todo_text": "  "})
	require.Error(t, err)

	out, err := handler(context.Background(), map[string]any{"todo_text": "x", "tags": []any{"a"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"todo_text":"x","tags":["a"]}`, out)
}
