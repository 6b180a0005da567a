package agent

import (
	"context"
	"fmt"
)

// Caller abstracts the model API so agents are testable with canned responses.
type Caller interface {
	Call(ctx context.Context, messages []Message, opts CallOptions) (*APIResponse, error)
	IsConfigured() bool
}

// Agent represents an LLM-powered agent with tools
type Agent struct {
	name         string
	caller       Caller
	registry     *ToolRegistry
	systemPrompt string
}

// AgentConfig configures an agent
type AgentConfig struct {
	Name         string
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string

	// Caller overrides the default API client when set (used in tests).
	Caller Caller
}

// NewAgent creates a new agent with the given configuration
func NewAgent(cfg AgentConfig) *Agent {
	caller := cfg.Caller
	if caller == nil {
		caller = NewAPIClient(cfg.APIKey, cfg.Model, cfg.Temperature)
	}
	return &Agent{
		name:         cfg.Name,
		caller:       caller,
		registry:     NewToolRegistry(),
		systemPrompt: cfg.SystemPrompt,
	}
}

// Name returns the agent's name
func (a *Agent) Name() string {
	return a.name
}

// RegisterTool adds a tool to the agent
func (a *Agent) RegisterTool(tool Tool, handler ToolHandler) error {
	return a.registry.Register(tool, handler)
}

// MustRegisterTool adds a tool and panics on error
func (a *Agent) MustRegisterTool(tool Tool, handler ToolHandler) {
	a.registry.MustRegister(tool, handler)
}

// Tools returns all registered tools
func (a *Agent) Tools() []Tool {
	return a.registry.Tools()
}

// Execute runs the agent with the given input. Each turn is a model call; tool
// calls are executed locally and fed back until the model stops or the turn
// budget is exhausted.
func (a *Agent) Execute(ctx context.Context, input AgentInput) (*AgentOutput, error) {
	maxTurns := input.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1 // Default to single-shot
	}

	messages := make([]Message, len(input.Messages))
	copy(messages, input.Messages)

	var totalUsage UsageStats
	var allToolCalls []ToolCall

	for turn := 0; turn < maxTurns; turn++ {
		response, err := a.caller.Call(ctx, messages, CallOptions{
			System: a.systemPrompt,
			Tools:  a.registry.Tools(),
		})
		if err != nil {
			return nil, fmt.Errorf("API call failed on turn %d: %w", turn+1, err)
		}
		totalUsage.Add(response.Usage)

		switch response.StopReason {
		case "end_turn":
			return &AgentOutput{
				ToolCalls:    allToolCalls,
				Conversation: messages,
				Usage:        totalUsage,
				FinalText:    extractFinalText(response.Content),
			}, nil

		case "tool_use":
			assistantMsg := Message{Role: "assistant", Content: response.Content}
			messages = append(messages, assistantMsg)

			toolResults, toolCalls := a.executeTools(ctx, response.Content)
			allToolCalls = append(allToolCalls, toolCalls...)

			userMsg := Message{Role: "user", Content: toolResults}
			messages = append(messages, userMsg)
			continue

		default:
			return nil, fmt.Errorf("unexpected stop reason: %s", response.StopReason)
		}
	}

	// Turn budget exceeded - return what we have
	return &AgentOutput{
		ToolCalls:    allToolCalls,
		Conversation: messages,
		Usage:        totalUsage,
	}, fmt.Errorf("max turns (%d) exceeded", maxTurns)
}

// executeTools runs all tool_use blocks and returns results
func (a *Agent) executeTools(ctx context.Context, content []ContentBlock) ([]ContentBlock, []ToolCall) {
	var results []ContentBlock
	var calls []ToolCall

	for _, block := range content {
		toolUse, ok := block.(ToolUseBlock)
		if !ok {
			continue
		}

		output, err := a.registry.Execute(ctx, toolUse.Name, toolUse.Input)

		calls = append(calls, ToolCall{
			Name:   toolUse.Name,
			Input:  toolUse.Input,
			Output: output,
			Error:  err,
		})

		resultBlock := ToolResultBlock{
			Type:      "tool_result",
			ToolUseID: toolUse.ID,
			Content:   output,
			IsError:   err != nil,
		}
		if err != nil {
			resultBlock.Content = err.Error()
		}
		results = append(results, resultBlock)
	}

	return results, calls
}

// extractFinalText extracts text from the final response
func extractFinalText(content []ContentBlock) string {
	for _, block := range content {
		if text, ok := block.(TextBlock); ok {
			return text.Text
		}
	}
	return ""
}

// IsConfigured returns true if the agent's API client is configured
func (a *Agent) IsConfigured() bool {
	return a.caller != nil && a.caller.IsConfigured()
}
