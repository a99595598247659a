// Package agent runs a bounded reasoning loop: the model alternates between
// deciding on tool calls and incorporating their output until it produces a
// final answer or the step cap is reached. Exhausting the cap is fail-soft:
// the last assistant text (possibly empty) is returned rather than an error.
package agent

import (
	"context"
	"log/slog"

	"github.com/kalambet/libris/internal/llm"
)

// DefaultMaxSteps bounds reasoning/tool cycles per run.
const DefaultMaxSteps = 6

// DefaultSystemPrompt is used when the caller supplies no persona.
const DefaultSystemPrompt = "You are a thoughtful assistant. Decide when to use tools."

// ChatClient sends one chat completion request.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error)
}

// ToolEvent records one tool invocation, in call order.
type ToolEvent struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of one agent run.
type Result struct {
	Response   string      `json:"response"`
	ToolEvents []ToolEvent `json:"tool_events"`
}

// Agent orchestrates the reasoning loop over a fixed tool set.
type Agent struct {
	chat     ChatClient
	model    string
	maxSteps int
	tools    []Tool
}

// New creates an Agent. maxSteps <= 0 selects DefaultMaxSteps.
func New(chat ChatClient, model string, maxSteps int, tools ...Tool) *Agent {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Agent{chat: chat, model: model, maxSteps: maxSteps, tools: tools}
}

// Run drives the loop for one user message. history seeds prior turns of the
// conversation between the system prompt and the new user message. Upstream
// model failures abort the run; tool failures are recorded as events and fed
// back to the model.
func (a *Agent) Run(ctx context.Context, message, systemPrompt string, history []llm.Message) (Result, error) {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: message})
	decls := declarations(a.tools)

	var result Result
	for step := 0; step < a.maxSteps; step++ {
		msg, err := a.chat.Chat(ctx, llm.ChatRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    decls,
		})
		if err != nil {
			return Result{}, err
		}

		result.Response = msg.Content
		if len(msg.ToolCalls) == 0 {
			return result, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			event := a.execute(call)
			result.ToolEvents = append(result.ToolEvents, event)

			content := event.Output
			if event.Error != "" {
				content = "error: " + event.Error
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    content,
			})
		}
	}

	// Step cap reached: return whatever partial answer exists.
	slog.Warn("agent step cap reached", "max_steps", a.maxSteps, "tool_events", len(result.ToolEvents))
	return result, nil
}

// execute runs a single tool call, capturing failures in the event instead
// of aborting the loop.
func (a *Agent) execute(call llm.ToolCall) ToolEvent {
	event := ToolEvent{Tool: call.Function.Name, Input: call.Function.Arguments}

	tool, ok := a.lookup(call.Function.Name)
	if !ok {
		event.Error = "unknown tool"
		return event
	}

	args, err := parseArgs(call.Function.Arguments)
	if err != nil {
		event.Error = err.Error()
		return event
	}

	output, err := tool.Run(args)
	if err != nil {
		event.Error = err.Error()
		return event
	}
	event.Output = output
	return event
}

func (a *Agent) lookup(name string) (Tool, bool) {
	for _, t := range a.tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
