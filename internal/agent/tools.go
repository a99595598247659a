package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/libris/internal/llm"
)

// Tool is a deterministic local function the model may invoke.
type Tool struct {
	Name        string
	Description string
	Params      *llm.Schema
	Run         func(args map[string]any) (string, error)
}

// TextStatsTool counts characters and words in a text snippet.
func TextStatsTool() Tool {
	return Tool{
		Name:        "text_stats",
		Description: "Return quick statistics about the supplied text snippet.",
		Params: &llm.Schema{
			Type: "object",
			Properties: map[string]llm.SchemaProperty{
				"text": {Type: "string", Description: "Text to analyze"},
			},
			Required: []string{"text"},
		},
		Run: func(args map[string]any) (string, error) {
			text, ok := args["text"].(string)
			if !ok {
				return "", fmt.Errorf("text argument is required")
			}
			words := len(strings.Fields(text))
			return fmt.Sprintf("Characters: %d, Words: %d", utf8.RuneCountInString(text), words), nil
		},
	}
}

// declarations converts tools to the wire format sent with chat requests.
func declarations(tools []Tool) []llm.Tool {
	decls := make([]llm.Tool, len(tools))
	for i, t := range tools {
		decls[i] = llm.Tool{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Params,
			},
		}
	}
	return decls
}

// parseArgs decodes the JSON argument payload of a tool call.
func parseArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}
