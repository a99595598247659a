package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/libris/internal/llm"
)

// DefaultSystemPrompt instructs the model to stay within retrieved context.
const DefaultSystemPrompt = "You are a domain expert. Use only the provided context to answer."

// snippetLen caps the source snippet length returned to callers, in runes.
const snippetLen = 200

// ChatClient sends one chat completion request.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error)
}

// Source identifies one retrieved chunk that conditioned the answer.
type Source struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Snippet string  `json:"snippet"`
	Score   float32 `json:"score"`
}

// Answer is the result of one retrieval-augmented completion.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answerer runs retrieval-augmented answering over the shared index.
type Answerer struct {
	retriever *Retriever
	chat      ChatClient
	chatModel string
}

// NewAnswerer creates an Answerer completing with the given chat model.
func NewAnswerer(retriever *Retriever, chat ChatClient, chatModel string) *Answerer {
	return &Answerer{retriever: retriever, chat: chat, chatModel: chatModel}
}

// Answer retrieves the topK chunks for the question and issues a single
// completion conditioned on them. When the index is empty the completion is
// still issued with an empty context block, so the model answers best-effort
// instead of the call failing. A nil temperature leaves the model default.
func (a *Answerer) Answer(ctx context.Context, question, systemPrompt string, topK int, temperature *float64) (Answer, error) {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	chunks, err := a.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return Answer{}, err
	}

	var contextBlock strings.Builder
	sources := make([]Source, len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(&contextBlock, "[%s p.%d] %s\n\n", c.Source, c.Page, c.Text)
		sources[i] = Source{
			ID:      c.ID,
			Source:  c.Source,
			Page:    c.Page,
			Snippet: snippet(c.Text),
			Score:   c.Score,
		}
	}

	msg, err := a.chat.Chat(ctx, llm.ChatRequest{
		Model:       a.chatModel,
		Temperature: temperature,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt + "\n\nContext:\n" + contextBlock.String()},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return Answer{}, err
	}

	return Answer{Answer: msg.Content, Sources: sources}, nil
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen]) + "…"
}
