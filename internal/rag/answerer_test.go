package rag

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kalambet/libris/internal/index"
	"github.com/kalambet/libris/internal/llm"
)

type fakeEmbedder struct {
	calls  atomic.Int32
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	f.calls.Add(1)
	vectors := make([][]float32, len(inputs))
	for i := range vectors {
		vectors[i] = f.vector
	}
	return vectors, nil
}

type fakeChat struct {
	calls    atomic.Int32
	lastReq  llm.ChatRequest
	response string
}

func (f *fakeChat) Chat(ctx context.Context, req llm.ChatRequest) (llm.Message, error) {
	f.calls.Add(1)
	f.lastReq = req
	return llm.Message{Role: "assistant", Content: f.response}, nil
}

func populatedIndex(t *testing.T) *index.Index {
	t.Helper()
	ix := index.New()
	err := ix.Add("embed-m", []index.Chunk{
		{ID: "c1", Source: "guide.pdf", Page: 3, Text: "Go routines are lightweight threads", Embedding: []float32{1, 0}},
		{ID: "c2", Source: "guide.pdf", Page: 9, Text: "Channels synchronize goroutines", Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return ix
}

func TestRetrieve(t *testing.T) {
	ix := populatedIndex(t)
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	r := NewRetriever(emb, ix, "embed-m")

	chunks, err := r.Retrieve(context.Background(), "goroutines", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID != "c1" {
		t.Fatalf("chunks = %+v, want [c1]", chunks)
	}
}

func TestRetrieve_EmptyIndexSkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	r := NewRetriever(emb, index.New(), "embed-m")

	chunks, err := r.Retrieve(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("chunks = %+v, want none", chunks)
	}
	if emb.calls.Load() != 0 {
		t.Errorf("embedder called %d times on empty index", emb.calls.Load())
	}
}

func TestAnswer(t *testing.T) {
	ix := populatedIndex(t)
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	chat := &fakeChat{response: "Goroutines are cheap."}
	a := NewAnswerer(NewRetriever(emb, ix, "embed-m"), chat, "chat-m")

	ans, err := a.Answer(context.Background(), "what are goroutines?", "", 2, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Answer != "Goroutines are cheap." {
		t.Errorf("answer = %q", ans.Answer)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(ans.Sources))
	}
	if ans.Sources[0].ID != "c1" {
		t.Errorf("top source = %s, want c1", ans.Sources[0].ID)
	}

	if len(chat.lastReq.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(chat.lastReq.Messages))
	}
	sys := chat.lastReq.Messages[0]
	if sys.Role != "system" || !strings.Contains(sys.Content, "Go routines are lightweight threads") {
		t.Errorf("system message missing retrieved context: %q", sys.Content)
	}
	if !strings.Contains(sys.Content, DefaultSystemPrompt) {
		t.Errorf("system message missing default prompt: %q", sys.Content)
	}
}

func TestAnswer_EmptyIndexStillCallsModel(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	chat := &fakeChat{response: "I don't know."}
	a := NewAnswerer(NewRetriever(emb, index.New(), "embed-m"), chat, "chat-m")

	ans, err := a.Answer(context.Background(), "anything?", "", 4, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if chat.calls.Load() != 1 {
		t.Fatalf("chat calls = %d, want 1", chat.calls.Load())
	}
	if len(ans.Sources) != 0 {
		t.Errorf("sources = %+v, want none", ans.Sources)
	}
	if ans.Answer != "I don't know." {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestAnswer_CustomSystemPrompt(t *testing.T) {
	chat := &fakeChat{response: "ok"}
	a := NewAnswerer(NewRetriever(&fakeEmbedder{vector: []float32{1}}, index.New(), "m"), chat, "chat-m")

	if _, err := a.Answer(context.Background(), "q", "Answer in French.", 4, nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.HasPrefix(chat.lastReq.Messages[0].Content, "Answer in French.") {
		t.Errorf("system message = %q", chat.lastReq.Messages[0].Content)
	}
}

func TestAnswer_TemperatureForwarded(t *testing.T) {
	chat := &fakeChat{response: "ok"}
	a := NewAnswerer(NewRetriever(&fakeEmbedder{vector: []float32{1}}, index.New(), "m"), chat, "chat-m")

	temp := 0.2
	if _, err := a.Answer(context.Background(), "q", "", 4, &temp); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if chat.lastReq.Temperature == nil || *chat.lastReq.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", chat.lastReq.Temperature)
	}

	if _, err := a.Answer(context.Background(), "q", "", 4, nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if chat.lastReq.Temperature != nil {
		t.Errorf("temperature = %v, want nil when not supplied", chat.lastReq.Temperature)
	}
}
