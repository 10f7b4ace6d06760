package reranking

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/document"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/retrieval"
)

// --- mock engine ---

type mockEngine struct {
	chatFn func(ctx context.Context, model string, msgs []engine.Message) (string, error)
}

func (m *mockEngine) Chat(ctx context.Context, model string, msgs []engine.Message) (string, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, model, msgs)
	}
	return `{"score": 0.5}`, nil
}

func (m *mockEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return nil, fmt.Errorf("not implemented")
}
func (m *mockEngine) IsRunning(ctx context.Context) bool { return true }

// --- helpers ---

func makeResults(n int, score float32) []retrieval.Result {
	results := make([]retrieval.Result, n)
	for i := range results {
		results[i] = retrieval.Result{
			Passage: document.Passage{
				ID:   fmt.Sprintf("networking:1:%d", i),
				Text: fmt.Sprintf("passage %d", i),
			},
			Score: score,
		}
	}
	return results
}

// scoreByPassage answers with the score listed for the passage number found
// in the prompt, so results do not depend on goroutine scheduling.
func scoreByPassage(scores ...float64) func(context.Context, string, []engine.Message) (string, error) {
	return func(_ context.Context, _ string, msgs []engine.Message) (string, error) {
		for i, s := range scores {
			if strings.Contains(msgs[0].Content, fmt.Sprintf("Text: passage %d\n", i)) {
				return fmt.Sprintf(`{"score": %g}`, s), nil
			}
		}
		return "", fmt.Errorf("unexpected prompt")
	}
}

func newLLMReranker(eng engine.Engine, threshold float64, timeout time.Duration) *LLMReranker {
	return &LLMReranker{
		engine:    eng,
		model:     "llama3.1",
		timeout:   timeout,
		threshold: threshold,
	}
}

// --- tests ---

func TestLLMReranker_Reorders(t *testing.T) {
	eng := &mockEngine{chatFn: scoreByPassage(0.9, 0.3, 0.7)}

	r := newLLMReranker(eng, 0.2, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", makeResults(3, 0.5), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("got %d results, want 3", len(result))
	}
	wantOrder := []float32{0.9, 0.7, 0.3}
	for i, res := range result {
		if res.Score != wantOrder[i] {
			t.Errorf("result[%d].Score = %g, want %g", i, res.Score, wantOrder[i])
		}
	}
}

func TestLLMReranker_DropsLowScore(t *testing.T) {
	eng := &mockEngine{chatFn: scoreByPassage(0.8, 0.1, 0.7)}

	r := newLLMReranker(eng, 0.3, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", makeResults(3, 0.5), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("got %d results, want 2 (low-score passage should be dropped)", len(result))
	}
	for _, res := range result {
		if float64(res.Score) < 0.3 {
			t.Errorf("result with score %g below threshold was not dropped", res.Score)
		}
	}
}

func TestLLMReranker_TruncatesToTopK(t *testing.T) {
	eng := &mockEngine{chatFn: scoreByPassage(0.2, 0.9, 0.5, 0.8)}

	r := newLLMReranker(eng, 0, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", makeResults(4, 0.5), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result = truncate(result, 2)
	if len(result) != 2 || result[0].Passage.ID != "networking:1:1" || result[1].Passage.ID != "networking:1:3" {
		t.Errorf("top 2 = %+v", result)
	}
}

func TestLLMReranker_AllBelowThresholdKeepsInput(t *testing.T) {
	eng := &mockEngine{
		chatFn: func(ctx context.Context, model string, msgs []engine.Message) (string, error) {
			return `{"score": 0.1}`, nil
		},
	}

	input := makeResults(3, 0.9)
	r := newLLMReranker(eng, 0.3, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", input, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 || result[0].Score != 0.9 {
		t.Errorf("got %+v, want the first 2 inputs unchanged", result)
	}
}

func TestLLMReranker_Timeout(t *testing.T) {
	eng := &mockEngine{
		chatFn: func(ctx context.Context, model string, msgs []engine.Message) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}

	input := makeResults(3, 0.8)
	r := newLLMReranker(eng, 0.3, 200*time.Millisecond)

	start := time.Now()
	result, err := r.Rerank(context.Background(), "query", input, 0)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Rerank took %v, want < 500ms", elapsed)
	}
	if len(result) != len(input) {
		t.Errorf("got %d results on timeout, want the %d inputs", len(result), len(input))
	}
}

func TestLLMReranker_MarkdownCodeFence(t *testing.T) {
	eng := &mockEngine{
		chatFn: func(ctx context.Context, model string, msgs []engine.Message) (string, error) {
			return "```json\n{\"score\": 0.8}\n```", nil
		},
	}

	r := newLLMReranker(eng, 0.3, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", makeResults(1, 0.5), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].Score != 0.8 {
		t.Errorf("result = %+v, want score 0.8", result)
	}
}

func TestLLMReranker_ConversationalFiller(t *testing.T) {
	eng := &mockEngine{
		chatFn: func(ctx context.Context, model string, msgs []engine.Message) (string, error) {
			return `The relevance score is: {"score": 0.6}`, nil
		},
	}

	r := newLLMReranker(eng, 0.3, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", makeResults(1, 0.5), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].Score != 0.6 {
		t.Errorf("result = %+v, want score 0.6", result)
	}
}

func TestLLMReranker_MalformedJSON(t *testing.T) {
	eng := &mockEngine{
		chatFn: func(ctx context.Context, model string, msgs []engine.Message) (string, error) {
			return "completely unparseable garbage blah blah", nil
		},
	}

	r := newLLMReranker(eng, 0.3, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", makeResults(1, 0.9), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].Score != 0.9 {
		t.Errorf("result = %+v, want the original score kept", result)
	}
}

func TestLLMReranker_WaitsForSlowRelevantPassages(t *testing.T) {
	// Passages 0-4 are relevant but slow to score, 5-9 are weak and fast.
	eng := &mockEngine{
		chatFn: func(ctx context.Context, model string, msgs []engine.Message) (string, error) {
			for i := 0; i < 5; i++ {
				if strings.Contains(msgs[0].Content, fmt.Sprintf("Text: passage %d\n", i)) {
					select {
					case <-time.After(50 * time.Millisecond):
					case <-ctx.Done():
						return "", ctx.Err()
					}
					return `{"score": 0.9}`, nil
				}
			}
			return `{"score": 0.3}`, nil
		},
	}

	r := newLLMReranker(eng, 0.2, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", makeResults(10, 0.5), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 5 {
		t.Fatalf("got %d results, want 5", len(result))
	}
	for _, res := range result {
		if res.Score != 0.9 {
			t.Errorf("kept %s with score %g, want only 0.9 passages", res.Passage.ID, res.Score)
		}
	}
}

func TestLLMReranker_TimeoutRanksScoredPassages(t *testing.T) {
	eng := &mockEngine{
		chatFn: func(ctx context.Context, model string, msgs []engine.Message) (string, error) {
			if strings.Contains(msgs[0].Content, "Text: passage 0\n") {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return `{"score": 0.7}`, nil
		},
	}

	r := newLLMReranker(eng, 0.2, 200*time.Millisecond)
	result, err := r.Rerank(context.Background(), "query", makeResults(3, 0.5), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("got %d results, want the 2 scored before the timeout", len(result))
	}
	for _, res := range result {
		if res.Passage.ID == "networking:1:0" {
			t.Error("unscored passage should not be ranked")
		}
	}
}

func TestLLMReranker_Empty(t *testing.T) {
	r := newLLMReranker(&mockEngine{}, 0.3, 5*time.Second)
	result, err := r.Rerank(context.Background(), "query", nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("got %d results, want 0 for empty input", len(result))
	}
}

func TestNoOpReranker(t *testing.T) {
	input := makeResults(3, 0.5)
	input[0].Score = 0.3
	input[1].Score = 0.9
	input[2].Score = 0.1

	result, err := NoOpReranker{}.Rerank(context.Background(), "query", input, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 || result[0].Score != 0.3 || result[1].Score != 0.9 {
		t.Errorf("result = %+v, want the first 2 inputs in order", result)
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(&mockEngine{}, "llama3.1", true, 0, DefaultThreshold).(*LLMReranker); !ok {
		t.Error("New(enabled) should return *LLMReranker")
	}
	if _, ok := New(&mockEngine{}, "llama3.1", false, 0, DefaultThreshold).(NoOpReranker); !ok {
		t.Error("New(disabled) should return NoOpReranker")
	}
	if _, ok := New(nil, "llama3.1", true, 0, DefaultThreshold).(NoOpReranker); !ok {
		t.Error("New with nil engine should return NoOpReranker")
	}
}

func TestParseScore_MissingField(t *testing.T) {
	if _, err := parseScore(`{"relevance": 0.4}`, 0.7); err == nil {
		t.Error("expected error for response without score")
	}
}
