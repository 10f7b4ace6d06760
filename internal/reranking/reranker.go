// Package reranking re-orders retrieved passages by asking the generation
// backend how relevant each one is to the query.
package reranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/retrieval"
)

const (
	defaultConcurrency = 3
	defaultTimeout     = 10 * time.Second

	// DefaultThreshold drops passages the model rates as barely relevant.
	DefaultThreshold = 0.2
)

// Reranker re-scores retrieved passages by relevance to query and returns at
// most topK of them. topK <= 0 keeps every passage that passes.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []retrieval.Result, topK int) ([]retrieval.Result, error)
}

// New returns an LLMReranker if enabled, NoOpReranker otherwise.
func New(eng engine.Engine, model string, enabled bool, timeout time.Duration, threshold float64) Reranker {
	if !enabled || eng == nil {
		return NoOpReranker{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LLMReranker{
		engine:    eng,
		model:     model,
		timeout:   timeout,
		threshold: threshold,
	}
}

// LLMReranker scores (query, passage) pairs with a chat model, at most
// defaultConcurrency at a time. Results below threshold are dropped and the
// rest sorted by score descending.
type LLMReranker struct {
	engine    engine.Engine
	model     string
	timeout   time.Duration
	threshold float64
}

// Rerank scores every passage before ranking. When the timeout fires the
// passages scored so far are ranked; if none were scored, or every passage
// falls below the threshold, the input order truncated to topK is returned.
func (r *LLMReranker) Rerank(ctx context.Context, query string, results []retrieval.Result, topK int) ([]retrieval.Result, error) {
	if len(results) == 0 {
		return results, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	scoredCh := make(chan retrieval.Result, len(results))
	sem := make(chan struct{}, defaultConcurrency)

	var wg sync.WaitGroup
	for _, res := range results {
		wg.Add(1)
		go func(res retrieval.Result) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-timeoutCtx.Done():
				return
			}
			defer func() { <-sem }()

			score, err := r.score(timeoutCtx, query, res)
			if err != nil {
				if timeoutCtx.Err() != nil {
					return
				}
				slog.Debug("rerank: score failed, keeping similarity", "passage", res.Passage.ID, "error", err)
				scoredCh <- res
				return
			}
			res.Score = float32(score)
			scoredCh <- res
		}(res)
	}

	go func() {
		wg.Wait()
		close(scoredCh)
	}()

	scored := make([]retrieval.Result, 0, len(results))
collect:
	for {
		select {
		case res, ok := <-scoredCh:
			if !ok {
				break collect
			}
			scored = append(scored, res)
		case <-timeoutCtx.Done():
			if len(scored) == 0 {
				return truncate(results, topK), nil
			}
			break collect
		}
	}

	kept := make([]retrieval.Result, 0, len(scored))
	for _, res := range scored {
		if float64(res.Score) >= r.threshold {
			kept = append(kept, res)
		}
	}
	if len(kept) == 0 {
		return truncate(results, topK), nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return truncate(kept, topK), nil
}

func (r *LLMReranker) score(ctx context.Context, query string, res retrieval.Result) (float64, error) {
	prompt := "Rate the relevance of the following text to the query on a scale of 0.0 to 1.0.\n" +
		"Query: " + query + "\n" +
		"Text: " + res.Passage.Text + "\n" +
		`Respond with only a JSON object: {"score": <float>}`

	resp, err := r.engine.Chat(ctx, r.model, []engine.Message{engine.User(prompt)})
	if err != nil {
		return float64(res.Score), err
	}

	score, parseErr := parseScore(resp, res.Score)
	if parseErr != nil {
		slog.Debug("rerank: parse failed, keeping similarity", "resp", resp, "error", parseErr)
		return float64(res.Score), nil
	}
	return score, nil
}

// parseScore extracts {"score": x} from a model response that may be wrapped
// in a markdown code fence or surrounded by other text. On failure the
// original score is returned with the error.
func parseScore(resp string, originalScore float32) (float64, error) {
	s := strings.TrimSpace(resp)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return float64(originalScore), fmt.Errorf("no JSON object in response")
	}

	var obj struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return float64(originalScore), fmt.Errorf("unmarshal score: %w", err)
	}
	if obj.Score == nil {
		return float64(originalScore), fmt.Errorf("response has no score")
	}
	return *obj.Score, nil
}

func truncate(results []retrieval.Result, topK int) []retrieval.Result {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}

// NoOpReranker keeps the similarity order. Used when reranking is disabled.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, results []retrieval.Result, topK int) ([]retrieval.Result, error) {
	return truncate(results, topK), nil
}
