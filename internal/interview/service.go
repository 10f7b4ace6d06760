// Package interview runs the interview flow: select a knowledge source,
// generate a question about it, and evaluate answers against a reference
// answer produced from the source.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/document"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/prompt"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/reranking"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/retrieval"
)

// Mode selects how GenerateQuestion builds its prompt.
type Mode string

const (
	// ModeQuick asks for a question about the source topic without
	// retrieving any passages.
	ModeQuick Mode = "quick"
	// ModeGrounded asks for a question about passages retrieved from the
	// source.
	ModeGrounded Mode = "grounded"
)

// ParseMode maps a request parameter to a Mode. Empty means ModeQuick.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeQuick:
		return ModeQuick, nil
	case ModeGrounded:
		return ModeGrounded, nil
	default:
		return "", newError(KindInvalidInput, "generate question", "", fmt.Errorf("unknown mode %q", s))
	}
}

// Answer is the result of Ask.
type Answer struct {
	Text     string
	Passages []document.Passage
}

// Options configures a Service.
type Options struct {
	Library          *Library
	Chunker          *document.Chunker
	Indexer          *retrieval.Indexer
	Engine           engine.Engine
	Model            string
	Counter          prompt.TokenCounter
	MaxContextTokens int
	TopK             int
	// Reranker, when set, re-orders twice TopK candidates and keeps TopK.
	Reranker reranking.Reranker
}

// Service performs interview operations against a Session.
type Service struct {
	library          *Library
	chunker          *document.Chunker
	indexer          *retrieval.Indexer
	engine           engine.Engine
	model            string
	counter          prompt.TokenCounter
	maxContextTokens int
	topK             int
	reranker         reranking.Reranker
}

func NewService(opts Options) *Service {
	chunker := opts.Chunker
	if chunker == nil {
		chunker = document.NewChunker(document.DefaultWindow, document.DefaultOverlap)
	}
	counter := opts.Counter
	if counter == nil {
		counter = prompt.EstimateCounter{}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Service{
		library:          opts.Library,
		chunker:          chunker,
		indexer:          opts.Indexer,
		engine:           opts.Engine,
		model:            opts.Model,
		counter:          counter,
		maxContextTokens: opts.MaxContextTokens,
		topK:             topK,
		reranker:         opts.Reranker,
	}
}

// ListSources returns the names of the PDFs in the library.
func (svc *Service) ListSources(_ context.Context) ([]string, error) {
	names, err := svc.library.List()
	if err != nil {
		return nil, newError(KindLoad, "list sources", "", err)
	}
	return names, nil
}

// Upload stores a PDF in the library and selects it for s.
func (svc *Service) Upload(ctx context.Context, s *Session, filename string, r io.Reader) (string, error) {
	name, err := svc.library.Save(filename, r)
	if err != nil {
		if errors.Is(err, ErrNotPDF) || errors.Is(err, ErrInvalidName) || errors.Is(err, ErrTooLarge) {
			return "", newError(KindInvalidInput, "upload", filename, err)
		}
		return "", newError(KindLoad, "upload", filename, err)
	}
	slog.Info("source uploaded", "session", s.ID(), "source", name)
	return svc.SelectSource(ctx, s, name)
}

// SelectSource loads, chunks and indexes the named source and makes it the
// session's active source. On failure the session is left as it was.
func (svc *Service) SelectSource(ctx context.Context, s *Session, name string) (string, error) {
	const op = "select source"
	start := time.Now()

	path, err := svc.library.Path(name)
	if err != nil {
		return "", newError(KindInvalidInput, op, name, err)
	}
	segments, err := document.LoadPDF(path, name)
	if err != nil {
		return "", newError(KindLoad, op, name, err)
	}
	passages := svc.chunker.Split(segments)
	idx, err := svc.indexer.Build(ctx, passages)
	if err != nil {
		kind := KindIndexBuild
		switch {
		case errors.Is(err, engine.ErrUnavailable):
			kind = KindUpstreamUnavailable
		case errors.Is(err, engine.ErrRejected):
			kind = KindUpstreamRejected
		}
		return "", newError(kind, op, name, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if err := idx.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("closing index of ended session", "session", s.ID(), "error", err)
		}
		return "", newError(KindNotBuilt, op, name, ErrSessionClosed)
	}
	old := s.index
	s.index = idx
	s.source = name
	s.prompts = prompt.NewSet(name, svc.counter, svc.maxContextTokens)
	s.question = ""
	s.reference = ""
	s.state = StateSourceReady
	s.mu.Unlock()

	if err := old.Close(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("closing previous index", "session", s.ID(), "error", err)
	}

	slog.Info("source selected",
		"session", s.ID(),
		"source", name,
		"pages", len(segments),
		"passages", idx.Size(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return fmt.Sprintf("%s knowledge base initialized successfully!", name), nil
}

// GenerateQuestion asks the generation backend for a new interview question
// and makes it the session's current question. The reference answer is
// reset to PendingReferenceAnswer.
func (svc *Service) GenerateQuestion(ctx context.Context, s *Session, mode Mode) (string, error) {
	const op = "generate question"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateNoSource {
		return "", ErrNoSourceSelected
	}

	var msgs []engine.Message
	switch mode {
	case ModeGrounded:
		passages, err := svc.retrieve(ctx, s, s.source)
		if err != nil {
			return "", svc.retrievalError(op, s.source, err)
		}
		msgs = s.prompts.GroundedQuestion(passages)
	default:
		msgs = s.prompts.QuickQuestion()
	}

	question, err := svc.chat(ctx, op, s.source, msgs)
	if err != nil {
		return "", err
	}
	s.question = question
	s.reference = PendingReferenceAnswer
	s.state = StateQuestionPending
	slog.Debug("question generated", "session", s.ID(), "source", s.source, "mode", string(mode))
	return question, nil
}

// SubmitAnswer scores answer against the current question. The reference
// answer is generated on the first submission and reused afterwards, so
// the same question may be answered repeatedly.
func (svc *Service) SubmitAnswer(ctx context.Context, s *Session, answer string) (Evaluation, error) {
	const op = "evaluate answer"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.question == "" || (s.state != StateQuestionPending && s.state != StateAnswerEvaluated) {
		return Evaluation{}, ErrNoQuestionPending
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Evaluation{}, newError(KindInvalidInput, op, s.source, errors.New("answer is empty"))
	}

	if s.reference == PendingReferenceAnswer || s.reference == "" {
		passages, err := svc.retrieve(ctx, s, s.question)
		if err != nil {
			return Evaluation{}, svc.retrievalError(op, s.source, err)
		}
		reference, err := svc.chat(ctx, op, s.source, s.prompts.Reference(passages, s.question))
		if err != nil {
			return Evaluation{}, err
		}
		s.reference = reference
	}

	raw, err := svc.chat(ctx, op, s.source, s.prompts.Evaluate(s.question, s.reference, answer))
	if err != nil {
		return Evaluation{}, err
	}
	score, feedback := ParseEvaluation(raw)
	s.state = StateAnswerEvaluated
	slog.Debug("answer evaluated", "session", s.ID(), "source", s.source, "score", score)
	return Evaluation{Score: score, Feedback: feedback, ReferenceAnswer: s.reference}, nil
}

// Ask answers a free-form question from the active source and returns the
// passages the answer was grounded in.
func (svc *Service) Ask(ctx context.Context, s *Session, question string) (Answer, error) {
	const op = "ask"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateNoSource {
		return Answer{}, ErrNoSourceSelected
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, newError(KindInvalidInput, op, s.source, errors.New("question is empty"))
	}
	passages, err := svc.retrieve(ctx, s, question)
	if err != nil {
		return Answer{}, svc.retrievalError(op, s.source, err)
	}
	text, err := svc.chat(ctx, op, s.source, s.prompts.Answer(passages, question))
	if err != nil {
		return Answer{}, err
	}
	return Answer{Text: text, Passages: passages}, nil
}

// retrieve must be called with s.mu held.
func (svc *Service) retrieve(ctx context.Context, s *Session, query string) ([]document.Passage, error) {
	k := svc.topK
	if svc.reranker != nil {
		k *= 2
	}
	results, err := s.index.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if svc.reranker != nil {
		if results, err = svc.reranker.Rerank(ctx, query, results, svc.topK); err != nil {
			return nil, err
		}
	}
	passages := make([]document.Passage, len(results))
	for i, r := range results {
		passages[i] = r.Passage
	}
	return passages, nil
}

func (svc *Service) retrievalError(op, source string, err error) error {
	switch {
	case errors.Is(err, retrieval.ErrNotBuilt):
		return newError(KindNotBuilt, op, source, err)
	case errors.Is(err, engine.ErrMalformedResponse):
		return newError(KindUpstreamMalformedOutput, op, source, err)
	case errors.Is(err, engine.ErrUnavailable):
		return newError(KindUpstreamUnavailable, op, source, err)
	case errors.Is(err, engine.ErrRejected):
		return newError(KindUpstreamRejected, op, source, err)
	default:
		return newError(KindIndexBuild, op, source, err)
	}
}

// upstreamKind classifies a failed generation call. Errors the backend
// gives no reason for count as unavailable.
func upstreamKind(err error) Kind {
	switch {
	case errors.Is(err, engine.ErrMalformedResponse):
		return KindUpstreamMalformedOutput
	case errors.Is(err, engine.ErrRejected):
		return KindUpstreamRejected
	default:
		return KindUpstreamUnavailable
	}
}

// chat calls the generation backend and returns its trimmed output. Empty
// output is treated as malformed.
func (svc *Service) chat(ctx context.Context, op, source string, msgs []engine.Message) (string, error) {
	start := time.Now()
	out, err := svc.engine.Chat(ctx, svc.model, msgs)
	if err != nil {
		slog.Warn("generation failed", "op", op, "source", source, "error", err)
		return "", newError(upstreamKind(err), op, source, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", newError(KindUpstreamMalformedOutput, op, source, errors.New("empty response"))
	}
	slog.Debug("generation complete", "op", op, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}
