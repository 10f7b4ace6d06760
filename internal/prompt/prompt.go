// Package prompt holds the instructions sent to the generation backend. A
// Set is bound to one knowledge source when that source is selected.
package prompt

import (
	"fmt"
	"strings"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/document"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
)

const defaultMaxContextTokens = 2000

const (
	answerSystem = "You are an expert in %s. Answer questions based strictly on the provided context. " +
		"Include the source metadata in your response."

	quickQuestionSystem = "You are an expert interviewer in %[1]s. Generate exactly ONE concise interview question " +
		"that would be asked in a real job interview for a %[1]s position. Make it brief (under 20 words), " +
		"practical, and focused on core knowledge. Just provide the question without any additional text or explanation."
	quickQuestionUser = "Generate a brief interview question."

	groundedQuestionSystem = "You are an expert interviewer in %s. Using only the provided context, generate exactly ONE " +
		"challenging but fair interview question that tests understanding of the material. Keep it under 30 words. " +
		"Just provide the question without any additional text or explanation."

	evaluateSystem = "You are an expert in %s. Evaluate the user's answer compared to the reference answer. " +
		"Provide a score from 0-10 and brief constructive feedback (max 20 words)."
	evaluateUser = "Question:\n%s\n\nReference Answer:\n%s\n\nUser Answer:\n%s\n\n" +
		"Format your response exactly as 'SCORE: X/10 FEEDBACK: [concise feedback]'"
)

// Set renders prompts for a single source.
type Set struct {
	source           string
	counter          TokenCounter
	maxContextTokens int
}

// NewSet binds the prompt templates to source. Retrieved context is capped
// at maxContextTokens as measured by counter; maxContextTokens <= 0 uses
// the default of 2000.
func NewSet(source string, counter TokenCounter, maxContextTokens int) *Set {
	if counter == nil {
		counter = EstimateCounter{}
	}
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Set{source: source, counter: counter, maxContextTokens: maxContextTokens}
}

// Source returns the source name the set is bound to.
func (s *Set) Source() string { return s.source }

// Answer asks for an answer to question grounded in passages.
func (s *Set) Answer(passages []document.Passage, question string) []engine.Message {
	return []engine.Message{
		engine.System(fmt.Sprintf(answerSystem, s.source)),
		engine.User("Context:\n" + s.Context(passages) + "\n\nQuestion:\n" + question),
	}
}

// Reference asks for a short reference answer to an interview question.
func (s *Set) Reference(passages []document.Passage, question string) []engine.Message {
	return s.Answer(passages, "Short answer to: "+question)
}

// QuickQuestion asks for a single short question about the source without
// any retrieved context.
func (s *Set) QuickQuestion() []engine.Message {
	return []engine.Message{
		engine.System(fmt.Sprintf(quickQuestionSystem, s.source)),
		engine.User(quickQuestionUser),
	}
}

// GroundedQuestion asks for a question drawn from the given passages.
func (s *Set) GroundedQuestion(passages []document.Passage) []engine.Message {
	return []engine.Message{
		engine.System(fmt.Sprintf(groundedQuestionSystem, s.source)),
		engine.User("Context:\n" + s.Context(passages) + "\n\nGenerate one interview question."),
	}
}

// Evaluate asks for a score and feedback on answer.
func (s *Set) Evaluate(question, reference, answer string) []engine.Message {
	return []engine.Message{
		engine.System(fmt.Sprintf(evaluateSystem, s.source)),
		engine.User(fmt.Sprintf(evaluateUser, question, reference, answer)),
	}
}

// Context formats passages in the given order, skipping any that would
// push the total over the token budget.
func (s *Set) Context(passages []document.Passage) string {
	var sb strings.Builder
	remaining := s.maxContextTokens
	for _, p := range passages {
		entry := formatPassage(p)
		tokens := s.counter.Count(entry)
		if tokens > remaining {
			continue
		}
		sb.WriteString(entry)
		remaining -= tokens
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatPassage(p document.Passage) string {
	return fmt.Sprintf("(Source: %s, page %d)\n%s\n\n", p.Source, p.Page, p.Text)
}
