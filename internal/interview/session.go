package interview

import (
	"context"
	"sync"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/prompt"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/retrieval"
)

// PendingReferenceAnswer is stored as the reference answer until the first
// submission for the current question backfills it.
const PendingReferenceAnswer = "Reference answer will be generated after you submit your response."

// State is where a session sits in the interview flow.
type State int

const (
	StateNoSource State = iota
	StateSourceReady
	StateQuestionPending
	StateAnswerEvaluated
)

func (s State) String() string {
	switch s {
	case StateSourceReady:
		return "source_ready"
	case StateQuestionPending:
		return "question_pending"
	case StateAnswerEvaluated:
		return "answer_evaluated"
	default:
		return "no_source"
	}
}

// Session holds one caller's active source, index and question. All
// operations on a session are serialized by its mutex.
type Session struct {
	id string

	mu        sync.Mutex
	state     State
	source    string
	index     *retrieval.Index
	prompts   *prompt.Set
	question  string
	reference string
	closed    bool
}

// NewSession returns an empty session in StateNoSource.
func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string { return s.id }

// Snapshot is a point-in-time copy of a session's public state.
type Snapshot struct {
	ID        string `json:"session_id"`
	State     string `json:"state"`
	Source    string `json:"source,omitempty"`
	Passages  int    `json:"passages"`
	Question  string `json:"question,omitempty"`
	Reference string `json:"reference_answer,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.id,
		State:     s.state.String(),
		Source:    s.source,
		Passages:  s.index.Size(),
		Question:  s.question,
		Reference: s.reference,
	}
}

// Close releases the session's index. The session returns to StateNoSource
// and a source selection still in flight is discarded.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	idx := s.index
	s.index = nil
	s.prompts = nil
	s.source = ""
	s.question = ""
	s.reference = ""
	s.state = StateNoSource
	s.closed = true
	s.mu.Unlock()
	return idx.Close(ctx)
}
