package interview

import "strings"

// ScoreUnavailable is reported when the evaluator's output lacks the
// SCORE:/FEEDBACK: markers.
const ScoreUnavailable = "N/A"

const (
	scoreMarker    = "SCORE:"
	feedbackMarker = "FEEDBACK:"
)

// Evaluation is the result of scoring one answer.
type Evaluation struct {
	Score           string `json:"score"`
	Feedback        string `json:"feedback"`
	ReferenceAnswer string `json:"reference_answer"`
}

// ParseEvaluation splits evaluator output of the form
// "SCORE: 7/10 FEEDBACK: ...". Output missing either marker is returned
// whole as feedback with a score of ScoreUnavailable.
func ParseEvaluation(raw string) (score, feedback string) {
	if !strings.Contains(raw, scoreMarker) || !strings.Contains(raw, feedbackMarker) {
		return ScoreUnavailable, strings.TrimSpace(raw)
	}
	before, after, _ := strings.Cut(raw, feedbackMarker)
	score = strings.TrimSpace(strings.ReplaceAll(before, scoreMarker, ""))
	if score == "" {
		score = ScoreUnavailable
	}
	return score, strings.TrimSpace(after)
}
