package interview

import "testing"

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantScore    string
		wantFeedback string
	}{
		{"well formed", "SCORE: 7/10 FEEDBACK: Good, mention SYN/ACK.", "7/10", "Good, mention SYN/ACK."},
		{"extra whitespace", "\n  SCORE:   8/10  \n\n FEEDBACK:\n  Clear and correct.  \n", "8/10", "Clear and correct."},
		{"missing score", "7/10 FEEDBACK: decent answer", ScoreUnavailable, "7/10 FEEDBACK: decent answer"},
		{"missing feedback", "SCORE: 7/10 decent answer", ScoreUnavailable, "SCORE: 7/10 decent answer"},
		{"both missing", "  That answer is mostly right.  ", ScoreUnavailable, "That answer is mostly right."},
		{"split on first feedback", "SCORE: 5/10 FEEDBACK: say FEEDBACK: twice", "5/10", "say FEEDBACK: twice"},
		{"empty score text", "SCORE: FEEDBACK: vague", ScoreUnavailable, "vague"},
		{"empty", "", ScoreUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, feedback := ParseEvaluation(tt.raw)
			if score != tt.wantScore {
				t.Errorf("score = %q, want %q", score, tt.wantScore)
			}
			if feedback != tt.wantFeedback {
				t.Errorf("feedback = %q, want %q", feedback, tt.wantFeedback)
			}
		})
	}
}
