package main

import "testing"

func TestSplitThink(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantThink  string
		wantAnswer string
	}{
		{"no think", "plain answer", "", "plain answer"},
		{"closed", "<think>step one</think>\n\nThe answer.", "step one", "The answer."},
		{"leading space", "  <think>x</think>y", "x", "y"},
		{"unclosed", "<think>still going", "still going", ""},
		{"not leading", "answer <think>late</think>", "", "answer <think>late</think>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			think, answer := splitThink(tt.in)
			if think != tt.wantThink || answer != tt.wantAnswer {
				t.Errorf("splitThink(%q) = (%q, %q), want (%q, %q)", tt.in, think, answer, tt.wantThink, tt.wantAnswer)
			}
		})
	}
}
