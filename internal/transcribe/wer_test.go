package transcribe

import (
	"math"
	"testing"
)

func TestComputeWER(t *testing.T) {
	tests := []struct {
		name            string
		ref, hyp        string
		wer             float64
		subs, ins, dels int
	}{
		{"identical", "ask not what your country can do", "ask not what your country can do", 0, 0, 0, 0},
		{"substitution", "ask not what your country", "ask not what my country", 0.2, 1, 0, 0},
		{"insertion", "your country", "your great country", 0.5, 0, 1, 0},
		{"deletion", "what your country can do", "what country can do", 0.2, 0, 0, 1},
		{"normalized", "Ask not, what YOUR country!", "ask not what your country", 0, 0, 0, 0},
		{"apostrophe kept", "don't stop", "dont stop", 0.5, 1, 0, 0},
		{"empty hypothesis", "one two three", "", 1, 0, 0, 3},
		{"all inserted", "one", "zero one two", 2, 0, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWER(tt.ref, tt.hyp)
			if math.Abs(got.WER-tt.wer) > 1e-9 {
				t.Errorf("WER = %v, want %v", got.WER, tt.wer)
			}
			if got.Substitutions != tt.subs || got.Insertions != tt.ins || got.Deletions != tt.dels {
				t.Errorf("S/I/D = %d/%d/%d, want %d/%d/%d",
					got.Substitutions, got.Insertions, got.Deletions, tt.subs, tt.ins, tt.dels)
			}
		})
	}
}

func TestComputeWEREmptyReference(t *testing.T) {
	if got := ComputeWER("  ", "anything at all"); got != (WERResult{}) {
		t.Errorf("ComputeWER with empty reference = %+v, want zero", got)
	}
}

func TestComputeWERRefWords(t *testing.T) {
	if got := ComputeWER("a b c d", "a b"); got.RefWords != 4 {
		t.Errorf("RefWords = %d, want 4", got.RefWords)
	}
}
