package util

import "testing"

func TestSafeTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "longer than limit",
			input:  "very-long-token-abc123",
			maxLen: 8,
			want:   "very-lon",
		},
		{
			name:   "shorter than limit",
			input:  "short",
			maxLen: 10,
			want:   "short",
		},
		{
			name:   "exact length",
			input:  "eight!!!",
			maxLen: 8,
			want:   "eight!!!",
		},
		{
			name:   "zero limit",
			input:  "anything",
			maxLen: 0,
			want:   "",
		},
		{
			name:   "negative limit",
			input:  "anything",
			maxLen: -1,
			want:   "",
		},
		{
			name:   "empty input",
			input:  "",
			maxLen: 8,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeTruncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("SafeTruncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
