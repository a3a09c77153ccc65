package uci

import (
	"testing"
	"time"
)

func TestBuildPositionCommand(t *testing.T) {
	cases := []struct {
		fen   string
		moves []string
		want  string
	}{
		{"", nil, "position startpos\n"},
		{"startpos", nil, "position startpos\n"},
		{"", []string{"e2e4", "e7e5"}, "position startpos moves e2e4 e7e5\n"},
		{"8/8/8/8/8/8/8/K6k w - - 0 1", nil, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1\n"},
		{"8/8/8/8/8/8/8/K6k w - - 0 1", []string{"a1a2"}, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1 moves a1a2\n"},
	}
	for _, c := range cases {
		if got := buildPositionCommand(c.fen, c.moves); got != c.want {
			t.Fatalf("buildPositionCommand(%q, %v) = %q, want %q", c.fen, c.moves, got, c.want)
		}
	}
}

func TestBuildGoTokens(t *testing.T) {
	tokens, err := buildGoTokens(Limits{MoveTimeMillis: 1500})
	if err != nil { t.Fatalf("buildGoTokens: %v", err) }
	want := []string{"go", "movetime", "1500"}
	if len(tokens) != len(want) { t.Fatalf("tokens = %v", tokens) }
	for i := range want {
		if tokens[i] != want[i] { t.Fatalf("tokens = %v, want %v", tokens, want) }
	}

	if _, err := buildGoTokens(Limits{}); err == nil {
		t.Fatalf("expected error for empty limits")
	}
}

func TestComputeSearchTimeout(t *testing.T) {
	if got := computeSearchTimeout(Limits{MoveTimeMillis: 1000}); got != 9*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}

func TestValidateOptions(t *testing.T) {
	if err := validateOptions(Options{Threads: 1, HashMB: 64}); err != nil {
		t.Fatalf("validateOptions: %v", err)
	}
	if err := validateOptions(Options{Threads: 1}); err == nil {
		t.Fatalf("expected error for zero hash")
	}
}
