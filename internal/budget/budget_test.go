package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"), // 4 overhead + 1 (role) + 2 (content) = 7
		schema.UserMessage("hello world"),
	}
	got := EstimateMessages(msgs)
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	// Two messages: 14
	if got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_TrimChunks_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("q")}
	chunks := []string{"first chunk", "second chunk", "third chunk"}
	got := TrimChunks(fixed, chunks, DefaultMaxContextTokens)
	if len(got) != 3 {
		t.Errorf("want 3 chunks, got %d", len(got))
	}
}

func Test_TrimChunks_DropsLowestRanked(t *testing.T) {
	t.Parallel()
	// Each chunk is 40 chars = 10 tokens; separators add 3 per extra chunk.
	chunks := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}
	// Budget 25 fits the first two (10 + 13 = 23) but not the third (36).
	got := TrimChunks(nil, chunks, 25)
	if len(got) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(got))
	}
	if got[0] != chunks[0] || got[1] != chunks[1] {
		t.Error("highest-ranked chunks not retained in order")
	}
}

func Test_TrimChunks_KeepsAtLeastOne(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{
		schema.SystemMessage(strings.Repeat("x", 4*7000)), // ~7000 tokens
	}
	chunks := []string{"top", "second"}
	got := TrimChunks(fixed, chunks, 6000)
	if len(got) != 1 || got[0] != "top" {
		t.Errorf("want only the top chunk, got %v", got)
	}
}

func Test_TrimChunks_Empty(t *testing.T) {
	t.Parallel()
	if got := TrimChunks(nil, nil, 10); len(got) != 0 {
		t.Errorf("want empty, got %v", got)
	}
}
