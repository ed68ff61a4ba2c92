// Package budget provides token budget estimation and context trimming for
// answer generation. Because askpdf supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose and code).
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// It fits within 8k-context models while leaving room for the output.
	DefaultMaxContextTokens = 6000

	// separatorTokens approximates the cost of the separator placed between
	// retrieved chunks.
	separatorTokens = 3
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimChunks drops the lowest-ranked chunks (from the end of the slice) until
// fixed + chunks fits within maxTokens. fixed holds the prompt scaffolding and
// the question. The highest-ranked chunk is always kept, even if it alone
// exceeds the budget; callers that care should warn separately.
func TrimChunks(fixed []*schema.Message, chunks []string, maxTokens int) []string {
	if len(chunks) <= 1 {
		return chunks
	}

	total := EstimateMessages(fixed)
	for i, c := range chunks {
		cost := Estimate(c)
		if i > 0 {
			cost += separatorTokens
		}
		if i > 0 && total+cost > maxTokens {
			return chunks[:i]
		}
		total += cost
	}
	return chunks
}
