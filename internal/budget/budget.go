// Package budget estimates prompt token counts for answer synthesis. Because
// answers can come from several LLM backends with different tokenizers, it
// uses a conservative character heuristic: 1 token ≈ 4 characters.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// perMessageOverhead approximates the role and framing tokens most chat
	// APIs add to each message.
	perMessageOverhead = 4

	// DefaultMaxPromptTokens is the prompt size above which synthesis logs a
	// warning. Three default-sized chunks plus instructions fit well inside it.
	DefaultMaxPromptTokens = 6000
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
		if m == nil {
			continue
		}
		total += perMessageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Report summarises a prompt against a token limit.
type Report struct {
	// Tokens is the estimated prompt size.
	Tokens int
	// Limit is the configured maximum. Zero or less disables the check.
	Limit int
}

// Over reports whether the estimate exceeds the limit.
func (r Report) Over() bool { return r.Limit > 0 && r.Tokens > r.Limit }

// Check estimates msgs against limit.
func Check(msgs []*schema.Message, limit int) Report {
	return Report{Tokens: EstimateMessages(msgs), Limit: limit}
}
