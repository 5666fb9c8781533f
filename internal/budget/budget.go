// Package budget estimates prompt sizes and trims retrieved context to fit a
// model's input window. Completion backends use different tokenizers, so a
// conservative character heuristic is used: 1 token ≈ 4 characters.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// messageOverhead is the per-message framing cost in most chat APIs.
	messageOverhead = 4

	// DefaultMaxContextTokens is the default input budget in tokens. It fits
	// an 8k-context model such as Mistral 7B with room for a 500-token answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for msgs, summing
// role, content, and framing overhead for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimDocuments drops documents from the tail of docs (the lowest ranked)
// until fixedTokens plus the estimated size of the remaining documents, each
// followed by sepTokens of separator, fits within maxTokens. Order of the
// kept documents is preserved. maxTokens <= 0 disables trimming.
//
// The returned slice may be empty when fixedTokens alone exceeds the budget;
// callers decide whether to proceed without context.
func TrimDocuments(fixedTokens int, docs []string, sepTokens, maxTokens int) []string {
	if maxTokens <= 0 {
		return docs
	}

	used := fixedTokens
	for i, d := range docs {
		used += Estimate(d) + sepTokens
		if used > maxTokens {
			return docs[:i]
		}
	}
	return docs
}
