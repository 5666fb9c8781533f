package generator

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// systemPrompt is the fixed assistant persona sent with every request.
const systemPrompt = `You are a helpful and polite company assistant. Summarize and answer the user's query based only on the context below. Respond in simple, human-like language. Be clear and friendly.`

// userPreamble opens the user turn.
const userPreamble = "You are an intelligent assistant specialized in the domain of the user asking the question."

// contextSeparator joins retrieved documents into one context block.
const contextSeparator = "\n\n"

// BuildMessages renders the system persona and the user template for query
// with docs as context, in the given order.
func BuildMessages(query string, docs []string) []*schema.Message {
	var b strings.Builder
	b.WriteString(userPreamble)
	b.WriteString("\n\nContext:\n")
	b.WriteString(strings.Join(docs, contextSeparator))
	b.WriteString("\n\nUser Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(b.String()),
	}
}
