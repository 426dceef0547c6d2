package rag

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an assistant that answers questions about Hacker News content:
stories, discussion comments, user profiles, and linked articles. Answer using
only the provided context. If the context does not contain the answer, say so
instead of guessing. Mention story titles or authors when they support the
answer.`

// buildPrompt assembles the user prompt from retrieved context documents and
// the question.
func buildPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString("Context from the Hacker News corpus:\n\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "--- Document %d ---\n%s\n\n", i+1, c)
	}
	fmt.Fprintf(&b, "Question: %s\n\nAnswer:", question)
	return b.String()
}
