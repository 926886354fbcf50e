package ingest

import (
	"fmt"
	"strings"
)

const promptTemplate = `Create flashcards for the key insights, concepts and learnings of the book titled "%s".
First correct any spelling mistakes in the title and identify the author. Also report the language the book was written in.
Don't ask basic questions about the title or the author; ask concrete questions about the ideas, events and people in the book.
Respond with a single JSON object and nothing else, using exactly these fields:
{"title": "<corrected title>", "author": "<author>", "language": "<language>", "flashcards": [{"question": "<question>", "answer": "<answer>"}]}`

// BuildPrompt returns the instruction sent to the completion service. It is
// deterministic: the same title always yields the same prompt.
func BuildPrompt(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	title = strings.ReplaceAll(title, `"`, `'`)
	return fmt.Sprintf(promptTemplate, title)
}
