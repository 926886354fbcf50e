package extractor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mrlokans/bookcards/internal/utils"
)

// Opening fence with an optional language tag, e.g. ```json
var fenceOpen = regexp.MustCompile("```[A-Za-z0-9_-]*[ \t]*\r?\n?")

// parseFencedJSON handles a completion that is one JSON value, optionally
// wrapped in a markdown code fence.
func parseFencedJSON(raw string) (*Result, bool) {
	var payload any
	if err := json.Unmarshal([]byte(stripFence(raw)), &payload); err != nil {
		return nil, false
	}
	return fromPayload(payload)
}

// stripFence returns the body of the first fenced block, or the trimmed text
// when it is not fenced.
func stripFence(raw string) string {
	loc := fenceOpen.FindStringIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw)
	}
	body := raw[loc[1]:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// parseScatteredJSON scans prose for balanced {...} spans and parses each
// independently. Spans holding a full payload contribute metadata and cards;
// spans holding a single question/answer pair contribute one card. Spans
// that do not parse are skipped and scanning continues inside them.
func parseScatteredJSON(raw string) (*Result, bool) {
	result := &Result{}
	spans := make(map[int]int)

	for start := 0; start < len(raw); {
		open := strings.IndexByte(raw[start:], '{')
		if open < 0 {
			break
		}
		open += start

		end, seen := spans[open]
		if !seen {
			braceSpans(raw, open, spans)
			end = spans[open]
		}
		if end < 0 {
			start = open + 1
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(raw[open:end+1]), &obj); err != nil {
			start = open + 1
			continue
		}

		if _, hasCards := obj["flashcards"]; hasCards {
			if parsed, ok := fromPayload(obj); ok {
				mergeMetadata(result, parsed)
				result.Flashcards = append(result.Flashcards, parsed.Flashcards...)
				start = end + 1
				continue
			}
		}
		if card, ok := cardFromObject(obj); ok {
			result.Flashcards = append(result.Flashcards, card)
			start = end + 1
			continue
		}
		start = open + 1
	}

	return result, len(result.Flashcards) > 0
}

// braceSpans scans from the brace at open until it is closed, recording in
// spans the closing index of every brace opened on the way. Braces still open
// at the end of s are recorded as -1. Braces inside JSON string literals are
// ignored.
func braceSpans(s string, open int, spans map[int]int) {
	var stack []int
	inString := false
	escaped := false

	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, i)
		case '}':
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			spans[top] = i
			if len(stack) == 0 {
				return
			}
		}
	}
	for _, unclosed := range stack {
		spans[unclosed] = -1
	}
}

// fromPayload accepts either an object with a "flashcards" array (plus
// optional title, author and language) or a bare array of cards.
func fromPayload(payload any) (*Result, bool) {
	result := &Result{}

	switch v := payload.(type) {
	case []any:
		result.Flashcards = cardsFromArray(v)
	case map[string]any:
		if items, ok := v["flashcards"].([]any); ok {
			result.Flashcards = cardsFromArray(items)
		} else if card, ok := cardFromObject(v); ok {
			result.Flashcards = []Card{card}
		}
		result.Title = textField(v, "title")
		result.Author = textField(v, "author")
		result.Language = textField(v, "language")
	default:
		return nil, false
	}

	return result, len(result.Flashcards) > 0
}

func cardsFromArray(items []any) []Card {
	cards := make([]Card, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if card, ok := cardFromObject(obj); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// cardFromObject requires both fields to be text; anything else drops the card.
func cardFromObject(obj map[string]any) (Card, bool) {
	q, qok := obj["question"]
	a, aok := obj["answer"]
	if !qok || !aok {
		return Card{}, false
	}
	question, err := utils.ValidateText(q)
	if err != nil {
		return Card{}, false
	}
	answer, err := utils.ValidateText(a)
	if err != nil {
		return Card{}, false
	}
	return newCard(question, answer)
}

func textField(obj map[string]any, key string) *string {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	s, err := utils.ValidateText(v)
	if err != nil {
		return nil
	}
	return optional(s)
}

// mergeMetadata keeps the first reported value of every metadata field.
func mergeMetadata(dst, src *Result) {
	if dst.Title == nil {
		dst.Title = src.Title
	}
	if dst.Author == nil {
		dst.Author = src.Author
	}
	if dst.Language == nil {
		dst.Language = src.Language
	}
}
