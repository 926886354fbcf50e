// Package extractor turns raw completion text into flashcards.
//
// Models drift between output formats: bare JSON arrays, JSON objects with
// book metadata, markdown-fenced JSON, JSON objects scattered through prose
// and plain "Question:/Answer:" lines. Each format is handled by a Strategy.
// Strategies are tried in order and the first one that yields at least one
// usable card wins. A strategy that fails to parse never aborts the chain.
package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/bookcards/internal/utils"
)

// ErrNoFlashcards is returned when no strategy produced a usable card.
var ErrNoFlashcards = errors.New("no usable flashcards in completion")

// Card is a sanitized question/answer pair.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Result is the structured form of a completion. Metadata fields are nil
// when the completion did not report them.
type Result struct {
	Title      *string
	Author     *string
	Language   *string
	Flashcards []Card
	Strategy   string
}

// Strategy parses one output format. Parse reports false when the text is
// not in that format or holds no usable card.
type Strategy struct {
	Name  string
	Parse func(raw string) (*Result, bool)
}

// DefaultStrategies is the chain used by Extract.
var DefaultStrategies = []Strategy{
	{Name: StrategyFencedJSON, Parse: parseFencedJSON},
	{Name: StrategyScatteredJSON, Parse: parseScatteredJSON},
	{Name: StrategyLineTagged, Parse: parseLineTagged},
}

const (
	StrategyFencedJSON    = "fenced_json"
	StrategyScatteredJSON = "scattered_json"
	StrategyLineTagged    = "line_tagged"
)

// Extractor runs a fixed chain of strategies.
type Extractor struct {
	strategies []Strategy
}

// New creates an extractor. Without arguments it uses DefaultStrategies.
func New(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Extractor{strategies: strategies}
}

// Extract runs the default chain over raw.
func Extract(raw string) (*Result, error) {
	return New().Extract(raw)
}

// Extract returns the result of the first strategy that produces a usable
// card, or ErrNoFlashcards.
func (e *Extractor) Extract(raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrNoFlashcards)
	}

	tried := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		result, ok := s.Parse(raw)
		if !ok || result == nil || len(result.Flashcards) == 0 {
			tried = append(tried, s.Name)
			continue
		}
		result.Strategy = s.Name
		return result, nil
	}

	return nil, fmt.Errorf("%w: tried %s", ErrNoFlashcards, strings.Join(tried, ", "))
}

// newCard sanitizes both fields and reports whether the pair is usable.
func newCard(question, answer string) (Card, bool) {
	card := Card{
		Question: utils.SanitizeQuestion(question),
		Answer:   utils.SanitizeAnswer(answer),
	}
	return card, card.Question != "" && card.Answer != ""
}

// optional trims s and returns nil when nothing is left.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
