package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidInput is returned when a value that must be text is not.
var ErrInvalidInput = errors.New("invalid input")

var (
	// Leading "Answer:" / "Question:" labels the model sometimes repeats inside field values
	answerPrefix   = regexp.MustCompile(`(?i)^answer:\s*`)
	questionPrefix = regexp.MustCompile(`(?i)^question:\s*`)
	// Anything that is not a letter, combining mark, digit, underscore or whitespace
	nonWordChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]+`)
)

// SanitizeAnswer removes a leading "Answer:" label (case-insensitive) and trims
// surrounding whitespace. Repeated labels are all removed, so the function is
// idempotent.
func SanitizeAnswer(text string) string {
	return stripLabel(text, answerPrefix)
}

// SanitizeQuestion is the question counterpart of SanitizeAnswer.
func SanitizeQuestion(text string) string {
	return stripLabel(text, questionPrefix)
}

func stripLabel(text string, label *regexp.Regexp) string {
	text = strings.TrimSpace(text)
	for label.MatchString(text) {
		text = strings.TrimSpace(label.ReplaceAllString(text, ""))
	}
	return text
}

// NormalizeTitle derives the deduplication key for a book title: the text is
// composed to NFC, punctuation stripped, whitespace collapsed and the result
// lower-cased. Combining marks are kept, so precomposed and decomposed forms
// of a title share one key and Indic vowel signs survive.
//
//	NormalizeTitle("The Hobbit!!")   // "the hobbit"
//	NormalizeTitle("  the  hobbit ") // "the hobbit"
func NormalizeTitle(text string) string {
	text = nonWordChars.ReplaceAllString(norm.NFC.String(text), "")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// ValidateText asserts that v is a string. Decoded JSON can carry numbers,
// objects or null where text is expected.
func ValidateText(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected text, got %T", ErrInvalidInput, v)
	}
	return s, nil
}
