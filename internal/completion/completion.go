// Package completion wraps the text-completion service that writes flashcards.
package completion

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the service answers without any text.
var ErrEmptyCompletion = errors.New("completion service returned no text")

// Completer returns one text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
