// Package generator builds prompts from the conversation and delegates text
// generation to an external model.
package generator

import (
	"context"
	"errors"
)

// ErrNotConfigured is reported when no text generator is available.
var ErrNotConfigured = errors.New("text generation not configured")

// TextGenerator produces text for a prompt.
// This interface is implemented by the Gemini client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Ensure Gemini implements TextGenerator.
var _ TextGenerator = (*Gemini)(nil)
