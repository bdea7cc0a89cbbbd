// Package speech coordinates read-aloud synthesis with answer dictation. The two
// are never active together.
package speech

import (
	"context"

	"github.com/yoockh/yoointerview/internal/models"
)

type Utterance struct {
	Text     string
	Persona  models.Persona
	Language string
}

// Synthesizer plays an utterance. Speak blocks until playback ends, ctx is done,
// or Cancel is called.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
	Cancel()
}

type Fragment struct {
	Text       string
	Final      bool
	Confidence float64
}

// Recognizer streams transcript fragments until Stop is called or ctx is done.
// The channel is closed when recognition ends.
type Recognizer interface {
	Start(ctx context.Context, language string) (<-chan Fragment, error)
	Stop() error
}
