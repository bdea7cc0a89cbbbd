package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yoockh/yoointerview/internal/models"
)

var personaStyles = map[models.Persona]lipgloss.Style{
	models.PersonaHR: lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")).
		Bold(true),
	models.PersonaTechnical: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true),
	models.PersonaCollaboration: lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true),
	models.PersonaAI: lipgloss.NewStyle().
		Foreground(lipgloss.Color("135")).
		Bold(true),
}

var textStyle = lipgloss.NewStyle().PaddingLeft(2)

func personaLabel(p models.Persona) string {
	switch p {
	case models.PersonaTechnical:
		return "Technical interviewer"
	case models.PersonaCollaboration:
		return "Team lead"
	case models.PersonaAI:
		return "AI candidate"
	default:
		return "HR interviewer"
	}
}

// ConsoleSynthesizer "speaks" by printing the utterance and holding for a time
// proportional to its length, so turn pacing matches real playback.
type ConsoleSynthesizer struct {
	out     io.Writer
	perWord time.Duration

	mu     sync.Mutex
	cancel chan struct{}
}

func NewConsoleSynthesizer(out io.Writer, perWord time.Duration) *ConsoleSynthesizer {
	return &ConsoleSynthesizer{out: out, perWord: perWord}
}

func (s *ConsoleSynthesizer) Speak(ctx context.Context, u Utterance) error {
	style, ok := personaStyles[u.Persona]
	if !ok {
		style = personaStyles[models.PersonaHR]
	}
	if _, err := fmt.Fprintf(s.out, "%s\n%s\n", style.Render(personaLabel(u.Persona)), textStyle.Render(u.Text)); err != nil {
		return err
	}

	hold := time.Duration(len(strings.Fields(u.Text))) * s.perWord
	if hold <= 0 {
		return nil
	}

	stop := make(chan struct{})
	s.mu.Lock()
	s.cancel = stop
	s.mu.Unlock()

	t := time.NewTimer(hold)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ConsoleSynthesizer) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
	}
}
