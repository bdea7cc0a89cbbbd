// Package timeline builds the append-only, deduplicated turn log of a rehearsal.
package timeline

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yoockh/yoointerview/internal/models"
)

// Builder is safe for concurrent use. Inserts are idempotent, so a duplicated or
// reordered service response cannot corrupt the log.
type Builder struct {
	mu    sync.Mutex
	turns []models.Turn
	newID func() string
}

func New() *Builder {
	return &Builder{newID: uuid.NewString}
}

// Restore rebuilds a builder from persisted turns, re-applying the dedup rules.
func Restore(turns []models.Turn) *Builder {
	b := New()
	for _, t := range turns {
		if t.Actor == models.ActorInterviewer {
			b.AppendQuestion(t)
			continue
		}
		if t.Answering && t.AnswerText == "" {
			b.beginAnswer(t.Actor, t.QuestionText, t.Category, t.ID)
			continue
		}
		b.appendAnswer(t.Actor, t.QuestionText, t.AnswerText, t.ID)
	}
	return b
}

func sameText(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// AppendQuestion records a posed question unless the interviewer already asked it.
func (b *Builder) AppendQuestion(t models.Turn) bool {
	if strings.TrimSpace(t.QuestionText) == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.turns {
		if existing.Actor == models.ActorInterviewer && sameText(existing.QuestionText, t.QuestionText) {
			return false
		}
	}
	t.Actor = models.ActorInterviewer
	t.AnswerText = ""
	t.Answering = false
	if t.ID == "" {
		t.ID = b.newID()
	}
	b.turns = append(b.turns, t)
	return true
}

// BeginAnswer adds a "still answering" placeholder for actor, filled later by
// AppendAnswer. No-op if the pair already has a turn.
func (b *Builder) BeginAnswer(actor models.Actor, questionText, category string) bool {
	return b.beginAnswer(actor, questionText, category, "")
}

func (b *Builder) beginAnswer(actor models.Actor, questionText, category, id string) bool {
	if actor == models.ActorInterviewer || strings.TrimSpace(questionText) == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexLocked(actor, questionText) >= 0 {
		return false
	}
	if id == "" {
		id = b.newID()
	}
	b.turns = append(b.turns, models.Turn{
		ID:           id,
		Actor:        actor,
		QuestionText: questionText,
		Category:     category,
		Answering:    true,
	})
	return true
}

// AppendAnswer records actor's answer to questionText. A pair that already
// carries a non-empty answer keeps it and the call is dropped as a duplicate.
func (b *Builder) AppendAnswer(actor models.Actor, questionText, answerText string) bool {
	return b.appendAnswer(actor, questionText, answerText, "")
}

func (b *Builder) appendAnswer(actor models.Actor, questionText, answerText, id string) bool {
	if actor == models.ActorInterviewer || strings.TrimSpace(questionText) == "" || strings.TrimSpace(answerText) == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexLocked(actor, questionText); i >= 0 {
		if b.turns[i].AnswerText != "" {
			return false
		}
		b.turns[i].AnswerText = answerText
		b.turns[i].Answering = false
		return true
	}

	category := ""
	for _, t := range b.turns {
		if t.Actor == models.ActorInterviewer && sameText(t.QuestionText, questionText) {
			category = t.Category
			break
		}
	}
	if id == "" {
		id = b.newID()
	}
	b.turns = append(b.turns, models.Turn{
		ID:           id,
		Actor:        actor,
		QuestionText: questionText,
		Category:     category,
		AnswerText:   answerText,
	})
	return true
}

func (b *Builder) indexLocked(actor models.Actor, questionText string) int {
	for i, t := range b.turns {
		if t.Actor == actor && sameText(t.QuestionText, questionText) {
			return i
		}
	}
	return -1
}

// Progress returns (answered turns, total turns).
func (b *Builder) Progress() (answered, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.turns {
		if t.AnswerText != "" {
			answered++
		}
	}
	return answered, len(b.turns)
}

// Turns returns a copy of the log in insertion order.
func (b *Builder) Turns() []models.Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.turns)
}
