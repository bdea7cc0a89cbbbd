package orchestrator

import "github.com/yoockh/yoointerview/internal/models"

type EventType string

const (
	EventStatus    EventType = "status"
	EventPhase     EventType = "phase"
	EventTick      EventType = "tick"
	EventTimeout   EventType = "timeout"
	EventQuestion  EventType = "question"
	EventAIAnswer  EventType = "ai_answer"
	EventCompleted EventType = "completed"
	EventMedia     EventType = "media"
	EventError     EventType = "error"
)

// Event is delivered to Options.OnEvent after the state change it describes.
type Event struct {
	Type      EventType
	Status    models.Status
	Phase     models.Phase
	Remaining int
	Text      string
	Err       error
}

func (o *Orchestrator) emit(evs ...Event) {
	if o.opts.OnEvent == nil {
		return
	}
	for _, e := range evs {
		o.opts.OnEvent(e)
	}
}
