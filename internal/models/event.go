package models

import "time"

type InterviewEventType string

const (
	EventInterviewStarted   InterviewEventType = "interview.started"
	EventInterviewCompleted InterviewEventType = "interview.completed"
)

// InterviewEvent is published for downstream consumers such as scoring.
type InterviewEvent struct {
	EventType  InterviewEventType `json:"event_type"`
	SessionID  string             `json:"session_id"`
	UserID     string             `json:"user_id,omitempty"`
	Company    string             `json:"company"`
	Position   string             `json:"position"`
	Mode       InterviewMode      `json:"mode"`
	Questions  int                `json:"questions"`
	Answers    []Answer           `json:"answers,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}
