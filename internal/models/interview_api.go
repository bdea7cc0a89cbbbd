package models

// Wire types of the question/answer service boundary.

type StartSessionRequest struct {
	Config InterviewConfig `json:"config"`
}

type StartSessionResult struct {
	SessionID     string    `json:"session_id"`
	FirstQuestion *Question `json:"first_question"`
}

type SubmitTurnRequest struct {
	// QuestionID, when set, makes a resent submission idempotent.
	QuestionID     string `json:"question_id,omitempty"`
	Answer         string `json:"answer" binding:"required"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

type InterviewStatus string

const (
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
)

type TurnResult struct {
	AIAnswer        string          `json:"ai_answer,omitempty"`
	NextQuestion    *Question       `json:"next_question,omitempty"`
	InterviewStatus InterviewStatus `json:"interview_status"`
}

type NextQuestionResult struct {
	Question  *Question `json:"question,omitempty"`
	Completed bool      `json:"completed"`
}
