package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InterviewRecord is the server-side state of one rehearsal, owned by the
// question/answer service.
type InterviewRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id,omitempty" json:"user_id,omitempty"`

	Config    InterviewConfig `bson:"config" json:"config"`
	Questions []Question      `bson:"questions" json:"questions"`
	Answers   []Answer        `bson:"answers" json:"answers"`
	Status    InterviewStatus `bson:"status" json:"status"` // in_progress|completed

	// ProfileSummary is the candidate background captured at start for
	// personalized prompting.
	ProfileSummary string `bson:"profile_summary,omitempty" json:"-"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}

// CurrentQuestion is the last posed question, nil when none.
func (r *InterviewRecord) CurrentQuestion() *Question {
	if r == nil || len(r.Questions) == 0 {
		return nil
	}
	q := r.Questions[len(r.Questions)-1]
	return &q
}

// QuestionIndex is the position of the question in the record, -1 when absent.
func (r *InterviewRecord) QuestionIndex(questionID string) int {
	if r == nil {
		return -1
	}
	for i, q := range r.Questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

// AnswerFor finds the answer given by actor to the question.
func (r *InterviewRecord) AnswerFor(questionID string, actor Actor) (Answer, bool) {
	if r == nil {
		return Answer{}, false
	}
	for _, a := range r.Answers {
		if a.QuestionID == questionID && a.Actor == actor {
			return a, true
		}
	}
	return Answer{}, false
}
