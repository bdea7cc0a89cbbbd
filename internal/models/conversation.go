package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ConversationLog archives one timeline entry of a rehearsal.
type ConversationLog struct {
	ID         string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     string           `gorm:"column:user_id;type:text;index" json:"user_id,omitempty"`
	SessionID  string           `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	QuestionID string           `gorm:"column:question_id;type:text" json:"question_id"`
	Role       Actor            `gorm:"column:role;type:text" json:"role"` // interviewer|human|ai
	Content    string           `gorm:"column:content;type:text" json:"content"`
	Embedding  *pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"embedding,omitempty"`
	Timestamp  time.Time        `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata   datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
}

func (ConversationLog) TableName() string { return "conversation_logs" }
