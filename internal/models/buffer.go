package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DictationChunk is one buffered piece of candidate audio awaiting transcription.
type DictationChunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"session_id" json:"session_id"`
	ChunkIndex int64              `bson:"chunk_index" json:"chunk_index"`
	Language   string             `bson:"language,omitempty" json:"language,omitempty"`

	AudioURL    *string `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	AudioBase64 *string `bson:"audio_base64,omitempty" json:"audio_base64,omitempty"`

	Transcript    string  `bson:"transcript,omitempty" json:"transcript,omitempty"`
	STTStatus     string  `bson:"stt_status" json:"stt_status"` // pending|processing|done|failed
	STTConfidence float64 `bson:"stt_confidence,omitempty" json:"stt_confidence,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}

const (
	STTPending    = "pending"
	STTProcessing = "processing"
	STTDone       = "done"
	STTFailed     = "failed"
)

// DictationStream is the Redis stream feeding the transcription workers.
const DictationStream = "dictation:stream"

// TranscriptChannel is the pub/sub channel carrying a session's transcripts.
func TranscriptChannel(sessionID string) string {
	return "dictation:" + sessionID + ":transcript"
}

// DictationMessage is pushed to dictation sockets: a transcript or a status update.
type DictationMessage struct {
	Type       string  `json:"type"` // transcript|status|error
	ChunkIndex int64   `json:"chunk_index,omitempty"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	IsFinal    bool    `json:"is_final,omitempty"`
	Status     string  `json:"status,omitempty"`
	Code       string  `json:"code,omitempty"`
	Message    string  `json:"message,omitempty"`
}
