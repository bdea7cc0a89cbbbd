package models

import "time"

const SnapshotVersion = 1

// Snapshot is the restorable projection of a client-side session. The capture
// resource is never part of it.
type Snapshot struct {
	Version          int             `json:"version" yaml:"version"`
	SessionID        string          `json:"session_id" yaml:"session_id"`
	Config           InterviewConfig `json:"config" yaml:"config"`
	Questions        []Question      `json:"questions" yaml:"questions"`
	Answers          []Answer        `json:"answers" yaml:"answers"`
	Turns            []Turn          `json:"turns,omitempty" yaml:"turns,omitempty"`
	CurrentIndex     int             `json:"current_index" yaml:"current_index"`
	RemainingSeconds int             `json:"remaining_seconds" yaml:"remaining_seconds"`
	Status           Status          `json:"status" yaml:"status"`
	Phase            Phase           `json:"phase" yaml:"phase"`
	LastUpdated      time.Time       `json:"last_updated" yaml:"last_updated"`
}
