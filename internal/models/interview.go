package models

import (
	"strings"
)

type InterviewMode string

const (
	ModeStandard        InterviewMode = "standard"
	ModePersonalized    InterviewMode = "personalized"
	ModeAICompetition   InterviewMode = "ai_competition"
	ModeTextCompetition InterviewMode = "text_competition"
)

func (m InterviewMode) Valid() bool {
	switch m {
	case ModeStandard, ModePersonalized, ModeAICompetition, ModeTextCompetition:
		return true
	}
	return false
}

// Competitive modes alternate the candidate with the AI counterpart.
func (m InterviewMode) Competitive() bool {
	return m == ModeAICompetition || m == ModeTextCompetition
}

// Dictation reports whether answers are spoken (recognized) rather than typed.
func (m InterviewMode) Dictation() bool {
	return m != ModeTextCompetition
}

type InterviewConfig struct {
	Company       string        `bson:"company" json:"company" yaml:"company"`
	Position      string        `bson:"position" json:"position" yaml:"position"`
	Difficulty    string        `bson:"difficulty,omitempty" json:"difficulty,omitempty" yaml:"difficulty,omitempty"` // easy|medium|hard
	CandidateName string        `bson:"candidate_name,omitempty" json:"candidate_name,omitempty" yaml:"candidate_name,omitempty"`
	Mode          InterviewMode `bson:"mode" json:"mode" yaml:"mode"`
	Language      string        `bson:"language,omitempty" json:"language,omitempty" yaml:"language,omitempty"` // en|id
	UserID        string        `bson:"user_id,omitempty" json:"user_id,omitempty" yaml:"user_id,omitempty"`    // profile owner, personalized mode
}

// Missing returns the names of required fields that are empty or invalid.
func (c InterviewConfig) Missing() []string {
	var out []string
	if strings.TrimSpace(c.Company) == "" {
		out = append(out, "company")
	}
	if strings.TrimSpace(c.Position) == "" {
		out = append(out, "position")
	}
	if !c.Mode.Valid() {
		out = append(out, "mode")
	}
	return out
}

// WithDefaults fills optional fields.
func (c InterviewConfig) WithDefaults() InterviewConfig {
	c.Company = strings.TrimSpace(c.Company)
	c.Position = strings.TrimSpace(c.Position)
	switch strings.ToLower(strings.TrimSpace(c.Difficulty)) {
	case "easy", "hard":
		c.Difficulty = strings.ToLower(strings.TrimSpace(c.Difficulty))
	default:
		c.Difficulty = "medium"
	}
	if strings.TrimSpace(c.CandidateName) == "" {
		c.CandidateName = "Candidate"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	return c
}

// SameInterview reports whether two configs describe the same rehearsal.
func (c InterviewConfig) SameInterview(o InterviewConfig) bool {
	a, b := c.WithDefaults(), o.WithDefaults()
	return a.Mode == b.Mode &&
		strings.EqualFold(a.Company, b.Company) &&
		strings.EqualFold(a.Position, b.Position) &&
		a.Difficulty == b.Difficulty &&
		a.CandidateName == b.CandidateName
}

type Status string

const (
	StatusReady          Status = "ready"
	StatusActive         Status = "active"
	StatusPaused         Status = "paused"
	StatusAIAnswering    Status = "ai_answering"
	StatusComparisonMode Status = "comparison_mode"
	StatusCompleted      Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReady, StatusActive, StatusPaused, StatusAIAnswering, StatusComparisonMode, StatusCompleted:
		return true
	}
	return false
}

// Running is true while the candidate can make progress.
func (s Status) Running() bool {
	return s == StatusActive || s == StatusComparisonMode || s == StatusAIAnswering
}

type Phase string

const (
	PhaseInterviewerQuestion Phase = "interviewer_question"
	PhaseUserTurn            Phase = "user_turn"
	PhaseAITurn              Phase = "ai_turn"
)

func (p Phase) Valid() bool {
	return p == PhaseInterviewerQuestion || p == PhaseUserTurn || p == PhaseAITurn
}

type Actor string

const (
	ActorInterviewer Actor = "interviewer"
	ActorHuman       Actor = "human"
	ActorAI          Actor = "ai"
)

type Persona string

const (
	PersonaHR            Persona = "hr"
	PersonaTechnical     Persona = "technical"
	PersonaCollaboration Persona = "collaboration"
	PersonaAI            Persona = "ai_candidate"
)

// PersonaFor routes a question category to one of the three interviewers.
func PersonaFor(category string) Persona {
	c := strings.ToLower(strings.TrimSpace(category))
	switch {
	case c == "":
		return PersonaHR
	case strings.Contains(c, "tech"), strings.Contains(c, "coding"),
		strings.Contains(c, "system"), strings.Contains(c, "design"):
		return PersonaTechnical
	case strings.Contains(c, "collab"), strings.Contains(c, "team"),
		strings.Contains(c, "leader"), strings.Contains(c, "communication"):
		return PersonaCollaboration
	default:
		return PersonaHR
	}
}

type Question struct {
	ID        string   `bson:"id" json:"id" yaml:"id"`
	Text      string   `bson:"text" json:"text" yaml:"text"`
	Category  string   `bson:"category" json:"category" yaml:"category"`
	TimeLimit int      `bson:"time_limit" json:"time_limit" yaml:"time_limit"` // seconds
	Keywords  []string `bson:"keywords,omitempty" json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

type Answer struct {
	QuestionID     string   `bson:"question_id" json:"question_id" yaml:"question_id"`
	Actor          Actor    `bson:"actor" json:"actor" yaml:"actor"`
	Content        string   `bson:"content" json:"content" yaml:"content"`
	ElapsedSeconds int      `bson:"elapsed_seconds" json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Score          *float64 `bson:"score,omitempty" json:"score,omitempty" yaml:"score,omitempty"`
}

// Turn is one timeline entry.
type Turn struct {
	ID           string `json:"id" yaml:"id"`
	Actor        Actor  `json:"actor" yaml:"actor"`
	QuestionText string `json:"question_text" yaml:"question_text"`
	Category     string `json:"category,omitempty" yaml:"category,omitempty"`
	AnswerText   string `json:"answer_text,omitempty" yaml:"answer_text,omitempty"`
	Answering    bool   `json:"answering,omitempty" yaml:"answering,omitempty"`
}
