// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InterviewsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviews_started_total",
			Help: "Total number of rehearsals started",
		},
		[]string{"mode"},
	)

	InterviewsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Total number of rehearsals that reached the question limit",
		},
		[]string{"mode"},
	)

	TurnsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Answers recorded, by actor",
		},
		[]string{"actor"},
	)

	QuestionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_question_fallbacks_total",
			Help: "Questions served from the built-in bank because generation failed",
		},
	)

	DictationChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dictation_chunks_total",
			Help: "Dictation chunks processed, by outcome",
		},
		[]string{"status"},
	)

	TranscriptionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dictation_transcription_duration_seconds",
			Help:    "Speech-to-text latency per chunk",
			Buckets: prometheus.DefBuckets,
		},
	)
)
