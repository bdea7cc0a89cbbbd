package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yoockh/yoointerview/internal/utils"
)

// Settings collects the tunables of both binaries. Connection URIs are read by
// the Init functions directly.
type Settings struct {
	// server
	Port                  string
	MongoDB               string
	QuestionsPerInterview int
	VertexProject         string
	VertexLocation        string
	VertexModel           string
	RabbitMQURI           string
	CORSOrigins           []string
	RecordCacheTTL        time.Duration
	DictationWorkers      int
	DictationBufferTTL    time.Duration

	// orchestrator
	MediaRetryBase   time.Duration
	MediaMaxAttempts int
	SinkWaitTimeout  time.Duration
	SinkPollInterval time.Duration
	SnapshotDebounce time.Duration
	SnapshotTTL      time.Duration
	TickInterval     time.Duration
	ServiceAttempts  int
}

func LoadSettings() (Settings, error) {
	return loadSettings(os.Getenv)
}

func loadSettings(getenv func(string) string) (Settings, error) {
	const op = "config.LoadSettings"

	p := envParser{getenv: getenv}
	s := Settings{
		Port:                  p.str("PORT", "8080"),
		MongoDB:               p.str("MONGO_DB", "yoointerview"),
		QuestionsPerInterview: p.positiveInt("QUESTIONS_PER_INTERVIEW", 5),
		VertexProject:         p.str("VERTEX_PROJECT", ""),
		VertexLocation:        p.str("VERTEX_LOCATION", "us-central1"),
		VertexModel:           p.str("VERTEX_MODEL", "gemini-1.5-flash"),
		RabbitMQURI:           p.str("RABBITMQ_URI", ""),
		CORSOrigins:           p.list("CORS_ORIGINS"),
		RecordCacheTTL:        p.duration("RECORD_CACHE_TTL", 10*time.Minute),
		DictationWorkers:      p.positiveInt("DICTATION_WORKERS", 5),
		DictationBufferTTL:    p.duration("DICTATION_BUFFER_TTL", 24*time.Hour),

		MediaRetryBase:   p.duration("MEDIA_RETRY_BASE", time.Second),
		MediaMaxAttempts: p.positiveInt("MEDIA_MAX_ATTEMPTS", 3),
		SinkWaitTimeout:  p.duration("SINK_WAIT_TIMEOUT", 3*time.Second),
		SinkPollInterval: p.duration("SINK_POLL_INTERVAL", 100*time.Millisecond),
		SnapshotDebounce: p.duration("SNAPSHOT_DEBOUNCE", 300*time.Millisecond),
		SnapshotTTL:      p.duration("SNAPSHOT_TTL", 24*time.Hour),
		TickInterval:     p.duration("TICK_INTERVAL", time.Second),
		ServiceAttempts:  p.positiveInt("SERVICE_ATTEMPTS", 2),
	}
	if len(p.bad) > 0 {
		return Settings{}, utils.ConfigurationError(op, "invalid settings: "+strings.Join(p.bad, "; "))
	}
	return s, nil
}

type envParser struct {
	getenv func(string) string
	bad    []string
}

func (p *envParser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *envParser) list(key string) []string {
	var out []string
	for _, v := range strings.Split(p.getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (p *envParser) positiveInt(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		p.bad = append(p.bad, fmt.Sprintf("%s=%q must be a positive integer", key, v))
		return def
	}
	return n
}

// duration accepts Go durations ("1.5s") or bare integers as milliseconds.
func (p *envParser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.bad = append(p.bad, fmt.Sprintf("%s=%q must be a duration", key, v))
		return def
	}
	return d
}
