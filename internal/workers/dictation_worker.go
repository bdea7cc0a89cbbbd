package workers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/metrics"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/stt"
	"github.com/yoockh/yoointerview/internal/services"
)

const maxAudioBytes = 10 << 20

// DictationWorkerPool consumes the dictation stream, transcribes each chunk and
// publishes the result on the session's transcript channel.
type DictationWorkerPool struct {
	Redis      *redis.Client
	Dictation  services.DictationService
	STT        stt.Provider
	NumWorkers int

	Logger *logrus.Logger
	HTTP   *http.Client

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *DictationWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Dictation == nil || p.STT == nil {
		return errors.New("DictationWorkerPool missing dependency: Redis/Dictation/STT must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *DictationWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = models.DictationStream
	}
	if p.Group == "" {
		p.Group = "dictation-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.HTTP == nil {
		p.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
}

func (p *DictationWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				job, ok := parseJob(msg.Values)
				if ok {
					p.process(ctx, job, p.publish)
				}
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

type dictationJob struct {
	SessionID   string
	ChunkIndex  int64
	Language    string
	AudioBase64 string
	AudioURL    string
}

func parseJob(values map[string]any) (dictationJob, bool) {
	get := func(k string) string {
		v, ok := values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	job := dictationJob{
		SessionID:   get("session_id"),
		Language:    services.NormalizeLanguage(get("language")),
		AudioBase64: get("audio_base64"),
		AudioURL:    get("audio_url"),
	}
	idx, err := strconv.ParseInt(get("chunk_index"), 10, 64)
	if job.SessionID == "" || err != nil || idx <= 0 {
		return dictationJob{}, false
	}
	job.ChunkIndex = idx
	return job, true
}

type publishFunc func(ctx context.Context, channel string, msg models.DictationMessage)

func (p *DictationWorkerPool) publish(ctx context.Context, channel string, msg models.DictationMessage) {
	b, _ := json.Marshal(msg)
	if err := p.Redis.Publish(ctx, channel, string(b)).Err(); err != nil {
		p.Logger.WithError(err).WithField("channel", channel).Warn("publish failed")
	}
}

func (p *DictationWorkerPool) process(ctx context.Context, job dictationJob, emit publishFunc) {
	log := p.Logger.WithFields(logrus.Fields{
		"session_id":  job.SessionID,
		"chunk_index": job.ChunkIndex,
	})
	ch := models.TranscriptChannel(job.SessionID)
	fail := func(message string) {
		_ = p.Dictation.MarkSTT(ctx, job.SessionID, job.ChunkIndex, "", 0, models.STTFailed, 0)
		metrics.DictationChunks.WithLabelValues(models.STTFailed).Inc()
		emit(ctx, ch, models.DictationMessage{Type: "status", Status: models.STTFailed, Message: message, ChunkIndex: job.ChunkIndex})
	}

	audio, err := p.fetchAudio(ctx, job)
	if err != nil {
		log.WithError(err).Warn("audio unavailable")
		fail(err.Error())
		return
	}

	_ = p.Dictation.MarkSTT(ctx, job.SessionID, job.ChunkIndex, "", 0, models.STTProcessing, 0)
	emit(ctx, ch, models.DictationMessage{Type: "status", Status: models.STTProcessing, Message: "stt processing", ChunkIndex: job.ChunkIndex})

	start := time.Now()
	text, conf, err := p.STT.Transcribe(ctx, audio, job.Language)
	elapsed := time.Since(start)
	metrics.TranscriptionDuration.Observe(elapsed.Seconds())
	if err != nil {
		log.WithError(err).Error("stt failed")
		fail("stt failed")
		return
	}

	_ = p.Dictation.MarkSTT(ctx, job.SessionID, job.ChunkIndex, text, conf, models.STTDone, elapsed.Milliseconds())
	metrics.DictationChunks.WithLabelValues(models.STTDone).Inc()
	emit(ctx, ch, models.DictationMessage{
		Type:       "transcript",
		ChunkIndex: job.ChunkIndex,
		Text:       text,
		Confidence: conf,
		IsFinal:    true,
	})
}

func (p *DictationWorkerPool) fetchAudio(ctx context.Context, job dictationJob) ([]byte, error) {
	if job.AudioBase64 != "" {
		raw := job.AudioBase64
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:] // strip data:...;base64,
		}
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid audio_base64: %w", err)
		}
		if len(b) == 0 {
			return nil, errors.New("empty audio")
		}
		return b, nil
	}
	if job.AudioURL == "" {
		return nil, errors.New("audio_base64 or audio_url required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.AudioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid audio_url: %w", err)
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio_url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to fetch audio_url: status %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if len(body) == 0 {
		return nil, errors.New("empty audio")
	}
	return body, nil
}
