package services

import (
	"context"
	"strings"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/utils"
)

// ChunkQueue hands buffered chunks to the transcription workers.
type ChunkQueue interface {
	Enqueue(ctx context.Context, c *models.DictationChunk) error
}

type DictationService interface {
	Enqueue(ctx context.Context, sessionID string, chunkIndex int64, language string, audioURL, audioBase64 *string) (*models.DictationChunk, error)
	MarkSTT(ctx context.Context, sessionID string, chunkIndex int64, text string, confidence float64, status string, processingMS int64) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.DictationChunk, error)
}

type dictationService struct {
	buffers mongorepo.BufferRepository
	queue   ChunkQueue
	ttl     time.Duration
}

func NewDictationService(buffers mongorepo.BufferRepository, queue ChunkQueue, ttl time.Duration) DictationService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &dictationService{buffers: buffers, queue: queue, ttl: ttl}
}

func (s *dictationService) Enqueue(ctx context.Context, sessionID string, chunkIndex int64, language string, audioURL, audioBase64 *string) (*models.DictationChunk, error) {
	const op = "DictationService.Enqueue"

	if sessionID == "" || chunkIndex <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required and chunk_index must be > 0", nil)
	}
	if audioURL == nil && audioBase64 == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio_base64 or audio_url required", nil)
	}

	now := time.Now().UTC()
	doc := &models.DictationChunk{
		SessionID:   sessionID,
		ChunkIndex:  chunkIndex,
		Language:    NormalizeLanguage(language),
		AudioURL:    audioURL,
		AudioBase64: audioBase64,
		STTStatus:   models.STTPending,
		Timestamp:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if err := s.buffers.InsertChunk(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to buffer audio chunk", err)
	}
	if err := s.queue.Enqueue(ctx, doc); err != nil {
		_ = s.buffers.UpdateTranscript(ctx, sessionID, chunkIndex, "", 0, models.STTFailed, 0)
		return nil, utils.E(utils.CodeUnavailable, op, "failed to enqueue audio", err)
	}
	return doc, nil
}

func (s *dictationService) MarkSTT(ctx context.Context, sessionID string, chunkIndex int64, text string, confidence float64, status string, processingMS int64) error {
	const op = "DictationService.MarkSTT"

	if sessionID == "" || chunkIndex <= 0 || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id, chunk_index (>0), and status are required", nil)
	}
	if err := s.buffers.UpdateTranscript(ctx, sessionID, chunkIndex, text, confidence, status, processingMS); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update transcript fields", err)
	}
	return nil
}

func (s *dictationService) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.DictationChunk, error) {
	const op = "DictationService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.buffers.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list dictation buffer", err)
	}
	return out, nil
}

// NormalizeLanguage maps short language tags to recognizer locales.
func NormalizeLanguage(v string) string {
	switch strings.TrimSpace(v) {
	case "id", "id-ID":
		return "id-ID"
	case "", "en", "en-US":
		return "en-US"
	default:
		return strings.TrimSpace(v)
	}
}
