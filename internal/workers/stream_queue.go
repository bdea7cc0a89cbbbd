package workers

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yoockh/yoointerview/internal/models"
)

// StreamQueue pushes dictation chunks onto a Redis stream.
type StreamQueue struct {
	rdb    *redis.Client
	stream string
}

func NewStreamQueue(rdb *redis.Client, stream string) *StreamQueue {
	if stream == "" {
		stream = models.DictationStream
	}
	return &StreamQueue{rdb: rdb, stream: stream}
}

func (q *StreamQueue) Enqueue(ctx context.Context, c *models.DictationChunk) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: chunkFields(c),
	}).Err()
}

func chunkFields(c *models.DictationChunk) map[string]any {
	fields := map[string]any{
		"session_id":  c.SessionID,
		"chunk_index": strconv.FormatInt(c.ChunkIndex, 10),
		"language":    c.Language,
		"ts_unix":     strconv.FormatInt(time.Now().UTC().Unix(), 10),
	}
	if c.AudioBase64 != nil {
		fields["audio_base64"] = *c.AudioBase64
	}
	if c.AudioURL != nil {
		fields["audio_url"] = *c.AudioURL
	}
	return fields
}
