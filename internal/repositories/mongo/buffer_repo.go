package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BufferRepository interface {
	InsertChunk(ctx context.Context, c *models.DictationChunk) error
	UpdateTranscript(ctx context.Context, sessionID string, chunkIndex int64, text string, confidence float64, status string, processingMS int64) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.DictationChunk, error)
}

type bufferRepo struct {
	col *mongo.Collection
}

func NewBufferRepo(db *mongo.Database) BufferRepository {
	return &bufferRepo{col: db.Collection("realtime_buffer")}
}

func (r *bufferRepo) InsertChunk(ctx context.Context, c *models.DictationChunk) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *bufferRepo) UpdateTranscript(ctx context.Context, sessionID string, chunkIndex int64, text string, confidence float64, status string, processingMS int64) error {
	set := bson.M{
		"transcript":     text,
		"stt_confidence": confidence,
		"stt_status":     status,
	}
	if processingMS > 0 {
		set["processing_time_ms"] = processingMS
	}
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "chunk_index": chunkIndex},
		bson.M{"$set": set},
	)
	return err
}

func (r *bufferRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.DictationChunk, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "chunk_index", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.DictationChunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
