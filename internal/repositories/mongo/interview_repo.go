package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type InterviewRepository interface {
	Create(ctx context.Context, r *models.InterviewRecord) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewRecord, error)
	Replace(ctx context.Context, r *models.InterviewRecord) error
}

type interviewRepo struct {
	col *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) InterviewRepository {
	return &interviewRepo{col: db.Collection("interview_records")}
}

func (r *interviewRepo) Create(ctx context.Context, rec *models.InterviewRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

func (r *interviewRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewRecord, error) {
	var rec models.InterviewRecord
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *interviewRepo) Replace(ctx context.Context, rec *models.InterviewRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"session_id": rec.SessionID}, rec)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
