package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ConversationEntry is one line of a rehearsal transcript. Metadata is stored
// as jsonb.
type ConversationEntry struct {
	UserID     string
	SessionID  string
	QuestionID string
	Role       models.Actor
	Content    string
	Metadata   map[string]any
}

type ConversationService interface {
	Append(ctx context.Context, e ConversationEntry) (*models.ConversationLog, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationLog, error)
}

type conversationService struct {
	convos pgrepo.ConversationRepo
	now    func() time.Time
}

func NewConversationService(convos pgrepo.ConversationRepo) ConversationService {
	return &conversationService{convos: convos, now: time.Now}
}

func (s *conversationService) Append(ctx context.Context, e ConversationEntry) (*models.ConversationLog, error) {
	const op = "ConversationService.Append"

	if e.SessionID == "" || e.Content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and content are required", nil)
	}
	switch e.Role {
	case models.ActorInterviewer, models.ActorHuman, models.ActorAI:
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "role must be interviewer, human or ai", nil)
	}

	row := &models.ConversationLog{
		ID:         uuid.NewString(),
		UserID:     e.UserID,
		SessionID:  e.SessionID,
		QuestionID: e.QuestionID,
		Role:       e.Role,
		Content:    e.Content,
		Timestamp:  s.now().UTC(),
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "metadata is not valid json", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}

	if err := s.convos.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert conversation log", err)
	}
	return row, nil
}

func (s *conversationService) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationLog, error) {
	const op = "ConversationService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	rows, err := s.convos.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversation", err)
	}
	return rows, nil
}
