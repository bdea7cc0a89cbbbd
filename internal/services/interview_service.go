package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/event"
	"github.com/yoockh/yoointerview/internal/metrics"
	"github.com/yoockh/yoointerview/internal/models"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/utils"
)

const (
	DefaultQuestionsPerInterview = 5
	recordCachePrefix            = "interview:"
	profileSummaryLimit          = 2000
)

// InterviewService is the question/answer service behind the rehearsal client.
type InterviewService interface {
	Start(ctx context.Context, cfg models.InterviewConfig) (*models.StartSessionResult, error)
	SubmitTurn(ctx context.Context, sessionID string, req models.SubmitTurnRequest) (*models.TurnResult, error)
	NextQuestion(ctx context.Context, sessionID string) (*models.NextQuestionResult, error)
	Get(ctx context.Context, sessionID string) (*models.InterviewRecord, error)
}

// InterviewDeps wires the service. Records and Generator are required; the rest
// degrade gracefully when nil.
type InterviewDeps struct {
	Records       mongorepo.InterviewRepository
	Generator     QuestionGenerator
	Conversations ConversationService
	Profiles      ProfileService
	Cache         cache.Cache
	Events        event.Publisher
	Logger        *logrus.Logger

	QuestionsPerInterview int
	CacheTTL              time.Duration
}

type interviewService struct {
	records   mongorepo.InterviewRepository
	gen       QuestionGenerator
	convos    ConversationService
	profiles  ProfileService
	cache     cache.Cache
	events    event.Publisher
	log       *logrus.Entry
	perRecord int
	cacheTTL  time.Duration
	locks     sessionLocks
	now       func() time.Time
}

func NewInterviewService(d InterviewDeps) InterviewService {
	if d.QuestionsPerInterview <= 0 {
		d.QuestionsPerInterview = DefaultQuestionsPerInterview
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 10 * time.Minute
	}
	log := logrus.NewEntry(logrus.StandardLogger())
	if d.Logger != nil {
		log = logrus.NewEntry(d.Logger)
	}
	return &interviewService{
		records:   d.Records,
		gen:       d.Generator,
		convos:    d.Conversations,
		profiles:  d.Profiles,
		cache:     d.Cache,
		events:    d.Events,
		log:       log.WithField("component", "interview"),
		perRecord: d.QuestionsPerInterview,
		cacheTTL:  d.CacheTTL,
		now:       time.Now,
	}
}

func (s *interviewService) Start(ctx context.Context, cfg models.InterviewConfig) (*models.StartSessionResult, error) {
	const op = "InterviewService.Start"

	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, utils.ConfigurationError(op, "missing or invalid: "+strings.Join(missing, ", "))
	}
	cfg = cfg.WithDefaults()

	now := s.now().UTC()
	rec := &models.InterviewRecord{
		SessionID: uuid.NewString(),
		UserID:    cfg.UserID,
		Config:    cfg,
		Status:    models.InterviewInProgress,
		CreatedAt: now,
	}
	log := s.log.WithField("session_id", rec.SessionID)

	if cfg.Mode == models.ModePersonalized {
		rec.ProfileSummary = s.profileSummary(ctx, cfg.UserID, log)
	}

	q, err := s.gen.Next(ctx, rec, rec.ProfileSummary)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to generate question", err)
	}
	rec.Questions = append(rec.Questions, q)

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interview", err)
	}

	s.logTurn(ctx, rec, q.ID, models.ActorInterviewer, q.Text)
	s.publish(ctx, rec, models.EventInterviewStarted)
	metrics.InterviewsStarted.WithLabelValues(string(cfg.Mode)).Inc()
	log.WithFields(logrus.Fields{"mode": cfg.Mode, "company": cfg.Company}).Info("interview started")

	return &models.StartSessionResult{SessionID: rec.SessionID, FirstQuestion: &q}, nil
}

func (s *interviewService) SubmitTurn(ctx context.Context, sessionID string, req models.SubmitTurnRequest) (*models.TurnResult, error) {
	const op = "InterviewService.SubmitTurn"

	answer := strings.TrimSpace(req.Answer)
	if sessionID == "" || answer == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and answer are required", nil)
	}
	if req.ElapsedSeconds < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "elapsed_seconds must be >= 0", nil)
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	rec, err := s.records.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load interview", err)
	}

	cur := rec.CurrentQuestion()
	if req.QuestionID != "" {
		if _, done := rec.AnswerFor(req.QuestionID, models.ActorHuman); done {
			return replay(rec, req.QuestionID), nil
		}
		if cur == nil || req.QuestionID != cur.ID {
			return nil, utils.E(utils.CodeConflict, op, "question is not the current question", nil)
		}
	}
	if rec.Status == models.InterviewCompleted || cur == nil {
		return nil, utils.E(utils.CodeConflict, op, "interview already completed", nil)
	}

	log := s.log.WithFields(logrus.Fields{"session_id": sessionID, "question_id": cur.ID})

	rec.Answers = append(rec.Answers, models.Answer{
		QuestionID:     cur.ID,
		Actor:          models.ActorHuman,
		Content:        answer,
		ElapsedSeconds: req.ElapsedSeconds,
	})

	res := &models.TurnResult{InterviewStatus: models.InterviewInProgress}

	var logs []pendingLog
	logs = append(logs, pendingLog{cur.ID, models.ActorHuman, answer})

	if rec.Config.Mode.Competitive() {
		ai, err := s.gen.Answer(ctx, rec, *cur)
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "failed to generate ai answer", err)
		}
		rec.Answers = append(rec.Answers, models.Answer{QuestionID: cur.ID, Actor: models.ActorAI, Content: ai})
		res.AIAnswer = ai
		logs = append(logs, pendingLog{cur.ID, models.ActorAI, ai})
	}

	if len(rec.Questions) >= s.perRecord {
		now := s.now().UTC()
		rec.Status = models.InterviewCompleted
		rec.EndedAt = &now
		rec.DurationSeconds = int64(now.Sub(rec.CreatedAt).Seconds())
		res.InterviewStatus = models.InterviewCompleted
	} else {
		next, err := s.gen.Next(ctx, rec, rec.ProfileSummary)
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "failed to generate question", err)
		}
		rec.Questions = append(rec.Questions, next)
		res.NextQuestion = &next
		logs = append(logs, pendingLog{next.ID, models.ActorInterviewer, next.Text})
	}

	if err := s.records.Replace(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save interview", err)
	}
	s.invalidate(ctx, sessionID)

	for _, l := range logs {
		s.logTurn(ctx, rec, l.questionID, l.role, l.content)
		if l.role != models.ActorInterviewer {
			metrics.TurnsSubmitted.WithLabelValues(string(l.role)).Inc()
		}
	}

	if rec.Status == models.InterviewCompleted {
		s.publish(ctx, rec, models.EventInterviewCompleted)
		metrics.InterviewsCompleted.WithLabelValues(string(rec.Config.Mode)).Inc()
		log.WithField("duration_seconds", rec.DurationSeconds).Info("interview completed")
	}
	return res, nil
}

func (s *interviewService) NextQuestion(ctx context.Context, sessionID string) (*models.NextQuestionResult, error) {
	const op = "InterviewService.NextQuestion"

	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.InterviewCompleted {
		return &models.NextQuestionResult{Completed: true}, nil
	}
	cur := rec.CurrentQuestion()
	if cur == nil {
		return nil, utils.E(utils.CodeInternal, op, "interview has no question", nil)
	}
	return &models.NextQuestionResult{Question: cur}, nil
}

// Get reads through the record cache.
func (s *interviewService) Get(ctx context.Context, sessionID string) (*models.InterviewRecord, error) {
	const op = "InterviewService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	key := recordCachePrefix + sessionID
	if s.cache != nil {
		var cached models.InterviewRecord
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("record cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	rec, err := s.records.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interview not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interview", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, rec, s.cacheTTL); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("record cache write failed")
		}
	}
	return rec, nil
}

// replay rebuilds the result of an already accepted submission.
func replay(rec *models.InterviewRecord, questionID string) *models.TurnResult {
	res := &models.TurnResult{InterviewStatus: models.InterviewInProgress}
	if ai, ok := rec.AnswerFor(questionID, models.ActorAI); ok {
		res.AIAnswer = ai.Content
	}
	i := rec.QuestionIndex(questionID)
	if i >= 0 && i+1 < len(rec.Questions) {
		next := rec.Questions[i+1]
		res.NextQuestion = &next
	} else if rec.Status == models.InterviewCompleted {
		res.InterviewStatus = models.InterviewCompleted
	}
	return res
}

type pendingLog struct {
	questionID string
	role       models.Actor
	content    string
}

func (s *interviewService) profileSummary(ctx context.Context, userID string, log *logrus.Entry) string {
	if s.profiles == nil || userID == "" {
		log.Info("no profile available, personalized mode uses standard prompting")
		return ""
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("profile lookup failed, personalized mode uses standard prompting")
		return ""
	}
	return p.Summary(profileSummaryLimit)
}

func (s *interviewService) logTurn(ctx context.Context, rec *models.InterviewRecord, questionID string, role models.Actor, content string) {
	if s.convos == nil {
		return
	}
	meta := map[string]any{
		"mode":       rec.Config.Mode,
		"difficulty": rec.Config.Difficulty,
		"language":   rec.Config.Language,
	}
	if i := rec.QuestionIndex(questionID); i >= 0 {
		meta["category"] = rec.Questions[i].Category
		meta["question_number"] = i + 1
	}
	if role == models.ActorHuman {
		if a, ok := rec.AnswerFor(questionID, role); ok {
			meta["elapsed_seconds"] = a.ElapsedSeconds
		}
	}
	_, err := s.convos.Append(ctx, ConversationEntry{
		UserID:     rec.UserID,
		SessionID:  rec.SessionID,
		QuestionID: questionID,
		Role:       role,
		Content:    content,
		Metadata:   meta,
	})
	if err != nil {
		s.log.WithError(err).WithField("session_id", rec.SessionID).Warn("failed to archive conversation turn")
	}
}

func (s *interviewService) publish(ctx context.Context, rec *models.InterviewRecord, typ models.InterviewEventType) {
	if s.events == nil {
		return
	}
	e := &models.InterviewEvent{
		EventType:  typ,
		SessionID:  rec.SessionID,
		UserID:     rec.UserID,
		Company:    rec.Config.Company,
		Position:   rec.Config.Position,
		Mode:       rec.Config.Mode,
		Questions:  len(rec.Questions),
		OccurredAt: s.now().UTC(),
	}
	if typ == models.EventInterviewCompleted {
		e.Answers = rec.Answers
	}
	if err := s.events.PublishInterviewEvent(ctx, e); err != nil {
		s.log.WithError(err).WithField("session_id", rec.SessionID).Warn("failed to publish interview event")
	}
}

func (s *interviewService) invalidate(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, recordCachePrefix+sessionID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("record cache invalidation failed")
	}
}

// sessionLocks serializes submissions per session within this process.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sessionLock)
	}
	e, ok := l.m[id]
	if !ok {
		e = &sessionLock{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
