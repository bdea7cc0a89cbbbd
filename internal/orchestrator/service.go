package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

// Service is the question/answer backend a rehearsal talks to.
type Service interface {
	StartSession(ctx context.Context, cfg models.InterviewConfig) (*models.StartSessionResult, error)
	SubmitTurn(ctx context.Context, sessionID string, req models.SubmitTurnRequest) (*models.TurnResult, error)
	GetNextQuestion(ctx context.Context, sessionID string) (*models.NextQuestionResult, error)
}

var errEmptyResponse = errors.New("empty service response")

// transient reports whether a failed call is worth repeating automatically.
// Validation and not-found answers from the backend are final.
func transient(err error) bool {
	switch utils.CodeOf(err) {
	case utils.CodeInvalidArgument, utils.CodeNotFound, utils.CodeConflict, utils.CodeConfiguration:
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func (o *Orchestrator) call(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := o.opts.ServiceAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(o.opts.ServiceRetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && transient(err) {
			o.log.WithError(err).Debug("service call failed, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}

func (o *Orchestrator) startSession(ctx context.Context, cfg models.InterviewConfig) (*models.StartSessionResult, error) {
	var res *models.StartSessionResult
	err := o.call(ctx, func(ctx context.Context) error {
		r, err := o.svc.StartSession(ctx, cfg)
		if err != nil {
			return err
		}
		if r == nil {
			return errEmptyResponse
		}
		res = r
		return nil
	})
	return res, err
}

// exchange sends a recorded answer (when there is one) and returns what comes
// next. Modes without an AI counterpart ask for the next question separately.
func (o *Orchestrator) exchange(ctx context.Context, sessionID string, mode models.InterviewMode, ans *models.Answer) (*models.TurnResult, error) {
	var out *models.TurnResult
	if ans != nil {
		req := models.SubmitTurnRequest{QuestionID: ans.QuestionID, Answer: ans.Content, ElapsedSeconds: ans.ElapsedSeconds}
		err := o.call(ctx, func(ctx context.Context) error {
			r, err := o.svc.SubmitTurn(ctx, sessionID, req)
			if err != nil {
				return err
			}
			if r == nil {
				return errEmptyResponse
			}
			out = r
			return nil
		})
		if err != nil {
			return nil, err
		}
		if mode.Competitive() || out.InterviewStatus == models.InterviewCompleted {
			return out, nil
		}
	}

	var next *models.NextQuestionResult
	err := o.call(ctx, func(ctx context.Context) error {
		r, err := o.svc.GetNextQuestion(ctx, sessionID)
		if err != nil {
			return err
		}
		if r == nil {
			return errEmptyResponse
		}
		next = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	res := &models.TurnResult{NextQuestion: next.Question, InterviewStatus: models.InterviewInProgress}
	if next.Completed {
		res.InterviewStatus = models.InterviewCompleted
	}
	return res, nil
}

// resync replays the restored history's human answers into a fresh session
// while the session keeps asking questions the history already answered. It
// returns the first unanswered question, or nil when the session completed.
func (o *Orchestrator) resync(ctx context.Context, sessionID string, mode models.InterviewMode, snap *models.Snapshot, first models.Question) (*models.Question, error) {
	idx := snap.CurrentIndex
	if idx > len(snap.Questions) {
		idx = len(snap.Questions)
	}
	answered := make(map[string]models.Answer, idx)
	for _, q := range snap.Questions[:idx] {
		for _, a := range snap.Answers {
			if a.QuestionID == q.ID && a.Actor == models.ActorHuman {
				answered[q.Text] = a
				break
			}
		}
	}

	q := first
	for {
		prev, ok := answered[q.Text]
		if !ok {
			return &q, nil
		}
		// each recorded answer is replayed at most once
		delete(answered, q.Text)
		o.log.WithFields(logrus.Fields{"session_id": sessionID, "question_id": q.ID}).Debug("replaying recorded answer")
		res, err := o.exchange(ctx, sessionID, mode, &models.Answer{
			QuestionID:     q.ID,
			Actor:          models.ActorHuman,
			Content:        prev.Content,
			ElapsedSeconds: prev.ElapsedSeconds,
		})
		if err != nil {
			return nil, err
		}
		if res.InterviewStatus == models.InterviewCompleted || res.NextQuestion == nil || strings.TrimSpace(res.NextQuestion.Text) == "" {
			return nil, nil
		}
		q = *res.NextQuestion
	}
}
