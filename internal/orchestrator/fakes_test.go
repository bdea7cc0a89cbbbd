package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/orchestrator/media"
	"github.com/yoockh/yoointerview/internal/orchestrator/persistence"
	"github.com/yoockh/yoointerview/internal/orchestrator/speech"
	"github.com/yoockh/yoointerview/internal/utils"
)

var errBackendDown = utils.E(utils.CodeUnavailable, "test", "backend down", nil)

// fakeService mirrors the backend: SubmitTurn advances, GetNextQuestion reads.
type fakeService struct {
	mu        sync.Mutex
	questions []models.Question
	aiAnswer  string
	empty     bool // SubmitTurn returns neither question nor completion

	startErrs  []error
	submitErrs []error
	nextErrs   []error

	current   int
	starts    int
	submits   int
	nexts     int
	submitted []models.SubmitTurnRequest

	entered  chan struct{}
	block    chan struct{}
	onSubmit func()
}

func newFakeService(n int) *fakeService {
	qs := make([]models.Question, n)
	cats := []string{"hr", "technical", "collaboration"}
	for i := range qs {
		qs[i] = models.Question{
			ID:        fmt.Sprintf("q%d", i+1),
			Text:      fmt.Sprintf("Question number %d?", i+1),
			Category:  cats[i%len(cats)],
			TimeLimit: 120,
		}
	}
	return &fakeService{questions: qs, aiAnswer: "As an AI candidate I would say..."}
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeService) StartSession(_ context.Context, _ models.InterviewConfig) (*models.StartSessionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if err := pop(&f.startErrs); err != nil {
		return nil, err
	}
	f.current = 0
	q := f.questions[0]
	return &models.StartSessionResult{SessionID: fmt.Sprintf("sess-%d", f.starts), FirstQuestion: &q}, nil
}

func (f *fakeService) SubmitTurn(ctx context.Context, _ string, req models.SubmitTurnRequest) (*models.TurnResult, error) {
	f.mu.Lock()
	f.submits++
	entered, block, hook := f.entered, f.block, f.onSubmit
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := pop(&f.submitErrs); err != nil {
		return nil, err
	}
	f.submitted = append(f.submitted, req)
	if f.empty {
		f.empty = false
		f.current++
		return &models.TurnResult{InterviewStatus: models.InterviewInProgress}, nil
	}
	f.current++
	if f.current >= len(f.questions) {
		return &models.TurnResult{AIAnswer: f.aiAnswer, InterviewStatus: models.InterviewCompleted}, nil
	}
	q := f.questions[f.current]
	return &models.TurnResult{AIAnswer: f.aiAnswer, NextQuestion: &q, InterviewStatus: models.InterviewInProgress}, nil
}

func (f *fakeService) GetNextQuestion(_ context.Context, _ string) (*models.NextQuestionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nexts++
	if err := pop(&f.nextErrs); err != nil {
		return nil, err
	}
	if f.current >= len(f.questions) {
		return &models.NextQuestionResult{Completed: true}, nil
	}
	q := f.questions[f.current]
	return &models.NextQuestionResult{Question: &q}, nil
}

func (f *fakeService) counts() (starts, submits, nexts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.submits, f.nexts
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type blockingSynth struct {
	started chan speech.Utterance
	release chan struct{}
}

func newBlockingSynth() *blockingSynth {
	return &blockingSynth{started: make(chan speech.Utterance, 8), release: make(chan struct{})}
}

func (s *blockingSynth) Speak(ctx context.Context, u speech.Utterance) error {
	s.started <- u
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *blockingSynth) Cancel() {}

type instantSynth struct {
	mu     sync.Mutex
	spoken []speech.Utterance
}

func (s *instantSynth) Speak(_ context.Context, u speech.Utterance) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, u)
	s.mu.Unlock()
	return nil
}

func (s *instantSynth) Cancel() {}

type camTrack struct {
	mu      sync.Mutex
	stopped bool
}

func (t *camTrack) Kind() string { return "video" }
func (t *camTrack) State() media.TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return media.TrackEnded
	}
	return media.TrackLive
}
func (t *camTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

type camStream struct{ track *camTrack }

func (s *camStream) ID() string            { return "cam" }
func (s *camStream) Tracks() []media.Track { return []media.Track{s.track} }

type camDevice struct {
	fail   bool
	stream *camStream
}

func (d *camDevice) Open(context.Context, media.Constraints) (media.Stream, error) {
	if d.fail {
		return nil, errors.New("no camera")
	}
	d.stream = &camStream{track: &camTrack{}}
	return d.stream, nil
}

func aiConfig() models.InterviewConfig {
	return models.InterviewConfig{Company: "X", Position: "Y", Mode: models.ModeAICompetition}
}

func standardConfig() models.InterviewConfig {
	return models.InterviewConfig{Company: "Acme", Position: "Backend Engineer", Mode: models.ModeStandard}
}

func newTestOrchestrator(svc Service, opts Options) *Orchestrator {
	if opts.ServiceRetryBase == 0 {
		opts.ServiceRetryBase = time.Millisecond
	}
	return New(svc, opts)
}

func memoryPersistence() (*persistence.MemoryStore, *persistence.Manager) {
	store := persistence.NewMemoryStore()
	return store, persistence.NewManager(store, persistence.Options{})
}

func mustStart(t *testing.T, o *Orchestrator, cfg models.InterviewConfig) *StartResult {
	t.Helper()
	res, err := o.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return res
}

func mustPose(t *testing.T, o *Orchestrator) {
	t.Helper()
	if err := o.PoseQuestion(context.Background()); err != nil {
		t.Fatalf("pose: %v", err)
	}
}
