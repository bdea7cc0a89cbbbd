// Package orchestrator drives one interview rehearsal: the turn-based phase
// machine between the candidate and the AI counterpart, the per-question
// timer, and the camera, speech, timeline and snapshot side effects.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/orchestrator/media"
	"github.com/yoockh/yoointerview/internal/orchestrator/persistence"
	"github.com/yoockh/yoointerview/internal/orchestrator/speech"
	"github.com/yoockh/yoointerview/internal/orchestrator/timeline"
	"github.com/yoockh/yoointerview/internal/utils"
)

type Lifecycle string

const (
	LifecycleIdle         Lifecycle = "idle"
	LifecycleInitializing Lifecycle = "initializing"
	LifecycleInitialized  Lifecycle = "initialized"
)

type Options struct {
	Media       *media.Manager
	Speech      *speech.Coordinator
	Persistence *persistence.Manager
	Logger      *logrus.Entry

	// TickInterval drives an internal clock calling Tick. Zero leaves ticking to the caller.
	TickInterval     time.Duration
	ServiceAttempts  int
	ServiceRetryBase time.Duration

	OnEvent func(Event)
}

type StartResult struct {
	SessionID string
	Question  models.Question
	Recovered bool
}

// View is a read-only copy of the session for rendering.
type View struct {
	Lifecycle    Lifecycle
	SessionID    string
	Config       models.InterviewConfig
	Status       models.Status
	Phase        models.Phase
	CurrentIndex int
	Remaining    int
	Question     *models.Question
	Questions    []models.Question
	Answers      []models.Answer
	Turns        []models.Turn
	Submitting   bool
	Pending      bool
}

// Orchestrator is the single authority over session state. Every mutation
// happens under mu; I/O (service, speech, camera, storage) happens outside it.
type Orchestrator struct {
	svc  Service
	opts Options
	log  *logrus.Entry

	mu           sync.Mutex
	lifecycle    Lifecycle
	sessionID    string
	config       models.InterviewConfig
	questions    []models.Question
	answers      []models.Answer
	currentIndex int
	remaining    int
	status       models.Status
	resumeStatus models.Status
	phase        models.Phase
	submitting   bool
	pending      *models.Answer
	timeline     *timeline.Builder
	clockStop    chan struct{}
	closed       bool
}

func New(svc Service, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logger.For(nil, "orchestrator")
	}
	if opts.ServiceAttempts <= 0 {
		opts.ServiceAttempts = 2
	}
	if opts.ServiceRetryBase <= 0 {
		opts.ServiceRetryBase = 500 * time.Millisecond
	}
	return &Orchestrator{
		svc:       svc,
		opts:      opts,
		log:       opts.Logger,
		lifecycle: LifecycleIdle,
		status:    models.StatusReady,
		timeline:  timeline.New(),
	}
}

func runningStatus(mode models.InterviewMode) models.Status {
	if mode.Competitive() {
		return models.StatusComparisonMode
	}
	return models.StatusActive
}

// Start validates cfg, recovers a matching snapshot if one exists, and opens a
// fresh backend session. A failure leaves status untouched and Start callable again.
func (o *Orchestrator) Start(ctx context.Context, cfg models.InterviewConfig) (*StartResult, error) {
	const op = "Orchestrator.Start"

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, utils.E(utils.CodeConflict, op, "orchestrator closed", nil)
	}
	if o.lifecycle != LifecycleIdle {
		o.mu.Unlock()
		return nil, utils.E(utils.CodeConflict, op, "session already started", nil)
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		o.mu.Unlock()
		return nil, utils.ConfigurationError(op, "missing or invalid: "+strings.Join(missing, ", "))
	}
	o.lifecycle = LifecycleInitializing
	o.mu.Unlock()

	cfg = cfg.WithDefaults()

	// restore runs before any backend call
	var restored *models.Snapshot
	if p := o.opts.Persistence; p != nil {
		if snap, ok := p.Restore(ctx); ok {
			if snap.Config.SameInterview(cfg) {
				restored = snap
			} else {
				o.log.WithField("session_id", snap.SessionID).Info("stale snapshot for another interview, clearing")
			}
		}
		if restored == nil {
			if err := p.Clear(ctx); err != nil {
				o.log.WithError(err).Warn("snapshot clear failed")
			}
		}
	}

	open := func() (*models.StartSessionResult, error) {
		res, err := o.startSession(ctx, cfg)
		if err == nil && (res.FirstQuestion == nil || strings.TrimSpace(res.FirstQuestion.Text) == "") {
			err = fmt.Errorf("no first question for session %q", res.SessionID)
		}
		return res, err
	}

	res, err := open()
	var first models.Question
	if err == nil {
		first = *res.FirstQuestion
	}
	if err == nil && restored != nil {
		var next *models.Question
		next, err = o.resync(ctx, res.SessionID, cfg.Mode, restored, first)
		switch {
		case err != nil:
		case next == nil:
			o.log.WithField("session_id", res.SessionID).Info("restored history covers the whole session, starting over")
			restored = nil
			if err := o.opts.Persistence.Clear(ctx); err != nil {
				o.log.WithError(err).Warn("snapshot clear failed")
			}
			if res, err = open(); err == nil {
				first = *res.FirstQuestion
			}
		default:
			first = *next
		}
	}
	if err != nil {
		o.mu.Lock()
		o.lifecycle = LifecycleIdle
		o.mu.Unlock()
		o.log.WithError(err).Warn("start session failed")
		werr := utils.ServiceError(op, "could not start interview", err)
		o.emit(Event{Type: EventError, Status: models.StatusReady, Err: werr})
		return nil, werr
	}

	o.mu.Lock()
	o.sessionID = res.SessionID
	o.config = cfg
	o.lifecycle = LifecycleInitialized
	o.phase = models.PhaseInterviewerQuestion
	o.resumeStatus = runningStatus(cfg.Mode)
	o.status = runningStatus(cfg.Mode)
	o.remaining = first.TimeLimit
	if restored != nil {
		o.recoverLocked(restored, first)
	} else {
		o.questions = []models.Question{first}
		o.answers = nil
		o.currentIndex = 0
		o.timeline = timeline.New()
	}
	status, phase := o.status, o.phase
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.save(snap)
	o.log.WithFields(logrus.Fields{
		"session_id": res.SessionID,
		"mode":       cfg.Mode,
		"recovered":  restored != nil,
	}).Info("interview started")
	o.emit(Event{Type: EventStatus, Status: status, Phase: phase}, Event{Type: EventPhase, Status: status, Phase: phase})

	return &StartResult{SessionID: res.SessionID, Question: first, Recovered: restored != nil}, nil
}

// recoverLocked keeps the answered history of a snapshot and continues it with
// the fresh session's first question. A paused snapshot stays paused.
func (o *Orchestrator) recoverLocked(snap *models.Snapshot, first models.Question) {
	idx := snap.CurrentIndex
	if idx > len(snap.Questions) {
		idx = len(snap.Questions)
	}
	done := make(map[string]bool, idx)
	o.questions = append([]models.Question(nil), snap.Questions[:idx]...)
	for _, q := range o.questions {
		done[q.ID] = true
	}
	o.answers = nil
	for _, a := range snap.Answers {
		if done[a.QuestionID] {
			o.answers = append(o.answers, a)
		}
	}
	o.questions = append(o.questions, first)
	o.currentIndex = len(o.questions) - 1
	o.timeline = timeline.Restore(snap.Turns)

	if idx < len(snap.Questions) && snap.Questions[idx].Text == first.Text &&
		snap.Phase == models.PhaseUserTurn && snap.RemainingSeconds >= 0 {
		o.remaining = snap.RemainingSeconds
	}
	if snap.Status == models.StatusPaused {
		o.status = models.StatusPaused
	}
}

// PoseQuestion records the current question in the timeline, reads it aloud as
// the category's interviewer and opens the candidate's turn.
func (o *Orchestrator) PoseQuestion(ctx context.Context) error {
	const op = "Orchestrator.PoseQuestion"

	o.mu.Lock()
	if o.status != models.StatusActive && o.status != models.StatusComparisonMode {
		o.mu.Unlock()
		return utils.E(utils.CodeConflict, op, fmt.Sprintf("cannot pose question while %s", o.status), nil)
	}
	if o.phase != models.PhaseInterviewerQuestion {
		o.mu.Unlock()
		return nil
	}
	q := o.questions[o.currentIndex]
	o.timeline.AppendQuestion(models.Turn{Actor: models.ActorInterviewer, QuestionText: q.Text, Category: q.Category})
	lang := o.config.Language
	dictation := o.config.Mode.Dictation()
	o.mu.Unlock()

	o.emit(Event{Type: EventQuestion, Text: q.Text})

	if sc := o.opts.Speech; sc != nil {
		sc.ResetTranscript()
		sc.Speak(ctx, speech.Utterance{Text: q.Text, Persona: models.PersonaFor(q.Category), Language: lang})
	}

	o.mu.Lock()
	if o.phase != models.PhaseInterviewerQuestion || o.questions[o.currentIndex].ID != q.ID ||
		(o.status != models.StatusActive && o.status != models.StatusComparisonMode) {
		// paused or advanced while speaking
		o.mu.Unlock()
		return nil
	}
	o.phase = models.PhaseUserTurn
	o.startClockLocked()
	status, remaining := o.status, o.remaining
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if sc := o.opts.Speech; sc != nil && dictation {
		if err := sc.Listen(ctx); err != nil {
			o.log.WithError(err).Debug("dictation not started")
		}
	}
	o.save(snap)
	o.emit(Event{Type: EventPhase, Status: status, Phase: models.PhaseUserTurn, Remaining: remaining})
	return nil
}

// SubmitAnswer records the candidate's answer and hands it to the backend. It
// returns false without error when another submission is still in flight.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, text string) (bool, error) {
	const op = "Orchestrator.SubmitAnswer"

	text = strings.TrimSpace(text)
	if text == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "answer is empty", nil)
	}
	// gate before lock: the coordinator never calls back into us
	if sc := o.opts.Speech; sc != nil && !sc.MayAnswer() {
		return false, utils.E(utils.CodeConflict, op, "interviewer is still speaking", nil)
	}

	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return false, nil
	}
	if o.status != models.StatusActive && o.status != models.StatusComparisonMode {
		o.mu.Unlock()
		return false, utils.E(utils.CodeConflict, op, fmt.Sprintf("answers not accepted while %s", o.status), nil)
	}
	firstTurn := o.phase == models.PhaseInterviewerQuestion && o.currentIndex == 0 && !o.hasAnswerLocked(o.questions[0].ID, models.ActorHuman)
	if o.phase != models.PhaseUserTurn && !firstTurn {
		o.mu.Unlock()
		return false, utils.E(utils.CodeConflict, op, fmt.Sprintf("answers not accepted during %s", o.phase), nil)
	}

	q := o.questions[o.currentIndex]
	o.submitting = true
	o.stopClockLocked()

	elapsed := q.TimeLimit - o.remaining
	if elapsed < 0 || o.phase != models.PhaseUserTurn {
		elapsed = 0
	}
	ans := models.Answer{QuestionID: q.ID, Actor: models.ActorHuman, Content: text, ElapsedSeconds: elapsed}
	o.answers = append(o.answers, ans)
	o.pending = &ans

	o.timeline.AppendQuestion(models.Turn{Actor: models.ActorInterviewer, QuestionText: q.Text, Category: q.Category})
	o.timeline.AppendAnswer(models.ActorHuman, q.Text, text)
	if o.config.Mode.Competitive() {
		o.timeline.BeginAnswer(models.ActorAI, q.Text, q.Category)
	}

	o.phase = models.PhaseAITurn
	if o.status == models.StatusComparisonMode {
		o.status = models.StatusAIAnswering
	}
	status := o.status
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if sc := o.opts.Speech; sc != nil {
		sc.StopListening()
		sc.ResetTranscript()
	}
	o.save(snap)
	o.emit(Event{Type: EventPhase, Status: status, Phase: models.PhaseAITurn})

	return true, o.deliver(ctx)
}

// RetryPending re-sends a submission that failed, or re-requests the next
// question when the last result carried neither a question nor completion.
func (o *Orchestrator) RetryPending(ctx context.Context) error {
	const op = "Orchestrator.RetryPending"

	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return nil
	}
	if o.phase != models.PhaseAITurn || o.status == models.StatusCompleted {
		o.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "nothing to retry", nil)
	}
	o.submitting = true
	o.mu.Unlock()

	return o.deliver(ctx)
}

func (o *Orchestrator) deliver(ctx context.Context) error {
	const op = "Orchestrator.deliver"

	o.mu.Lock()
	sessionID, mode := o.sessionID, o.config.Mode
	var ans *models.Answer
	if o.pending != nil {
		cp := *o.pending
		ans = &cp
	}
	o.mu.Unlock()

	res, err := o.exchange(ctx, sessionID, mode, ans)
	if err != nil {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
		o.log.WithError(err).WithField("session_id", sessionID).Warn("turn submission failed")
		werr := utils.ServiceError(op, "could not reach interview service", err)
		o.emit(Event{Type: EventError, Phase: models.PhaseAITurn, Err: werr})
		return werr
	}

	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()

	err = o.OnAiTurnResult(ctx, *res)

	o.mu.Lock()
	o.submitting = false
	o.mu.Unlock()
	return err
}

// OnAiTurnResult applies one backend response: the AI answer (if any) and
// either the next question or completion. Results arriving outside the AI turn
// are late duplicates and are dropped.
func (o *Orchestrator) OnAiTurnResult(ctx context.Context, res models.TurnResult) error {
	const op = "Orchestrator.OnAiTurnResult"

	o.mu.Lock()
	if o.status == models.StatusCompleted || o.lifecycle != LifecycleInitialized || o.phase != models.PhaseAITurn {
		o.mu.Unlock()
		return nil
	}
	q := o.questions[o.currentIndex]
	aiText := strings.TrimSpace(res.AIAnswer)
	newAI := false
	if aiText != "" {
		newAI = o.timeline.AppendAnswer(models.ActorAI, q.Text, aiText)
		if !o.hasAnswerLocked(q.ID, models.ActorAI) {
			o.answers = append(o.answers, models.Answer{QuestionID: q.ID, Actor: models.ActorAI, Content: aiText})
		}
	}

	var evs []Event
	completed := false
	switch {
	case res.InterviewStatus == models.InterviewCompleted:
		o.status = models.StatusCompleted
		o.stopClockLocked()
		completed = true
		evs = append(evs, Event{Type: EventStatus, Status: models.StatusCompleted, Phase: o.phase}, Event{Type: EventCompleted, Status: models.StatusCompleted})
	case res.NextQuestion != nil && strings.TrimSpace(res.NextQuestion.Text) != "":
		next := *res.NextQuestion
		o.questions = append(o.questions, next)
		o.currentIndex = len(o.questions) - 1
		o.remaining = next.TimeLimit
		o.phase = models.PhaseInterviewerQuestion
		if o.status == models.StatusAIAnswering {
			o.status = models.StatusComparisonMode
		}
		if o.status == models.StatusPaused && o.resumeStatus == models.StatusAIAnswering {
			o.resumeStatus = models.StatusComparisonMode
		}
		evs = append(evs, Event{Type: EventPhase, Status: o.status, Phase: o.phase, Remaining: o.remaining})
	default:
		o.mu.Unlock()
		err := utils.ServiceError(op, "service returned neither a question nor completion", nil)
		o.emit(Event{Type: EventError, Phase: models.PhaseAITurn, Err: err})
		return err
	}
	sessionID := o.sessionID
	speakAI := newAI && o.config.Mode == models.ModeAICompetition
	lang := o.config.Language
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if newAI {
		o.emit(Event{Type: EventAIAnswer, Text: aiText})
		if sc := o.opts.Speech; sc != nil && speakAI {
			sc.Speak(ctx, speech.Utterance{Text: aiText, Persona: models.PersonaAI, Language: lang})
		}
	}

	if completed {
		if p := o.opts.Persistence; p != nil {
			if err := p.Clear(ctx); err != nil {
				o.log.WithError(err).Warn("snapshot clear failed")
			}
		}
		if sc := o.opts.Speech; sc != nil {
			sc.StopListening()
		}
		o.log.WithField("session_id", sessionID).Info("interview completed")
	} else {
		o.save(snap)
	}
	o.emit(evs...)
	return nil
}

// Tick counts the current question down by one second. Only the candidate's
// turn is timed; reaching zero pauses the session and reports a timeout.
func (o *Orchestrator) Tick() {
	o.mu.Lock()
	if (o.status != models.StatusActive && o.status != models.StatusComparisonMode) ||
		o.phase != models.PhaseUserTurn || o.submitting || o.remaining <= 0 {
		o.mu.Unlock()
		return
	}
	o.remaining--
	evs := []Event{{Type: EventTick, Status: o.status, Phase: o.phase, Remaining: o.remaining}}
	var snap *models.Snapshot
	if o.remaining == 0 {
		o.resumeStatus = o.status
		o.status = models.StatusPaused
		o.stopClockLocked()
		evs = append(evs,
			Event{Type: EventTimeout, Status: models.StatusPaused, Phase: o.phase},
			Event{Type: EventStatus, Status: models.StatusPaused, Phase: o.phase})
		s := o.snapshotLocked()
		snap = &s
	}
	o.mu.Unlock()

	if snap != nil {
		if sc := o.opts.Speech; sc != nil {
			sc.StopListening()
		}
		o.save(*snap)
		o.log.WithField("session_id", snap.SessionID).Info("question timed out")
	}
	o.emit(evs...)
}

// Pause freezes the timer and silences speech.
func (o *Orchestrator) Pause() error {
	const op = "Orchestrator.Pause"

	o.mu.Lock()
	if o.status == models.StatusPaused {
		o.mu.Unlock()
		return nil
	}
	if o.status != models.StatusActive && o.status != models.StatusComparisonMode {
		o.mu.Unlock()
		return utils.E(utils.CodeConflict, op, fmt.Sprintf("cannot pause while %s", o.status), nil)
	}
	o.resumeStatus = o.status
	o.status = models.StatusPaused
	o.stopClockLocked()
	phase := o.phase
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if sc := o.opts.Speech; sc != nil {
		sc.Stop()
	}
	o.save(snap)
	o.emit(Event{Type: EventStatus, Status: models.StatusPaused, Phase: phase})
	return nil
}

// Resume continues a paused session from the timer's last value.
func (o *Orchestrator) Resume(ctx context.Context) error {
	const op = "Orchestrator.Resume"

	o.mu.Lock()
	if o.status != models.StatusPaused {
		o.mu.Unlock()
		return utils.E(utils.CodeConflict, op, fmt.Sprintf("cannot resume while %s", o.status), nil)
	}
	o.status = o.resumeStatus
	if !o.status.Running() {
		o.status = runningStatus(o.config.Mode)
	}
	phase := o.phase
	if phase == models.PhaseUserTurn {
		o.startClockLocked()
	}
	status, remaining := o.status, o.remaining
	dictation := o.config.Mode.Dictation()
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if sc := o.opts.Speech; sc != nil && phase == models.PhaseUserTurn && dictation {
		if err := sc.Listen(ctx); err != nil {
			o.log.WithError(err).Debug("dictation not resumed")
		}
	}
	o.save(snap)
	o.emit(Event{Type: EventStatus, Status: status, Phase: phase, Remaining: remaining})
	return nil
}

// StartCamera acquires the capture device and binds it to the sink. Device
// failures are reported as media events and returned to the caller; the
// session itself keeps running.
func (o *Orchestrator) StartCamera(ctx context.Context, locate media.SinkLocator) error {
	m := o.opts.Media
	if m == nil {
		return nil
	}
	res, err := m.Acquire(ctx)
	if err == nil && locate != nil {
		err = m.Attach(ctx, res, locate)
	}
	if err != nil {
		o.emit(Event{Type: EventMedia, Err: err})
		return err
	}
	o.emit(Event{Type: EventMedia, Text: res.ID()})
	return nil
}

// CheckCamera re-acquires the camera if its track ended.
func (o *Orchestrator) CheckCamera(ctx context.Context) error {
	m := o.opts.Media
	if m == nil {
		return nil
	}
	if _, err := m.Validate(ctx); err != nil {
		o.emit(Event{Type: EventMedia, Err: err})
		return err
	}
	return nil
}

// PageHidden flushes the snapshot and stops any playback.
func (o *Orchestrator) PageHidden(ctx context.Context) error {
	if sc := o.opts.Speech; sc != nil {
		sc.StopSpeaking()
	}
	return o.flush(ctx)
}

// Close tears the session down: clock, speech, camera, and a final snapshot
// for an unfinished session.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.stopClockLocked()
	o.mu.Unlock()

	if sc := o.opts.Speech; sc != nil {
		sc.Stop()
	}
	if m := o.opts.Media; m != nil {
		m.Close()
	}
	return o.flush(ctx)
}

func (o *Orchestrator) flush(ctx context.Context) error {
	p := o.opts.Persistence
	if p == nil {
		return nil
	}
	o.mu.Lock()
	if o.lifecycle != LifecycleInitialized || o.status == models.StatusCompleted {
		o.mu.Unlock()
		return nil
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	p.Snapshot(snap)
	return p.Flush(ctx)
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := View{
		Lifecycle:    o.lifecycle,
		SessionID:    o.sessionID,
		Config:       o.config,
		Status:       o.status,
		Phase:        o.phase,
		CurrentIndex: o.currentIndex,
		Remaining:    o.remaining,
		Questions:    append([]models.Question(nil), o.questions...),
		Answers:      append([]models.Answer(nil), o.answers...),
		Turns:        o.timeline.Turns(),
		Submitting:   o.submitting,
		Pending:      o.pending != nil,
	}
	if o.currentIndex < len(o.questions) {
		q := o.questions[o.currentIndex]
		v.Question = &q
	}
	return v
}

func (o *Orchestrator) Status() models.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) Phase() models.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Progress reports answered and total timeline turns.
func (o *Orchestrator) Progress() (answered, total int) {
	o.mu.Lock()
	tl := o.timeline
	o.mu.Unlock()
	return tl.Progress()
}

func (o *Orchestrator) hasAnswerLocked(questionID string, actor models.Actor) bool {
	for _, a := range o.answers {
		if a.QuestionID == questionID && a.Actor == actor {
			return true
		}
	}
	return false
}

func (o *Orchestrator) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		SessionID:        o.sessionID,
		Config:           o.config,
		Questions:        append([]models.Question(nil), o.questions...),
		Answers:          append([]models.Answer(nil), o.answers...),
		Turns:            o.timeline.Turns(),
		CurrentIndex:     o.currentIndex,
		RemainingSeconds: o.remaining,
		Status:           o.status,
		Phase:            o.phase,
	}
}

func (o *Orchestrator) save(snap models.Snapshot) {
	if p := o.opts.Persistence; p != nil {
		p.Snapshot(snap)
	}
}

func (o *Orchestrator) startClockLocked() {
	if o.opts.TickInterval <= 0 || o.clockStop != nil || o.closed {
		return
	}
	stop := make(chan struct{})
	o.clockStop = stop
	go func() {
		t := time.NewTicker(o.opts.TickInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				o.Tick()
			}
		}
	}()
}

func (o *Orchestrator) stopClockLocked() {
	if o.clockStop != nil {
		close(o.clockStop)
		o.clockStop = nil
	}
}
