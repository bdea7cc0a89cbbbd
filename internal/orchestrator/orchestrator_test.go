package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/orchestrator/media"
	"github.com/yoockh/yoointerview/internal/orchestrator/persistence"
	"github.com/yoockh/yoointerview/internal/orchestrator/speech"
	"github.com/yoockh/yoointerview/internal/utils"
)

func TestStart_RejectsInvalidConfig(t *testing.T) {
	svc := newFakeService(3)
	o := newTestOrchestrator(svc, Options{})

	_, err := o.Start(context.Background(), models.InterviewConfig{Company: "X", Position: "Y", Mode: "karaoke"})
	if !utils.IsCode(err, utils.CodeConfiguration) {
		t.Fatalf("err=%v, want CONFIGURATION", err)
	}
	if o.Status() != models.StatusReady || o.View().Lifecycle != LifecycleIdle {
		t.Fatalf("state mutated: %+v", o.View())
	}
	if starts, _, _ := svc.counts(); starts != 0 {
		t.Fatalf("service called for invalid config")
	}
}

func TestStart_ServiceFailureIsRetryableAndLeavesStatus(t *testing.T) {
	svc := newFakeService(3)
	svc.startErrs = []error{errBackendDown, errBackendDown}
	o := newTestOrchestrator(svc, Options{ServiceAttempts: 2})

	_, err := o.Start(context.Background(), aiConfig())
	if !utils.IsCode(err, utils.CodeService) || !utils.IsRetryable(err) {
		t.Fatalf("err=%v, want retryable SERVICE", err)
	}
	if o.Status() != models.StatusReady || o.View().Lifecycle != LifecycleIdle {
		t.Fatalf("state mutated on failure: %+v", o.View())
	}

	res := mustStart(t, o, aiConfig())
	if res.Question.ID != "q1" {
		t.Fatalf("first question=%+v", res.Question)
	}
	if starts, _, _ := svc.counts(); starts != 3 {
		t.Fatalf("starts=%d, want 3", starts)
	}
}

func TestStart_Twice(t *testing.T) {
	o := newTestOrchestrator(newFakeService(2), Options{})
	mustStart(t, o, aiConfig())
	if _, err := o.Start(context.Background(), aiConfig()); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("second start err=%v", err)
	}
}

func TestScenario_AICompetitionTurn(t *testing.T) {
	svc := newFakeService(3)
	o := newTestOrchestrator(svc, Options{})

	var phaseDuring models.Phase
	var statusDuring models.Status
	svc.onSubmit = func() {
		phaseDuring = o.Phase()
		statusDuring = o.Status()
	}

	res := mustStart(t, o, aiConfig())
	if res.Question.Text == "" || o.Status() != models.StatusComparisonMode || o.Phase() != models.PhaseInterviewerQuestion {
		t.Fatalf("after start: %+v", o.View())
	}
	mustPose(t, o)
	if o.Phase() != models.PhaseUserTurn {
		t.Fatalf("phase=%s, want user_turn", o.Phase())
	}

	ok, err := o.SubmitAnswer(context.Background(), "hello")
	if !ok || err != nil {
		t.Fatalf("submit ok=%v err=%v", ok, err)
	}
	if phaseDuring != models.PhaseAITurn || statusDuring != models.StatusAIAnswering {
		t.Fatalf("during submit: phase=%s status=%s", phaseDuring, statusDuring)
	}

	v := o.View()
	if v.Phase != models.PhaseInterviewerQuestion || v.Status != models.StatusComparisonMode {
		t.Fatalf("after result: phase=%s status=%s", v.Phase, v.Status)
	}
	if len(v.Turns) != 3 {
		t.Fatalf("turns=%d, want 3: %+v", len(v.Turns), v.Turns)
	}
	want := []models.Actor{models.ActorInterviewer, models.ActorHuman, models.ActorAI}
	for i, a := range want {
		if v.Turns[i].Actor != a {
			t.Fatalf("turn %d actor=%s, want %s", i, v.Turns[i].Actor, a)
		}
	}
	if v.Turns[2].AnswerText != svc.aiAnswer || v.Turns[2].Answering {
		t.Fatalf("ai turn=%+v", v.Turns[2])
	}
	if v.CurrentIndex != 1 || v.Remaining != 120 {
		t.Fatalf("next question not primed: idx=%d remaining=%d", v.CurrentIndex, v.Remaining)
	}
}

func TestSubmitAnswer_ReentrantCallIgnored(t *testing.T) {
	svc := newFakeService(3)
	svc.entered = make(chan struct{}, 1)
	svc.block = make(chan struct{})
	rec := &recorder{}
	o := newTestOrchestrator(svc, Options{OnEvent: rec.record})
	mustStart(t, o, aiConfig())
	mustPose(t, o)

	done := make(chan error, 1)
	go func() {
		_, err := o.SubmitAnswer(context.Background(), "first")
		done <- err
	}()
	<-svc.entered

	ok, err := o.SubmitAnswer(context.Background(), "second")
	if ok || err != nil {
		t.Fatalf("re-entrant submit ok=%v err=%v", ok, err)
	}
	close(svc.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}

	human := 0
	for _, a := range o.View().Answers {
		if a.Actor == models.ActorHuman {
			human++
		}
	}
	if human != 1 {
		t.Fatalf("human answers=%d, want 1", human)
	}
	if _, submits, _ := svc.counts(); submits != 1 {
		t.Fatalf("submits=%d, want 1", submits)
	}
	aiTurns := 0
	rec.mu.Lock()
	for _, e := range rec.events {
		if e.Type == EventPhase && e.Phase == models.PhaseAITurn {
			aiTurns++
		}
	}
	rec.mu.Unlock()
	if aiTurns != 1 {
		t.Fatalf("ai_turn transitions=%d, want 1", aiTurns)
	}
}

func TestSubmitAnswer_FirstTurnAllowedBeforePose(t *testing.T) {
	o := newTestOrchestrator(newFakeService(3), Options{})
	mustStart(t, o, standardConfig())

	if ok, err := o.SubmitAnswer(context.Background(), "early answer"); !ok || err != nil {
		t.Fatalf("first-turn submit ok=%v err=%v", ok, err)
	}
	turns := o.View().Turns
	if len(turns) != 2 || turns[0].Actor != models.ActorInterviewer || turns[1].AnswerText != "early answer" {
		t.Fatalf("turns=%+v", turns)
	}

	// second question has not been posed yet
	if _, err := o.SubmitAnswer(context.Background(), "too soon"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("submit before pose err=%v", err)
	}
}

func TestStandardMode_FetchesNextQuestion(t *testing.T) {
	svc := newFakeService(3)
	o := newTestOrchestrator(svc, Options{})
	mustStart(t, o, standardConfig())
	mustPose(t, o)

	if _, err := o.SubmitAnswer(context.Background(), "my answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, submits, nexts := svc.counts()
	if submits != 1 || nexts != 1 {
		t.Fatalf("submits=%d nexts=%d", submits, nexts)
	}
	v := o.View()
	if v.Status != models.StatusActive || v.Question.ID != "q2" || len(v.Turns) != 2 {
		t.Fatalf("view=%+v", v)
	}
	mustPose(t, o)
	if got := len(o.View().Turns); got != 3 {
		t.Fatalf("turns=%d after posing q2", got)
	}
}

func TestTimeout_PausesAndResumeKeepsLastValue(t *testing.T) {
	svc := newFakeService(3)
	svc.questions[0].TimeLimit = 3
	rec := &recorder{}
	o := newTestOrchestrator(svc, Options{OnEvent: rec.record})
	mustStart(t, o, standardConfig())
	mustPose(t, o)

	for i := 0; i < 3; i++ {
		o.Tick()
	}
	v := o.View()
	if v.Status != models.StatusPaused || v.Remaining != 0 || v.Phase != models.PhaseUserTurn {
		t.Fatalf("after expiry: %+v", v)
	}
	if rec.count(EventTimeout) != 1 {
		t.Fatalf("timeout events=%d", rec.count(EventTimeout))
	}
	if _, err := o.SubmitAnswer(context.Background(), "late"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("submit while paused err=%v", err)
	}

	if err := o.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	v = o.View()
	if v.Status != models.StatusActive || v.Phase != models.PhaseUserTurn || v.Remaining != 0 {
		t.Fatalf("after resume: %+v", v)
	}
	o.Tick()
	if o.Status() != models.StatusActive || rec.count(EventTimeout) != 1 {
		t.Fatalf("overtime tick re-fired timeout")
	}
	if ok, err := o.SubmitAnswer(context.Background(), "overtime answer"); !ok || err != nil {
		t.Fatalf("overtime submit ok=%v err=%v", ok, err)
	}
	if got := o.View().Answers[0].ElapsedSeconds; got != 3 {
		t.Fatalf("elapsed=%d, want 3", got)
	}
}

func TestPauseResume_ContinuesFromLastValue(t *testing.T) {
	svc := newFakeService(3)
	svc.questions[0].TimeLimit = 10
	o := newTestOrchestrator(svc, Options{})
	mustStart(t, o, aiConfig())
	mustPose(t, o)

	for i := 0; i < 4; i++ {
		o.Tick()
	}
	if err := o.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	o.Tick()
	o.Tick()
	if got := o.View().Remaining; got != 6 {
		t.Fatalf("timer ran while paused: %d", got)
	}
	if err := o.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	v := o.View()
	if v.Remaining != 6 || v.Status != models.StatusComparisonMode || v.Phase != models.PhaseUserTurn {
		t.Fatalf("after resume: %+v", v)
	}
	if err := o.Resume(context.Background()); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("resume while running err=%v", err)
	}
}

func TestTieBreak_SubmissionInFlightFreezesTimer(t *testing.T) {
	svc := newFakeService(3)
	svc.questions[0].TimeLimit = 1
	svc.entered = make(chan struct{}, 1)
	svc.block = make(chan struct{})
	o := newTestOrchestrator(svc, Options{})
	mustStart(t, o, aiConfig())
	mustPose(t, o)

	done := make(chan error, 1)
	go func() {
		_, err := o.SubmitAnswer(context.Background(), "just in time")
		done <- err
	}()
	<-svc.entered

	o.Tick()
	if o.Status() == models.StatusPaused {
		t.Fatalf("timeout won over an earlier submission")
	}
	close(svc.block)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.Status() != models.StatusComparisonMode {
		t.Fatalf("status=%s", o.Status())
	}
}

func TestSubmit_ServiceFailureKeepsAnswerForRetry(t *testing.T) {
	svc := newFakeService(3)
	svc.submitErrs = []error{errBackendDown, errBackendDown}
	rec := &recorder{}
	o := newTestOrchestrator(svc, Options{ServiceAttempts: 2, OnEvent: rec.record})
	mustStart(t, o, aiConfig())
	mustPose(t, o)

	ok, err := o.SubmitAnswer(context.Background(), "hello")
	if !ok || !utils.IsCode(err, utils.CodeService) {
		t.Fatalf("submit ok=%v err=%v", ok, err)
	}
	v := o.View()
	if v.Phase != models.PhaseAITurn || !v.Pending || v.Submitting || len(v.Answers) != 1 {
		t.Fatalf("after failure: %+v", v)
	}
	if rec.count(EventError) != 1 {
		t.Fatalf("error events=%d", rec.count(EventError))
	}
	if _, err := o.SubmitAnswer(context.Background(), "again"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("second submit err=%v", err)
	}

	if err := o.RetryPending(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	v = o.View()
	if v.Phase != models.PhaseInterviewerQuestion || v.Pending || v.CurrentIndex != 1 {
		t.Fatalf("after retry: %+v", v)
	}
	if len(svc.submitted) != 1 || svc.submitted[0].Answer != "hello" {
		t.Fatalf("submitted=%+v", svc.submitted)
	}
}

func TestOnAiTurnResult_EmptyResultNeedsRetry(t *testing.T) {
	svc := newFakeService(3)
	svc.empty = true
	o := newTestOrchestrator(svc, Options{})
	mustStart(t, o, aiConfig())
	mustPose(t, o)

	if _, err := o.SubmitAnswer(context.Background(), "hello"); !utils.IsCode(err, utils.CodeService) {
		t.Fatalf("err=%v, want SERVICE", err)
	}
	if o.Phase() != models.PhaseAITurn || o.View().Pending {
		t.Fatalf("view=%+v", o.View())
	}
	if err := o.RetryPending(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	_, submits, nexts := svc.counts()
	if submits != 1 || nexts != 1 {
		t.Fatalf("submits=%d nexts=%d", submits, nexts)
	}
	if o.Phase() != models.PhaseInterviewerQuestion || o.View().Question.ID != "q2" {
		t.Fatalf("not advanced: %+v", o.View())
	}
}

func TestOnAiTurnResult_LateDuplicateDoesNotAdvance(t *testing.T) {
	svc := newFakeService(3)
	o := newTestOrchestrator(svc, Options{})
	mustStart(t, o, aiConfig())
	mustPose(t, o)
	if _, err := o.SubmitAnswer(context.Background(), "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := o.View()

	q3 := svc.questions[2]
	if err := o.OnAiTurnResult(context.Background(), models.TurnResult{AIAnswer: "dup", NextQuestion: &q3}); err != nil {
		t.Fatalf("duplicate result: %v", err)
	}
	after := o.View()
	if after.CurrentIndex != before.CurrentIndex || len(after.Turns) != len(before.Turns) {
		t.Fatalf("duplicate advanced state: before=%+v after=%+v", before, after)
	}
}

func TestCompletion_ClearsSnapshot(t *testing.T) {
	svc := newFakeService(1)
	store, pm := memoryPersistence()
	rec := &recorder{}
	o := newTestOrchestrator(svc, Options{Persistence: pm, OnEvent: rec.record})
	mustStart(t, o, aiConfig())
	mustPose(t, o)
	if _, ok, _ := store.Load(context.Background(), persistence.DefaultKey); !ok {
		t.Fatalf("no snapshot while active")
	}

	if _, err := o.SubmitAnswer(context.Background(), "final answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.Status() != models.StatusCompleted || rec.count(EventCompleted) != 1 {
		t.Fatalf("not completed: %+v", o.View())
	}
	if _, ok, _ := store.Load(context.Background(), persistence.DefaultKey); ok {
		t.Fatalf("snapshot survived completion")
	}
	if err := o.Pause(); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("pause after completion err=%v", err)
	}
	if _, err := o.SubmitAnswer(context.Background(), "more"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("submit after completion err=%v", err)
	}
	if err := o.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok, _ := store.Load(context.Background(), persistence.DefaultKey); ok {
		t.Fatalf("close wrote a snapshot for a completed session")
	}
}

func recoverableSnapshot(svc *fakeService) models.Snapshot {
	cfg := aiConfig().WithDefaults()
	q1 := models.Question{ID: "old-1", Text: "Why this company?", Category: "hr", TimeLimit: 120}
	q2 := svc.questions[0]
	return models.Snapshot{
		SessionID: "sess-old",
		Config:    cfg,
		Questions: []models.Question{q1, q2},
		Answers: []models.Answer{
			{QuestionID: "old-1", Actor: models.ActorHuman, Content: "because"},
			{QuestionID: "old-1", Actor: models.ActorAI, Content: "ai because"},
		},
		Turns: []models.Turn{
			{ID: "1", Actor: models.ActorInterviewer, QuestionText: q1.Text, Category: "hr"},
			{ID: "2", Actor: models.ActorHuman, QuestionText: q1.Text, AnswerText: "because"},
			{ID: "3", Actor: models.ActorAI, QuestionText: q1.Text, AnswerText: "ai because"},
			{ID: "4", Actor: models.ActorInterviewer, QuestionText: q2.Text, Category: q2.Category},
		},
		CurrentIndex:     1,
		RemainingSeconds: 40,
		Status:           models.StatusPaused,
		Phase:            models.PhaseUserTurn,
	}
}

func TestStart_RecoversMatchingSnapshotWithFreshSession(t *testing.T) {
	svc := newFakeService(3)
	_, pm := memoryPersistence()
	pm.Snapshot(recoverableSnapshot(svc))
	o := newTestOrchestrator(svc, Options{Persistence: pm})

	res := mustStart(t, o, aiConfig())
	if !res.Recovered || res.SessionID != "sess-1" {
		t.Fatalf("result=%+v", res)
	}
	if starts, _, _ := svc.counts(); starts != 1 {
		t.Fatalf("fresh session not requested")
	}
	v := o.View()
	if v.Status != models.StatusPaused || v.CurrentIndex != 1 || v.Remaining != 40 {
		t.Fatalf("recovered view=%+v", v)
	}
	if len(v.Turns) != 4 || len(v.Answers) != 2 {
		t.Fatalf("history lost: turns=%d answers=%d", len(v.Turns), len(v.Answers))
	}

	if err := o.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	mustPose(t, o)
	if got := len(o.View().Turns); got != 4 {
		t.Fatalf("re-posed question duplicated: %d turns", got)
	}
}

// answeredFirstSnapshot has the service's own first question answered and its
// second question up next, as a session that restarts at question one sees it.
func answeredFirstSnapshot(svc *fakeService) models.Snapshot {
	q1, q2 := svc.questions[0], svc.questions[1]
	return models.Snapshot{
		SessionID: "sess-old",
		Config:    aiConfig().WithDefaults(),
		Questions: []models.Question{q1, q2},
		Answers: []models.Answer{
			{QuestionID: q1.ID, Actor: models.ActorHuman, Content: "old human", ElapsedSeconds: 30},
			{QuestionID: q1.ID, Actor: models.ActorAI, Content: "old ai"},
		},
		Turns: []models.Turn{
			{ID: "1", Actor: models.ActorInterviewer, QuestionText: q1.Text, Category: q1.Category},
			{ID: "2", Actor: models.ActorHuman, QuestionText: q1.Text, AnswerText: "old human"},
			{ID: "3", Actor: models.ActorAI, QuestionText: q1.Text, AnswerText: "old ai"},
			{ID: "4", Actor: models.ActorInterviewer, QuestionText: q2.Text, Category: q2.Category},
		},
		CurrentIndex: 1,
		Status:       models.StatusComparisonMode,
		Phase:        models.PhaseInterviewerQuestion,
	}
}

func TestStart_ReplaysAnsweredQuestionsIntoFreshSession(t *testing.T) {
	svc := newFakeService(3)
	_, pm := memoryPersistence()
	pm.Snapshot(answeredFirstSnapshot(svc))
	rec := &recorder{}
	o := newTestOrchestrator(svc, Options{Persistence: pm, OnEvent: rec.record})

	res := mustStart(t, o, aiConfig())
	if !res.Recovered || res.Question.ID != "q2" {
		t.Fatalf("result=%+v", res)
	}
	svc.mu.Lock()
	replayed := append([]models.SubmitTurnRequest(nil), svc.submitted...)
	svc.mu.Unlock()
	if len(replayed) != 1 || replayed[0].QuestionID != "q1" || replayed[0].Answer != "old human" || replayed[0].ElapsedSeconds != 30 {
		t.Fatalf("replayed=%+v", replayed)
	}

	mustPose(t, o)
	if ok, err := o.SubmitAnswer(context.Background(), "brand new answer"); !ok || err != nil {
		t.Fatalf("submit ok=%v err=%v", ok, err)
	}

	var human, ai bool
	for _, turn := range o.View().Turns {
		if turn.QuestionText != svc.questions[1].Text {
			continue
		}
		switch turn.Actor {
		case models.ActorHuman:
			human = turn.AnswerText == "brand new answer"
		case models.ActorAI:
			ai = turn.AnswerText == svc.aiAnswer
		}
	}
	if !human || !ai {
		t.Fatalf("answers to the second question missing: human=%v ai=%v turns=%+v", human, ai, o.View().Turns)
	}
	if n := rec.count(EventAIAnswer); n != 1 {
		t.Fatalf("ai answer events=%d", n)
	}
}

func TestStart_RestartsWhenReplayCompletesSession(t *testing.T) {
	svc := newFakeService(1)
	_, pm := memoryPersistence()
	snap := answeredFirstSnapshot(newFakeService(2))
	pm.Snapshot(snap)
	o := newTestOrchestrator(svc, Options{Persistence: pm})

	res := mustStart(t, o, aiConfig())
	if res.Recovered || res.SessionID != "sess-2" {
		t.Fatalf("result=%+v", res)
	}
	v := o.View()
	if len(v.Turns) != 0 || len(v.Answers) != 0 || v.CurrentIndex != 0 {
		t.Fatalf("history kept after restart: %+v", v)
	}
}

func TestStart_DiscardsSnapshotMissingMode(t *testing.T) {
	svc := newFakeService(3)
	store, pm := memoryPersistence()
	bad := recoverableSnapshot(svc)
	bad.Config.Mode = ""
	pm.Snapshot(bad)

	o := newTestOrchestrator(svc, Options{Persistence: pm})
	if o.Status() != models.StatusReady {
		t.Fatalf("status=%s", o.Status())
	}
	res := mustStart(t, o, aiConfig())
	if res.Recovered {
		t.Fatalf("invalid snapshot recovered")
	}
	v := o.View()
	if len(v.Turns) != 0 || v.Status != models.StatusComparisonMode {
		t.Fatalf("view=%+v", v)
	}
	snap, ok, _ := store.Load(context.Background(), persistence.DefaultKey)
	if !ok || snap.SessionID != "sess-1" {
		t.Fatalf("fresh snapshot not written: %+v", snap)
	}
}

func TestStart_ClearsSnapshotForOtherInterview(t *testing.T) {
	svc := newFakeService(3)
	_, pm := memoryPersistence()
	other := recoverableSnapshot(svc)
	other.Config.Company = "Globex"
	pm.Snapshot(other)

	o := newTestOrchestrator(svc, Options{Persistence: pm})
	if res := mustStart(t, o, aiConfig()); res.Recovered {
		t.Fatalf("snapshot for another company recovered")
	}
}

func TestSubmitAnswer_BlockedWhileSpeaking(t *testing.T) {
	synth := newBlockingSynth()
	sc := speech.NewCoordinator(synth, nil, speech.Options{})
	o := newTestOrchestrator(newFakeService(3), Options{Speech: sc})
	mustStart(t, o, standardConfig())

	posed := make(chan error, 1)
	go func() { posed <- o.PoseQuestion(context.Background()) }()
	u := <-synth.started
	if u.Persona != models.PersonaHR {
		t.Fatalf("persona=%s", u.Persona)
	}

	if _, err := o.SubmitAnswer(context.Background(), "eager"); !utils.IsCode(err, utils.CodeConflict) {
		t.Fatalf("submit while speaking err=%v", err)
	}
	close(synth.release)
	if err := <-posed; err != nil {
		t.Fatalf("pose: %v", err)
	}
	if o.Phase() != models.PhaseUserTurn {
		t.Fatalf("phase=%s", o.Phase())
	}
	if ok, err := o.SubmitAnswer(context.Background(), "now"); !ok || err != nil {
		t.Fatalf("submit ok=%v err=%v", ok, err)
	}
}

func TestAICompetition_ReadsAIAnswerAloud(t *testing.T) {
	synth := &instantSynth{}
	sc := speech.NewCoordinator(synth, nil, speech.Options{})
	svc := newFakeService(3)
	o := newTestOrchestrator(svc, Options{Speech: sc})
	mustStart(t, o, aiConfig())
	mustPose(t, o)
	if _, err := o.SubmitAnswer(context.Background(), "hello"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.spoken) != 2 {
		t.Fatalf("spoken=%+v", synth.spoken)
	}
	if synth.spoken[1].Persona != models.PersonaAI || synth.spoken[1].Text != svc.aiAnswer {
		t.Fatalf("ai utterance=%+v", synth.spoken[1])
	}
}

func TestPageHidden_FlushesPendingSnapshot(t *testing.T) {
	store := persistence.NewMemoryStore()
	pm := persistence.NewManager(store, persistence.Options{Debounce: time.Hour})
	o := newTestOrchestrator(newFakeService(3), Options{Persistence: pm})
	mustStart(t, o, aiConfig())
	mustPose(t, o)

	if _, ok, _ := store.Load(context.Background(), persistence.DefaultKey); ok {
		t.Fatalf("written before debounce elapsed")
	}
	if err := o.PageHidden(context.Background()); err != nil {
		t.Fatalf("page hidden: %v", err)
	}
	snap, ok, _ := store.Load(context.Background(), persistence.DefaultKey)
	if !ok || snap.Phase != models.PhaseUserTurn {
		t.Fatalf("snapshot=%+v ok=%v", snap, ok)
	}
}

func TestCamera_FailureReportedAsMediaEvent(t *testing.T) {
	rec := &recorder{}
	mm := media.NewManager(&camDevice{fail: true}, media.Options{MaxAttempts: 2, RetryBase: time.Millisecond})
	o := newTestOrchestrator(newFakeService(3), Options{Media: mm, OnEvent: rec.record})
	mustStart(t, o, aiConfig())

	err := o.StartCamera(context.Background(), nil)
	if !utils.IsCode(err, utils.CodeDeviceUnavailable) {
		t.Fatalf("err=%v", err)
	}
	if rec.count(EventMedia) != 1 || o.Status() != models.StatusComparisonMode {
		t.Fatalf("session disturbed by device failure: %+v", o.View())
	}
}

func TestClose_ReleasesCameraAndFlushes(t *testing.T) {
	dev := &camDevice{}
	mm := media.NewManager(dev, media.Options{RetryBase: time.Millisecond})
	store := persistence.NewMemoryStore()
	pm := persistence.NewManager(store, persistence.Options{Debounce: time.Hour})
	o := newTestOrchestrator(newFakeService(3), Options{Media: mm, Persistence: pm})
	mustStart(t, o, aiConfig())

	if err := o.StartCamera(context.Background(), nil); err != nil {
		t.Fatalf("camera: %v", err)
	}
	if err := o.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if dev.stream.track.State() != media.TrackEnded {
		t.Fatalf("camera track not stopped")
	}
	if _, ok, _ := store.Load(context.Background(), persistence.DefaultKey); !ok {
		t.Fatalf("close did not flush snapshot")
	}
	if err := o.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestClock_TicksAndStopsOnPause(t *testing.T) {
	svc := newFakeService(3)
	svc.questions[0].TimeLimit = 1000
	var mu sync.Mutex
	ticks := 0
	o := newTestOrchestrator(svc, Options{TickInterval: 2 * time.Millisecond, OnEvent: func(e Event) {
		if e.Type == EventTick {
			mu.Lock()
			ticks++
			mu.Unlock()
		}
	}})
	mustStart(t, o, aiConfig())
	mustPose(t, o)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := ticks
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("clock did not tick")
		}
		time.Sleep(time.Millisecond)
	}

	if err := o.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	frozen := o.View().Remaining
	time.Sleep(20 * time.Millisecond)
	if got := o.View().Remaining; got != frozen {
		t.Fatalf("clock ran while paused: %d -> %d", frozen, got)
	}
	_ = o.Close(context.Background())
}
