package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/orchestrator"
	"github.com/yoockh/yoointerview/internal/utils"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	aiStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginTop(1)
)

type inputKind int

const (
	inputEmpty inputKind = iota
	inputAnswer
	inputPause
	inputResume
	inputRetry
	inputProgress
	inputQuit
	inputHelp
	inputUnknown
)

// parseInput splits a typed line into a slash command or an answer.
func parseInput(line string) (inputKind, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return inputEmpty, ""
	}
	if !strings.HasPrefix(line, "/") {
		return inputAnswer, line
	}
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/pause":
		return inputPause, ""
	case "/resume":
		return inputResume, ""
	case "/retry":
		return inputRetry, ""
	case "/progress":
		return inputProgress, ""
	case "/quit", "/exit":
		return inputQuit, ""
	case "/help":
		return inputHelp, ""
	}
	return inputUnknown, line
}

// lockedWriter serializes output from the input loop, the ticking clock and
// the synthesizer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// renderer turns orchestrator events into terminal output.
type renderer struct {
	out  io.Writer
	mode models.InterviewMode
}

var tickMarks = map[int]bool{60: true, 30: true, 10: true, 5: true}

func (r *renderer) onEvent(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventPhase:
		if e.Phase == models.PhaseUserTurn {
			fmt.Fprintln(r.out, noticeStyle.Render(fmt.Sprintf("Your turn, %ds on the clock.", e.Remaining)))
		}
	case orchestrator.EventTick:
		if tickMarks[e.Remaining] {
			fmt.Fprintln(r.out, noticeStyle.Render(fmt.Sprintf("%ds left", e.Remaining)))
		}
	case orchestrator.EventTimeout:
		fmt.Fprintln(r.out, noticeStyle.Render("Time is up. Type /resume to finish your answer."))
	case orchestrator.EventStatus:
		if e.Status == models.StatusPaused {
			fmt.Fprintln(r.out, noticeStyle.Render("Paused."))
		}
	case orchestrator.EventAIAnswer:
		// ai_competition reads the answer aloud through the synthesizer
		if r.mode == models.ModeTextCompetition {
			fmt.Fprintf(r.out, "%s\n  %s\n", aiStyle.Render("AI candidate"), e.Text)
		}
	case orchestrator.EventCompleted:
		fmt.Fprintln(r.out, headerStyle.Render("Interview complete."))
	case orchestrator.EventError:
		msg := errorStyle.Render(describe(e.Err))
		if e.Phase == models.PhaseAITurn {
			msg += " " + noticeStyle.Render("Type /retry to send your answer again.")
		}
		fmt.Fprintln(r.out, msg)
	case orchestrator.EventMedia:
		if e.Err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("camera: "+describe(e.Err)))
		}
	}
}

func describe(err error) string {
	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

type session struct {
	orc *orchestrator.Orchestrator
	out io.Writer
}

// run drives the rehearsal from typed input until it completes, the input
// ends, or the user quits. Leaving early flushes the snapshot.
func (s *session) run(ctx context.Context, in io.Reader) error {
	lines := scanLines(in)
	for {
		switch s.orc.Status() {
		case models.StatusCompleted:
			s.summary()
			return nil
		case models.StatusActive, models.StatusComparisonMode:
			if s.orc.Phase() == models.PhaseInterviewerQuestion {
				if err := s.orc.PoseQuestion(ctx); err != nil {
					s.fail(err)
				}
			}
		}

		fmt.Fprint(s.out, promptStyle.Render("> "))
		var line string
		select {
		case <-ctx.Done():
			return s.leave()
		case l, ok := <-lines:
			if !ok {
				return s.leave()
			}
			line = l
		}

		kind, text := parseInput(line)
		var err error
		switch kind {
		case inputEmpty:
			continue
		case inputQuit:
			return s.leave()
		case inputPause:
			err = s.orc.Pause()
		case inputResume:
			err = s.orc.Resume(ctx)
		case inputRetry:
			err = s.orc.RetryPending(ctx)
		case inputProgress:
			answered, total := s.orc.Progress()
			fmt.Fprintf(s.out, "%d of %d turns answered\n", answered, total)
		case inputHelp:
			fmt.Fprintln(s.out, helpText)
		case inputUnknown:
			fmt.Fprintln(s.out, errorStyle.Render("unknown command "+text))
		case inputAnswer:
			var accepted bool
			accepted, err = s.orc.SubmitAnswer(ctx, text)
			if err == nil && !accepted {
				fmt.Fprintln(s.out, noticeStyle.Render("Still sending your previous answer."))
			}
		}
		// delivery errors were already rendered from the error event
		if err != nil && !utils.IsCode(err, utils.CodeService) {
			s.fail(err)
		}
	}
}

const helpText = `Type your answer and press enter.
  /pause     stop the clock
  /resume    continue a paused or timed-out question
  /retry     resend an answer that failed to reach the server
  /progress  show how many turns are answered
  /quit      save and leave; start the same interview again to resume`

func (s *session) fail(err error) {
	fmt.Fprintln(s.out, errorStyle.Render(describe(err)))
}

func (s *session) leave() error {
	if err := s.orc.PageHidden(context.Background()); err != nil {
		return fmt.Errorf("save rehearsal: %w", err)
	}
	fmt.Fprintln(s.out, noticeStyle.Render("Progress saved. Run the same start command to continue."))
	return nil
}

func (s *session) summary() {
	v := s.orc.View()
	for _, t := range v.Turns {
		switch t.Actor {
		case models.ActorHuman:
			fmt.Fprintf(s.out, "%s\n  Q: %s\n  A: %s\n", promptStyle.Render("You"), t.QuestionText, t.AnswerText)
		case models.ActorAI:
			fmt.Fprintf(s.out, "%s\n  A: %s\n", aiStyle.Render("AI candidate"), t.AnswerText)
		}
	}
}

func scanLines(in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}
