package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/client/interviewapi"
	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/orchestrator"
	"github.com/yoockh/yoointerview/internal/orchestrator/persistence"
	"github.com/yoockh/yoointerview/internal/orchestrator/speech"
)

var (
	startCfg  models.InterviewConfig
	startMode string
	apiURL    string
	wordDelay time.Duration
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start or resume a rehearsal",
	Long: `Starts a mock interview for the given company and position.

If a saved rehearsal exists for the same company, position, mode and
difficulty, its answered questions are restored and the interview continues.
A saved rehearsal for a different interview is discarded.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	f := startCmd.Flags()
	f.StringVar(&startCfg.Company, "company", "", "Company you are interviewing with (required)")
	f.StringVar(&startCfg.Position, "position", "", "Position you are applying for (required)")
	f.StringVar(&startMode, "mode", string(models.ModeStandard), "standard, personalized, ai_competition or text_competition")
	f.StringVar(&startCfg.Difficulty, "difficulty", "medium", "easy, medium or hard")
	f.StringVar(&startCfg.CandidateName, "name", "", "Your name, used by the interviewer")
	f.StringVar(&startCfg.Language, "language", "en", "Interview language: en or id")
	f.StringVar(&startCfg.UserID, "user", "", "Profile owner for personalized mode")
	f.StringVar(&apiURL, "api", envOr("YOOINTERVIEW_API", "http://localhost:8080"), "Interview API base URL")
	f.DurationVar(&wordDelay, "word-delay", 60*time.Millisecond, "Reading pace of the interviewer per word")
	rootCmd.AddCommand(startCmd)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runStart(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	log := newLogger(cmd.ErrOrStderr())

	st, closeStore, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := interviewapi.New(apiURL)
	if err != nil {
		return err
	}

	cfg := startCfg
	cfg.Mode = models.InterviewMode(startMode)

	out := &lockedWriter{w: cmd.OutOrStdout()}
	r := &renderer{out: out, mode: cfg.Mode}

	coord := speech.NewCoordinator(speech.NewConsoleSynthesizer(out, wordDelay), nil, speech.Options{
		Language: languageTag(cfg.Language),
		Logger:   logger.For(log, "speech"),
	})
	pm := persistence.NewManager(st, persistence.Options{
		Debounce: settings.SnapshotDebounce,
		Logger:   logger.For(log, "persistence"),
	})

	orc := orchestrator.New(client, orchestrator.Options{
		Speech:          coord,
		Persistence:     pm,
		Logger:          logger.For(log, "orchestrator"),
		TickInterval:    settings.TickInterval,
		ServiceAttempts: settings.ServiceAttempts,
		OnEvent:         r.onEvent,
	})
	defer func() {
		if err := orc.Close(context.Background()); err != nil {
			log.WithError(err).Warn("final snapshot failed")
		}
	}()

	res, err := orc.Start(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s at %s (%s)", cfg.Position, cfg.Company, cfg.Mode)))
	if res.Recovered {
		answered, _ := orc.Progress()
		fmt.Fprintln(out, noticeStyle.Render(fmt.Sprintf("Resumed your saved rehearsal, %d turns already answered.", answered)))
		if orc.Status() == models.StatusPaused {
			fmt.Fprintln(out, noticeStyle.Render("It was paused. Type /resume to continue."))
		}
	}
	fmt.Fprintln(out, mutedStyle.Render("Type /help for commands."))

	s := &session{orc: orc, out: out}
	return s.run(ctx, cmd.InOrStdin())
}

func languageTag(lang string) string {
	if lang == "id" {
		return "id-ID"
	}
	return "en-US"
}
