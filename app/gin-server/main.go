package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/routes"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/event"
	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/providers/llm"
	"github.com/yoockh/yoointerview/internal/providers/stt"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	settings, err := config.LoadSettings()
	if err != nil {
		log.WithError(err).Fatal("invalid settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	mdb, err := config.MongoDatabase(settings.MongoDB)
	if err != nil {
		log.WithError(err).Fatal("MongoDB database error")
	}
	if err := config.EnsureMongoIndexes(mdb); err != nil {
		log.WithError(err).Warn("MongoDB index creation failed")
	}
	log.Info("MongoDB connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	rdb := config.RedisClient
	log.Info("Redis connected")

	// Postgres holds the transcript archive and candidate profiles; without it
	// the service runs with neither.
	var (
		convSvc    services.ConversationService
		profileSvc services.ProfileService
	)
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Warn("PostgreSQL unavailable, transcripts and profiles disabled")
	} else if err := config.EnsureConversationSchema(config.PostgresDB); err != nil {
		log.WithError(err).Warn("conversation schema migration failed, transcripts disabled")
		profileSvc = services.NewProfileService(pgrepo.NewProfileRepo(config.PostgresDB))
	} else {
		convSvc = services.NewConversationService(pgrepo.NewConversationRepo(config.PostgresDB))
		profileSvc = services.NewProfileService(pgrepo.NewProfileRepo(config.PostgresDB))
		log.Info("PostgreSQL connected")
	}

	var provider llm.Provider
	if settings.VertexProject != "" {
		v, err := llm.NewVertexGemini(ctx, settings.VertexProject, settings.VertexLocation, llm.VertexOptions{
			Model:           settings.VertexModel,
			Temperature:     0.7,
			MaxOutputTokens: 512,
		})
		if err != nil {
			log.WithError(err).Warn("Vertex AI unavailable, using the built-in question bank")
		} else {
			provider = v
			defer v.Close()
		}
	} else {
		log.Info("VERTEX_PROJECT not set, using the built-in question bank")
	}

	publisher, err := event.NewEventPublisher(settings.RabbitMQURI, logger.For(log, "events"))
	if err != nil {
		log.WithError(err).Warn("RabbitMQ unavailable, event publishing disabled")
		publisher, _ = event.NewEventPublisher("", logger.For(log, "events"))
	}
	defer publisher.Close()

	interviewSvc := services.NewInterviewService(services.InterviewDeps{
		Records:               mongorepo.NewInterviewRepo(mdb),
		Generator:             services.NewQuestionGenerator(provider, logger.For(log, "questions")),
		Conversations:         convSvc,
		Profiles:              profileSvc,
		Cache:                 cache.NewRedisCache(rdb, "yoointerview:"),
		Events:                publisher,
		Logger:                log,
		QuestionsPerInterview: settings.QuestionsPerInterview,
		CacheTTL:              settings.RecordCacheTTL,
	})

	queue := workers.NewStreamQueue(rdb, "")
	dictationSvc := services.NewDictationService(mongorepo.NewBufferRepo(mdb), queue, settings.DictationBufferTTL)

	speech, err := stt.NewGoogleSpeech(ctx, stt.SpeechOptions{})
	if err != nil {
		log.WithError(err).Warn("Google Speech unavailable, dictation chunks will stay queued")
	} else {
		defer speech.Close()
		pool := &workers.DictationWorkerPool{
			Redis:      rdb,
			Dictation:  dictationSvc,
			STT:        speech,
			NumWorkers: settings.DictationWorkers,
			Logger:     log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("dictation workers failed to start")
		}
	}

	deps := routes.Deps{
		Interview: handlers.NewInterviewHandler(interviewSvc),
		WS:        handlers.NewWSHandler(interviewSvc, dictationSvc, rdb, log, originChecker(settings.CORSOrigins)),
		Logger:    log,

		CORSOrigins: settings.CORSOrigins,
	}
	if convSvc != nil {
		deps.Conversation = handlers.NewConversationHandler(convSvc)
	}

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", settings.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	if err := config.MongoClient.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Warn("MongoDB disconnect failed")
	}
	_ = rdb.Close()
}

// originChecker mirrors the CORS allow-list for websocket upgrades. An empty
// list accepts every origin.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
