package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-runner/internal/app"
	"quiz-runner/internal/config"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/memory"
	pgstore "quiz-runner/internal/infra/postgres"
	infraredis "quiz-runner/internal/infra/redis"
	"quiz-runner/internal/infra/sqlite"
	transport "quiz-runner/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	kv, closeKV, err := openKVStore(ctx, cfg, redisClient, redisTTL)
	if err != nil {
		return err
	}
	defer closeKV()

	loader, closeLoader, err := openQuestionLoader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = infraredis.NewQuestionRepository(redisClient, loader, quizTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	defaultSettings := domain.DefaultSettings()
	defaultSettings.Shuffle = cfg.Quiz.Shuffle
	store := app.NewPersistence(kv, logger).WithDefaultSettings(defaultSettings)

	service := app.NewQuizService(sessions, questions, store, domain.SessionConfig{
		GroupSize:          cfg.Quiz.GroupSize,
		PerQuestionSeconds: cfg.Quiz.PerQuestionSeconds,
	}, app.WithLogger(logger))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, cfg.CORS.Origins, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openKVStore(ctx context.Context, cfg config.Config, client *redis.Client, ttl time.Duration) (app.KVStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverRedis:
		return infraredis.NewKVStore(client, ttl), func() {}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return memory.NewKVStore(), func() {}, nil
	}
}

// openQuestionLoader prefers Postgres, then a JSON file, then the built-in sample bank.
func openQuestionLoader(ctx context.Context, cfg config.Config) (memory.QuestionLoader, func(), error) {
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewQuestionLoader(pool), pool.Close, nil
	}
	if cfg.Quiz.QuestionsFile != "" {
		qs, err := memory.LoadQuestionsFile(cfg.Quiz.QuestionsFile)
		if err != nil {
			return nil, nil, err
		}
		return memory.NewStaticQuestionLoader(qs), func() {}, nil
	}
	return memory.NewStaticQuestionLoader(sampleQuestions()), func() {}, nil
}

// sampleQuestions is a tiny bank for demos; configure postgres.url or quiz.questionsFile in production.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:             "sample-his-1",
			DisplayID:      "HIS1",
			Classification: domain.Classification{Subject: "History", Topic: "Ancient India"},
			Prompt:         "Who founded the Maurya empire?",
			Options:        []string{"Ashoka", "Chandragupta Maurya", "Bindusara", "Bimbisara"},
			CorrectOption:  "Chandragupta Maurya",
			Explanation:    domain.Explanation{{Name: "summary", Body: "Chandragupta Maurya founded the empire around 322 BCE."}},
		},
		{
			ID:             "sample-his-2",
			DisplayID:      "HIS2",
			Classification: domain.Classification{Subject: "History", Topic: "Ancient India"},
			Prompt:         "Which Harappan site had a dockyard?",
			Options:        []string{"Mohenjo-daro", "Lothal", "Kalibangan", "Banawali"},
			CorrectOption:  "Lothal",
		},
		{
			ID:             "sample-pol-1",
			DisplayID:      "POL1",
			Classification: domain.Classification{Subject: "Polity", Topic: "Constitution"},
			Prompt:         "How many fundamental duties does the Constitution list?",
			Options:        []string{"10", "11", "12", "9"},
			CorrectOption:  "11",
		},
	}
}
