package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-runner/internal/app"
	"quiz-runner/internal/clock"
	"quiz-runner/internal/domain"
	pgstore "quiz-runner/internal/infra/postgres"
	pgmigrations "quiz-runner/internal/infra/postgres/migrations"
	infraredis "quiz-runner/internal/infra/redis"
)

func TestQuestionBankToSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuestionLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	questionRepo := infraredis.NewQuestionRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	store := app.NewPersistence(infraredis.NewKVStore(redisClient, time.Hour), nil)
	manual := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	service := app.NewQuizService(sessionStore, questionRepo, store, domain.DefaultSessionConfig(), app.WithClock(manual))

	engine, err := service.Start(ctx, "p1", app.StartRequest{Filter: domain.FilterCriteria{Subjects: []string{"History"}}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	v, ok := engine.Current()
	if !ok || v.DisplayID != "HIS1" {
		t.Fatalf("expected HIS1 first, got %+v", v)
	}
	manual.Advance(5 * time.Second)
	a, err := engine.Answer(1)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if a.Status != domain.StatusCorrect || a.TimeTakenSeconds != 5 {
		t.Fatalf("expected correct answer in 5s, got %s in %d", a.Status, a.TimeTakenSeconds)
	}

	snap, err := store.LoadSession(ctx, "p1")
	if err != nil {
		t.Fatalf("load snapshot from redis: %v", err)
	}
	if snap.Groups[0].Attempts.Len() != 1 {
		t.Fatalf("expected one attempt in snapshot, got %d", snap.Groups[0].Attempts.Len())
	}

	if _, err := engine.GoNext(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := engine.SubmitGroup(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	summary, _ := engine.Summary()
	if summary.Total != 2 || summary.Correct != 1 || summary.Skipped != 1 || summary.AccuracyPct != 50 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, err := store.LoadSession(ctx, "p1"); !errors.Is(err, domain.ErrNothingToResume) {
		t.Fatalf("expected snapshot cleared at session end, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	n, err := pgstore.NewQuestionWriter(db).Upsert(ctx, questions)
	if err != nil {
		t.Fatalf("upsert questions: %v", err)
	}
	if n != len(questions) {
		t.Fatalf("expected %d rows, got %d", len(questions), n)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: "q2", DisplayID: "HIS2",
			Classification: domain.Classification{Subject: "History"},
			Prompt:         "Which Harappan site had a dockyard?",
			Options:        []string{"Mohenjo-daro", "Lothal"},
			CorrectOption:  "Lothal",
		},
		{
			ID: "q1", DisplayID: "HIS1",
			Classification: domain.Classification{Subject: "History"},
			Prompt:         "Who founded the Maurya empire?",
			Options:        []string{"Ashoka", "Chandragupta Maurya"},
			CorrectOption:  "Chandragupta Maurya",
			Tags:           []string{"dynasty"},
			Explanation:    domain.Explanation{{Name: "summary", Body: "322 BCE."}},
		},
		{
			ID: "q3", DisplayID: "POL1",
			Classification: domain.Classification{Subject: "Polity"},
			Prompt:         "How many fundamental duties are listed?",
			Options:        []string{"10", "11"},
			CorrectOption:  "11",
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
