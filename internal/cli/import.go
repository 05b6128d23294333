package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-runner/internal/config"
	"quiz-runner/internal/importer"
	pgstore "quiz-runner/internal/infra/postgres"
	infraredis "quiz-runner/internal/infra/redis"
)

// NewImportCmd loads a JSON question bank into Postgres, or converts it to
// the Supabase CSV layout with --csv.
func NewImportCmd(configPath *string) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "import <questions.json>",
		Short: "Import a JSON question bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath != "" {
				return convertToCSV(args[0], csvPath)
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return importToPostgres(cmd.Context(), cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "write a Supabase CSV file instead of importing into Postgres")
	return cmd
}

func convertToCSV(in, out string) error {
	logger := newLogger()
	questions, skipped, err := importer.ReadQuestionsFile(in, logger)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := importer.WriteCSV(f, questions)
	if err != nil {
		return err
	}
	logger.Info("converted questions", "count", n, "skipped", skipped, "file", out)
	return nil
}

func importToPostgres(ctx context.Context, cfg config.Config, in string) error {
	logger := newLogger()
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured; use --csv to convert offline")
	}
	questions, skipped, err := importer.ReadQuestionsFile(in, logger)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
		return err
	}

	db := openBunDB(cfg.Postgres.URL)
	defer db.Close()
	n, err := pgstore.NewQuestionWriter(db).Upsert(ctx, questions)
	if err != nil {
		return err
	}
	logger.Info("imported questions", "count", n, "skipped", skipped)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache := infraredis.NewQuestionRepository(client, nil, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
		if err := cache.Invalidate(ctx); err != nil {
			logger.Warn("question cache not cleared", "error", err)
		}
	}
	return nil
}
