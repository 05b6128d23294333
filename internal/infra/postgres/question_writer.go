package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-runner/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID         string          `bun:"id,pk"`
	DisplayID  string          `bun:"display_id"`
	Subject    string          `bun:"subject"`
	Topic      string          `bun:"topic"`
	ExamName   string          `bun:"exam_name"`
	ExamYear   int             `bun:"exam_year"`
	Difficulty string          `bun:"difficulty"`
	Tags       []string        `bun:"tags,array"`
	Data       domain.Question `bun:"data,type:jsonb"`
	UpdatedAt  time.Time       `bun:"updated_at"`
}

func newQuestionRow(q domain.Question, now time.Time) questionRow {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	return questionRow{
		ID:         q.ID,
		DisplayID:  q.DisplayID,
		Subject:    q.Classification.Subject,
		Topic:      q.Classification.Topic,
		ExamName:   q.Source.ExamName,
		ExamYear:   int(q.Source.ExamYear),
		Difficulty: q.Properties.Difficulty,
		Tags:       tags,
		Data:       q,
		UpdatedAt:  now,
	}
}

// QuestionWriter upserts question records into the questions table.
type QuestionWriter struct {
	db        *bun.DB
	batchSize int
}

func NewQuestionWriter(db *bun.DB) *QuestionWriter {
	return &QuestionWriter{db: db, batchSize: 500}
}

// Upsert inserts or replaces questions by id and returns how many rows were written.
func (w *QuestionWriter) Upsert(ctx context.Context, questions []domain.Question) (int, error) {
	now := time.Now().UTC()
	written := 0
	for start := 0; start < len(questions); start += w.batchSize {
		end := start + w.batchSize
		if end > len(questions) {
			end = len(questions)
		}
		rows := make([]questionRow, 0, end-start)
		for _, q := range questions[start:end] {
			rows = append(rows, newQuestionRow(q, now))
		}
		_, err := w.db.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO UPDATE").
			Set("display_id = EXCLUDED.display_id").
			Set("subject = EXCLUDED.subject").
			Set("topic = EXCLUDED.topic").
			Set("exam_name = EXCLUDED.exam_name").
			Set("exam_year = EXCLUDED.exam_year").
			Set("difficulty = EXCLUDED.difficulty").
			Set("tags = EXCLUDED.tags").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return written, fmt.Errorf("upsert questions %d-%d: %w", start, end, err)
		}
		written += len(rows)
	}
	return written, nil
}
