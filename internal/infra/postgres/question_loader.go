package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-runner/internal/domain"
)

// QuestionLoader loads question records from the questions table.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, filter domain.FilterCriteria) ([]domain.Question, error) {
	query, args := buildQuery(filter)
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// buildQuery turns the filter into a parameterised SELECT. Empty criteria
// match everything.
func buildQuery(filter domain.FilterCriteria) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if len(filter.Subjects) > 0 {
		add("subject = ANY($%d)", filter.Subjects)
	}
	if len(filter.Topics) > 0 {
		add("topic = ANY($%d)", filter.Topics)
	}
	if len(filter.ExamNames) > 0 {
		add("exam_name = ANY($%d)", filter.ExamNames)
	}
	if len(filter.Years) > 0 {
		years := make([]int32, len(filter.Years))
		for i, y := range filter.Years {
			years[i] = int32(y)
		}
		add("exam_year = ANY($%d)", years)
	}
	if len(filter.Difficulties) > 0 {
		add("difficulty = ANY($%d)", filter.Difficulties)
	}
	if len(filter.Tags) > 0 {
		add("tags && $%d", filter.Tags)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add("data->>'question' ILIKE $%d", "%"+q+"%")
	}

	query := "SELECT data FROM questions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY id", args
}
