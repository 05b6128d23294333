// Package importer converts question bank exports into the formats the
// service loads from: Postgres rows and the Supabase CSV layout.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"quiz-runner/internal/domain"
)

// CSVHeader is the column layout expected by the Supabase table importer.
var CSVHeader = []string{
	"v1_id", "subject", "topic", "subTopic", "examName", "examYear", "examDateShift",
	"difficulty", "questionType", "question", "question_hi",
	"options", "options_hi", "correct", "tags", "explanation",
}

// ReadQuestions decodes a JSON array of question records. A record that
// cannot be decoded or has no id is logged and skipped.
func ReadQuestions(r io.Reader, logger *slog.Logger) ([]domain.Question, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decode question array: %w", err)
	}
	questions := make([]domain.Question, 0, len(raw))
	skipped := 0
	for i, rec := range raw {
		var q domain.Question
		if err := json.Unmarshal(rec, &q); err != nil {
			logger.Warn("skipping question record", "index", i, "error", err)
			skipped++
			continue
		}
		if strings.TrimSpace(q.ID) == "" {
			logger.Warn("skipping question record", "index", i, "error", "missing id")
			skipped++
			continue
		}
		questions = append(questions, q)
	}
	return questions, skipped, nil
}

// ReadQuestionsFile opens path and calls ReadQuestions.
func ReadQuestionsFile(path string, logger *slog.Logger) ([]domain.Question, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return ReadQuestions(f, logger)
}

// WriteCSV writes questions in the Supabase CSV layout, prefixed with a UTF-8
// byte order mark, and returns the number of rows written.
func WriteCSV(w io.Writer, questions []domain.Question) (int, error) {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	count := 0
	for _, q := range questions {
		row, err := csvRow(q)
		if err != nil {
			return count, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if err := cw.Write(row); err != nil {
			return count, err
		}
		count++
	}
	cw.Flush()
	return count, cw.Error()
}

func csvRow(q domain.Question) ([]string, error) {
	explanation, err := json.Marshal(q.Explanation)
	if err != nil {
		return nil, err
	}
	year := ""
	if q.Source.ExamYear != 0 {
		year = strconv.Itoa(int(q.Source.ExamYear))
	}
	return []string{
		q.ID,
		q.Classification.Subject,
		q.Classification.Topic,
		q.Classification.SubTopic,
		q.Source.ExamName,
		year,
		q.Source.ExamDateShift,
		q.Properties.Difficulty,
		q.Properties.QuestionType,
		q.Prompt,
		q.PromptHi,
		PGArray(q.Options),
		PGArray(q.OptionsHi),
		q.CorrectOption,
		PGArray(q.Tags),
		string(explanation),
	}, nil
}

// PGArray renders items as a Postgres text array literal, e.g. {"a","b"}.
// Backslashes and double quotes inside items are escaped.
func PGArray(items []string) string {
	if len(items) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		item = strings.ReplaceAll(item, `\`, `\\`)
		item = strings.ReplaceAll(item, `"`, `\"`)
		b.WriteByte('"')
		b.WriteString(item)
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}
