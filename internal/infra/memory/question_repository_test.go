package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-runner/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(loader, time.Minute)
	history := domain.FilterCriteria{Subjects: []string{"History"}}

	qs, err := repo.ListQuestions(context.Background(), history)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 history questions, got %d", len(qs))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.ListQuestions(context.Background(), history); err != nil {
		t.Fatalf("list questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	if _, err := repo.ListQuestions(context.Background(), domain.FilterCriteria{}); err != nil {
		t.Fatalf("list all: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected a different filter to miss the cache, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Unix(1000, 0)
	repo.clock = func() time.Time { return now }

	_, _ = repo.ListQuestions(context.Background(), domain.FilterCriteria{})
	now = now.Add(2 * time.Minute)
	_, _ = repo.ListQuestions(context.Background(), domain.FilterCriteria{})
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestLoadQuestionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	raw := `[{"id":"q1","displayId":"HIS1","question":"Q?","options":["A","B"],"correct":"A","explanation":{"summary":"because"}}]`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	qs, err := LoadQuestionsFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(qs) != 1 || qs[0].DisplayID != "HIS1" || len(qs[0].Explanation) != 1 {
		t.Fatalf("unexpected questions %+v", qs)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, filter domain.FilterCriteria) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, filter)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:             "q1",
			DisplayID:      "HIS1",
			Classification: domain.Classification{Subject: "History"},
			Prompt:         "Who founded the Maurya empire?",
			Options:        []string{"Ashoka", "Chandragupta Maurya", "Bindusara"},
			CorrectOption:  "Chandragupta Maurya",
		},
		{
			ID:             "q2",
			DisplayID:      "HIS2",
			Classification: domain.Classification{Subject: "History"},
			Prompt:         "In which year was the Battle of Plassey fought?",
			Options:        []string{"1757", "1764", "1857"},
			CorrectOption:  "1757",
		},
		{
			ID:             "q3",
			DisplayID:      "POL1",
			Classification: domain.Classification{Subject: "Polity"},
			Prompt:         "How many fundamental duties are listed?",
			Options:        []string{"10", "11", "12"},
			CorrectOption:  "11",
		},
	}
}
