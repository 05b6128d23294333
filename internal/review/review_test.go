package review

import (
	"errors"
	"testing"

	"quiz-runner/internal/domain"
)

func scenarioGroup() *domain.QuestionGroup {
	g := domain.NewQuestionGroup("Questions 1-3", []domain.Question{
		{ID: "his1", DisplayID: "HIS1"},
		{ID: "his2", DisplayID: "HIS2"},
		{ID: "pol1", DisplayID: "POL1"},
	})
	g.Attempts.Record(domain.Attempt{QuestionID: "his1", Status: domain.StatusCorrect, TimeTakenSeconds: 10})
	g.Attempts.Record(domain.Attempt{QuestionID: "his2", Status: domain.StatusTimeout, TimeTakenSeconds: 60})
	g.Attempts.Record(domain.Attempt{QuestionID: "pol1", Status: domain.StatusSkipped})
	return g
}

func TestSummarizeScenario(t *testing.T) {
	s := Summarize(scenarioGroup())
	want := Summary{Total: 3, Correct: 1, Timeout: 1, Skipped: 1, Attempted: 3, WrongOrTimeout: 1, AccuracyPct: 33.3}
	if s != want {
		t.Fatalf("got %+v want %+v", s, want)
	}
	if s.Correct+s.Wrong+s.Timeout+s.Skipped+s.Unattempted != s.Total {
		t.Fatalf("summary does not add up: %+v", s)
	}
}

func TestSummarizeCountsUnattempted(t *testing.T) {
	g := domain.NewQuestionGroup("g", []domain.Question{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})
	g.Attempts.Record(domain.Attempt{QuestionID: "a", Status: domain.StatusWrong})
	s := Summarize(g)
	if s.Unattempted != 3 || s.Wrong != 1 || s.AccuracyPct != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Correct+s.Wrong+s.Timeout+s.Skipped+s.Unattempted != s.Total {
		t.Fatalf("summary does not add up: %+v", s)
	}
}

func TestSummarizeNeverNegativeUnattempted(t *testing.T) {
	g := domain.NewQuestionGroup("g", []domain.Question{{ID: "a"}})
	g.Attempts.Record(domain.Attempt{QuestionID: "a", Status: domain.StatusCorrect})
	g.Attempts.Record(domain.Attempt{QuestionID: "ghost", Status: domain.StatusCorrect})
	s := Summarize(g)
	if s.Unattempted != 0 {
		t.Fatalf("expected unattempted clamped to 0, got %d", s.Unattempted)
	}
	if s.AccuracyPct != 100 {
		t.Fatalf("expected 100%% accuracy, got %v", s.AccuracyPct)
	}
}

func TestSummarizeIgnoresUnknownStatus(t *testing.T) {
	g := domain.NewQuestionGroup("g", []domain.Question{{ID: "a"}, {ID: "b"}})
	g.Attempts.Put(domain.Attempt{QuestionID: "a", Status: domain.StatusCorrect})
	g.Attempts.Put(domain.Attempt{QuestionID: "b", Status: "partial"})
	s := Summarize(g)
	if s.Attempted != 1 || s.Unattempted != 1 || s.AccuracyPct != 100 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Correct+s.Wrong+s.Timeout+s.Skipped+s.Unattempted != s.Total {
		t.Fatalf("summary does not add up: %+v", s)
	}
}

func TestMerge(t *testing.T) {
	a := Summary{Total: 3, Correct: 1, Timeout: 1, Skipped: 1, Attempted: 3}
	b := Summary{Total: 2, Correct: 2, Attempted: 2}
	s := Merge(a, b)
	if s.Total != 5 || s.Correct != 3 || s.AccuracyPct != 60 || s.Unattempted != 0 {
		t.Fatalf("unexpected merge %+v", s)
	}
}

func TestViewFilters(t *testing.T) {
	g := scenarioGroup()
	v := NewView(g.Attempts)
	if len(v.Attempts) != 3 {
		t.Fatalf("expected all 3 attempts, got %d", len(v.Attempts))
	}

	v.SetFilter(g.Attempts, FilterWrongOrTimeout, nil)
	if len(v.Attempts) != 1 || v.Attempts[0].QuestionID != "his2" {
		t.Fatalf("expected only his2, got %+v", v.Attempts)
	}

	v.SetFilter(g.Attempts, FilterBookmarked, map[string]bool{})
	if len(v.Attempts) != 0 {
		t.Fatalf("expected empty bookmarked view, got %d", len(v.Attempts))
	}
	if _, ok := v.Current(); ok {
		t.Fatalf("expected no current attempt in empty view")
	}

	v.SetFilter(g.Attempts, FilterBookmarked, map[string]bool{"pol1": true})
	if len(v.Attempts) != 1 || v.Attempts[0].QuestionID != "pol1" {
		t.Fatalf("expected pol1 bookmarked, got %+v", v.Attempts)
	}
}

func TestViewNavigateClamps(t *testing.T) {
	v := NewView(scenarioGroup().Attempts)
	v.Navigate(-1)
	if v.Cursor != 0 {
		t.Fatalf("expected cursor clamped at 0, got %d", v.Cursor)
	}
	v.Navigate(5)
	if v.Cursor != 2 {
		t.Fatalf("expected cursor clamped at 2, got %d", v.Cursor)
	}
	v.SetFilter(scenarioGroup().Attempts, FilterCorrect, nil)
	if v.Cursor != 0 {
		t.Fatalf("expected cursor reset on filter change")
	}
}

func TestParseFilterKind(t *testing.T) {
	if k, err := ParseFilterKind("wrong-or-timeout"); err != nil || k != FilterWrongOrTimeout {
		t.Fatalf("got %v %v", k, err)
	}
	if _, err := ParseFilterKind("nope"); !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
}
