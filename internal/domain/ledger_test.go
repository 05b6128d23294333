package domain

import (
	"encoding/json"
	"testing"
)

func TestLedgerRecordKeepsFirstAttempt(t *testing.T) {
	l := NewLedger()

	if !l.Record(Attempt{QuestionID: "q1", Status: StatusCorrect, TimeTakenSeconds: 59}) {
		t.Fatalf("expected first record to be stored")
	}
	if l.Record(Attempt{QuestionID: "q1", Status: StatusTimeout, TimeTakenSeconds: 60}) {
		t.Fatalf("expected second record to be ignored")
	}

	if l.Len() != 1 {
		t.Fatalf("expected 1 attempt, got %d", l.Len())
	}
	got, _ := l.Get("q1")
	if got.Status != StatusCorrect || got.TimeTakenSeconds != 59 {
		t.Fatalf("expected first attempt to win, got %+v", got)
	}
}

func TestLedgerPutReplacesInPlace(t *testing.T) {
	l := NewLedger()
	l.Put(Attempt{QuestionID: "q1", Status: StatusWrong})
	l.Put(Attempt{QuestionID: "q2", Status: StatusCorrect})
	l.Put(Attempt{QuestionID: "q1", Status: StatusCorrect})

	all := l.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(all))
	}
	if all[0].QuestionID != "q1" || all[0].Status != StatusCorrect {
		t.Fatalf("expected q1 replaced at its original position, got %+v", all[0])
	}
}

func TestLedgerJSONCollapsesDuplicates(t *testing.T) {
	raw := []byte(`[{"questionId":"q1","status":"wrong"},{"questionId":"q2","status":"skipped"},{"questionId":"q1","status":"correct"}]`)

	var l Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("expected duplicates collapsed to 2 attempts, got %d", l.Len())
	}
	if a, _ := l.Get("q1"); a.Status != StatusCorrect {
		t.Fatalf("expected last duplicate to replace, got %s", a.Status)
	}

	out, err := json.Marshal(&l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back []Attempt
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(back) != 2 || back[0].QuestionID != "q1" || back[1].QuestionID != "q2" {
		t.Fatalf("unexpected encoded order: %+v", back)
	}
}

func TestLedgerJSONRejectsUnknownStatus(t *testing.T) {
	raw := []byte(`[{"questionId":"q1","status":"correct"},{"questionId":"q2","status":"partial"}]`)

	var l Ledger
	if err := json.Unmarshal(raw, &l); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestGroupResumeIndex(t *testing.T) {
	g := NewQuestionGroup("Questions 1-3", []Question{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if g.ResumeIndex() != 0 {
		t.Fatalf("expected fresh group to resume at 0, got %d", g.ResumeIndex())
	}

	g.Attempts.Record(Attempt{QuestionID: "a"})
	g.Attempts.Record(Attempt{QuestionID: "c"})
	if g.ResumeIndex() != 1 {
		t.Fatalf("expected resume at first unattempted (1), got %d", g.ResumeIndex())
	}

	g.Attempts.Record(Attempt{QuestionID: "b"})
	if !g.IsComplete() {
		t.Fatalf("expected group complete")
	}
	if g.ResumeIndex() != 2 {
		t.Fatalf("expected complete group to resume on last question, got %d", g.ResumeIndex())
	}
}
