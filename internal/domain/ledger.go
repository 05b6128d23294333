package domain

import (
	"encoding/json"
	"fmt"
)

// Ledger maps question IDs to their single authoritative Attempt. Iteration
// follows the order in which questions were first attempted.
type Ledger struct {
	order []string
	byID  map[string]Attempt
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]Attempt)}
}

// Record stores the attempt only when none exists for its question and
// reports whether it did. The first writer wins.
func (l *Ledger) Record(a Attempt) bool {
	if _, ok := l.byID[a.QuestionID]; ok {
		return false
	}
	l.Put(a)
	return true
}

// Put stores the attempt, replacing any prior record for the same question
// while keeping its original position.
func (l *Ledger) Put(a Attempt) {
	if l.byID == nil {
		l.byID = make(map[string]Attempt)
	}
	if _, ok := l.byID[a.QuestionID]; !ok {
		l.order = append(l.order, a.QuestionID)
	}
	l.byID[a.QuestionID] = a
}

func (l *Ledger) Get(questionID string) (Attempt, bool) {
	a, ok := l.byID[questionID]
	return a, ok
}

func (l *Ledger) Has(questionID string) bool {
	_, ok := l.byID[questionID]
	return ok
}

func (l *Ledger) Len() int {
	return len(l.order)
}

// All returns the attempts in first-attempt order.
func (l *Ledger) All() []Attempt {
	out := make([]Attempt, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for _, a := range l.All() {
		c.Put(a)
	}
	return c
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.All())
}

// UnmarshalJSON rebuilds the ledger with Put, so a snapshot that somehow
// holds duplicates collapses to one record per question. Attempts with an
// unknown status make the whole ledger unreadable.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var attempts []Attempt
	if err := json.Unmarshal(data, &attempts); err != nil {
		return err
	}
	l.order = nil
	l.byID = make(map[string]Attempt, len(attempts))
	for _, a := range attempts {
		if !a.Status.Valid() {
			return fmt.Errorf("attempt %s: unknown status %q", a.QuestionID, a.Status)
		}
		l.Put(a)
	}
	return nil
}
