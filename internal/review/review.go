// Package review computes group summaries and the filtered attempt views used
// to walk through results after a quiz.
package review

import (
	"fmt"
	"math"

	"quiz-runner/internal/domain"
)

// Summary aggregates the outcomes of one or more groups.
type Summary struct {
	Total          int     `json:"total"`
	Correct        int     `json:"correct"`
	Wrong          int     `json:"wrong"`
	Timeout        int     `json:"timeout"`
	Skipped        int     `json:"skipped"`
	Unattempted    int     `json:"unattempted"`
	WrongOrTimeout int     `json:"wrongOrTimeout"`
	Attempted      int     `json:"attempted"`
	AccuracyPct    float64 `json:"accuracyPct"`
}

// Summarize scores a single group from its ledger.
func Summarize(g *domain.QuestionGroup) Summary {
	s := Summary{Total: len(g.Questions)}
	if g.Attempts != nil {
		for _, a := range g.Attempts.All() {
			if s.count(a.Status) {
				s.Attempted++
			}
		}
	}
	s.finish()
	return s
}

// Merge combines per-group summaries into a session total.
func Merge(parts ...Summary) Summary {
	var s Summary
	for _, p := range parts {
		s.Total += p.Total
		s.Correct += p.Correct
		s.Wrong += p.Wrong
		s.Timeout += p.Timeout
		s.Skipped += p.Skipped
		s.Attempted += p.Attempted
	}
	s.finish()
	return s
}

// SummarizeAll scores every group and the session as a whole.
func SummarizeAll(groups []*domain.QuestionGroup) (Summary, []Summary) {
	per := make([]Summary, len(groups))
	for i, g := range groups {
		per[i] = Summarize(g)
	}
	return Merge(per...), per
}

// count adds status to its bucket. Unknown statuses are ignored so the
// buckets always add up to the total.
func (s *Summary) count(status domain.AttemptStatus) bool {
	switch status {
	case domain.StatusCorrect:
		s.Correct++
	case domain.StatusWrong:
		s.Wrong++
	case domain.StatusTimeout:
		s.Timeout++
	case domain.StatusSkipped:
		s.Skipped++
	default:
		return false
	}
	return true
}

func (s *Summary) finish() {
	s.Unattempted = max(0, s.Total-s.Attempted)
	s.WrongOrTimeout = s.Wrong + s.Timeout
	s.AccuracyPct = 0
	if s.Attempted > 0 {
		s.AccuracyPct = math.Round(float64(s.Correct)/float64(s.Attempted)*1000) / 10
	}
}

// FilterKind selects which attempts a review walk shows.
type FilterKind string

const (
	FilterAll            FilterKind = "all"
	FilterCorrect        FilterKind = "correct"
	FilterWrongOrTimeout FilterKind = "wrong-or-timeout"
	FilterSkipped        FilterKind = "skipped"
	FilterBookmarked     FilterKind = "bookmarked"
)

// ParseFilterKind validates a filter name.
func ParseFilterKind(raw string) (FilterKind, error) {
	switch k := FilterKind(raw); k {
	case FilterAll, FilterCorrect, FilterWrongOrTimeout, FilterSkipped, FilterBookmarked:
		return k, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidFilter, raw)
}

// View is a filtered, indexable list of attempts with a cursor. It is never persisted.
type View struct {
	Kind     FilterKind       `json:"kind"`
	Attempts []domain.Attempt `json:"attempts"`
	Cursor   int              `json:"cursor"`
}

// NewView returns an unfiltered view of the ledger.
func NewView(ledger *domain.Ledger) *View {
	v := &View{}
	v.SetFilter(ledger, FilterAll, nil)
	return v
}

// SetFilter recomputes the attempt list for kind and resets the cursor.
// An empty result is a valid state.
func (v *View) SetFilter(ledger *domain.Ledger, kind FilterKind, bookmarks map[string]bool) {
	v.Kind = kind
	v.Cursor = 0
	v.Attempts = v.Attempts[:0]
	if ledger == nil {
		return
	}
	for _, a := range ledger.All() {
		if keep(kind, a, bookmarks) {
			v.Attempts = append(v.Attempts, a)
		}
	}
}

func keep(kind FilterKind, a domain.Attempt, bookmarks map[string]bool) bool {
	switch kind {
	case FilterCorrect:
		return a.Status == domain.StatusCorrect
	case FilterWrongOrTimeout:
		return a.Status == domain.StatusWrong || a.Status == domain.StatusTimeout
	case FilterSkipped:
		return a.Status == domain.StatusSkipped
	case FilterBookmarked:
		return bookmarks[a.QuestionID]
	default:
		return true
	}
}

// Navigate moves the cursor by delta, clamped to the list bounds.
func (v *View) Navigate(delta int) {
	if len(v.Attempts) == 0 {
		v.Cursor = 0
		return
	}
	v.Cursor = min(max(v.Cursor+delta, 0), len(v.Attempts)-1)
}

// Current returns the attempt under the cursor.
func (v *View) Current() (domain.Attempt, bool) {
	if v.Cursor < 0 || v.Cursor >= len(v.Attempts) {
		return domain.Attempt{}, false
	}
	return v.Attempts[v.Cursor], true
}

// Clone returns a copy safe to hand to other goroutines.
func (v *View) Clone() *View {
	return &View{Kind: v.Kind, Cursor: v.Cursor, Attempts: append([]domain.Attempt{}, v.Attempts...)}
}
