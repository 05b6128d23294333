package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// FilterCriteria describes how the input question list was selected. The
// engine keeps it only to rebuild display headers on resume.
type FilterCriteria struct {
	Subjects     []string `json:"subjects,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	ExamNames    []string `json:"examNames,omitempty"`
	Years        []int    `json:"years,omitempty"`
	Difficulties []string `json:"difficulties,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Query        string   `json:"query,omitempty"`
}

// Matches reports whether q satisfies every non-empty criterion.
func (f FilterCriteria) Matches(q Question) bool {
	if len(f.Subjects) > 0 && !containsFold(f.Subjects, q.Classification.Subject) {
		return false
	}
	if len(f.Topics) > 0 && !containsFold(f.Topics, q.Classification.Topic) {
		return false
	}
	if len(f.ExamNames) > 0 && !containsFold(f.ExamNames, q.Source.ExamName) {
		return false
	}
	if len(f.Years) > 0 && !slices.Contains(f.Years, int(q.Source.ExamYear)) {
		return false
	}
	if len(f.Difficulties) > 0 && !containsFold(f.Difficulties, q.Properties.Difficulty) {
		return false
	}
	if len(f.Tags) > 0 {
		hit := false
		for _, tag := range q.Tags {
			if containsFold(f.Tags, tag) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.Query != "" {
		needle := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(q.Prompt), needle) &&
			!strings.Contains(strings.ToLower(q.PromptHi), needle) {
			return false
		}
	}
	return true
}

// Key is a stable cache key for the criteria.
func (f FilterCriteria) Key() string {
	years := make([]string, len(f.Years))
	for i, y := range f.Years {
		years[i] = strconv.Itoa(y)
	}
	parts := []string{
		joinSorted(f.Subjects),
		joinSorted(f.Topics),
		joinSorted(f.ExamNames),
		joinSorted(years),
		joinSorted(f.Difficulties),
		joinSorted(f.Tags),
		strings.ToLower(f.Query),
	}
	return strings.Join(parts, "|")
}

// Header is the human-readable title shown above a session.
func (f FilterCriteria) Header() string {
	var parts []string
	if len(f.Subjects) > 0 {
		parts = append(parts, strings.Join(f.Subjects, ", "))
	}
	if len(f.Topics) > 0 {
		parts = append(parts, strings.Join(f.Topics, ", "))
	}
	if len(f.ExamNames) > 0 {
		parts = append(parts, strings.Join(f.ExamNames, ", "))
	}
	if len(parts) == 0 {
		return "All questions"
	}
	return strings.Join(parts, " / ")
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func joinSorted(in []string) string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	slices.Sort(out)
	return strings.Join(out, ",")
}

// SessionConfig carries the per-session knobs.
type SessionConfig struct {
	GroupSize          int  `json:"groupSize" validate:"min=1"`
	PerQuestionSeconds int  `json:"perQuestionSeconds" validate:"min=1"`
	ShuffleEnabled     bool `json:"shuffleEnabled"`
}

// DefaultSessionConfig mirrors the defaults of the config file.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{GroupSize: 50, PerQuestionSeconds: 60}
}

// Validate checks the knobs are usable.
func (c SessionConfig) Validate() error {
	return validate.Struct(c)
}

// SessionSnapshot is the persisted session record.
type SessionSnapshot struct {
	ID                string           `json:"id"`
	IsActive          bool             `json:"isActive"`
	Groups            []*QuestionGroup `json:"groups"`
	CurrentGroupIndex int              `json:"currentGroupIndex"`
	Filter            FilterCriteria   `json:"filter"`
	Config            SessionConfig    `json:"config"`
	SavedAt           time.Time        `json:"savedAt"`
}
