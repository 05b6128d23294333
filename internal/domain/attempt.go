package domain

import "time"

// AttemptStatus is the outcome of a single question.
type AttemptStatus string

const (
	StatusCorrect AttemptStatus = "correct"
	StatusWrong   AttemptStatus = "wrong"
	StatusTimeout AttemptStatus = "timeout"
	StatusSkipped AttemptStatus = "skipped"
)

// Valid reports whether s is one of the four recorded outcomes.
func (s AttemptStatus) Valid() bool {
	switch s {
	case StatusCorrect, StatusWrong, StatusTimeout, StatusSkipped:
		return true
	}
	return false
}

// Sentinel values stored in Attempt.Selected when no option was chosen.
const (
	SelectedTimeout = "__timeout__"
	SelectedSkipped = "__skipped__"
)

// DisplayedOption is an option exactly as it was shown to the user.
type DisplayedOption struct {
	Text     string `json:"text"`
	TextHi   string `json:"textHi,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Attempt is the single authoritative outcome record for a question in a group.
type Attempt struct {
	QuestionID       string            `json:"questionId"`
	DisplayID        string            `json:"displayId,omitempty"`
	Prompt           string            `json:"prompt,omitempty"`
	PromptHi         string            `json:"promptHi,omitempty"`
	Options          []DisplayedOption `json:"options"`
	Selected         string            `json:"selected"`
	CorrectOption    string            `json:"correctOption"`
	Status           AttemptStatus     `json:"status"`
	TimeTakenSeconds int               `json:"timeTakenSeconds"`
	Explanation      Explanation       `json:"explanation,omitempty"`
	RecordedAt       time.Time         `json:"recordedAt"`
}

// NewAttempt copies everything review needs out of the question so the
// attempt stays readable after the question list is gone.
func NewAttempt(q Question, shown []DisplayedOption, selected string, status AttemptStatus, taken int, at time.Time) Attempt {
	options := make([]DisplayedOption, len(shown))
	copy(options, shown)
	return Attempt{
		QuestionID:       q.ID,
		DisplayID:        q.DisplayID,
		Prompt:           q.Prompt,
		PromptHi:         q.PromptHi,
		Options:          options,
		Selected:         selected,
		CorrectOption:    q.CorrectOption,
		Status:           status,
		TimeTakenSeconds: taken,
		Explanation:      append(Explanation(nil), q.Explanation...),
		RecordedAt:       at,
	}
}

// DisplayOptions pairs primary and secondary language options in the given order.
// A nil order means input order.
func DisplayOptions(q Question, order []int) []DisplayedOption {
	if order == nil {
		order = make([]int, len(q.Options))
		for i := range order {
			order[i] = i
		}
	}
	out := make([]DisplayedOption, 0, len(order))
	for _, idx := range order {
		opt := DisplayedOption{Text: q.Options[idx]}
		if idx < len(q.OptionsHi) {
			opt.TextHi = q.OptionsHi[idx]
		}
		out = append(out, opt)
	}
	return out
}
