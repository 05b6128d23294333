package domain

// QuestionGroup is a fixed-size contiguous slice of the filtered question set,
// navigated and scored on its own.
type QuestionGroup struct {
	Name            string              `json:"name"`
	Questions       []Question          `json:"questions"`
	WorkingOrder    []string            `json:"workingOrder"`
	Attempts        *Ledger             `json:"attempts"`
	MarkedForReview map[string]bool     `json:"markedForReview,omitempty"`
	// Lifelines holds, per question, the option texts the lifeline disabled.
	Lifelines       map[string][]string `json:"lifelines,omitempty"`
	IsExpanded      bool                `json:"isExpanded"`
	CurrentIndex    int                 `json:"currentIndex"`
	Visited         bool                `json:"visited"`

	byID map[string]int
}

// NewQuestionGroup builds a group whose working order is the input order.
func NewQuestionGroup(name string, questions []Question) *QuestionGroup {
	qs := make([]Question, len(questions))
	copy(qs, questions)
	order := make([]string, len(qs))
	for i, q := range qs {
		order[i] = q.ID
	}
	return &QuestionGroup{
		Name:            name,
		Questions:       qs,
		WorkingOrder:    order,
		Attempts:        NewLedger(),
		MarkedForReview: make(map[string]bool),
		Lifelines:       make(map[string][]string),
	}
}

// Normalize fills in containers a decoded snapshot may have left nil.
func (g *QuestionGroup) Normalize() {
	if g.Attempts == nil {
		g.Attempts = NewLedger()
	}
	if g.MarkedForReview == nil {
		g.MarkedForReview = make(map[string]bool)
	}
	if g.Lifelines == nil {
		g.Lifelines = make(map[string][]string)
	}
	g.byID = nil
}

func (g *QuestionGroup) Len() int {
	return len(g.WorkingOrder)
}

// Question looks up a question of this group by ID.
func (g *QuestionGroup) Question(id string) (Question, bool) {
	if g.byID == nil {
		g.byID = make(map[string]int, len(g.Questions))
		for i, q := range g.Questions {
			g.byID[q.ID] = i
		}
	}
	i, ok := g.byID[id]
	if !ok {
		return Question{}, false
	}
	return g.Questions[i], true
}

// QuestionAt returns the question at position i of the working order.
func (g *QuestionGroup) QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(g.WorkingOrder) {
		return Question{}, false
	}
	return g.Question(g.WorkingOrder[i])
}

// PositionOf returns the working-order position of id, or -1.
func (g *QuestionGroup) PositionOf(id string) int {
	for i, qid := range g.WorkingOrder {
		if qid == id {
			return i
		}
	}
	return -1
}

// NextUnattempted returns the first position after from without an attempt, or -1.
func (g *QuestionGroup) NextUnattempted(from int) int {
	for i := from + 1; i < len(g.WorkingOrder); i++ {
		if !g.Attempts.Has(g.WorkingOrder[i]) {
			return i
		}
	}
	return -1
}

// ResumeIndex is the first working-order position without an attempt, or the
// last position when every question has one.
func (g *QuestionGroup) ResumeIndex() int {
	if i := g.NextUnattempted(-1); i >= 0 {
		return i
	}
	if len(g.WorkingOrder) == 0 {
		return 0
	}
	return len(g.WorkingOrder) - 1
}

// LifelineUsed reports whether the lifeline was spent on questionID.
func (g *QuestionGroup) LifelineUsed(questionID string) bool {
	_, ok := g.Lifelines[questionID]
	return ok
}

// UseLifeline records the option texts the lifeline disabled for questionID.
func (g *QuestionGroup) UseLifeline(questionID string, disabled []string) {
	if g.Lifelines == nil {
		g.Lifelines = make(map[string][]string)
	}
	g.Lifelines[questionID] = append([]string{}, disabled...)
}

// IsComplete reports whether every question holds an attempt.
func (g *QuestionGroup) IsComplete() bool {
	return g.NextUnattempted(-1) < 0
}

// Clone returns a deep copy suitable for snapshotting.
func (g *QuestionGroup) Clone() *QuestionGroup {
	marked := make(map[string]bool, len(g.MarkedForReview))
	for k, v := range g.MarkedForReview {
		if v {
			marked[k] = true
		}
	}
	lifelines := make(map[string][]string, len(g.Lifelines))
	for k, v := range g.Lifelines {
		lifelines[k] = append([]string(nil), v...)
	}
	ledger := NewLedger()
	if g.Attempts != nil {
		ledger = g.Attempts.Clone()
	}
	return &QuestionGroup{
		Name:            g.Name,
		Questions:       append([]Question(nil), g.Questions...),
		WorkingOrder:    append([]string(nil), g.WorkingOrder...),
		Attempts:        ledger,
		MarkedForReview: marked,
		Lifelines:       lifelines,
		IsExpanded:      g.IsExpanded,
		CurrentIndex:    g.CurrentIndex,
		Visited:         g.Visited,
	}
}
