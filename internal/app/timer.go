package app

import (
	"time"

	"quiz-runner/internal/domain"
)

// TimerState is the countdown state of the question on screen.
type TimerState string

const (
	TimerIdle     TimerState = "idle"
	TimerRunning  TimerState = "running"
	TimerAnswered TimerState = "answered"
	TimerExpired  TimerState = "expired"
)

// timer tracks the single countdown of a session. gen increases on every
// start and stop so a tick scheduled before a stop is recognised as stale.
type timer struct {
	state      TimerState
	remaining  int
	gen        uint64
	questionID string
	stop       func()
}

// TimerState reports the countdown state and remaining seconds.
func (e *Engine) TimerState() (TimerState, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state(), e.timer.remaining
}

func (e *Engine) state() TimerState {
	if e.timer.state == "" {
		return TimerIdle
	}
	return e.timer.state
}

// startTimerLocked cancels any running countdown and starts a fresh one for questionID.
func (e *Engine) startTimerLocked(questionID string) {
	e.stopTimerLocked()
	e.timer.state = TimerRunning
	e.timer.remaining = e.cfg.PerQuestionSeconds
	e.timer.questionID = questionID
	gen := e.timer.gen
	e.timer.stop = e.clock.Every(time.Second, func() { e.tick(gen) })
}

// stopTimerLocked cancels the tick source. The state is left to the caller.
func (e *Engine) stopTimerLocked() {
	if e.timer.stop != nil {
		e.timer.stop()
		e.timer.stop = nil
	}
	e.timer.gen++
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.timer.gen || e.timer.state != TimerRunning || e.ended {
		return
	}
	e.timer.remaining--
	e.publishLocked(Event{Type: EventTimerTick, GroupIndex: e.current, Remaining: e.timer.remaining})
	if e.timer.remaining > 0 {
		return
	}

	e.timer.state = TimerExpired
	e.stopTimerLocked()
	g := e.groups[e.current]
	q, ok := g.Question(e.timer.questionID)
	if !ok {
		return
	}
	a := domain.NewAttempt(q, e.display, domain.SelectedTimeout, domain.StatusTimeout, e.cfg.PerQuestionSeconds, e.clock.Now().UTC())
	e.recordLocked(g, a)
}

// recordLocked stores a into g's ledger unless the question already holds an
// attempt; the first handler to record wins and later ones are no-ops.
func (e *Engine) recordLocked(g *domain.QuestionGroup, a domain.Attempt) bool {
	if !g.Attempts.Record(a) {
		e.logger.Debug("attempt already recorded", "question", a.QuestionID, "status", a.Status)
		return false
	}
	e.publishLocked(Event{Type: EventAttemptRecorded, GroupIndex: e.current, Attempt: &a})
	e.persistLocked()
	return true
}

// Answer records the option at displayed position optionIndex for the
// question on screen. Answering a question that already holds an attempt is
// a no-op that returns the stored attempt with domain.ErrAlreadyAttempted.
func (e *Engine) Answer(optionIndex int) (domain.Attempt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return domain.Attempt{}, domain.ErrSessionEnded
	}
	g := e.groups[e.current]
	q, ok := g.QuestionAt(g.CurrentIndex)
	if !ok {
		return domain.Attempt{}, domain.ErrQuestionNotFound
	}
	if prior, ok := g.Attempts.Get(q.ID); ok {
		return prior, domain.ErrAlreadyAttempted
	}
	if err := q.Validate(); err != nil {
		e.noticeLocked("options unavailable for this question")
		return domain.Attempt{}, err
	}
	if optionIndex < 0 || optionIndex >= len(e.display) || e.display[optionIndex].Disabled {
		return domain.Attempt{}, domain.ErrOptionNotFound
	}

	taken := 0
	if e.timer.state == TimerRunning && e.timer.questionID == q.ID {
		taken = e.cfg.PerQuestionSeconds - e.timer.remaining
	}
	e.timer.state = TimerAnswered
	e.stopTimerLocked()

	selected := e.display[optionIndex].Text
	status := domain.StatusWrong
	if domain.NormalizeOption(selected) == domain.NormalizeOption(q.CorrectOption) {
		status = domain.StatusCorrect
	}
	a := domain.NewAttempt(q, e.display, selected, status, taken, e.clock.Now().UTC())
	e.recordLocked(g, a)
	return a, nil
}

// UseLifeline disables two incorrect options of the question on screen. It
// is allowed once per question, even across revisits and resumes, and only
// while the countdown runs.
func (e *Engine) UseLifeline() ([]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended || e.timer.state != TimerRunning {
		return nil, domain.ErrLifelineUnavailable
	}
	g := e.groups[e.current]
	q, ok := g.QuestionAt(g.CurrentIndex)
	if !ok || q.Validate() != nil || g.LifelineUsed(q.ID) {
		return nil, domain.ErrLifelineUnavailable
	}

	correct := domain.NormalizeOption(q.CorrectOption)
	var candidates []int
	for i, opt := range e.display {
		if !opt.Disabled && domain.NormalizeOption(opt.Text) != correct {
			candidates = append(candidates, i)
		}
	}
	e.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	texts := make([]string, 0, len(candidates))
	for _, i := range candidates {
		e.display[i].Disabled = true
		texts = append(texts, e.display[i].Text)
	}
	g.UseLifeline(q.ID, texts)
	if v, ok := e.viewLocked(); ok {
		e.publishLocked(Event{Type: EventQuestionUpdated, GroupIndex: e.current, Question: &v})
	}
	e.persistLocked()
	return candidates, nil
}

// showLocked puts the current question of the current group on screen. An
// answered question shows its stored outcome and never restarts the countdown.
func (e *Engine) showLocked() {
	e.stopTimerLocked()
	g := e.groups[e.current]
	q, ok := g.QuestionAt(g.CurrentIndex)
	if !ok {
		e.timer.state = TimerIdle
		e.display = nil
		return
	}

	if a, done := g.Attempts.Get(q.ID); done {
		e.timer.state = TimerIdle
		e.timer.remaining = 0
		e.display = append([]domain.DisplayedOption(nil), a.Options...)
	} else {
		e.display = e.displayOptionsLocked(q)
		e.startTimerLocked(q.ID)
	}

	if v, ok := e.viewLocked(); ok {
		e.publishLocked(Event{Type: EventQuestionChanged, GroupIndex: e.current, Question: &v, Remaining: v.Remaining})
	}
}

func (e *Engine) displayOptionsLocked(q domain.Question) []domain.DisplayedOption {
	if q.Validate() != nil {
		return nil
	}
	var order []int
	if e.cfg.ShuffleEnabled {
		order = e.rnd.Perm(len(q.Options))
	}
	opts := domain.DisplayOptions(q, order)
	g := e.groups[e.current]
	for _, text := range g.Lifelines[q.ID] {
		for i := range opts {
			if opts[i].Text == text {
				opts[i].Disabled = true
			}
		}
	}
	return opts
}

func (e *Engine) viewLocked() (QuestionView, bool) {
	g := e.groups[e.current]
	q, ok := g.QuestionAt(g.CurrentIndex)
	if !ok {
		return QuestionView{}, false
	}
	v := QuestionView{
		GroupIndex:      e.current,
		GroupName:       g.Name,
		Index:           g.CurrentIndex,
		Total:           g.Len(),
		QuestionID:      q.ID,
		DisplayID:       q.DisplayID,
		Prompt:          q.Prompt,
		PromptHi:        q.PromptHi,
		Source:          q.Source,
		Options:         append([]domain.DisplayedOption(nil), e.display...),
		Malformed:       q.Validate() != nil,
		MarkedForReview: g.MarkedForReview[q.ID],
		Bookmarked:      e.settings.IsBookmarked(q.ID),
		TimerState:      e.state(),
		LifelineUsed:    g.LifelineUsed(q.ID),
	}
	if e.timer.state == TimerRunning {
		v.Remaining = e.timer.remaining
	}
	if a, ok := g.Attempts.Get(q.ID); ok {
		v.Attempt = &a
	}
	return v, true
}
