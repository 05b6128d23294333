package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quiz-runner/internal/clock"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/ordering"
	"quiz-runner/internal/review"
)

const persistTimeout = 2 * time.Second

// EngineOptions wires an Engine to its collaborators. Zero values fall back
// to a real clock, a time-seeded source, slog.Default and no persistence.
type EngineOptions struct {
	ID       string
	Config   domain.SessionConfig
	Filter   domain.FilterCriteria
	Settings domain.Settings
	Clock    clock.Clock
	Rand     *rand.Rand
	Logger   *slog.Logger
	Emit     func(Event)
	Persist  Persister
}

// Engine runs one quiz session. Every public method and every timer tick
// takes the same lock, so handlers never interleave; emit callbacks run with
// that lock held and must not call back into the engine.
type Engine struct {
	mu sync.Mutex

	id       string
	cfg      domain.SessionConfig
	filter   domain.FilterCriteria
	settings domain.Settings
	groups   []*domain.QuestionGroup
	current  int
	started  bool
	ended    bool

	timer   timer
	display []domain.DisplayedOption

	view        *review.View
	reviewGroup int

	clock   clock.Clock
	rnd     *rand.Rand
	logger  *slog.Logger
	emit    func(Event)
	persist Persister
}

// NewEngine partitions questions into groups and computes each working order.
// Call Start to display the first question.
func NewEngine(questions []domain.Question, opts EngineOptions) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if _, ok := seen[q.ID]; ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}

	e := newEngine(opts)
	groups, err := ordering.Partition(questions, e.cfg.GroupSize)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		ordering.Apply(g, e.cfg.ShuffleEnabled, e.rnd)
	}
	e.groups = groups
	return e, nil
}

// ResumeEngine rebuilds an engine from a persisted snapshot. The active group
// resumes at its first unattempted question.
func ResumeEngine(snap domain.SessionSnapshot, opts EngineOptions) (*Engine, error) {
	if len(snap.Groups) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if snap.CurrentGroupIndex < 0 || snap.CurrentGroupIndex >= len(snap.Groups) {
		return nil, fmt.Errorf("%w: %d of %d", domain.ErrInvalidGroupIndex, snap.CurrentGroupIndex, len(snap.Groups))
	}
	if opts.ID == "" {
		opts.ID = snap.ID
	}
	opts.Filter = snap.Filter
	if snap.Config.GroupSize > 0 {
		shuffle := opts.Config.ShuffleEnabled
		opts.Config = snap.Config
		opts.Config.ShuffleEnabled = shuffle
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	e := newEngine(opts)
	e.groups = make([]*domain.QuestionGroup, len(snap.Groups))
	for i, g := range snap.Groups {
		g.Normalize()
		e.groups[i] = g.Clone()
	}
	e.current = snap.CurrentGroupIndex
	return e, nil
}

func newEngine(opts EngineOptions) *Engine {
	e := &Engine{
		id:       opts.ID,
		cfg:      opts.Config,
		filter:   opts.Filter,
		settings: opts.Settings.Clone(),
		clock:    opts.Clock,
		rnd:      opts.Rand,
		logger:   opts.Logger,
		emit:     opts.Emit,
		persist:  opts.Persist,
	}
	if e.clock == nil {
		e.clock = clock.NewReal()
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.emit == nil {
		e.emit = func(Event) {}
	}
	e.logger = e.logger.With("session", e.id)
	return e
}

// Start enters the current group and displays its resume question.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return domain.ErrSessionEnded
	}
	if e.started {
		return nil
	}
	e.started = true
	e.enterGroupLocked(e.current)
	return nil
}

func (e *Engine) ID() string { return e.id }

// Ended reports whether the session has ended or been reset.
func (e *Engine) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

func (e *Engine) CurrentGroupIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// GroupCount returns the number of groups in the session.
func (e *Engine) GroupCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.groups)
}

// Group returns a copy of the group at index.
func (e *Engine) Group(index int) (*domain.QuestionGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.groups) {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidGroupIndex, index)
	}
	return e.groups[index].Clone(), nil
}

// Current returns the view of the question on screen.
func (e *Engine) Current() (QuestionView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended || !e.started {
		return QuestionView{}, false
	}
	return e.viewLocked()
}

func (e *Engine) Settings() domain.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Clone()
}

// Snapshot returns the persisted form of the session.
func (e *Engine) Snapshot() domain.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Summary scores the whole session and each group.
func (e *Engine) Summary() (review.Summary, []review.Summary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return review.SummarizeAll(e.groups)
}

// GroupSummary scores one group.
func (e *Engine) GroupSummary(index int) (review.Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.groups) {
		return review.Summary{}, fmt.Errorf("%w: %d", domain.ErrInvalidGroupIndex, index)
	}
	return review.Summarize(e.groups[index]), nil
}

func (e *Engine) snapshotLocked() domain.SessionSnapshot {
	groups := make([]*domain.QuestionGroup, len(e.groups))
	for i, g := range e.groups {
		groups[i] = g.Clone()
	}
	return domain.SessionSnapshot{
		ID:                e.id,
		IsActive:          e.started && !e.ended,
		Groups:            groups,
		CurrentGroupIndex: e.current,
		Filter:            e.filter,
		Config:            e.cfg,
		SavedAt:           e.clock.Now().UTC(),
	}
}

// persistLocked writes the session record. Failures are logged and otherwise
// ignored; the in-memory state stays authoritative.
func (e *Engine) persistLocked() {
	if e.persist == nil || e.ended {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.persist.SaveSession(ctx, e.snapshotLocked()); err != nil {
		e.logger.Warn("session snapshot write failed", "error", err)
	}
}

func (e *Engine) persistSettingsLocked() {
	if e.persist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.persist.SaveSettings(ctx, e.settings); err != nil {
		e.logger.Warn("settings write failed", "error", err)
	}
}

func (e *Engine) deleteSnapshotLocked() {
	if e.persist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.persist.DeleteSession(ctx); err != nil {
		e.logger.Warn("session snapshot delete failed", "error", err)
	}
}

func (e *Engine) publishLocked(ev Event) {
	ev.SessionID = e.id
	e.emit(ev)
}

func (e *Engine) noticeLocked(msg string) {
	e.publishLocked(Event{Type: EventNotice, GroupIndex: e.current, Notice: msg})
}

// ToggleSetting flips a settings flag. Turning shuffle on or off reorders the
// unattempted suffix of the active group and the whole order of groups not
// yet visited.
func (e *Engine) ToggleSetting(name string) (domain.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	value, err := e.settings.Toggle(name)
	if err != nil {
		return e.settings.Clone(), err
	}
	if name == domain.SettingShuffle && !e.ended {
		e.cfg.ShuffleEnabled = value
		for i, g := range e.groups {
			switch {
			case i == e.current && e.started:
				ordering.ReorderSuffix(g, value, e.rnd)
			case !g.Visited:
				ordering.Apply(g, value, e.rnd)
			}
		}
		e.persistLocked()
	}
	e.persistSettingsLocked()
	settings := e.settings.Clone()
	e.publishLocked(Event{Type: EventSettingsChanged, GroupIndex: e.current, Settings: &settings})
	return settings, nil
}

// ToggleBookmark adds or removes a question from the profile's bookmarks.
func (e *Engine) ToggleBookmark(questionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	on := e.settings.ToggleBookmark(questionID)
	e.persistSettingsLocked()
	settings := e.settings.Clone()
	e.publishLocked(Event{Type: EventSettingsChanged, GroupIndex: e.current, Settings: &settings})
	if v, ok := e.viewLocked(); ok && v.QuestionID == questionID && !e.ended {
		e.publishLocked(Event{Type: EventQuestionUpdated, GroupIndex: e.current, Question: &v})
	}
	return on
}

// ToggleMarkForReview flags the question on screen for a later look.
func (e *Engine) ToggleMarkForReview() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return false, domain.ErrSessionEnded
	}
	g := e.groups[e.current]
	q, ok := g.QuestionAt(g.CurrentIndex)
	if !ok {
		return false, domain.ErrQuestionNotFound
	}
	marked := !g.MarkedForReview[q.ID]
	if marked {
		g.MarkedForReview[q.ID] = true
	} else {
		delete(g.MarkedForReview, q.ID)
	}
	e.persistLocked()
	if v, ok := e.viewLocked(); ok {
		e.publishLocked(Event{Type: EventQuestionUpdated, GroupIndex: e.current, Question: &v})
	}
	return marked, nil
}

// ToggleExpanded flips the presentation flag of a group.
func (e *Engine) ToggleExpanded(groupIndex int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if groupIndex < 0 || groupIndex >= len(e.groups) {
		if e.ended {
			return false, fmt.Errorf("%w: %d", domain.ErrInvalidGroupIndex, groupIndex)
		}
		return false, e.invalidGroupLocked(groupIndex)
	}
	g := e.groups[groupIndex]
	g.IsExpanded = !g.IsExpanded
	e.persistLocked()
	return g.IsExpanded, nil
}

// SetReviewFilter rebuilds the review view of a group for kind.
func (e *Engine) SetReviewFilter(groupIndex int, kind review.FilterKind) (*review.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if groupIndex < 0 || groupIndex >= len(e.groups) {
		if e.ended {
			return nil, fmt.Errorf("%w: %d", domain.ErrInvalidGroupIndex, groupIndex)
		}
		return nil, e.invalidGroupLocked(groupIndex)
	}
	if e.view == nil {
		e.view = &review.View{}
	}
	e.reviewGroup = groupIndex
	e.view.SetFilter(e.groups[groupIndex].Attempts, kind, e.settings.BookmarkSet())
	return e.publishReviewLocked(), nil
}

// NavigateReview moves the review cursor by delta, clamped to the list.
func (e *Engine) NavigateReview(delta int) *review.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		e.reviewGroup = e.current
		e.view = review.NewView(e.groups[e.current].Attempts)
	}
	e.view.Navigate(delta)
	return e.publishReviewLocked()
}

func (e *Engine) publishReviewLocked() *review.View {
	out := e.view.Clone()
	e.publishLocked(Event{
		Type:       EventReviewFilterChanged,
		GroupIndex: e.reviewGroup,
		GroupName:  e.groups[e.reviewGroup].Name,
		Review:     e.view.Clone(),
	})
	return out
}
