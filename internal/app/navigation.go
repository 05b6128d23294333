package app

import (
	"fmt"

	"quiz-runner/internal/domain"
	"quiz-runner/internal/review"
)

// Move describes where a navigation call left the session.
type Move string

const (
	MoveNone     Move = "none"
	MoveQuestion Move = "question"
	MoveGroup    Move = "group"
	MoveEnded    Move = "ended"
)

// GoNext advances to the next unattempted question of the group. When none
// remains after the current position the earliest unattempted one is shown;
// a fully attempted group hands over to the next group, and the last group
// ends the session.
func (e *Engine) GoNext() (Move, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return MoveNone, domain.ErrSessionEnded
	}
	g := e.groups[e.current]
	next := g.NextUnattempted(g.CurrentIndex)
	if next < 0 {
		next = g.NextUnattempted(-1)
	}
	if next >= 0 && next != g.CurrentIndex {
		g.CurrentIndex = next
		e.showLocked()
		e.persistLocked()
		return MoveQuestion, nil
	}
	if !g.IsComplete() {
		// Only the question on screen is left.
		return MoveNone, nil
	}
	return e.finishGroupLocked(), nil
}

// GoPrevious steps back one question inside the current group. It never
// crosses into an earlier group and reports false at the first question.
func (e *Engine) GoPrevious() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return false, domain.ErrSessionEnded
	}
	g := e.groups[e.current]
	if g.CurrentIndex <= 0 {
		return false, nil
	}
	g.CurrentIndex--
	e.showLocked()
	e.persistLocked()
	return true, nil
}

// JumpTo shows questionID of group groupIndex, switching groups in either
// direction. An unknown question is a soft error that leaves the session
// untouched; an out-of-range group resets the session.
func (e *Engine) JumpTo(groupIndex int, questionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return domain.ErrSessionEnded
	}
	if groupIndex < 0 || groupIndex >= len(e.groups) {
		return e.invalidGroupLocked(groupIndex)
	}
	g := e.groups[groupIndex]
	pos := g.PositionOf(questionID)
	if pos < 0 {
		e.noticeLocked("question not found")
		return fmt.Errorf("%w: %s in group %d", domain.ErrQuestionNotFound, questionID, groupIndex)
	}
	if groupIndex != e.current {
		e.stopTimerLocked()
		e.current = groupIndex
		g.Visited = true
		e.publishLocked(Event{Type: EventGroupChanged, GroupIndex: e.current, GroupName: g.Name})
	}
	g.CurrentIndex = pos
	e.showLocked()
	e.persistLocked()
	return nil
}

// SubmitGroup records a skipped attempt for every unattempted question of the
// current group and then leaves the group the way GoNext does once it is
// exhausted.
func (e *Engine) SubmitGroup() (Move, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return MoveNone, domain.ErrSessionEnded
	}
	e.stopTimerLocked()
	e.timer.state = TimerIdle
	g := e.groups[e.current]
	now := e.clock.Now().UTC()
	onScreen, _ := g.QuestionAt(g.CurrentIndex)
	for _, id := range g.WorkingOrder {
		if g.Attempts.Has(id) {
			continue
		}
		q, ok := g.Question(id)
		if !ok {
			continue
		}
		shown := domain.DisplayOptions(q, nil)
		if id == onScreen.ID && e.display != nil {
			shown = e.display
		}
		e.recordLocked(g, domain.NewAttempt(q, shown, domain.SelectedSkipped, domain.StatusSkipped, 0, now))
	}
	return e.finishGroupLocked(), nil
}

// Abort ends the session at the host's request with whatever has been scored.
func (e *Engine) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return
	}
	e.endLocked(ReasonAborted)
}

// Discard stops the countdown and drops the session without events or
// persistence changes.
func (e *Engine) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.timer.state = TimerIdle
	e.ended = true
}

func (e *Engine) enterGroupLocked(index int) {
	e.stopTimerLocked()
	e.current = index
	g := e.groups[index]
	g.Visited = true
	g.CurrentIndex = g.ResumeIndex()
	e.publishLocked(Event{Type: EventGroupChanged, GroupIndex: index, GroupName: g.Name})
	e.showLocked()
	e.persistLocked()
}

func (e *Engine) finishGroupLocked() Move {
	e.stopTimerLocked()
	e.timer.state = TimerIdle
	g := e.groups[e.current]
	summary := review.Summarize(g)
	e.publishLocked(Event{Type: EventGroupCompleted, GroupIndex: e.current, GroupName: g.Name, Summary: &summary})
	if e.current+1 < len(e.groups) {
		e.enterGroupLocked(e.current + 1)
		return MoveGroup
	}
	e.endLocked(ReasonCompleted)
	return MoveEnded
}

func (e *Engine) endLocked(reason string) {
	e.stopTimerLocked()
	e.timer.state = TimerIdle
	e.ended = true
	total, per := review.SummarizeAll(e.groups)
	e.deleteSnapshotLocked()
	e.publishLocked(Event{Type: EventSessionEnded, GroupIndex: e.current, Summary: &total, Groups: per, Reason: reason})
}

// invalidGroupLocked treats an out-of-range group index as an invariant
// violation: the session is dropped and the host is told to restart.
func (e *Engine) invalidGroupLocked(index int) error {
	err := fmt.Errorf("%w: %d of %d", domain.ErrInvalidGroupIndex, index, len(e.groups))
	e.logger.Error("resetting session", "error", err)
	e.stopTimerLocked()
	e.timer.state = TimerIdle
	e.ended = true
	e.deleteSnapshotLocked()
	e.publishLocked(Event{Type: EventSessionReset, GroupIndex: e.current, Reason: ReasonInvariant, Notice: err.Error()})
	return err
}
