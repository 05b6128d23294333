package app

import (
	"sync"

	"quiz-runner/internal/domain"
	"quiz-runner/internal/review"
)

// EventType names an output event of the engine.
type EventType string

const (
	EventQuestionChanged     EventType = "question-changed"
	EventQuestionUpdated     EventType = "question-updated"
	EventAttemptRecorded     EventType = "attempt-recorded"
	EventTimerTick           EventType = "timer-tick"
	EventGroupChanged        EventType = "group-changed"
	EventGroupCompleted      EventType = "group-completed"
	EventSessionEnded        EventType = "session-ended"
	EventSessionReset        EventType = "session-reset"
	EventReviewFilterChanged EventType = "review-filter-changed"
	EventSettingsChanged     EventType = "settings-changed"
	EventNotice              EventType = "notice"
)

// Reasons carried by session-ended and session-reset events.
const (
	ReasonCompleted = "completed"
	ReasonAborted   = "aborted"
	ReasonInvariant = "invariant-violation"
)

// Event is a single notification for the presentation layer. Only the fields
// relevant to Type are set.
type Event struct {
	Type       EventType        `json:"type"`
	SessionID  string           `json:"sessionId"`
	GroupIndex int              `json:"groupIndex"`
	GroupName  string           `json:"groupName,omitempty"`
	Question   *QuestionView    `json:"question,omitempty"`
	Attempt    *domain.Attempt  `json:"attempt,omitempty"`
	Remaining  int              `json:"remaining"`
	Summary    *review.Summary  `json:"summary,omitempty"`
	Groups     []review.Summary `json:"groups,omitempty"`
	Review     *review.View     `json:"review,omitempty"`
	Settings   *domain.Settings `json:"settings,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Notice     string           `json:"notice,omitempty"`
}

// QuestionView is what the presentation layer needs to draw the current question.
type QuestionView struct {
	GroupIndex      int                      `json:"groupIndex"`
	GroupName       string                   `json:"groupName"`
	Index           int                      `json:"index"`
	Total           int                      `json:"total"`
	QuestionID      string                   `json:"questionId"`
	DisplayID       string                   `json:"displayId,omitempty"`
	Prompt          string                   `json:"prompt"`
	PromptHi        string                   `json:"promptHi,omitempty"`
	Source          domain.SourceInfo        `json:"source"`
	Options         []domain.DisplayedOption `json:"options"`
	Malformed       bool                     `json:"malformed,omitempty"`
	Attempt         *domain.Attempt          `json:"attempt,omitempty"`
	MarkedForReview bool                     `json:"markedForReview"`
	Bookmarked      bool                     `json:"bookmarked"`
	TimerState      TimerState               `json:"timerState"`
	Remaining       int                      `json:"remaining"`
	LifelineUsed    bool                     `json:"lifelineUsed"`
}

// Broadcaster fans events out to subscriber channels. A slow subscriber loses
// its oldest buffered event rather than blocking the publisher.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of events. The caller must invoke the returned
// cancel function to avoid leaks.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// Len reports the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
