package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-runner/internal/clock"
	"quiz-runner/internal/domain"
)

// SessionRepository keeps the live engines, one per profile.
type SessionRepository interface {
	Put(profileID string, engine *Engine)
	Get(profileID string) (*Engine, bool)
	Delete(profileID string)
}

// QuestionRepository supplies the filtered question list (from cache/backing store).
type QuestionRepository interface {
	ListQuestions(ctx context.Context, filter domain.FilterCriteria) ([]domain.Question, error)
}

// StartRequest selects the questions and knobs of a new session. Zero knobs
// fall back to the service defaults.
type StartRequest struct {
	Filter             domain.FilterCriteria `json:"filter"`
	GroupSize          int                   `json:"groupSize,omitempty"`
	PerQuestionSeconds int                   `json:"perQuestionSeconds,omitempty"`
}

// QuizService contains the session use cases of every profile.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	store     *Persistence
	defaults  domain.SessionConfig
	clock     clock.Clock
	logger    *slog.Logger
	seed      func() int64

	mu   sync.Mutex
	hubs map[string]*Broadcaster
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithClock replaces the wall clock, e.g. with clock.Manual in tests.
func WithClock(c clock.Clock) Option {
	return func(s *QuizService) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *QuizService) { s.logger = l }
}

// WithSeed makes shuffling deterministic.
func WithSeed(seed int64) Option {
	return func(s *QuizService) { s.seed = func() int64 { return seed } }
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository, store *Persistence, defaults domain.SessionConfig, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  sessions,
		questions: questions,
		store:     store,
		defaults:  defaults,
		clock:     clock.NewReal(),
		logger:    slog.Default(),
		seed:      func() int64 { return time.Now().UnixNano() },
		hubs:      make(map[string]*Broadcaster),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start discards any live session of the profile and starts a new one over
// the filtered question list.
func (s *QuizService) Start(ctx context.Context, profileID string, req StartRequest) (*Engine, error) {
	settings, err := s.store.LoadSettings(ctx, profileID)
	if err != nil {
		s.logger.Warn("using default settings", "profile", profileID, "error", err)
	}
	cfg := s.defaults
	if req.GroupSize > 0 {
		cfg.GroupSize = req.GroupSize
	}
	if req.PerQuestionSeconds > 0 {
		cfg.PerQuestionSeconds = req.PerQuestionSeconds
	}
	cfg.ShuffleEnabled = settings.Shuffle

	questions, err := s.questions.ListQuestions(ctx, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	engine, err := NewEngine(questions, s.engineOptions(profileID, uuid.NewString(), cfg, req.Filter, settings))
	if err != nil {
		return nil, err
	}

	s.replace(profileID, engine)
	if err := engine.Start(); err != nil {
		return nil, err
	}
	s.logger.Info("session started", "profile", profileID, "session", engine.ID(), "questions", len(questions), "groups", engine.GroupCount())
	return engine, nil
}

// Resumable reports whether the profile has a live session or a readable snapshot.
func (s *QuizService) Resumable(ctx context.Context, profileID string) (bool, error) {
	if engine, ok := s.sessions.Get(profileID); ok && !engine.Ended() {
		return true, nil
	}
	_, err := s.store.LoadSession(ctx, profileID)
	if errors.Is(err, domain.ErrNothingToResume) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Resume returns the live session of the profile or rebuilds it from its snapshot.
func (s *QuizService) Resume(ctx context.Context, profileID string) (*Engine, error) {
	if engine, ok := s.sessions.Get(profileID); ok && !engine.Ended() {
		return engine, nil
	}
	snap, err := s.store.LoadSession(ctx, profileID)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.LoadSettings(ctx, profileID)
	if err != nil {
		s.logger.Warn("using default settings", "profile", profileID, "error", err)
	}
	cfg := snap.Config
	cfg.ShuffleEnabled = settings.Shuffle

	engine, err := ResumeEngine(snap, s.engineOptions(profileID, snap.ID, cfg, snap.Filter, settings))
	if err != nil {
		s.logger.Error("snapshot cannot be resumed", "profile", profileID, "error", err)
		if derr := s.store.DeleteSession(ctx, profileID); derr != nil {
			s.logger.Warn("failed to clear session snapshot", "profile", profileID, "error", derr)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrNothingToResume, err)
	}

	s.replace(profileID, engine)
	if err := engine.Start(); err != nil {
		return nil, err
	}
	s.logger.Info("session resumed", "profile", profileID, "session", engine.ID(), "group", engine.CurrentGroupIndex())
	return engine, nil
}

// Session returns the live engine of the profile.
func (s *QuizService) Session(profileID string) (*Engine, error) {
	engine, ok := s.sessions.Get(profileID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return engine, nil
}

// Restart drops the live session and its snapshot.
func (s *QuizService) Restart(ctx context.Context, profileID string) error {
	if engine, ok := s.sessions.Get(profileID); ok {
		engine.Discard()
		s.sessions.Delete(profileID)
	}
	return s.store.DeleteSession(ctx, profileID)
}

// Settings returns the profile's settings record.
func (s *QuizService) Settings(ctx context.Context, profileID string) (domain.Settings, error) {
	if engine, ok := s.sessions.Get(profileID); ok && !engine.Ended() {
		return engine.Settings(), nil
	}
	return s.store.LoadSettings(ctx, profileID)
}

// ToggleSetting flips a settings flag, through the live session when there is one.
func (s *QuizService) ToggleSetting(ctx context.Context, profileID, name string) (domain.Settings, error) {
	if engine, ok := s.sessions.Get(profileID); ok && !engine.Ended() {
		return engine.ToggleSetting(name)
	}
	settings, err := s.store.LoadSettings(ctx, profileID)
	if err != nil {
		return settings, err
	}
	if _, err := settings.Toggle(name); err != nil {
		return settings, err
	}
	if err := s.store.SaveSettings(ctx, profileID, settings); err != nil {
		s.logger.Warn("settings write failed", "profile", profileID, "error", err)
	}
	s.publishSettings(profileID, settings)
	return settings, nil
}

// ToggleBookmark adds or removes a question from the profile's bookmarks.
func (s *QuizService) ToggleBookmark(ctx context.Context, profileID, questionID string) (bool, error) {
	if engine, ok := s.sessions.Get(profileID); ok && !engine.Ended() {
		return engine.ToggleBookmark(questionID), nil
	}
	settings, err := s.store.LoadSettings(ctx, profileID)
	if err != nil {
		return false, err
	}
	on := settings.ToggleBookmark(questionID)
	if err := s.store.SaveSettings(ctx, profileID, settings); err != nil {
		s.logger.Warn("settings write failed", "profile", profileID, "error", err)
	}
	s.publishSettings(profileID, settings)
	return on, nil
}

// Subscribe returns a channel that receives every event of the profile's
// sessions. The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(profileID string) (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.hubs[profileID]
	if !ok {
		b = NewBroadcaster()
		s.hubs[profileID] = b
	}
	ch, unsubscribe := b.Subscribe()

	cancel := func() {
		unsubscribe()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.hubs[profileID] == b && b.Len() == 0 {
			delete(s.hubs, profileID)
		}
	}
	return ch, cancel
}

// HubCount reports how many profiles have at least one subscriber.
func (s *QuizService) HubCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hubs)
}

// publish delivers ev to the profile's subscribers, if any. Hubs exist only
// while someone listens, so engines look theirs up on every event.
func (s *QuizService) publish(profileID string, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.hubs[profileID]; ok {
		b.Publish(ev)
	}
}

func (s *QuizService) publishSettings(profileID string, settings domain.Settings) {
	s.publish(profileID, Event{Type: EventSettingsChanged, Settings: &settings})
}

func (s *QuizService) replace(profileID string, engine *Engine) {
	if prev, ok := s.sessions.Get(profileID); ok {
		prev.Discard()
	}
	s.sessions.Put(profileID, engine)
}

func (s *QuizService) engineOptions(profileID, sessionID string, cfg domain.SessionConfig, filter domain.FilterCriteria, settings domain.Settings) EngineOptions {
	return EngineOptions{
		ID:       sessionID,
		Config:   cfg,
		Filter:   filter,
		Settings: settings,
		Clock:    s.clock,
		Rand:     rand.New(rand.NewSource(s.seed())),
		Logger:   s.logger.With("profile", profileID),
		Emit:     func(ev Event) { s.publish(profileID, ev) },
		Persist:  s.store.For(profileID),
	}
}
