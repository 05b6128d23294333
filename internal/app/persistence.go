package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"quiz-runner/internal/domain"
)

// KVStore is the local key/value persistence backend (memory, Redis, SQLite).
// Get returns domain.ErrRecordNotFound for missing keys.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Persistence encodes the two per-profile records, session and settings, on
// top of a KVStore. Unreadable records are treated as absent and cleared.
type Persistence struct {
	kv       KVStore
	logger   *slog.Logger
	defaults domain.Settings
}

func NewPersistence(kv KVStore, logger *slog.Logger) *Persistence {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persistence{kv: kv, logger: logger, defaults: domain.DefaultSettings()}
}

// WithDefaultSettings sets the record returned for profiles that have none.
func (p *Persistence) WithDefaultSettings(settings domain.Settings) *Persistence {
	p.defaults = settings.Clone()
	return p
}

func sessionKey(profileID string) string {
	return "quiz:" + profileID + ":session"
}

func settingsKey(profileID string) string {
	return "quiz:" + profileID + ":settings"
}

// LoadSession returns the active snapshot for the profile, or
// domain.ErrNothingToResume when there is none or it cannot be read.
func (p *Persistence) LoadSession(ctx context.Context, profileID string) (domain.SessionSnapshot, error) {
	raw, err := p.kv.Get(ctx, sessionKey(profileID))
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.SessionSnapshot{}, domain.ErrNothingToResume
	}
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("load session: %w", err)
	}

	var snap domain.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		p.discardCorrupt(ctx, profileID, err)
		return domain.SessionSnapshot{}, domain.ErrNothingToResume
	}
	if err := checkSnapshot(snap); err != nil {
		p.discardCorrupt(ctx, profileID, err)
		return domain.SessionSnapshot{}, domain.ErrNothingToResume
	}
	if !snap.IsActive {
		return domain.SessionSnapshot{}, domain.ErrNothingToResume
	}
	for _, g := range snap.Groups {
		g.Normalize()
	}
	return snap, nil
}

func checkSnapshot(snap domain.SessionSnapshot) error {
	if len(snap.Groups) == 0 {
		return errors.New("snapshot has no groups")
	}
	for i, g := range snap.Groups {
		if g == nil {
			return fmt.Errorf("snapshot group %d is empty", i)
		}
		if len(g.WorkingOrder) != len(g.Questions) {
			return fmt.Errorf("snapshot group %d working order has %d entries for %d questions", i, len(g.WorkingOrder), len(g.Questions))
		}
	}
	return nil
}

func (p *Persistence) discardCorrupt(ctx context.Context, profileID string, cause error) {
	p.logger.Warn("discarding unreadable session snapshot", "profile", profileID, "error", cause)
	if err := p.kv.Delete(ctx, sessionKey(profileID)); err != nil {
		p.logger.Warn("failed to clear session snapshot", "profile", profileID, "error", err)
	}
}

func (p *Persistence) SaveSession(ctx context.Context, profileID string, snap domain.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return p.kv.Set(ctx, sessionKey(profileID), data)
}

func (p *Persistence) DeleteSession(ctx context.Context, profileID string) error {
	return p.kv.Delete(ctx, sessionKey(profileID))
}

// LoadSettings returns the stored settings or defaults when missing or unreadable.
func (p *Persistence) LoadSettings(ctx context.Context, profileID string) (domain.Settings, error) {
	raw, err := p.kv.Get(ctx, settingsKey(profileID))
	if errors.Is(err, domain.ErrRecordNotFound) {
		return p.defaults.Clone(), nil
	}
	if err != nil {
		return p.defaults.Clone(), fmt.Errorf("load settings: %w", err)
	}
	settings := p.defaults.Clone()
	if err := json.Unmarshal(raw, &settings); err != nil {
		p.logger.Warn("discarding unreadable settings", "profile", profileID, "error", err)
		_ = p.kv.Delete(ctx, settingsKey(profileID))
		return p.defaults.Clone(), nil
	}
	if settings.Bookmarks == nil {
		settings.Bookmarks = []string{}
	}
	return settings, nil
}

func (p *Persistence) SaveSettings(ctx context.Context, profileID string, settings domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return p.kv.Set(ctx, settingsKey(profileID), data)
}

// For binds the store to one profile.
func (p *Persistence) For(profileID string) *ProfileStore {
	return &ProfileStore{p: p, profileID: profileID}
}

// Persister is what an Engine writes to after each state change.
type Persister interface {
	SaveSession(ctx context.Context, snap domain.SessionSnapshot) error
	DeleteSession(ctx context.Context) error
	SaveSettings(ctx context.Context, settings domain.Settings) error
}

// ProfileStore is a Persister scoped to one profile.
type ProfileStore struct {
	p         *Persistence
	profileID string
}

func (s *ProfileStore) SaveSession(ctx context.Context, snap domain.SessionSnapshot) error {
	return s.p.SaveSession(ctx, s.profileID, snap)
}

func (s *ProfileStore) DeleteSession(ctx context.Context) error {
	return s.p.DeleteSession(ctx, s.profileID)
}

func (s *ProfileStore) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return s.p.SaveSettings(ctx, s.profileID, settings)
}
