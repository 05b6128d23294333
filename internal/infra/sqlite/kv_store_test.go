package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

func openTestStore(t *testing.T) *KVStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestKVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Set(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != "two" {
		t.Fatalf("expected two, got %q %v", got, err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
}

func TestSettingsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quiz.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	p := app.NewPersistence(store, nil)
	settings := domain.DefaultSettings()
	settings.Shuffle = true
	settings.ToggleBookmark("q7")
	if err := p.SaveSettings(ctx, "p1", settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	store.Close()

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	got, err := app.NewPersistence(store, nil).LoadSettings(ctx, "p1")
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if !got.Shuffle || !got.IsBookmarked("q7") {
		t.Fatalf("expected persisted settings, got %+v", got)
	}
}
