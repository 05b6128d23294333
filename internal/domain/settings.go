package domain

import (
	"fmt"
	"slices"
)

// Setting names accepted by Settings.Toggle.
const (
	SettingShuffle         = "shuffle"
	SettingMute            = "mute"
	SettingTheme           = "theme"
	SettingAnimations      = "animations"
	SettingHaptics         = "haptics"
	SettingHeaderCollapsed = "headerCollapsed"
)

// Settings is the persisted preferences record of a profile.
type Settings struct {
	Shuffle            bool     `json:"shuffle"`
	Mute               bool     `json:"mute"`
	DarkTheme          bool     `json:"darkTheme"`
	AnimationsDisabled bool     `json:"animationsDisabled"`
	Haptics            bool     `json:"haptics"`
	HeaderCollapsed    bool     `json:"headerCollapsed"`
	Bookmarks          []string `json:"bookmarks"`
}

// DefaultSettings are used when no settings record exists.
func DefaultSettings() Settings {
	return Settings{Haptics: true, Bookmarks: []string{}}
}

// Toggle flips the named flag and returns its new value.
func (s *Settings) Toggle(name string) (bool, error) {
	var flag *bool
	switch name {
	case SettingShuffle:
		flag = &s.Shuffle
	case SettingMute:
		flag = &s.Mute
	case SettingTheme:
		flag = &s.DarkTheme
	case SettingAnimations:
		flag = &s.AnimationsDisabled
	case SettingHaptics:
		flag = &s.Haptics
	case SettingHeaderCollapsed:
		flag = &s.HeaderCollapsed
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	*flag = !*flag
	return *flag, nil
}

func (s Settings) IsBookmarked(questionID string) bool {
	return slices.Contains(s.Bookmarks, questionID)
}

// ToggleBookmark adds or removes the question and reports whether it is now bookmarked.
func (s *Settings) ToggleBookmark(questionID string) bool {
	if i := slices.Index(s.Bookmarks, questionID); i >= 0 {
		s.Bookmarks = slices.Delete(s.Bookmarks, i, i+1)
		return false
	}
	s.Bookmarks = append(s.Bookmarks, questionID)
	return true
}

// BookmarkSet returns the bookmarks as a lookup set.
func (s Settings) BookmarkSet() map[string]bool {
	set := make(map[string]bool, len(s.Bookmarks))
	for _, id := range s.Bookmarks {
		set[id] = true
	}
	return set
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	s.Bookmarks = append([]string{}, s.Bookmarks...)
	return s
}
