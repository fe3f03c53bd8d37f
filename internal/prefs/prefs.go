// Package prefs persists client-local preferences: the color theme, the
// medical disclaimer acknowledgement and the CLI session token.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Keys in the preferences file.
const (
	KeyTheme      = "theme"
	KeyDisclaimer = "glucare_disclaimer_accepted_v1"
	KeySession    = "session_token"
	KeyAPIURL     = "api_url"
)

// Themes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// ErrInvalidTheme is returned for a theme other than dark or light.
var ErrInvalidTheme = errors.New("theme must be \"dark\" or \"light\"")

// Store is a YAML-file backed preference set. Every setter writes through.
type Store struct {
	path string

	mu sync.Mutex
	k  *koanf.Koanf
}

// Open loads the preferences at path. A missing file is an empty set.
func Open(path string) (*Store, error) {
	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load prefs %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat prefs %s: %w", path, err)
	}
	return &Store{path: path, k: k}, nil
}

// DefaultPath is ~/.glucare/prefs.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "glucare-prefs.yaml"
	}
	return filepath.Join(home, ".glucare", "prefs.yaml")
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Theme returns the stored theme, dark when unset or unknown.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.k.String(KeyTheme) == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// SetTheme stores the theme.
func (s *Store) SetTheme(theme string) error {
	if theme != ThemeDark && theme != ThemeLight {
		return ErrInvalidTheme
	}
	return s.set(KeyTheme, theme)
}

// ToggleTheme flips between dark and light and returns the new theme.
func (s *Store) ToggleTheme() (string, error) {
	next := ThemeLight
	if s.Theme() == ThemeLight {
		next = ThemeDark
	}
	return next, s.SetTheme(next)
}

// DisclaimerAccepted reports whether the disclaimer was acknowledged.
func (s *Store) DisclaimerAccepted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k.Bool(KeyDisclaimer)
}

// AcceptDisclaimer records the acknowledgement.
func (s *Store) AcceptDisclaimer() error {
	return s.set(KeyDisclaimer, true)
}

// SessionToken returns the stored session token, if any.
func (s *Store) SessionToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k.String(KeySession)
}

// SetSessionToken stores the session token.
func (s *Store) SetSessionToken(token string) error {
	return s.set(KeySession, token)
}

// ClearSession forgets the session token.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.k.Delete(KeySession)
	return s.saveLocked()
}

// APIURL returns the stored server URL override.
func (s *Store) APIURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.k.String(KeyAPIURL)
}

func (s *Store) set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.k.Set(key, value); err != nil {
		return err
	}
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	b, err := s.k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
